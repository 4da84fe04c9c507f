package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/anicoll/yolink-integration/internal/pkg/model"
	"github.com/anicoll/yolink-integration/pkg/sockets"
)

type Status string

const (
	StatusLoading     Status = "loading"
	StatusOK          Status = "ok"
	StatusError       Status = "error"
	StatusConfigError Status = "config_error"
)

// View is what the dashboard renders: loading, a snapshot, a recoverable fetch error, or a
// terminal configuration error.
type View struct {
	Status       Status              `json:"status"`
	Error        string              `json:"error,omitempty"`
	Notification *model.Notification `json:"notification,omitempty"`
}

// Server is the dashboard sink. It keeps the latest view and streams every change to
// connected websocket clients.
type Server struct {
	hub    *sockets.Hub
	logger *zap.Logger

	mu   sync.RWMutex
	view View
}

func New(hubOpts ...func(*sockets.Hub)) *Server {
	s := &Server{
		logger: zap.L(),
		view:   View{Status: StatusLoading},
	}
	opts := append([]func(*sockets.Hub){}, hubOpts...)
	opts = append(opts, sockets.OnConnected(s.onConnected), sockets.OnError(s.onSocketError))
	s.hub = sockets.NewHub(opts...)
	return s
}

// Publish implements the publisher sink contract.
func (s *Server) Publish(_ context.Context, n model.Notification) error {
	// held through the broadcast so a client connecting now sees views in order.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view.Status == StatusConfigError {
		return nil
	}
	switch n.Kind {
	case model.SensorData:
		s.view = View{Status: StatusOK, Notification: &n}
	case model.FetchError:
		msg := ""
		if n.Failure != nil {
			msg = n.Failure.Message
		}
		s.view = View{Status: StatusError, Error: msg, Notification: &n}
	}
	return s.broadcast(s.view)
}

// SetConfigError puts the dashboard into a terminal configuration error state.
func (s *Server) SetConfigError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = View{Status: StatusConfigError, Error: err.Error()}

	if err := s.broadcast(s.view); err != nil {
		s.logger.Error("failed to broadcast configuration error", zap.Error(err))
	}
}

func (s *Server) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /ws", s.hub)
	mux.HandleFunc("GET /api/snapshot", s.getSnapshot)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return LoggingMiddleware(mux)
}

func (s *Server) Close() error {
	return s.hub.Close()
}

func (s *Server) getSnapshot(w http.ResponseWriter, _ *http.Request) {
	data, err := json.Marshal(s.View())
	if err != nil {
		handleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) broadcast(view View) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	s.hub.Broadcast(data)
	s.logger.Debug("broadcast dashboard view", zap.String("status", string(view.Status)), zap.Int("clients", s.hub.Count()))
	return nil
}

func (s *Server) onConnected(c sockets.Connection) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := json.Marshal(s.view)
	if err != nil {
		s.logger.Error("failed to marshal view", zap.Error(err))
		return
	}
	if err := c.Send(sockets.Msg{Body: data}); err != nil {
		s.logger.Warn("failed to send current view", zap.Error(err))
	}
}

func (s *Server) onSocketError(err error) {
	s.logger.Debug("websocket error", zap.Error(err))
}

func handleError(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte(err.Error()))
}
