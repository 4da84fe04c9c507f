package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/anicoll/yolink-integration/internal/pkg/model"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	original := zap.L()
	// debug logs may come from hub goroutines after the test returns.
	zap.ReplaceGlobals(zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel)))
	t.Cleanup(func() {
		zap.ReplaceGlobals(original)
	})
	s := New()
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestServer_StatusTransitions(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, StatusLoading, s.View().Status)

	snapshot := model.Snapshot{"d1": {DeviceID: "d1", Name: "Kitchen"}}
	require.NoError(t, s.Publish(context.Background(), model.NewSnapshotNotification(snapshot)))
	view := s.View()
	assert.Equal(t, StatusOK, view.Status)
	require.NotNil(t, view.Notification)
	assert.Equal(t, snapshot, view.Notification.Snapshot)

	require.NoError(t, s.Publish(context.Background(), model.NewFailureNotification(model.ApiFailure)))
	view = s.View()
	assert.Equal(t, StatusError, view.Status)
	assert.Equal(t, "Could not fetch device data.", view.Error)

	// a later snapshot recovers from a transient error.
	require.NoError(t, s.Publish(context.Background(), model.NewSnapshotNotification(snapshot)))
	assert.Equal(t, StatusOK, s.View().Status)
}

func TestServer_ConfigErrorIsTerminal(t *testing.T) {
	s := newTestServer(t)
	s.SetConfigError(errors.New("Configuration Error: Please set your uaid and secretKey."))

	require.NoError(t, s.Publish(context.Background(), model.NewSnapshotNotification(model.Snapshot{})))
	view := s.View()
	assert.Equal(t, StatusConfigError, view.Status)
	assert.Equal(t, "Configuration Error: Please set your uaid and secretKey.", view.Error)
}

func TestServer_SnapshotEndpoint(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.Publish(context.Background(), model.NewFailureNotification(model.NoMatchingDevicesFailure)))

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/api/snapshot")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	view := View{}
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, StatusError, view.Status)
	require.NotNil(t, view.Notification)
	assert.Equal(t, model.FetchError, view.Notification.Kind)
	assert.Equal(t, model.NoMatchingDevicesFailure, view.Notification.Failure.Kind)
}

func TestServer_Healthz(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestServer_WebsocketStream(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() View {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		view := View{}
		require.NoError(t, json.Unmarshal(data, &view))
		return view
	}

	assert.Equal(t, StatusLoading, read().Status)
	assert.Eventually(t, func() bool { return s.hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, s.Publish(context.Background(), model.NewSnapshotNotification(model.Snapshot{"d1": {DeviceID: "d1"}})))
	view := read()
	assert.Equal(t, StatusOK, view.Status)
	require.NotNil(t, view.Notification)
	assert.Contains(t, view.Notification.Snapshot, "d1")
}

func TestServer_ClientConnectingDuringPublishesSeesLatestView(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	const publishes = 10
	publish := func(seq int) {
		n := model.NewSnapshotNotification(model.Snapshot{"d1": {DeviceID: "d1", Data: model.DeviceState{"seq": seq}}})
		require.NoError(t, s.Publish(context.Background(), n))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < publishes; i++ {
			publish(i)
			time.Sleep(time.Millisecond)
		}
	}()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	<-done

	last := -1
	for last != publishes-1 {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "client never received the latest view")
		view := View{}
		require.NoError(t, json.Unmarshal(data, &view))
		if view.Notification == nil {
			continue
		}
		seq := int(view.Notification.Snapshot["d1"].Data["seq"].(float64))
		assert.GreaterOrEqual(t, seq, last, "views arrived out of order")
		last = seq
	}
}
