package sockets

import (
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var ErrClosed = errors.New("closed connection")

const (
	defaultSendBuffer = 16
	writeWait         = 10 * time.Second
)

type Connection interface {
	Send(msg Msg) error
	io.Closer
}

// Msg is the message structure.
type Msg struct {
	Body []byte
}

// Hub accepts websocket clients and broadcasts messages to all of them.
type Hub struct {
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	pingMsg      []byte
	sendBuffer   int
	onConnected  func(Connection)
	onError      func(error)

	mu      sync.RWMutex
	clients map[*Conn]struct{}
	closed  bool
}

// Conn is a single connected client. Writes happen on its own goroutine.
type Conn struct {
	hub  *Hub
	ws   *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

func NewHub(opts ...func(*Hub)) *Hub {
	h := &Hub{
		sendBuffer: defaultSendBuffer,
		clients:    make(map[*Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// ServeHTTP upgrades the request and keeps the client registered until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.reportErr(err)
		return
	}
	c := &Conn{
		hub:  h,
		ws:   ws,
		send: make(chan []byte, h.sendBuffer),
		done: make(chan struct{}),
	}

	go c.writeLoop()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = c.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	// registered first so no broadcast issued from here on is missed.
	if h.onConnected != nil {
		h.onConnected(c)
	}

	c.readLoop()
}

// Broadcast queues body for every client. Clients that cannot keep up are dropped.
func (h *Hub) Broadcast(body []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if err := c.Send(Msg{Body: body}); err != nil {
			go c.Close()
		}
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.Close()
	}
	return nil
}

func (h *Hub) remove(c *Conn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *Hub) reportErr(err error) {
	if err != nil && h.onError != nil {
		h.onError(err)
	}
}

func (c *Conn) Send(msg Msg) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- msg.Body:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

// Closes the connection.
func (c *Conn) Close() error {
	c.once.Do(func() {
		close(c.done)
		c.hub.remove(c)
		_ = c.ws.Close()
	})
	return nil
}

// readLoop discards client messages and returns once the peer goes away.
func (c *Conn) readLoop() {
	defer c.Close()
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.reportErr(err)
			}
			return
		}
	}
}

func (c *Conn) writeLoop() {
	var tick <-chan time.Time
	if c.hub.pingInterval > 0 && len(c.hub.pingMsg) > 0 {
		ticker := time.NewTicker(c.hub.pingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-c.done:
			return
		case body := <-c.send:
			if err := c.write(body); err != nil {
				c.hub.reportErr(err)
				_ = c.Close()
				return
			}
		case <-tick:
			if err := c.write(c.hub.pingMsg); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}

func (c *Conn) write(body []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, body)
}
