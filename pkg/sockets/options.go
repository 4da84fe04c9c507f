package sockets

import (
	"net/http"
	"time"
)

func WithPingInterval(p time.Duration) func(*Hub) {
	return func(h *Hub) {
		h.pingInterval = p
	}
}

func WithPingMsg(msg []byte) func(*Hub) {
	return func(h *Hub) {
		h.pingMsg = msg
	}
}

// WithSendBuffer sets how many messages may queue for a slow client before it is dropped.
func WithSendBuffer(n int) func(*Hub) {
	return func(h *Hub) {
		h.sendBuffer = n
	}
}

// WithCheckOrigin replaces the default same-origin check of the upgrader.
func WithCheckOrigin(f func(r *http.Request) bool) func(*Hub) {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = f
	}
}

func OnError(f func(error)) func(*Hub) {
	return func(h *Hub) {
		h.onError = f
	}
}

// OnConnected is called for every new client before any broadcast reaches it.
func OnConnected(f func(Connection)) func(*Hub) {
	return func(h *Hub) {
		h.onConnected = f
	}
}
