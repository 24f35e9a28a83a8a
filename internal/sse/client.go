package sse

import (
	"net/http"
	"time"

	"github.com/mcoot/openface/internal/model"
)

const (
	// Time between keepalive comments
	pingPeriod = 30 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 64

	// Reconnect delay suggested to the browser
	retryMs = "3000"
)

// Client represents a connected SSE client
type Client struct {
	hub         *Hub
	playerID    model.PlayerID
	send        chan []byte
	connectedAt time.Time
}

// NewClient creates a new SSE client
func NewClient(hub *Hub, playerID model.PlayerID, connectedAt time.Time) *Client {
	return &Client{
		hub:         hub,
		playerID:    playerID,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: connectedAt,
	}
}

// Hub returns the hub the client is registered with
func (c *Client) Hub() *Hub {
	return c.hub
}

// ServeSSE streams the client's messages until the request ends or the hub
// closes. initial, if non-empty, is written right after the connected event.
func ServeSSE(w http.ResponseWriter, r *http.Request, client *Client, initial []byte) {
	defer client.hub.Unregister(client)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	_, _ = w.Write([]byte("retry: " + retryMs + "\n\n"))
	_, _ = w.Write(formatSSEMessage(string(model.EventConnected), `{"status":"connected"}`))
	if len(initial) > 0 {
		_, _ = w.Write(initial)
	}
	flusher.Flush()

	ticker := client.hub.clock.NewTicker(pingPeriod, "sse", "keepalive")
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			if _, err := w.Write(message); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

