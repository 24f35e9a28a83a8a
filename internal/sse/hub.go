// Package sse streams room updates to connected clients as server-sent events.
package sse

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/mcoot/openface/internal/dependencies/clock"
	"github.com/mcoot/openface/internal/model"
)

// PresenceFunc is told when a player's first stream to a room opens and when
// their last one closes
type PresenceFunc func(code model.RoomCode, uid model.PlayerID, connected bool)

// Hub manages SSE clients for a single room
type Hub struct {
	code     model.RoomCode
	clock    clock.Clock
	clients  map[*Client]bool
	streams  map[model.PlayerID]int
	version  int64
	presence PresenceFunc
	mu       sync.RWMutex
	logger   *slog.Logger

	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	closeOnce  sync.Once
}

type message struct {
	version int64
	data    []byte
}

// NewHub creates a new Hub for a room. presence may be nil.
func NewHub(code model.RoomCode, clk clock.Clock, presence PresenceFunc, logger *slog.Logger) *Hub {
	return &Hub{
		code:       code,
		clock:      clk,
		clients:    make(map[*Client]bool),
		streams:    make(map[model.PlayerID]int),
		presence:   presence,
		logger:     logger.With(slog.String("room", string(code))),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Debug("sse hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.streams[client.playerID]++
			first := h.streams[client.playerID] == 1
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("sse client registered",
				slog.String("player_id", string(client.playerID)),
				slog.Int("total_clients", clientCount))
			if first {
				h.notifyPresence(client.playerID, true)
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; !ok {
				h.mu.Unlock()
				continue
			}
			delete(h.clients, client)
			close(client.send)
			h.streams[client.playerID]--
			last := h.streams[client.playerID] == 0
			if last {
				delete(h.streams, client.playerID)
			}
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("sse client unregistered",
				slog.String("player_id", string(client.playerID)),
				slog.Duration("connection_duration", h.clock.Since(client.connectedAt)),
				slog.Int("total_clients", clientCount))
			if last {
				h.notifyPresence(client.playerID, false)
			}

		case msg := <-h.broadcast:
			h.send(msg)

		case <-h.done:
			// deliver anything queued before the close, e.g. the room-closed event
			for drained := false; !drained; {
				select {
				case msg := <-h.broadcast:
					h.send(msg)
				default:
					drained = true
				}
			}
			h.mu.Lock()
			clientCount := len(h.clients)
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Debug("sse hub stopped", slog.Int("disconnected_clients", clientCount))
			return
		}
	}
}

func (h *Hub) send(msg message) {
	h.mu.Lock()
	if msg.version > 0 {
		if msg.version <= h.version {
			h.mu.Unlock()
			return
		}
		h.version = msg.version
	}
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	dropped := 0
	for client := range h.clients {
		select {
		case client.send <- msg.data:
		default:
			dropped++
			h.logger.Warn("sse message dropped - client buffer full",
				slog.String("player_id", string(client.playerID)))
		}
	}
	if dropped > 0 {
		h.logger.Warn("sse broadcast partial failure",
			slog.Int("sent", len(h.clients)-dropped),
			slog.Int("dropped", dropped))
	}
}

func (h *Hub) notifyPresence(uid model.PlayerID, connected bool) {
	if h.presence != nil {
		h.presence(h.code, uid, connected)
	}
}

// Register adds a client to the hub. It reports false if the hub has closed.
func (h *Hub) Register(client *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast sends a message to all clients
func (h *Hub) Broadcast(data []byte) {
	h.enqueue(message{data: data})
}

// BroadcastEvent sends an SSE event with a name and data
func (h *Hub) BroadcastEvent(eventName, data string) {
	h.Broadcast(formatSSEMessage(eventName, data))
}

// BroadcastVersion sends an event for a room version. Versions at or below
// the last one sent are dropped, so clients never see the room go backwards.
func (h *Hub) BroadcastVersion(version int64, eventName, data string) {
	h.enqueue(message{version: version, data: formatSSEMessage(eventName, data)})
}

func (h *Hub) enqueue(msg message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("sse broadcast dropped - hub buffer full")
	}
}

// Close shuts down the hub
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Streams returns the number of open streams held by a player
func (h *Hub) Streams(uid model.PlayerID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.streams[uid]
}

// formatSSEMessage formats an SSE message with event name and data.
// Each line of multi-line data gets its own "data: " prefix.
func formatSSEMessage(eventName, data string) []byte {
	var b strings.Builder
	b.WriteString("event: " + eventName + "\n")
	for _, line := range splitLines(data) {
		b.WriteString("data: " + line + "\n")
	}
	b.WriteString("\n")
	return []byte(b.String())
}

// splitLines splits a string into lines, dropping carriage returns
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

// HubManager manages hubs for all rooms
type HubManager struct {
	hubs     map[model.RoomCode]*Hub
	clock    clock.Clock
	presence PresenceFunc
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewHubManager creates a new HubManager. presence may be nil.
func NewHubManager(clk clock.Clock, presence PresenceFunc, logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:     make(map[model.RoomCode]*Hub),
		clock:    clk,
		presence: presence,
		logger:   logger.With(slog.String("component", "sse")),
	}
}

// GetOrCreateHub returns the hub for a room, creating one if it doesn't exist
func (m *HubManager) GetOrCreateHub(code model.RoomCode) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[code]; ok {
		return hub
	}

	hub := NewHub(code, m.clock, m.presence, m.logger)
	m.hubs[code] = hub
	go hub.Run()
	return hub
}

// GetHub returns the hub for a room, or nil if it doesn't exist
func (m *HubManager) GetHub(code model.RoomCode) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[code]
}

// Attach registers a new client for uid on the room's hub. A hub closed by a
// concurrent cleanup is replaced.
func (m *HubManager) Attach(code model.RoomCode, uid model.PlayerID) *Client {
	for {
		hub := m.GetOrCreateHub(code)
		client := NewClient(hub, uid, m.clock.Now())
		if hub.Register(client) {
			return client
		}
		m.forget(code, hub)
	}
}

// forget drops hub from the map if it is still the room's hub
func (m *HubManager) forget(code model.RoomCode, hub *Hub) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hubs[code] == hub {
		delete(m.hubs, code)
	}
}

// RemoveHub removes and closes a hub
func (m *HubManager) RemoveHub(code model.RoomCode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[code]; ok {
		hub.Close()
		delete(m.hubs, code)
		m.logger.Debug("sse hub removed", slog.String("room", string(code)))
	}
}

// CleanupEmptyHubs removes hubs with no clients
func (m *HubManager) CleanupEmptyHubs() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for code, hub := range m.hubs {
		if hub.ClientCount() == 0 {
			hub.Close()
			delete(m.hubs, code)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Debug("sse empty hubs cleaned up", slog.Int("removed", removed))
	}
	return removed
}

// HubCount returns the number of live hubs
func (m *HubManager) HubCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hubs)
}

// Close shuts down every hub
func (m *HubManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for code, hub := range m.hubs {
		hub.Close()
		delete(m.hubs, code)
	}
}
