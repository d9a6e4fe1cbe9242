// Package realtime pushes chat and notification events to connected
// clients over WebSocket.
package realtime

import (
	"encoding/json"
	"sync"
)

// Event is the wire envelope for every realtime frame.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Event names pushed to clients.
const (
	EventConnected       = "connected"
	EventMessageReceived = "message received"
	EventNotification    = "notification"
	EventTyping          = "typing"
	EventStopTyping      = "stop typing"
	EventMessageError    = "message:error"
)

// Room keys. Every connection joins its personal user room at
// registration; chat rooms are joined on demand.
func UserRoom(userID string) string { return "user:" + userID }
func ChatRoom(chatID string) string { return "chat:" + chatID }

// sender delivers an event to one connection. It must not block; a
// false return marks the connection stale.
type sender func(Event) bool

// Hub tracks which connections are in which rooms and fans events out
// to them. Safe for concurrent use.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]sender // room -> connID -> send
	conns map[string]map[string]bool   // connID -> rooms joined
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[string]sender),
		conns: make(map[string]map[string]bool),
	}
}

// Join adds a connection to a room, registering it on first use.
func (h *Hub) Join(connID, room string, send sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]sender)
	}
	h.rooms[room][connID] = send
	if h.conns[connID] == nil {
		h.conns[connID] = make(map[string]bool)
	}
	h.conns[connID][room] = true
}

// Leave removes a connection from a single room.
func (h *Hub) Leave(connID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(connID, room)
}

// Unregister removes a connection from every room it joined.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range h.conns[connID] {
		h.leaveLocked(connID, room)
	}
	delete(h.conns, connID)
}

func (h *Hub) leaveLocked(connID, room string) {
	if members := h.rooms[room]; members != nil {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms := h.conns[connID]; rooms != nil {
		delete(rooms, room)
	}
}

// Broadcast sends an event to every connection in the room except the
// ones named in exclude (typically the originating connection). Stale
// connections are evicted as they are found.
func (h *Hub) Broadcast(room string, event Event, exclude ...string) int {
	h.mu.RLock()
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	targets := make(map[string]sender, len(h.rooms[room]))
	for connID, send := range h.rooms[room] {
		if !skip[connID] {
			targets[connID] = send
		}
	}
	h.mu.RUnlock()

	var stale []string
	delivered := 0
	for connID, send := range targets {
		if send(event) {
			delivered++
		} else {
			stale = append(stale, connID)
		}
	}
	for _, connID := range stale {
		h.Unregister(connID)
	}
	return delivered
}

// SendToUser delivers an event to every connection in a user's
// personal room and reports whether at least one received it.
func (h *Hub) SendToUser(userID string, event Event) bool {
	return h.Broadcast(UserRoom(userID), event) > 0
}

// RoomSize reports how many connections are in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// NewEvent marshals data into an event envelope. Marshal failures are
// programmer errors on our own types, so data is dropped rather than
// surfaced.
func NewEvent(name string, data any) Event {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{Name: name}
	}
	return Event{Name: name, Data: raw}
}
