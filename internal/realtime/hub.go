package realtime

import (
	"sync"
)

// Client represents a single websocket client connection.
// We keep it minimal here; the actual network conn is managed in the ws handler.
type Client interface {
	// Send writes one outbound frame; false means the write failed or the
	// transport is no longer writable.
	Send(message []byte) bool
	// Ping sends a transport-level ping probe (not the JSON ping frame).
	Ping() bool
	// Alive reports whether the last probe was answered.
	Alive() bool
	SetAlive(alive bool)
	// Terminate forcibly closes the underlying transport.
	Terminate()
}

// Hub is the connection registry: it tracks every open session for the
// liveness sweep, and maps authenticated users to their live connections for
// fan-out. It is the only shared mutable structure in the realtime layer.
//
// A single Hub is constructed at startup and handed to the dispatcher, the
// liveness monitor, and the websocket handler.
type Hub struct {
	mu       sync.RWMutex
	sessions map[Client]struct{}
	users    map[string]map[Client]struct{}
	bound    map[Client]string
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[Client]struct{}),
		users:    make(map[string]map[Client]struct{}),
		bound:    make(map[Client]string),
	}
}

// Track records a newly opened, not yet authenticated session. The liveness
// monitor probes tracked sessions regardless of authentication state.
func (h *Hub) Track(client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[client] = struct{}{}
}

// Untrack removes a session entirely: from the session set and, if it was
// authenticated, from its user's connection set. Safe to call more than once.
func (h *Hub) Untrack(client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, client)
	h.unregisterLocked(client)
}

// Register binds a client to a user and adds it to that user's connection
// set. Registering the same client twice is a no-op; re-registering under a
// different user moves it (a client belongs to at most one user's set).
func (h *Hub) Register(userID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.bound[client]; ok {
		if old == userID {
			return
		}
		h.unregisterLocked(client)
	}
	if _, ok := h.users[userID]; !ok {
		h.users[userID] = make(map[Client]struct{})
	}
	h.users[userID][client] = struct{}{}
	h.bound[client] = userID
}

// Unregister removes a client from whichever user set it belongs to; if the
// user has no more clients, the user entry is cleaned up. A client that was
// never registered is a no-op.
func (h *Hub) Unregister(client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregisterLocked(client)
}

func (h *Hub) unregisterLocked(client Client) {
	userID, ok := h.bound[client]
	if !ok {
		return
	}
	delete(h.bound, client)
	if clients, ok := h.users[userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.users, userID)
		}
	}
}

// UserOf returns the user a client is registered under, or "" if unbound.
func (h *Hub) UserOf(client Client) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.bound[client]
}

// ConnectionsFor returns a snapshot of the user's live connections. The
// caller must not assume they are still open by the time it iterates.
func (h *Hub) ConnectionsFor(userID string) []Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := h.users[userID]
	out := make([]Client, 0, len(clients))
	for c := range clients {
		out = append(out, c)
	}
	return out
}

// AllConnections returns a snapshot of every registered (authenticated)
// connection across all users, for broadcast.
func (h *Hub) AllConnections() []Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Client, 0, len(h.bound))
	for _, clients := range h.users {
		for c := range clients {
			out = append(out, c)
		}
	}
	return out
}

// Sessions returns a snapshot of every open session, authenticated or not.
func (h *Hub) Sessions() []Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Client, 0, len(h.sessions))
	for c := range h.sessions {
		out = append(out, c)
	}
	return out
}
