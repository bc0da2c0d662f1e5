package ws

import (
	"sync"

	"log/slog"

	"github.com/CodeCanvasArtisan/chatroom-backend/pkg/metrics"
)

// Registry is the single source of truth for which connections are live
// in which room. All mutation goes through Join/Leave; nobody outside
// this type iterates room membership directly.
type Registry struct {
	log *slog.Logger

	mu    sync.RWMutex
	rooms map[int64]map[*Conn]struct{} // live connections by chat id
}

// NewRegistry creates an empty registry
func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{log: log, rooms: map[int64]map[*Conn]struct{}{}}
}

// Join adds a connection to its room, creating the room entry if absent.
// Callers must call Join at most once per connection.
func (r *Registry) Join(chatID int64, c *Conn) {
	r.mu.Lock()
	set := r.rooms[chatID]
	if set == nil {
		set = map[*Conn]struct{}{}
		r.rooms[chatID] = set
		metrics.ActiveRooms.Inc()
	}
	set[c] = struct{}{}
	r.mu.Unlock()

	metrics.ActiveConnections.Inc()
	r.log.Debug("registry.join", "chat", chatID, "conn", c.id, "user", c.userID)
}

// Leave removes a connection from its room and deletes the room entry
// when it empties. A no-op for absent rooms or connections, so a
// double-teardown race is harmless.
func (r *Registry) Leave(chatID int64, c *Conn) {
	r.mu.Lock()
	set, ok := r.rooms[chatID]
	if !ok {
		r.mu.Unlock()
		return
	}
	if _, ok := set[c]; !ok {
		r.mu.Unlock()
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(r.rooms, chatID)
		metrics.ActiveRooms.Dec()
	}
	r.mu.Unlock()

	metrics.ActiveConnections.Dec()
	r.log.Debug("registry.leave", "chat", chatID, "conn", c.id, "user", c.userID)
}

// Snapshot returns a point-in-time copy of a room's connections. The
// copy is taken under the lock; callers iterate it lock-free, so no
// per-connection I/O ever happens while the registry is locked.
func (r *Registry) Snapshot(chatID int64) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.rooms[chatID]
	if !ok {
		return nil
	}
	out := make([]*Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// Active reports whether the room currently has any live connections
func (r *Registry) Active(chatID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[chatID]
	return ok
}

// Count returns the room's live connection count
func (r *Registry) Count(chatID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[chatID])
}

// Broadcast delivers the envelope to every connection currently in the
// room. Delivery is per-connection independent: a peer whose buffer is
// full is dropped (its own session tears it down) and the remaining
// peers still receive the frame. Broadcasting to an absent room is a
// no-op.
func (r *Registry) Broadcast(chatID int64, env Envelope) {
	r.broadcast(chatID, env, nil)
}

// BroadcastExcept is Broadcast minus one connection, used when the join
// announcement policy excludes the joiner itself.
func (r *Registry) BroadcastExcept(chatID int64, env Envelope, skip *Conn) {
	r.broadcast(chatID, env, skip)
}

func (r *Registry) broadcast(chatID int64, env Envelope, skip *Conn) {
	conns := r.Snapshot(chatID)
	if len(conns) == 0 {
		return
	}

	frame := env.encode()
	for _, c := range conns {
		if c == skip {
			continue
		}
		if !c.enqueue(frame) {
			metrics.BroadcastDrops.Inc()
			r.log.Warn("registry.broadcast.drop", "chat", chatID, "conn", c.id, "user", c.userID)
			c.Drop()
		}
	}
}
