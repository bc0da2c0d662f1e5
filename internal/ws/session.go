package ws

import (
	"context"
	"time"

	"nhooyr.io/websocket"

	"github.com/CodeCanvasArtisan/chatroom-backend/pkg/metrics"
)

// session runs one connection's life from join to cleanup. States are
// strictly sequential; Active loops until the transport closes, errors,
// or the context is cancelled (all three look identical here). Joining
// the room acquires a release obligation that runs on every exit path.
type session struct {
	hub    *Hub
	conn   *Conn
	cancel context.CancelFunc
}

func (s *session) run(ctx context.Context) {
	h, c := s.hub, s.conn

	h.reg.Join(c.chatID, c)
	defer s.teardown()

	h.log.Info("ws.join", "chat", c.chatID, "user", c.userID, "conn", c.id,
		"room_size", h.reg.Count(c.chatID))

	// Announce the join. The joiner observes its own user_joined frame
	// unless configured otherwise.
	joined := joinedEnvelope(c.name, time.Now())
	if h.echoSelfJoin {
		h.reg.Broadcast(c.chatID, joined)
	} else {
		h.reg.BroadcastExcept(c.chatID, joined, c)
	}

	go c.WriteLoop(ctx)

	// Active: receive, persist, broadcast, in that order. Frames from
	// one sender are relayed in the order received.
	for {
		content, ok := c.Read(ctx)
		if !ok {
			return
		}

		// Every authorized payload gets a record, the empty string included
		msg, err := h.db.AppendMessage(ctx, c.chatID, c.userID, content)
		if err != nil {
			// The frame never reached durable history, so nobody may see
			// it. Close the sender; readers stay consistent.
			metrics.PersistFailures.Inc()
			h.log.Error("ws.persist", "chat", c.chatID, "user", c.userID, "err", err)
			_ = c.Close(websocket.StatusInternalError, "message not persisted")
			return
		}

		h.reg.Broadcast(c.chatID, messageEnvelope(c.name, msg.Content, msg.SentAt))
		metrics.MessagesRelayed.Inc()
	}
}

// teardown is the release obligation taken on at join: unregister,
// announce the departure to whoever remains, release the transport.
// It runs exactly once, on every exit path out of the active loop.
func (s *session) teardown() {
	h, c := s.hub, s.conn

	h.reg.Leave(c.chatID, c)
	h.reg.Broadcast(c.chatID, leftEnvelope(c.name, time.Now()))

	s.cancel()
	_ = c.Close(websocket.StatusNormalClosure, "bye")

	h.log.Info("ws.leave", "chat", c.chatID, "user", c.userID, "conn", c.id,
		"room_size", h.reg.Count(c.chatID))
}
