package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// Close codes for handshake rejections, from the private-use 4000 range
const (
	StatusAuthFailed websocket.StatusCode = 4401
	StatusNotMember  websocket.StatusCode = 4403
)

// Conn wraps one websocket for one room. It is owned by the session that
// created it; the registry only holds a reference for delivery.
type Conn struct {
	id     string
	userID int64
	chatID int64
	name   string

	sock *websocket.Conn
	out  chan []byte

	dropOnce sync.Once
	drop     context.CancelFunc // tears down the owning session
}

// Accept upgrades HTTP to websocket (allow all origins)
func Accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
}

// NewConn wraps a websocket for an authenticated user in a specific room.
// drop is invoked at most once, when delivery to this peer fails.
func NewConn(sock *websocket.Conn, chatID, userID int64, name string, buffer int, drop context.CancelFunc) *Conn {
	if buffer <= 0 {
		buffer = 256
	}
	return &Conn{
		id:     uuid.NewString(),
		userID: userID,
		chatID: chatID,
		name:   name,
		sock:   sock,
		out:    make(chan []byte, buffer),
		drop:   drop,
	}
}

// Read blocks until the next text frame. Returns false when the
// connection is closed or the context is cancelled.
func (c *Conn) Read(ctx context.Context) (string, bool) {
	for {
		typ, data, err := c.sock.Read(ctx)
		if err != nil {
			return "", false
		}
		if typ == websocket.MessageText {
			return string(data), true
		}
	}
}

// WriteLoop sends outbound frames + periodic pings
// Exits when ctx is cancelled
func (c *Conn) WriteLoop(ctx context.Context) {
	t := time.NewTicker(20 * time.Second)
	defer t.Stop()

	for {
		select {
		case b := <-c.out:
			if err := c.sock.Write(ctx, websocket.MessageText, b); err != nil {
				c.Drop()
				return
			}
		case <-t.C:
			if err := c.sock.Ping(ctx); err != nil {
				c.Drop()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// enqueue hands a frame to the write loop without blocking.
// Returns false if the peer's buffer is full.
func (c *Conn) enqueue(b []byte) bool {
	select {
	case c.out <- b:
		return true
	default:
		return false
	}
}

// Drop signals the owning session to tear this connection down.
// Safe to call from any goroutine, any number of times.
func (c *Conn) Drop() {
	c.dropOnce.Do(func() {
		if c.drop != nil {
			c.drop()
		}
	})
}

// Close closes the underlying websocket with the given code
func (c *Conn) Close(code websocket.StatusCode, reason string) error {
	return c.sock.Close(code, reason)
}
