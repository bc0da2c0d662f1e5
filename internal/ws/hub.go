package ws

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"log/slog"
	"nhooyr.io/websocket"

	"github.com/CodeCanvasArtisan/chatroom-backend/internal/app"
	"github.com/CodeCanvasArtisan/chatroom-backend/internal/store"
	"github.com/CodeCanvasArtisan/chatroom-backend/pkg/auth"
)

// MessageStore durably records a chat message and returns the row with
// its assigned id and timestamp.
type MessageStore interface {
	AppendMessage(ctx context.Context, chatID, senderID int64, content string) (store.Message, error)
}

// Directory answers whether a user belongs to a chat and what to call them
type Directory interface {
	IsMember(ctx context.Context, chatID, userID int64) (bool, error)
	DisplayName(ctx context.Context, userID int64) (string, error)
}

// Hub owns the relay: it admits connections through the handshake
// (authenticate, authorize membership) and runs one session per
// connection against the shared registry.
type Hub struct {
	log *slog.Logger
	reg *Registry
	db  MessageStore
	dir Directory
	jwt *auth.JWT

	echoSelfJoin bool
	sendBuffer   int
}

// NewHub wires the relay against its collaborators
func NewHub(logger *slog.Logger, reg *Registry, db MessageStore, dir Directory, j *auth.JWT, cfg app.Config) *Hub {
	return &Hub{
		log:          logger,
		reg:          reg,
		db:           db,
		dir:          dir,
		jwt:          j,
		echoSelfJoin: cfg.EchoSelfJoin,
		sendBuffer:   cfg.SendBuffer,
	}
}

// bearerToken pulls the credential from the upgrade request: ?token=
// first, Authorization header as a fallback. Either way it arrives
// before any data payload.
func bearerToken(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	if b := r.Header.Get("Authorization"); strings.HasPrefix(b, "Bearer ") {
		return strings.TrimPrefix(b, "Bearer ")
	}
	return ""
}

// ServeWS handles a new /ws/{chatId} connection. The handshake runs
// strictly in order: accept, authenticate, authorize membership, join.
// A connection rejected before joining emits no room events anywhere.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	chatID, err := strconv.ParseInt(r.PathValue("chatId"), 10, 64)
	if err != nil || chatID <= 0 {
		http.Error(w, "invalid chat id", http.StatusBadRequest)
		return
	}

	sock, err := Accept(w, r)
	if err != nil {
		h.log.Error("ws.accept", "err", err)
		return
	}

	// Authenticating
	uid, err := h.jwt.Verify(bearerToken(r))
	if err != nil {
		h.log.Info("ws.auth.reject", "chat", chatID, "err", err)
		_ = sock.Close(StatusAuthFailed, "invalid credential")
		return
	}

	// AuthorizingMembership; re-checked at join time only, membership is
	// fixed for the lifetime of a connection
	ctx := r.Context()
	member, err := h.dir.IsMember(ctx, chatID, uid)
	if err != nil {
		h.log.Error("ws.membership", "chat", chatID, "user", uid, "err", err)
		_ = sock.Close(websocket.StatusInternalError, "membership check failed")
		return
	}
	if !member {
		h.log.Info("ws.membership.reject", "chat", chatID, "user", uid)
		_ = sock.Close(StatusNotMember, "not a member of this chat")
		return
	}

	name, err := h.dir.DisplayName(ctx, uid)
	if err != nil || name == "" {
		name = "user " + strconv.FormatInt(uid, 10)
	}

	// Joining -> Active; the session owns the connection from here
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := NewConn(sock, chatID, uid, name, h.sendBuffer, cancel)
	s := &session{hub: h, conn: c, cancel: cancel}
	s.run(sctx)
}
