package httpx

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/CodeCanvasArtisan/chatroom-backend/internal/app"
	"github.com/CodeCanvasArtisan/chatroom-backend/internal/store"
	"github.com/CodeCanvasArtisan/chatroom-backend/internal/ws"
	"github.com/CodeCanvasArtisan/chatroom-backend/pkg/auth"
	"github.com/CodeCanvasArtisan/chatroom-backend/pkg/metrics"
)

// NewRouter wires up all HTTP routes, middleware, and handlers
func NewRouter(cfg app.Config, logger *slog.Logger, hub *ws.Hub, db *store.Postgres, dir *store.Directory) http.Handler {
	mw := NewMiddleware(cfg)

	j := auth.New(cfg.JWTSecret)
	authAPI := &AuthAPI{DB: db, Names: dir, JWT: j, TokenTTL: time.Duration(cfg.TokenTTLMin) * time.Minute}
	chatsAPI := &ChatsAPI{DB: db}

	mux := http.NewServeMux()

	// Health / readiness / metrics
	mux.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/metrics", metrics.Handler())

	// WebSocket relay endpoint; the hub authenticates the credential itself
	mux.Handle("GET /ws/{chatId}", http.HandlerFunc(hub.ServeWS))

	// Users + sessions
	mux.Handle("POST /api/users", http.HandlerFunc(authAPI.Register))
	mux.Handle("POST /api/sessions", http.HandlerFunc(authAPI.Login))
	mux.Handle("GET /api/me", mw.Auth(http.HandlerFunc(authAPI.Me)))
	mux.Handle("PATCH /api/me", mw.Auth(http.HandlerFunc(authAPI.UpdateMe)))

	// Chats (JWT-protected)
	mux.Handle("POST /api/chats", mw.Auth(http.HandlerFunc(chatsAPI.Create)))
	mux.Handle("GET /api/chats", mw.Auth(http.HandlerFunc(chatsAPI.List)))
	mux.Handle("POST /api/chats/join", mw.Auth(http.HandlerFunc(chatsAPI.Join)))
	mux.Handle("PATCH /api/chats/{id}", mw.Auth(http.HandlerFunc(chatsAPI.Rename)))
	mux.Handle("DELETE /api/chats/{id}", mw.Auth(http.HandlerFunc(chatsAPI.Delete)))
	mux.Handle("GET /api/chats/{id}/members", mw.Auth(http.HandlerFunc(chatsAPI.Members)))
	mux.Handle("POST /api/chats/{id}/members", mw.Auth(http.HandlerFunc(chatsAPI.AddMember)))
	mux.Handle("DELETE /api/chats/{id}/members/{uid}", mw.Auth(http.HandlerFunc(chatsAPI.RemoveMember)))
	mux.Handle("POST /api/chats/{id}/pin", mw.Auth(http.HandlerFunc(chatsAPI.Pin)))
	mux.Handle("DELETE /api/chats/{id}/pin", mw.Auth(http.HandlerFunc(chatsAPI.Unpin)))
	mux.Handle("GET /api/chats/{id}/messages", mw.Auth(http.HandlerFunc(chatsAPI.Messages)))

	// CORS + rate limit applied globally
	return mw.Wrap(mux)
}
