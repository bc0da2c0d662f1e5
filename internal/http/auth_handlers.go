package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/CodeCanvasArtisan/chatroom-backend/internal/store"
	"github.com/CodeCanvasArtisan/chatroom-backend/pkg/auth"
)

// UserStore is the slice of the store the auth API needs
type UserStore interface {
	CreateUser(ctx context.Context, username, email, displayName, password string) (store.User, error)
	VerifyUser(ctx context.Context, login, password string) (store.User, error)
	GetUser(ctx context.Context, id int64) (store.User, error)
	UpdateDisplayName(ctx context.Context, id int64, displayName string) (store.User, error)
}

// NameCache drops stale display-name entries after a profile update
type NameCache interface {
	Invalidate(ctx context.Context, userID int64)
}

type AuthAPI struct {
	DB       UserStore
	Names    NameCache
	JWT      *auth.JWT
	TokenTTL time.Duration
}

type registerReq struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}
type loginReq struct {
	Login    string `json:"login"` // username or email
	Password string `json:"password"`
}
type tokenResp struct {
	Token string      `json:"access_token"`
	Type  string      `json:"token_type"`
	User  authUserDTO `json:"user"`
}
type authUserDTO struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func userDTO(u store.User) authUserDTO {
	return authUserDTO{ID: u.ID, Username: u.Username, Email: u.Email, DisplayName: u.DisplayName}
}

// Register handles user signup and returns a JWT
func (a *AuthAPI) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	// Basic validation
	if req.Username == "" || len(req.Password) < 8 || !strings.Contains(req.Email, "@") {
		http.Error(w, "invalid username, email or weak password", http.StatusBadRequest)
		return
	}

	u, err := a.DB.CreateUser(r.Context(), req.Username, req.Email, req.DisplayName, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			http.Error(w, "username already in use", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create account", http.StatusInternalServerError)
		return
	}

	tok, err := a.JWT.Sign(u.ID, a.TokenTTL)
	if err != nil {
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(tokenResp{Token: tok, Type: "bearer", User: userDTO(u)})
}

// Login verifies credentials and returns a JWT
func (a *AuthAPI) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	u, err := a.DB.VerifyUser(r.Context(), req.Login, req.Password)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	tok, err := a.JWT.Sign(u.ID, a.TokenTTL)
	if err != nil {
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, tokenResp{Token: tok, Type: "bearer", User: userDTO(u)})
}

// Me returns the authenticated user
func (a *AuthAPI) Me(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	if uid == 0 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	u, err := a.DB.GetUser(r.Context(), uid)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, userDTO(u))
}

type updateMeReq struct {
	DisplayName string `json:"display_name"`
}

// UpdateMe changes the caller's display name and drops the cached one
func (a *AuthAPI) UpdateMe(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	if uid == 0 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req updateMeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.DisplayName) == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	u, err := a.DB.UpdateDisplayName(r.Context(), uid, strings.TrimSpace(req.DisplayName))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update profile", http.StatusInternalServerError)
		return
	}

	if a.Names != nil {
		a.Names.Invalidate(r.Context(), uid)
	}
	writeJSON(w, userDTO(u))
}

// send JSON with proper headers
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
