package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/CodeCanvasArtisan/chatroom-backend/internal/store"
	"github.com/CodeCanvasArtisan/chatroom-backend/pkg/auth"
)

// ChatStore is the slice of the store the chats API needs
type ChatStore interface {
	CreateChat(ctx context.Context, name string, creatorID int64) (store.Chat, error)
	GetChat(ctx context.Context, id int64) (store.Chat, error)
	GetChatByInvite(ctx context.Context, code string) (store.Chat, error)
	ListChatsForUser(ctx context.Context, userID int64) ([]store.Chat, error)
	RenameChat(ctx context.Context, id, callerID int64, name string) (store.Chat, error)
	DeleteChat(ctx context.Context, id, callerID int64) error
	AddMember(ctx context.Context, chatID, userID int64) error
	RemoveMember(ctx context.Context, chatID, userID int64) error
	SetPinned(ctx context.Context, chatID, userID int64, pinned bool) error
	ListMembers(ctx context.Context, chatID int64) ([]store.Member, error)
	IsMember(ctx context.Context, chatID, userID int64) (bool, error)
	ListMessages(ctx context.Context, chatID, beforeID int64, limit int) ([]store.Message, error)
}

type ChatsAPI struct{ DB ChatStore }

type createChatReq struct {
	Name string `json:"name"`
}
type renameChatReq struct {
	NewName string `json:"new_name"`
}
type addMemberReq struct {
	UserID int64 `json:"user_id"`
}
type joinChatReq struct {
	InviteCode string `json:"invite_code"`
}

type chatResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CreatorID  int64  `json:"creator_id"`
	InviteCode string `json:"invite_code,omitempty"`
}

type memberResponse struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Creator     bool   `json:"creator"`
}

type messageResponse struct {
	ID       int64     `json:"id"`
	SenderID int64     `json:"sender_id"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sent_at"`
}

func chatDTO(c store.Chat) chatResponse {
	return chatResponse{ID: c.ID, Name: c.Name, CreatorID: c.CreatorID, InviteCode: c.InviteCode}
}

// statusFromErr maps store sentinels to HTTP status codes
func statusFromErr(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// chatID parses the {id} path segment
func chatID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// requireMember rejects callers outside the chat
func (a *ChatsAPI) requireMember(w http.ResponseWriter, r *http.Request, id int64) bool {
	ok, err := a.DB.IsMember(r.Context(), id, auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, "membership check failed", http.StatusInternalServerError)
		return false
	}
	if !ok {
		http.Error(w, "not a member of this chat", http.StatusForbidden)
		return false
	}
	return true
}

// Create makes a new chat with the caller as creator + first member
func (a *ChatsAPI) Create(w http.ResponseWriter, r *http.Request) {
	var req createChatReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	c, err := a.DB.CreateChat(r.Context(), strings.TrimSpace(req.Name), auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, "failed to create chat", statusFromErr(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(chatDTO(c))
}

// List returns the caller's chats, pinned first
func (a *ChatsAPI) List(w http.ResponseWriter, r *http.Request) {
	chats, err := a.DB.ListChatsForUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, "failed to list chats", http.StatusInternalServerError)
		return
	}

	resp := make([]chatResponse, 0, len(chats))
	for _, c := range chats {
		resp = append(resp, chatDTO(c))
	}
	writeJSON(w, resp)
}

// Rename updates the chat name; creator only
func (a *ChatsAPI) Rename(w http.ResponseWriter, r *http.Request) {
	id, ok := chatID(r)
	if !ok {
		http.Error(w, "invalid chat id", http.StatusBadRequest)
		return
	}
	var req renameChatReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.NewName) == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	c, err := a.DB.RenameChat(r.Context(), id, auth.UserID(r.Context()), strings.TrimSpace(req.NewName))
	if err != nil {
		http.Error(w, "failed to rename chat", statusFromErr(err))
		return
	}
	writeJSON(w, chatDTO(c))
}

// Delete removes a chat; creator only
func (a *ChatsAPI) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := chatID(r)
	if !ok {
		http.Error(w, "invalid chat id", http.StatusBadRequest)
		return
	}

	if err := a.DB.DeleteChat(r.Context(), id, auth.UserID(r.Context())); err != nil {
		http.Error(w, "failed to delete chat", statusFromErr(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Join adds the caller to the chat matching an invite code
func (a *ChatsAPI) Join(w http.ResponseWriter, r *http.Request) {
	var req joinChatReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InviteCode == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	c, err := a.DB.GetChatByInvite(r.Context(), strings.ToUpper(strings.TrimSpace(req.InviteCode)))
	if err != nil {
		http.Error(w, "invite code not found", statusFromErr(err))
		return
	}

	if err := a.DB.AddMember(r.Context(), c.ID, auth.UserID(r.Context())); err != nil && !errors.Is(err, store.ErrConflict) {
		http.Error(w, "failed to join chat", statusFromErr(err))
		return
	}
	writeJSON(w, chatDTO(c))
}

// AddMember lets an existing member add another user by id
func (a *ChatsAPI) AddMember(w http.ResponseWriter, r *http.Request) {
	id, ok := chatID(r)
	if !ok {
		http.Error(w, "invalid chat id", http.StatusBadRequest)
		return
	}
	if !a.requireMember(w, r, id) {
		return
	}

	var req addMemberReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if err := a.DB.AddMember(r.Context(), id, req.UserID); err != nil {
		http.Error(w, "failed to add member", statusFromErr(err))
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// RemoveMember drops a member: yourself, or anyone if you are the creator
func (a *ChatsAPI) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, ok := chatID(r)
	if !ok {
		http.Error(w, "invalid chat id", http.StatusBadRequest)
		return
	}
	target, err := strconv.ParseInt(r.PathValue("uid"), 10, 64)
	if err != nil || target <= 0 {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	caller := auth.UserID(r.Context())
	if target != caller {
		c, err := a.DB.GetChat(r.Context(), id)
		if err != nil {
			http.Error(w, "chat not found", statusFromErr(err))
			return
		}
		if c.CreatorID != caller {
			http.Error(w, "only the creator removes others", http.StatusForbidden)
			return
		}
	}

	if err := a.DB.RemoveMember(r.Context(), id, target); err != nil {
		http.Error(w, "failed to remove member", statusFromErr(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Members lists the chat's members
func (a *ChatsAPI) Members(w http.ResponseWriter, r *http.Request) {
	id, ok := chatID(r)
	if !ok {
		http.Error(w, "invalid chat id", http.StatusBadRequest)
		return
	}
	if !a.requireMember(w, r, id) {
		return
	}

	members, err := a.DB.ListMembers(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to list members", http.StatusInternalServerError)
		return
	}

	resp := make([]memberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, memberResponse{ID: m.UserID, Username: m.Username, DisplayName: m.DisplayName, Creator: m.Creator})
	}
	writeJSON(w, resp)
}

// Pin marks the chat pinned for the caller; Unpin reverses it
func (a *ChatsAPI) Pin(w http.ResponseWriter, r *http.Request)   { a.setPinned(w, r, true) }
func (a *ChatsAPI) Unpin(w http.ResponseWriter, r *http.Request) { a.setPinned(w, r, false) }

func (a *ChatsAPI) setPinned(w http.ResponseWriter, r *http.Request, pinned bool) {
	id, ok := chatID(r)
	if !ok {
		http.Error(w, "invalid chat id", http.StatusBadRequest)
		return
	}

	if err := a.DB.SetPinned(r.Context(), id, auth.UserID(r.Context()), pinned); err != nil {
		http.Error(w, "failed to update pin", statusFromErr(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Messages pages chat history backwards from ?before, newest first
func (a *ChatsAPI) Messages(w http.ResponseWriter, r *http.Request) {
	id, ok := chatID(r)
	if !ok {
		http.Error(w, "invalid chat id", http.StatusBadRequest)
		return
	}
	if !a.requireMember(w, r, id) {
		return
	}

	before, _ := strconv.ParseInt(r.URL.Query().Get("before"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	msgs, err := a.DB.ListMessages(r.Context(), id, before, limit)
	if err != nil {
		http.Error(w, "failed to list messages", http.StatusInternalServerError)
		return
	}

	resp := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, messageResponse{ID: m.ID, SenderID: m.SenderID, Content: m.Content, SentAt: m.SentAt})
	}
	writeJSON(w, resp)
}
