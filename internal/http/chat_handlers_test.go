package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CodeCanvasArtisan/chatroom-backend/internal/store"
	"github.com/CodeCanvasArtisan/chatroom-backend/pkg/auth"
)

type fakeChatStore struct {
	chats   map[int64]store.Chat
	members map[int64]map[int64]bool // chat -> user -> pinned
	msgs    map[int64][]store.Message
	nextID  int64
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{
		chats:   map[int64]store.Chat{},
		members: map[int64]map[int64]bool{},
		msgs:    map[int64][]store.Message{},
		nextID:  1,
	}
}

func (f *fakeChatStore) CreateChat(_ context.Context, name string, creatorID int64) (store.Chat, error) {
	c := store.Chat{ID: f.nextID, Name: name, CreatorID: creatorID, InviteCode: "CODE0" + strconv.FormatInt(f.nextID, 10), CreatedAt: time.Now()}
	f.chats[c.ID] = c
	f.members[c.ID] = map[int64]bool{creatorID: false}
	f.nextID++
	return c, nil
}

func (f *fakeChatStore) GetChat(_ context.Context, id int64) (store.Chat, error) {
	c, ok := f.chats[id]
	if !ok {
		return store.Chat{}, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeChatStore) GetChatByInvite(_ context.Context, code string) (store.Chat, error) {
	for _, c := range f.chats {
		if c.InviteCode == code {
			return c, nil
		}
	}
	return store.Chat{}, store.ErrNotFound
}

func (f *fakeChatStore) ListChatsForUser(_ context.Context, userID int64) ([]store.Chat, error) {
	var out []store.Chat
	for id, members := range f.members {
		if _, ok := members[userID]; ok {
			out = append(out, f.chats[id])
		}
	}
	return out, nil
}

func (f *fakeChatStore) RenameChat(_ context.Context, id, callerID int64, name string) (store.Chat, error) {
	c, ok := f.chats[id]
	if !ok {
		return store.Chat{}, store.ErrNotFound
	}
	if c.CreatorID != callerID {
		return store.Chat{}, store.ErrForbidden
	}
	c.Name = name
	f.chats[id] = c
	return c, nil
}

func (f *fakeChatStore) DeleteChat(_ context.Context, id, callerID int64) error {
	c, ok := f.chats[id]
	if !ok {
		return store.ErrNotFound
	}
	if c.CreatorID != callerID {
		return store.ErrForbidden
	}
	delete(f.chats, id)
	delete(f.members, id)
	return nil
}

func (f *fakeChatStore) AddMember(_ context.Context, chatID, userID int64) error {
	m, ok := f.members[chatID]
	if !ok {
		return store.ErrNotFound
	}
	if _, dup := m[userID]; dup {
		return store.ErrConflict
	}
	m[userID] = false
	return nil
}

func (f *fakeChatStore) RemoveMember(_ context.Context, chatID, userID int64) error {
	if m, ok := f.members[chatID]; ok {
		delete(m, userID)
	}
	return nil
}

func (f *fakeChatStore) SetPinned(_ context.Context, chatID, userID int64, pinned bool) error {
	m, ok := f.members[chatID]
	if !ok {
		return store.ErrNotFound
	}
	if _, member := m[userID]; !member {
		return store.ErrNotFound
	}
	m[userID] = pinned
	return nil
}

func (f *fakeChatStore) ListMembers(_ context.Context, chatID int64) ([]store.Member, error) {
	var out []store.Member
	for uid := range f.members[chatID] {
		out = append(out, store.Member{UserID: uid, Creator: uid == f.chats[chatID].CreatorID})
	}
	return out, nil
}

func (f *fakeChatStore) IsMember(_ context.Context, chatID, userID int64) (bool, error) {
	_, ok := f.members[chatID][userID]
	return ok, nil
}

func (f *fakeChatStore) ListMessages(_ context.Context, chatID, beforeID int64, limit int) ([]store.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if beforeID <= 0 {
		beforeID = int64(1) << 62
	}
	var out []store.Message
	msgs := f.msgs[chatID]
	for i := len(msgs) - 1; i >= 0 && len(out) < limit; i-- {
		if msgs[i].ID < beforeID {
			out = append(out, msgs[i])
		}
	}
	return out, nil
}

// asUser builds an authenticated request with path values applied
func asUser(method, target, body string, uid int64, pathVals map[string]string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r = r.WithContext(auth.WithUser(r.Context(), uid))
	for k, v := range pathVals {
		r.SetPathValue(k, v)
	}
	return r
}

func TestCreateAndListChats(t *testing.T) {
	req := require.New(t)
	api := &ChatsAPI{DB: newFakeChatStore()}

	rec := httptest.NewRecorder()
	api.Create(rec, asUser(http.MethodPost, "/api/chats", `{"name":"general"}`, 1, nil))
	req.Equal(http.StatusCreated, rec.Code)
	req.Contains(rec.Body.String(), `"name":"general"`)
	req.Contains(rec.Body.String(), "invite_code")

	rec = httptest.NewRecorder()
	api.List(rec, asUser(http.MethodGet, "/api/chats", "", 1, nil))
	req.Equal(http.StatusOK, rec.Code)
	req.Contains(rec.Body.String(), `"name":"general"`)

	// A stranger sees no chats
	rec = httptest.NewRecorder()
	api.List(rec, asUser(http.MethodGet, "/api/chats", "", 99, nil))
	req.Equal(http.StatusOK, rec.Code)
	req.Equal("[]\n", rec.Body.String())
}

func TestRenameChatCreatorOnly(t *testing.T) {
	req := require.New(t)
	db := newFakeChatStore()
	c, _ := db.CreateChat(context.Background(), "general", 1)
	api := &ChatsAPI{DB: db}
	id := strconv.FormatInt(c.ID, 10)

	rec := httptest.NewRecorder()
	api.Rename(rec, asUser(http.MethodPatch, "/api/chats/"+id, `{"new_name":"random"}`, 2, map[string]string{"id": id}))
	req.Equal(http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	api.Rename(rec, asUser(http.MethodPatch, "/api/chats/"+id, `{"new_name":"random"}`, 1, map[string]string{"id": id}))
	req.Equal(http.StatusOK, rec.Code)
	req.Contains(rec.Body.String(), `"name":"random"`)
}

func TestDeleteChat(t *testing.T) {
	req := require.New(t)
	db := newFakeChatStore()
	c, _ := db.CreateChat(context.Background(), "general", 1)
	api := &ChatsAPI{DB: db}
	id := strconv.FormatInt(c.ID, 10)

	rec := httptest.NewRecorder()
	api.Delete(rec, asUser(http.MethodDelete, "/api/chats/"+id, "", 2, map[string]string{"id": id}))
	req.Equal(http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	api.Delete(rec, asUser(http.MethodDelete, "/api/chats/"+id, "", 1, map[string]string{"id": id}))
	req.Equal(http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	api.Delete(rec, asUser(http.MethodDelete, "/api/chats/"+id, "", 1, map[string]string{"id": id}))
	req.Equal(http.StatusNotFound, rec.Code)
}

func TestJoinByInviteCode(t *testing.T) {
	req := require.New(t)
	db := newFakeChatStore()
	c, _ := db.CreateChat(context.Background(), "general", 1)
	api := &ChatsAPI{DB: db}

	rec := httptest.NewRecorder()
	api.Join(rec, asUser(http.MethodPost, "/api/chats/join", `{"invite_code":"`+c.InviteCode+`"}`, 2, nil))
	req.Equal(http.StatusOK, rec.Code)

	ok, _ := db.IsMember(context.Background(), c.ID, 2)
	req.True(ok)

	rec = httptest.NewRecorder()
	api.Join(rec, asUser(http.MethodPost, "/api/chats/join", `{"invite_code":"WRONG1"}`, 2, nil))
	req.Equal(http.StatusNotFound, rec.Code)
}

func TestAddMemberRequiresMembership(t *testing.T) {
	req := require.New(t)
	db := newFakeChatStore()
	c, _ := db.CreateChat(context.Background(), "general", 1)
	api := &ChatsAPI{DB: db}
	id := strconv.FormatInt(c.ID, 10)

	// Caller 2 is not a member yet
	rec := httptest.NewRecorder()
	api.AddMember(rec, asUser(http.MethodPost, "/api/chats/"+id+"/members", `{"user_id":3}`, 2, map[string]string{"id": id}))
	req.Equal(http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	api.AddMember(rec, asUser(http.MethodPost, "/api/chats/"+id+"/members", `{"user_id":3}`, 1, map[string]string{"id": id}))
	req.Equal(http.StatusCreated, rec.Code)

	ok, _ := db.IsMember(context.Background(), c.ID, 3)
	req.True(ok)
}

func TestRemoveMemberRules(t *testing.T) {
	req := require.New(t)
	db := newFakeChatStore()
	c, _ := db.CreateChat(context.Background(), "general", 1)
	_ = db.AddMember(context.Background(), c.ID, 2)
	_ = db.AddMember(context.Background(), c.ID, 3)
	api := &ChatsAPI{DB: db}
	id := strconv.FormatInt(c.ID, 10)

	// A regular member cannot remove someone else
	rec := httptest.NewRecorder()
	api.RemoveMember(rec, asUser(http.MethodDelete, "/x", "", 2, map[string]string{"id": id, "uid": "3"}))
	req.Equal(http.StatusForbidden, rec.Code)

	// But may leave on their own
	rec = httptest.NewRecorder()
	api.RemoveMember(rec, asUser(http.MethodDelete, "/x", "", 2, map[string]string{"id": id, "uid": "2"}))
	req.Equal(http.StatusNoContent, rec.Code)

	// The creator may remove anyone
	rec = httptest.NewRecorder()
	api.RemoveMember(rec, asUser(http.MethodDelete, "/x", "", 1, map[string]string{"id": id, "uid": "3"}))
	req.Equal(http.StatusNoContent, rec.Code)
}

func TestPinRoundtrip(t *testing.T) {
	req := require.New(t)
	db := newFakeChatStore()
	c, _ := db.CreateChat(context.Background(), "general", 1)
	api := &ChatsAPI{DB: db}
	id := strconv.FormatInt(c.ID, 10)

	rec := httptest.NewRecorder()
	api.Pin(rec, asUser(http.MethodPost, "/x", "", 1, map[string]string{"id": id}))
	req.Equal(http.StatusNoContent, rec.Code)
	req.True(db.members[c.ID][1])

	rec = httptest.NewRecorder()
	api.Unpin(rec, asUser(http.MethodDelete, "/x", "", 1, map[string]string{"id": id}))
	req.Equal(http.StatusNoContent, rec.Code)
	req.False(db.members[c.ID][1])

	// Non-members cannot pin
	rec = httptest.NewRecorder()
	api.Pin(rec, asUser(http.MethodPost, "/x", "", 9, map[string]string{"id": id}))
	req.Equal(http.StatusNotFound, rec.Code)
}

func TestMessagesPagination(t *testing.T) {
	req := require.New(t)
	db := newFakeChatStore()
	c, _ := db.CreateChat(context.Background(), "general", 1)
	for i := 1; i <= 5; i++ {
		db.msgs[c.ID] = append(db.msgs[c.ID], store.Message{
			ID: int64(i), ChatID: c.ID, SenderID: 1,
			Content: "m" + strconv.Itoa(i), SentAt: time.Now(),
		})
	}
	api := &ChatsAPI{DB: db}
	id := strconv.FormatInt(c.ID, 10)

	// Non-member is refused history
	rec := httptest.NewRecorder()
	api.Messages(rec, asUser(http.MethodGet, "/x", "", 9, map[string]string{"id": id}))
	req.Equal(http.StatusForbidden, rec.Code)

	// Newest first, bounded by before + limit
	rec = httptest.NewRecorder()
	api.Messages(rec, asUser(http.MethodGet, "/x?before=5&limit=2", "", 1, map[string]string{"id": id}))
	req.Equal(http.StatusOK, rec.Code)
	body := rec.Body.String()
	req.Contains(body, `"content":"m4"`)
	req.Contains(body, `"content":"m3"`)
	req.NotContains(body, `"content":"m5"`)
	req.NotContains(body, `"content":"m2"`)
}
