package store

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/jackc/pgx/v5"
)

const inviteAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newInviteCode returns a 6-char code from A-Z0-9
func newInviteCode() (string, error) {
	buf := make([]byte, 6)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(inviteAlphabet))))
		if err != nil {
			return "", err
		}
		buf[i] = inviteAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// CreateChat inserts a chat and the creator's membership in one transaction
func (p *Postgres) CreateChat(ctx context.Context, name string, creatorID int64) (Chat, error) {
	code, err := newInviteCode()
	if err != nil {
		return Chat{}, err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return Chat{}, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO chats (name, creator_id, invite_code)
		VALUES ($1, $2, $3)
		RETURNING id, name, creator_id, invite_code, created_at
	`, name, creatorID, code)

	var c Chat
	if err := row.Scan(&c.ID, &c.Name, &c.CreatorID, &c.InviteCode, &c.CreatedAt); err != nil {
		return Chat{}, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO memberships (chat_id, user_id) VALUES ($1, $2)
	`, c.ID, creatorID); err != nil {
		return Chat{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Chat{}, err
	}
	return c, nil
}

// GetChat fetches a chat by ID
func (p *Postgres) GetChat(ctx context.Context, id int64) (Chat, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, name, creator_id, invite_code, created_at
		FROM chats
		WHERE id = $1
	`, id)

	var c Chat
	if err := row.Scan(&c.ID, &c.Name, &c.CreatorID, &c.InviteCode, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Chat{}, ErrNotFound
		}
		return Chat{}, err
	}
	return c, nil
}

// GetChatByInvite resolves an invite code to its chat
func (p *Postgres) GetChatByInvite(ctx context.Context, code string) (Chat, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, name, creator_id, invite_code, created_at
		FROM chats
		WHERE invite_code = $1
	`, code)

	var c Chat
	if err := row.Scan(&c.ID, &c.Name, &c.CreatorID, &c.InviteCode, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Chat{}, ErrNotFound
		}
		return Chat{}, err
	}
	return c, nil
}

// ListChatsForUser returns chats the user belongs to, pinned first
func (p *Postgres) ListChatsForUser(ctx context.Context, userID int64) ([]Chat, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT c.id, c.name, c.creator_id, c.invite_code, c.created_at
		FROM chats c
		JOIN memberships m ON m.chat_id = c.id
		WHERE m.user_id = $1
		ORDER BY m.pinned DESC, c.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatorID, &c.InviteCode, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RenameChat updates the chat name; only the creator may rename
func (p *Postgres) RenameChat(ctx context.Context, id, callerID int64, name string) (Chat, error) {
	c, err := p.GetChat(ctx, id)
	if err != nil {
		return Chat{}, err
	}
	if c.CreatorID != callerID {
		return Chat{}, ErrForbidden
	}

	row := p.pool.QueryRow(ctx, `
		UPDATE chats SET name = $2 WHERE id = $1
		RETURNING id, name, creator_id, invite_code, created_at
	`, id, name)
	if err := row.Scan(&c.ID, &c.Name, &c.CreatorID, &c.InviteCode, &c.CreatedAt); err != nil {
		return Chat{}, err
	}
	return c, nil
}

// DeleteChat removes a chat and, via FK cascade, its memberships and messages
func (p *Postgres) DeleteChat(ctx context.Context, id, callerID int64) error {
	c, err := p.GetChat(ctx, id)
	if err != nil {
		return err
	}
	if c.CreatorID != callerID {
		return ErrForbidden
	}

	_, err = p.pool.Exec(ctx, `DELETE FROM chats WHERE id = $1`, id)
	return err
}

// AddMember inserts a membership; duplicate joins return ErrConflict
func (p *Postgres) AddMember(ctx context.Context, chatID, userID int64) error {
	ct, err := p.pool.Exec(ctx, `
		INSERT INTO memberships (chat_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, chatID, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// RemoveMember deletes a membership; absent rows are not an error
func (p *Postgres) RemoveMember(ctx context.Context, chatID, userID int64) error {
	_, err := p.pool.Exec(ctx, `
		DELETE FROM memberships WHERE chat_id = $1 AND user_id = $2
	`, chatID, userID)
	return err
}

// SetPinned flips the caller's pinned flag for a chat
func (p *Postgres) SetPinned(ctx context.Context, chatID, userID int64, pinned bool) error {
	ct, err := p.pool.Exec(ctx, `
		UPDATE memberships SET pinned = $3 WHERE chat_id = $1 AND user_id = $2
	`, chatID, userID, pinned)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMembers returns the chat's members with creator + pinned flags
func (p *Postgres) ListMembers(ctx context.Context, chatID int64) ([]Member, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT u.id, u.username, u.display_name, (u.id = c.creator_id), m.pinned, m.joined_at
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		JOIN chats c ON c.id = m.chat_id
		WHERE m.chat_id = $1
		ORDER BY m.joined_at
	`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Username, &m.DisplayName, &m.Creator, &m.Pinned, &m.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// IsMember answers the membership question for the relay's join gate
func (p *Postgres) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	var ok bool
	err := p.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM memberships WHERE chat_id = $1 AND user_id = $2
		)
	`, chatID, userID).Scan(&ok)
	return ok, err
}
