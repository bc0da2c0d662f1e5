package store

import (
	"context"
)

// AppendMessage durably records a chat message and returns the row with
// its assigned id and timestamp. Timestamps are assigned by the database
// so they are consistent with per-sender insert order.
func (p *Postgres) AppendMessage(ctx context.Context, chatID, senderID int64, content string) (Message, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO messages (chat_id, sender_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, chat_id, sender_id, content, sent_at
	`, chatID, senderID, content)

	var m Message
	if err := row.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.SentAt); err != nil {
		return Message{}, err
	}
	return m, nil
}

// ListMessages pages history backwards: messages with id < beforeID,
// newest first. beforeID <= 0 means "from the latest".
func (p *Postgres) ListMessages(ctx context.Context, chatID, beforeID int64, limit int) ([]Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if beforeID <= 0 {
		beforeID = int64(1) << 62
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, chat_id, sender_id, content, sent_at
		FROM messages
		WHERE chat_id = $1 AND id < $2
		ORDER BY id DESC
		LIMIT $3
	`, chatID, beforeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.SentAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
