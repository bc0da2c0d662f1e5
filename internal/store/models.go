package store

import "time"

type User struct {
	ID          int64
	Username    string
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

type Chat struct {
	ID         int64
	Name       string
	CreatorID  int64
	InviteCode string
	CreatedAt  time.Time
}

type Member struct {
	UserID      int64
	Username    string
	DisplayName string
	Creator     bool
	Pinned      bool
	JoinedAt    time.Time
}

type Message struct {
	ID       int64
	ChatID   int64
	SenderID int64
	Content  string
	SentAt   time.Time
}
