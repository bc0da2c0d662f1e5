package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// normIdent trims and lowercases a username or email for lookup
func normIdent(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// CreateUser inserts a new user with a hashed password
func (p *Postgres) CreateUser(ctx context.Context, username, email, displayName, password string) (User, error) {
	username = normIdent(username)
	email = normIdent(email)
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = username
	}
	if username == "" || email == "" || password == "" {
		return User{}, errors.New("missing username, email or password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, display_name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, email, display_name, created_at
	`, username, email, displayName, string(hash))

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrConflict
		}
		return User{}, err
	}
	return u, nil
}

// GetUser fetches a user by ID
func (p *Postgres) GetUser(ctx context.Context, id int64) (User, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, username, email, display_name, created_at
		FROM users
		WHERE id = $1
	`, id)

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// UpdateDisplayName renames a user for join/leave/message rendering.
// Callers holding a name cache must invalidate the entry afterwards.
func (p *Postgres) UpdateDisplayName(ctx context.Context, id int64, displayName string) (User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return User{}, errors.New("empty display name")
	}

	row := p.pool.QueryRow(ctx, `
		UPDATE users SET display_name = $2 WHERE id = $1
		RETURNING id, username, email, display_name, created_at
	`, id, displayName)

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// getUserByLogin matches a username or an email, returning the password hash
func (p *Postgres) getUserByLogin(ctx context.Context, login string) (User, string, error) {
	login = normIdent(login)

	row := p.pool.QueryRow(ctx, `
		SELECT id, username, email, display_name, password_hash, created_at
		FROM users
		WHERE username = $1 OR email = $1
	`, login)

	var u User
	var hash string
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.DisplayName, &hash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, "", ErrNotFound
		}
		return User{}, "", err
	}
	return u, hash, nil
}

// VerifyUser checks login (username or email) + password match
func (p *Postgres) VerifyUser(ctx context.Context, login, password string) (User, error) {
	u, hash, err := p.getUserByLogin(ctx, login)
	if err != nil {
		return User{}, errors.New("invalid credentials")
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, errors.New("invalid credentials")
	}

	return u, nil
}
