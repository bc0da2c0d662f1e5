package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"log/slog"

	"github.com/CodeCanvasArtisan/chatroom-backend/internal/app"
)

// Sentinel errors surfaced to HTTP handlers for status mapping
var (
	ErrNotFound  = errors.New("store: not found")
	ErrForbidden = errors.New("store: not allowed")
	ErrConflict  = errors.New("store: already exists")
)

type Postgres struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgres connects to postgres and returns a pool wrapper
func NewPostgres(ctx context.Context, cfg app.Config, log *slog.Logger) (*Postgres, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.PGURL)
	if err != nil {
		return nil, err
	}
	pcfg.MaxConns = int32(cfg.PGMaxConn)

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	return &Postgres{pool: pool, log: log}, nil
}

func (p *Postgres) Close() { p.pool.Close() }
