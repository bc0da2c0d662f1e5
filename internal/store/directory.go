package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"log/slog"

	"github.com/CodeCanvasArtisan/chatroom-backend/internal/app"
)

const displayNameTTL = 5 * time.Minute

// Directory answers the relay's identity questions: room membership and
// display names. Membership is always read from postgres (it is checked
// once per connection, at join time). Display names are cached in redis
// since every join and every relayed message renders one.
type Directory struct {
	pg  *Postgres
	rdb *redis.Client
	log *slog.Logger
}

// NewDirectory connects to redis and verifies connectivity
func NewDirectory(ctx context.Context, cfg app.Config, pg *Postgres, log *slog.Logger) (*Directory, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Directory{pg: pg, rdb: rdb, log: log}, nil
}

// IsMember is a passthrough to postgres, never cached
func (d *Directory) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	return d.pg.IsMember(ctx, chatID, userID)
}

// DisplayName resolves a user's display name through the redis cache.
// A cache failure falls back to postgres rather than failing the caller.
func (d *Directory) DisplayName(ctx context.Context, userID int64) (string, error) {
	key := nameKey(userID)
	if name, err := d.rdb.Get(ctx, key).Result(); err == nil && name != "" {
		return name, nil
	}

	u, err := d.pg.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}

	if err := d.rdb.Set(ctx, key, u.DisplayName, displayNameTTL).Err(); err != nil {
		d.log.Warn("directory.cache.set", "err", err)
	}
	return u.DisplayName, nil
}

// Invalidate drops a user's cached name, e.g. after a profile update
func (d *Directory) Invalidate(ctx context.Context, userID int64) {
	_ = d.rdb.Del(ctx, nameKey(userID)).Err()
}

// Close shuts down the redis connection
func (d *Directory) Close() { _ = d.rdb.Close() }

// key namespacing for cached names
func nameKey(userID int64) string { return "user:name:" + strconv.FormatInt(userID, 10) }
