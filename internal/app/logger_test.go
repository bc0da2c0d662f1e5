package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevels(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	// prod defaults to Info, dev to Debug
	req.False(NewLogger("prod", "").Enabled(ctx, slog.LevelDebug))
	req.True(NewLogger("prod", "").Enabled(ctx, slog.LevelInfo))
	req.True(NewLogger("dev", "").Enabled(ctx, slog.LevelDebug))

	// An explicit level wins over the env default
	req.True(NewLogger("prod", "debug").Enabled(ctx, slog.LevelDebug))
	req.False(NewLogger("dev", "warn").Enabled(ctx, slog.LevelInfo))
}
