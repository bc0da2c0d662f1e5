package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	app "github.com/CodeCanvasArtisan/chatroom-backend/internal/app"
	httpx "github.com/CodeCanvasArtisan/chatroom-backend/internal/http"
	store "github.com/CodeCanvasArtisan/chatroom-backend/internal/store"
	ws "github.com/CodeCanvasArtisan/chatroom-backend/internal/ws"
	auth "github.com/CodeCanvasArtisan/chatroom-backend/pkg/auth"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	logger := app.NewLogger(cfg.Env, cfg.LogLevel)
	logger.Info("config.loaded", "config", cfg)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Postgres connection + migrations
	pg, err := store.NewPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Error("postgres connect", "err", err)
		log.Fatal(err)
	}
	defer pg.Close()
	if err := store.RunMigrations(ctx, pg, logger); err != nil {
		logger.Error("migrations", "err", err)
		log.Fatal(err)
	}

	// Redis-backed directory for display names + membership checks
	dir, err := store.NewDirectory(ctx, cfg, pg, logger)
	if err != nil {
		logger.Error("redis connect", "err", err)
		log.Fatal(err)
	}
	defer dir.Close()

	// Relay: registry + hub
	reg := ws.NewRegistry(logger)
	hub := ws.NewHub(logger, reg, pg, dir, auth.New(cfg.JWTSecret), cfg)

	// HTTP + WS router
	router := httpx.NewRouter(cfg, logger, hub, pg, dir)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("server.listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server.crash", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("server.shutdown.start")

	// shutdown
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)

	logger.Info("server.shutdown.complete")
	_ = os.Stdout.Sync()
}
