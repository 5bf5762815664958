// Package main contains the entrypoint for the TeleBlast web panel.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/avdeev/teleblast/internal/config"
	"github.com/avdeev/teleblast/internal/database"
	"github.com/avdeev/teleblast/internal/logger"
	"github.com/avdeev/teleblast/internal/webapp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

func run(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.Format == "json")

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	server, err := webapp.NewServer(store, log, cfg.Webapp.Listen, webapp.Credentials{
		Username: cfg.Webapp.Username,
		Password: cfg.Webapp.Password,
	})
	if err != nil {
		log.Error("Failed to create web panel", "error", err)
		return 1
	}

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Web panel stopped due to error", "error", err)
		return 1
	}

	log.Info("Web panel stopped gracefully.")
	return 0
}
