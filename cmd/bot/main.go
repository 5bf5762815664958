// Package main contains the entrypoint for the TeleBlast Telegram bot.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/avdeev/teleblast/internal/bot"
	"github.com/avdeev/teleblast/internal/bot/handlers"
	"github.com/avdeev/teleblast/internal/bot/tasks"
	"github.com/avdeev/teleblast/internal/broadcast"
	"github.com/avdeev/teleblast/internal/config"
	"github.com/avdeev/teleblast/internal/database"
	"github.com/avdeev/teleblast/internal/logger"
	"github.com/avdeev/teleblast/internal/roster"
	"github.com/avdeev/teleblast/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all components, blocks until shutdown, and returns an exit code.
func run(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.Format == "json")
	log.Info("Logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	if err := store.SeedAdmins(ctx, cfg.Telegram.AdminIDs); err != nil {
		log.Error("Failed to seed administrators", "error", err)
		return 1
	}

	// The default handler keeps the group registry in sync with chat-member
	// updates; it only needs the store, so it can attach at construction time
	// before the messenger-backed services exist.
	registrarDeps := handlers.HandlerDeps{Logger: log, Config: cfg, Store: store}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log,
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewChatMemberHandler(registrarDeps)),
		tgbot.WithAllowedUpdates([]string{"message", "callback_query", "my_chat_member"}),
	)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	messenger := telegram.NewMessenger(tg, log)
	broadcasts := broadcast.NewManager(store, messenger, log, cfg.Dispatch.AutoDeleteHorizon)
	rosterSvc := roster.NewService(store, messenger, log)

	hDeps := handlers.HandlerDeps{
		Logger:     log,
		Config:     cfg,
		Store:      store,
		Broadcasts: broadcasts,
		Roster:     rosterSvc,
		Leaver:     messenger,
	}
	tDeps := tasks.TaskDeps{
		Logger:     log,
		Store:      store,
		Broadcasts: broadcasts,
		Config:     cfg,
	}

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}
	sched, err := bot.NewScheduler(log, cfg.Dispatch.Interval, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, cfg, db, store, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
