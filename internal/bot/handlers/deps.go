package handlers

import (
	"context"
	"log/slog"

	"github.com/avdeev/teleblast/internal/broadcast"
	"github.com/avdeev/teleblast/internal/config"
	"github.com/avdeev/teleblast/internal/database"
	"github.com/avdeev/teleblast/internal/roster"
)

// ChatLeaver removes the bot from a group chat.
type ChatLeaver interface {
	LeaveChat(ctx context.Context, chatID int64) error
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger     *slog.Logger
	Config     *config.Config
	Store      database.Store
	Broadcasts *broadcast.Manager
	Roster     *roster.Service
	Leaver     ChatLeaver
}
