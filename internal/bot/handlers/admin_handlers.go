package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/avdeev/teleblast/internal/roster"
)

// NewAdminsHandler returns a handler for /admins.
func NewAdminsHandler(deps HandlerDeps) bot.HandlerFunc {
	return adminsHandler{deps}.Handle
}

type adminsHandler struct {
	deps HandlerDeps
}

func (h adminsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "admins")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	admins, err := h.deps.Roster.List(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list admins", "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось получить список администраторов.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Администраторы:\n")
	for _, admin := range admins {
		name := strconv.FormatInt(admin.UserID, 10)
		if admin.Username.Valid && admin.Username.String != "" {
			name = "@" + admin.Username.String
		} else if admin.FirstName.Valid && admin.FirstName.String != "" {
			name = admin.FirstName.String
		}
		if admin.SuperAdmin {
			fmt.Fprintf(&sb, "• %s (%d) — главный\n", name, admin.UserID)
		} else {
			fmt.Fprintf(&sb, "• %s (%d)\n", name, admin.UserID)
		}
	}
	reply(ctx, b, log, chatID, sb.String())
}

// NewAddAdminHandler returns a handler for /add_admin <user_id>.
func NewAddAdminHandler(deps HandlerDeps) bot.HandlerFunc {
	return addAdminHandler{deps}.Handle
}

type addAdminHandler struct {
	deps HandlerDeps
}

func (h addAdminHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "add_admin")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	userID, err := strconv.ParseInt(commandArgs(update.Message.Text), 10, 64)
	if err != nil || userID <= 0 {
		reply(ctx, b, log, chatID, "Использование: /add_admin <user_id>\nID можно узнать командой /myid.")
		return
	}

	err = h.deps.Roster.AddAdmin(ctx, userID, update.Message.From.ID)
	switch {
	case errors.Is(err, roster.ErrAlreadyAdmin):
		reply(ctx, b, log, chatID, "Этот пользователь уже администратор.")
	case err != nil:
		log.ErrorContext(ctx, "Failed to add admin", "user_id", userID, "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось добавить администратора.")
	default:
		reply(ctx, b, log, chatID, fmt.Sprintf("✅ Пользователь %d добавлен в администраторы.", userID))
	}
}

// NewRemoveAdminHandler returns a handler for /remove_admin <user_id>.
func NewRemoveAdminHandler(deps HandlerDeps) bot.HandlerFunc {
	return removeAdminHandler{deps}.Handle
}

type removeAdminHandler struct {
	deps HandlerDeps
}

func (h removeAdminHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "remove_admin")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	userID, err := strconv.ParseInt(commandArgs(update.Message.Text), 10, 64)
	if err != nil || userID <= 0 {
		reply(ctx, b, log, chatID, "Использование: /remove_admin <user_id>")
		return
	}

	err = h.deps.Roster.RemoveAdmin(ctx, userID)
	switch {
	case errors.Is(err, roster.ErrNotAdmin):
		reply(ctx, b, log, chatID, "Этот пользователь не администратор.")
	case errors.Is(err, roster.ErrLastAdmin):
		reply(ctx, b, log, chatID, "⚠️ Нельзя удалить последнего администратора.")
	case errors.Is(err, roster.ErrSuperAdmin):
		reply(ctx, b, log, chatID, "⚠️ Сначала передайте права главного администратора: /transfer_admin <user_id>.")
	case err != nil:
		log.ErrorContext(ctx, "Failed to remove admin", "user_id", userID, "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось удалить администратора.")
	default:
		reply(ctx, b, log, chatID, fmt.Sprintf("✅ Пользователь %d удалён из администраторов.", userID))
	}
}

// NewRefreshAdminHandler returns a handler for /refresh_admin <user_id>,
// re-fetching the admin's username and first name from Telegram.
func NewRefreshAdminHandler(deps HandlerDeps) bot.HandlerFunc {
	return refreshAdminHandler{deps}.Handle
}

type refreshAdminHandler struct {
	deps HandlerDeps
}

func (h refreshAdminHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "refresh_admin")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	userID, err := strconv.ParseInt(commandArgs(update.Message.Text), 10, 64)
	if err != nil || userID <= 0 {
		reply(ctx, b, log, chatID, "Использование: /refresh_admin <user_id>")
		return
	}

	err = h.deps.Roster.RefreshAdmin(ctx, userID)
	switch {
	case errors.Is(err, roster.ErrNotAdmin):
		reply(ctx, b, log, chatID, "Этот пользователь не администратор.")
	case err != nil:
		log.ErrorContext(ctx, "Failed to refresh admin", "user_id", userID, "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось обновить данные администратора.")
	default:
		reply(ctx, b, log, chatID, fmt.Sprintf("✅ Данные администратора %d обновлены.", userID))
	}
}

// NewTransferAdminHandler returns a handler for /transfer_admin <user_id>.
// Only the current super-admin may run it (enforced by middleware).
func NewTransferAdminHandler(deps HandlerDeps) bot.HandlerFunc {
	return transferAdminHandler{deps}.Handle
}

type transferAdminHandler struct {
	deps HandlerDeps
}

func (h transferAdminHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "transfer_admin")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	targetID, err := strconv.ParseInt(commandArgs(update.Message.Text), 10, 64)
	if err != nil || targetID <= 0 {
		reply(ctx, b, log, chatID, "Использование: /transfer_admin <user_id>")
		return
	}

	err = h.deps.Roster.TransferSuperAdmin(ctx, update.Message.From.ID, targetID)
	switch {
	case errors.Is(err, roster.ErrSelfTransfer):
		reply(ctx, b, log, chatID, "Вы и так главный администратор.")
	case errors.Is(err, roster.ErrNotAdmin):
		reply(ctx, b, log, chatID, "Сначала добавьте пользователя в администраторы: /add_admin <user_id>.")
	case err != nil:
		log.ErrorContext(ctx, "Failed to transfer super-admin", "target", targetID, "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось передать права.")
	default:
		reply(ctx, b, log, chatID, fmt.Sprintf("✅ Права главного администратора переданы пользователю %d.", targetID))
	}
}
