// Package handlers contains Telegram bot command and message handlers,
// along with their registration logic and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const notAuthorizedMessage = "🚫 Эта команда доступна только администраторам."

// AdminOnly creates a middleware that checks the sender against the
// administrator roster. Non-admins get a refusal and processing stops.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			userID, chatID, ok := senderOf(update)
			if !ok {
				next(ctx, bot, update)
				return
			}

			log := deps.Logger.With("middleware", "AdminOnly")

			isAdmin, err := deps.Roster.IsAdmin(ctx, userID)
			if err != nil {
				log.ErrorContext(ctx, "Failed to check admin status", "user_id", userID, "error", err)
				return
			}
			if !isAdmin {
				log.WarnContext(ctx, "Unauthorized access attempt", "user_id", userID, "chat_id", chatID)
				_, err := bot.SendMessage(ctx, &tgbot.SendMessageParams{
					ChatID: chatID,
					Text:   notAuthorizedMessage,
				})
				if err != nil {
					log.ErrorContext(ctx, "Failed to send unauthorized message", "error", err, "chat_id", chatID)
				}
				return
			}

			next(ctx, bot, update)
		}
	}
}

// SuperAdminOnly restricts a handler to the super-admin.
func SuperAdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			userID, chatID, ok := senderOf(update)
			if !ok {
				next(ctx, bot, update)
				return
			}

			log := deps.Logger.With("middleware", "SuperAdminOnly")

			isSuper, err := deps.Roster.IsSuperAdmin(ctx, userID)
			if err != nil {
				log.ErrorContext(ctx, "Failed to check super-admin status", "user_id", userID, "error", err)
				return
			}
			if !isSuper {
				log.WarnContext(ctx, "Super-admin command attempted", "user_id", userID, "chat_id", chatID)
				_, err := bot.SendMessage(ctx, &tgbot.SendMessageParams{
					ChatID: chatID,
					Text:   "🚫 Эта команда доступна только главному администратору.",
				})
				if err != nil {
					log.ErrorContext(ctx, "Failed to send unauthorized message", "error", err, "chat_id", chatID)
				}
				return
			}

			next(ctx, bot, update)
		}
	}
}

func senderOf(update *models.Update) (userID, chatID int64, ok bool) {
	if update.Message == nil || update.Message.From == nil {
		return 0, 0, false
	}
	return update.Message.From.ID, update.Message.Chat.ID, true
}
