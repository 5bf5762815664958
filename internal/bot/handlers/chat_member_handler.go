package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewChatMemberHandler returns the default handler that keeps the group
// registry in sync with the bot's own membership: joining a group (or seeing
// it again) upserts the row with a fresh title, being kicked removes it.
// Memberships cascade; historical delivery records are kept.
func NewChatMemberHandler(deps HandlerDeps) bot.HandlerFunc {
	return chatMemberHandler{deps}.Handle
}

type chatMemberHandler struct {
	deps HandlerDeps
}

func (h chatMemberHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "chat_member")

	member := update.MyChatMember
	if member == nil {
		return
	}

	chat := member.Chat
	if chat.Type != "group" && chat.Type != "supergroup" {
		return
	}

	switch member.NewChatMember.Type {
	case models.ChatMemberTypeMember, models.ChatMemberTypeAdministrator:
		if err := h.deps.Store.UpsertGroup(ctx, chat.ID, chat.Title); err != nil {
			log.ErrorContext(ctx, "Failed to register group", "chat_id", chat.ID, "error", err)
			return
		}
		log.InfoContext(ctx, "Group registered", "chat_id", chat.ID, "title", chat.Title)
	case models.ChatMemberTypeLeft, models.ChatMemberTypeBanned:
		if err := h.deps.Store.DeleteGroup(ctx, chat.ID); err != nil {
			log.ErrorContext(ctx, "Failed to unregister group", "chat_id", chat.ID, "error", err)
			return
		}
		log.InfoContext(ctx, "Group unregistered", "chat_id", chat.ID, "title", chat.Title)
	}
}
