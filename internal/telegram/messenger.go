package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"

	"github.com/avdeev/teleblast/internal/roster"
)

// Messenger wraps the Telegram Bot API with the narrow surface the broadcast
// core and the roster need.
type Messenger struct {
	bot    *bot.Bot
	logger *slog.Logger
}

// NewMessenger creates a Messenger over an existing bot instance.
func NewMessenger(b *bot.Bot, logger *slog.Logger) *Messenger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Messenger{
		bot:    b,
		logger: logger.With("component", "messenger"),
	}
}

// CopyMessage copies a message into toChatID without the forward header and
// returns the id of the new message.
func (m *Messenger) CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) (int, error) {
	result, err := m.bot.CopyMessage(ctx, &bot.CopyMessageParams{
		ChatID:     toChatID,
		FromChatID: fromChatID,
		MessageID:  messageID,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to copy message %d to chat %d: %w", messageID, toChatID, err)
	}
	return result.ID, nil
}

// EditMessageText replaces the text of an already-sent message.
func (m *Messenger) EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error {
	_, err := m.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
	})
	if err != nil {
		return fmt.Errorf("failed to edit message %d in chat %d: %w", messageID, chatID, err)
	}
	return nil
}

// DeleteMessage removes an already-sent message.
func (m *Messenger) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	ok, err := m.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	})
	if err != nil {
		return fmt.Errorf("failed to delete message %d in chat %d: %w", messageID, chatID, err)
	}
	if !ok {
		return fmt.Errorf("telegram declined to delete message %d in chat %d", messageID, chatID)
	}
	return nil
}

// GetChat fetches display metadata for a chat or user.
func (m *Messenger) GetChat(ctx context.Context, chatID int64) (roster.ChatInfo, error) {
	info, err := m.bot.GetChat(ctx, &bot.GetChatParams{ChatID: chatID})
	if err != nil {
		return roster.ChatInfo{}, fmt.Errorf("failed to get chat %d: %w", chatID, err)
	}
	return roster.ChatInfo{
		Username:  info.Username,
		FirstName: info.FirstName,
	}, nil
}

// LeaveChat makes the bot leave a group chat.
func (m *Messenger) LeaveChat(ctx context.Context, chatID int64) error {
	ok, err := m.bot.LeaveChat(ctx, &bot.LeaveChatParams{ChatID: chatID})
	if err != nil {
		return fmt.Errorf("failed to leave chat %d: %w", chatID, err)
	}
	if !ok {
		return fmt.Errorf("telegram declined to leave chat %d", chatID)
	}
	m.logger.InfoContext(ctx, "Left chat", "chat_id", chatID)
	return nil
}
