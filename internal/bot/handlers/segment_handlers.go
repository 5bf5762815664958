package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewCreateListHandler returns a handler for /create_list <name>.
func NewCreateListHandler(deps HandlerDeps) bot.HandlerFunc {
	return createListHandler{deps}.Handle
}

type createListHandler struct {
	deps HandlerDeps
}

func (h createListHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "create_list")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	name := commandArgs(update.Message.Text)
	if name == "" {
		reply(ctx, b, log, chatID, "Укажите название: /create_list <название>")
		return
	}

	existing, err := h.deps.Store.GetSegmentByName(ctx, name)
	if err != nil {
		log.ErrorContext(ctx, "Failed to look up segment", "name", name, "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось создать список, попробуйте позже.")
		return
	}
	if existing != nil {
		reply(ctx, b, log, chatID, fmt.Sprintf("Список «%s» уже существует.", name))
		return
	}

	if _, err := h.deps.Store.CreateSegment(ctx, name); err != nil {
		log.ErrorContext(ctx, "Failed to create segment", "name", name, "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось создать список, попробуйте позже.")
		return
	}

	log.InfoContext(ctx, "Segment created via command", "name", name)
	reply(ctx, b, log, chatID, fmt.Sprintf("✅ Список «%s» создан.", name))
}

// NewListsHandler returns a handler for /lists.
func NewListsHandler(deps HandlerDeps) bot.HandlerFunc {
	return listsHandler{deps}.Handle
}

type listsHandler struct {
	deps HandlerDeps
}

func (h listsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "lists")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	segments, err := h.deps.Store.ListSegments(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list segments", "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось получить списки, попробуйте позже.")
		return
	}
	if len(segments) == 0 {
		reply(ctx, b, log, chatID, "Списков пока нет. Создайте первый: /create_list <название>")
		return
	}

	var sb strings.Builder
	sb.WriteString("Списки рассылки:\n")
	for _, segment := range segments {
		ids, err := h.deps.Store.ListGroupIDsInSegment(ctx, segment.ID)
		if err != nil {
			log.ErrorContext(ctx, "Failed to count groups in segment", "segment_id", segment.ID, "error", err)
			continue
		}
		fmt.Fprintf(&sb, "• %s — групп: %d\n", segment.Name, len(ids))
	}
	reply(ctx, b, log, chatID, sb.String())
}

// NewGroupsHandler returns a handler for /groups.
func NewGroupsHandler(deps HandlerDeps) bot.HandlerFunc {
	return groupsHandler{deps}.Handle
}

type groupsHandler struct {
	deps HandlerDeps
}

func (h groupsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "groups")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	groups, err := h.deps.Store.ListGroupsWithSegments(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list groups", "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось получить группы, попробуйте позже.")
		return
	}
	if len(groups) == 0 {
		reply(ctx, b, log, chatID, "Зарегистрированных групп нет. Добавьте бота в группу, чтобы зарегистрировать её.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Зарегистрированные группы:\n")
	for _, group := range groups {
		segmentNames := "без списка"
		if group.SegmentNames.Valid && group.SegmentNames.String != "" {
			segmentNames = group.SegmentNames.String
		}
		fmt.Fprintf(&sb, "• %s (%d) — %s\n", group.Title, group.ChatID, segmentNames)
	}
	reply(ctx, b, log, chatID, sb.String())
}

// NewLeaveGroupHandler returns a handler for /leave_group <chat_id>. The bot
// leaves the group and drops its registration together with any list
// memberships.
func NewLeaveGroupHandler(deps HandlerDeps) bot.HandlerFunc {
	return leaveGroupHandler{deps}.Handle
}

type leaveGroupHandler struct {
	deps HandlerDeps
}

func (h leaveGroupHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "leave_group")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	groupChatID, err := strconv.ParseInt(commandArgs(update.Message.Text), 10, 64)
	if err != nil {
		reply(ctx, b, log, chatID, "Использование: /leave_group <chat_id>\nID группы можно посмотреть в /groups.")
		return
	}

	if err := h.deps.Leaver.LeaveChat(ctx, groupChatID); err != nil {
		// The registration is stale if the bot is already out of the group,
		// so the cleanup below still runs.
		log.WarnContext(ctx, "Failed to leave chat", "chat_id", groupChatID, "error", err)
	}
	if err := h.deps.Store.DeleteGroup(ctx, groupChatID); err != nil {
		log.ErrorContext(ctx, "Failed to delete group", "chat_id", groupChatID, "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось удалить группу, попробуйте позже.")
		return
	}

	log.InfoContext(ctx, "Left group and removed registration", "chat_id", groupChatID)
	reply(ctx, b, log, chatID, fmt.Sprintf("✅ Бот покинул группу %d, регистрация удалена.", groupChatID))
}
