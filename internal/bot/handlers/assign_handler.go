package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/avdeev/teleblast/internal/segments"
)

// AssignCallbackPrefix marks callback data produced by the assign flow.
const AssignCallbackPrefix = "assign:"

const assignCancelData = AssignCallbackPrefix + "cancel"

// NewAssignHandler returns a handler for /assign <chat_id> <instruction>.
// The instruction is free text ("добавь в VIP, убери из Архива"); the parsed
// interpretation is shown back with confirm/cancel buttons and only applied
// after confirmation.
func NewAssignHandler(deps HandlerDeps) bot.HandlerFunc {
	return assignHandler{deps}.Handle
}

type assignHandler struct {
	deps HandlerDeps
}

func (h assignHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "assign")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	targetRaw, instruction, _ := strings.Cut(args, " ")
	targetChatID, err := strconv.ParseInt(targetRaw, 10, 64)
	if err != nil || strings.TrimSpace(instruction) == "" {
		reply(ctx, b, log, chatID, "Использование: /assign <chat_id> <инструкция>\nНапример: /assign -100123 добавь в VIP, убери из Архива")
		return
	}

	groupTitle, found, err := h.findGroup(ctx, targetChatID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to look up group", "chat_id", targetChatID, "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось проверить группу, попробуйте позже.")
		return
	}
	if !found {
		reply(ctx, b, log, chatID, fmt.Sprintf("Группа %d не зарегистрирована.", targetChatID))
		return
	}

	allSegments, err := h.deps.Store.ListSegments(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list segments", "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось получить списки, попробуйте позже.")
		return
	}
	names := make([]string, 0, len(allSegments))
	idByName := make(map[string]int64, len(allSegments))
	for _, s := range allSegments {
		names = append(names, s.Name)
		idByName[s.Name] = s.ID
	}

	parsed := segments.ParseInstructions(instruction, names)
	if parsed.Empty() {
		text := "Не понял, в какие списки вносить изменения."
		if len(parsed.Errors) > 0 {
			text += "\nНе распознано: " + strings.Join(parsed.Errors, ", ")
		}
		reply(ctx, b, log, chatID, text)
		return
	}

	var ops []string
	var lines []string
	if len(parsed.Add) > 0 {
		lines = append(lines, "добавить в: "+strings.Join(parsed.Add, ", "))
		for _, name := range parsed.Add {
			ops = append(ops, "+"+strconv.FormatInt(idByName[name], 10))
		}
	}
	if len(parsed.Remove) > 0 {
		lines = append(lines, "убрать из: "+strings.Join(parsed.Remove, ", "))
		for _, name := range parsed.Remove {
			ops = append(ops, "-"+strconv.FormatInt(idByName[name], 10))
		}
	}

	text := fmt.Sprintf("Группа «%s» (%d):\n%s", groupTitle, targetChatID, strings.Join(lines, "\n"))
	if len(parsed.Errors) > 0 {
		text += "\n⚠️ Не распознано: " + strings.Join(parsed.Errors, ", ")
	}
	text += "\nПрименить?"

	confirmData := fmt.Sprintf("%s%d:%s", AssignCallbackPrefix, targetChatID, strings.Join(ops, ","))

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
		ReplyMarkup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{{
				{Text: "✅ Да", CallbackData: confirmData},
				{Text: "❌ Нет", CallbackData: assignCancelData},
			}},
		},
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send confirmation", "error", err, "chat_id", chatID)
	}
}

func (h assignHandler) findGroup(ctx context.Context, chatID int64) (string, bool, error) {
	groups, err := h.deps.Store.ListGroups(ctx)
	if err != nil {
		return "", false, err
	}
	for _, g := range groups {
		if g.ChatID == chatID {
			return g.Title, true, nil
		}
	}
	return "", false, nil
}

// NewAssignCallbackHandler returns the callback handler that applies or
// cancels a pending assign confirmation.
func NewAssignCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return assignCallbackHandler{deps}.Handle
}

type assignCallbackHandler struct {
	deps HandlerDeps
}

func (h assignCallbackHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "assign_callback")

	cq := update.CallbackQuery
	if cq == nil {
		return
	}

	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cq.ID}); err != nil {
		log.WarnContext(ctx, "Failed to answer callback query", "error", err)
	}

	// The keyboard lives in a chat anyone could be in; re-check the roster.
	isAdmin, err := h.deps.Roster.IsAdmin(ctx, cq.From.ID)
	if err != nil || !isAdmin {
		log.WarnContext(ctx, "Assign callback from non-admin", "user_id", cq.From.ID, "error", err)
		return
	}

	msg := cq.Message.Message
	if msg == nil {
		return
	}

	editResult := func(text string) {
		_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    msg.Chat.ID,
			MessageID: msg.ID,
			Text:      text,
		})
		if err != nil {
			log.ErrorContext(ctx, "Failed to edit confirmation message", "error", err)
		}
	}

	if cq.Data == assignCancelData {
		editResult("Отменено.")
		return
	}

	payload := strings.TrimPrefix(cq.Data, AssignCallbackPrefix)
	targetRaw, opsRaw, ok := strings.Cut(payload, ":")
	targetChatID, parseErr := strconv.ParseInt(targetRaw, 10, 64)
	if !ok || parseErr != nil {
		log.WarnContext(ctx, "Malformed assign callback data", "data", cq.Data)
		return
	}

	applied := 0
	for _, op := range strings.Split(opsRaw, ",") {
		if len(op) < 2 {
			continue
		}
		segmentID, err := strconv.ParseInt(op[1:], 10, 64)
		if err != nil {
			continue
		}
		switch op[0] {
		case '+':
			err = h.deps.Store.AddGroupToSegment(ctx, targetChatID, segmentID)
		case '-':
			err = h.deps.Store.RemoveGroupFromSegment(ctx, targetChatID, segmentID)
		default:
			continue
		}
		if err != nil {
			log.ErrorContext(ctx, "Failed to apply membership change",
				"chat_id", targetChatID, "segment_id", segmentID, "error", err)
			continue
		}
		applied++
	}

	log.InfoContext(ctx, "Assign confirmation applied", "chat_id", targetChatID, "changes", applied)

	result := fmt.Sprintf("✅ Готово, изменений применено: %d.", applied)
	current, err := h.deps.Store.ListGroupSegments(ctx, targetChatID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list group segments", "chat_id", targetChatID, "error", err)
	} else if len(current) > 0 {
		result += "\nТеперь группа в списках: " + strings.Join(current, ", ")
	} else {
		result += "\nТеперь группа не входит ни в один список."
	}
	editResult(result)
}
