package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/avdeev/teleblast/internal/broadcast"
)

// timeLayout is the wall-clock format admins type, interpreted in the
// configured timezone.
const timeLayout = "02.01.2006 15:04"

// NewSendHandler returns a handler for /send <list> [ДД.ММ.ГГГГ ЧЧ:ММ].
// It must be used as a reply to the message that should be broadcast. With no
// time given the broadcast goes out on the next dispatcher poll.
func NewSendHandler(deps HandlerDeps) bot.HandlerFunc {
	return sendHandler{deps}.Handle
}

type sendHandler struct {
	deps HandlerDeps
}

func (h sendHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "send")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	source := update.Message.ReplyToMessage
	if source == nil {
		reply(ctx, b, log, chatID, "Ответьте командой /send на сообщение, которое нужно разослать.")
		return
	}

	args := commandArgs(update.Message.Text)
	if args == "" {
		reply(ctx, b, log, chatID, "Укажите список: /send <список> [ДД.ММ.ГГГГ ЧЧ:ММ]")
		return
	}

	segmentName, scheduledAt := h.splitNameAndTime(args)

	segment, err := h.deps.Store.GetSegmentByName(ctx, segmentName)
	if err != nil {
		log.ErrorContext(ctx, "Failed to look up segment", "name", segmentName, "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось создать рассылку, попробуйте позже.")
		return
	}
	if segment == nil {
		reply(ctx, b, log, chatID, fmt.Sprintf("Список «%s» не найден. Посмотрите /lists.", segmentName))
		return
	}

	contentType, content := classifyMessage(source)

	created, err := h.deps.Broadcasts.Create(ctx, broadcast.CreateParams{
		SegmentID:       segment.ID,
		ContentType:     contentType,
		Content:         content,
		SourceChatID:    source.Chat.ID,
		SourceMessageID: source.ID,
		ScheduledAt:     &scheduledAt,
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to create broadcast", "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось создать рассылку, попробуйте позже.")
		return
	}

	reply(ctx, b, log, chatID, fmt.Sprintf(
		"✅ Рассылка #%d по списку «%s» запланирована на %s.",
		created.ID, segment.Name, scheduledAt.In(h.deps.Config.Location()).Format(timeLayout)))
}

// splitNameAndTime peels a trailing "ДД.ММ.ГГГГ ЧЧ:ММ" off the arguments if
// present; everything before it is the segment name (names may contain
// spaces). Without a time the broadcast is due immediately.
func (h sendHandler) splitNameAndTime(args string) (string, time.Time) {
	fields := strings.Fields(args)
	if len(fields) >= 3 {
		candidate := fields[len(fields)-2] + " " + fields[len(fields)-1]
		if at, err := time.ParseInLocation(timeLayout, candidate, h.deps.Config.Location()); err == nil {
			return strings.Join(fields[:len(fields)-2], " "), at
		}
	}
	return args, time.Now()
}

func classifyMessage(msg *models.Message) (contentType, content string) {
	switch {
	case msg.Text != "":
		return "text", msg.Text
	case len(msg.Photo) > 0:
		return "photo", msg.Caption
	case msg.Video != nil:
		return "video", msg.Caption
	case msg.Document != nil:
		return "document", msg.Caption
	default:
		return "media", msg.Caption
	}
}

// NewBroadcastsHandler returns a handler for /broadcasts, listing the most
// recent broadcasts with their delivery counts.
func NewBroadcastsHandler(deps HandlerDeps) bot.HandlerFunc {
	return broadcastsHandler{deps}.Handle
}

type broadcastsHandler struct {
	deps HandlerDeps
}

func (h broadcastsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "broadcasts")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	summaries, err := h.deps.Store.ListRecentBroadcasts(ctx, h.deps.Config.Dispatch.RecentLimit)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list broadcasts", "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось получить рассылки, попробуйте позже.")
		return
	}
	if len(summaries) == 0 {
		reply(ctx, b, log, chatID, "Рассылок ещё не было.")
		return
	}

	loc := h.deps.Config.Location()
	var sb strings.Builder
	sb.WriteString("Последние рассылки:\n")
	for _, s := range summaries {
		status := "черновик"
		switch {
		case s.Deleted:
			status = "удалена"
		case s.Sent:
			status = fmt.Sprintf("отправлена в %d групп", s.MessageCount)
		case s.ScheduledAt.Valid:
			status = "запланирована на " + s.ScheduledAt.Time.In(loc).Format(timeLayout)
		}
		segmentName := "все группы"
		if s.SegmentName.Valid && s.SegmentName.String != "" {
			segmentName = s.SegmentName.String
		}
		fmt.Fprintf(&sb, "#%d [%s] %s — %s\n", s.ID, s.ContentType, segmentName, status)
	}
	reply(ctx, b, log, chatID, sb.String())
}

// NewAutoDeleteHandler returns a handler for /autodelete <id> <ДД.ММ.ГГГГ ЧЧ:ММ>.
func NewAutoDeleteHandler(deps HandlerDeps) bot.HandlerFunc {
	return autoDeleteHandler{deps}.Handle
}

type autoDeleteHandler struct {
	deps HandlerDeps
}

func (h autoDeleteHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "autodelete")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	idRaw, timeRaw, _ := strings.Cut(args, " ")
	broadcastID, err := strconv.ParseInt(idRaw, 10, 64)
	if err != nil {
		reply(ctx, b, log, chatID, "Использование: /autodelete <id> <ДД.ММ.ГГГГ ЧЧ:ММ>")
		return
	}

	at, err := time.ParseInLocation(timeLayout, strings.TrimSpace(timeRaw), h.deps.Config.Location())
	if err != nil {
		reply(ctx, b, log, chatID, "Не понял время. Формат: ДД.ММ.ГГГГ ЧЧ:ММ")
		return
	}

	err = h.deps.Broadcasts.SetAutoDelete(ctx, broadcastID, at)
	switch {
	case errors.Is(err, broadcast.ErrNotFound):
		reply(ctx, b, log, chatID, "Рассылка не найдена.")
	case errors.Is(err, broadcast.ErrDeleted):
		reply(ctx, b, log, chatID, "Рассылка уже удалена.")
	case errors.Is(err, broadcast.ErrAutoDeleteTooLate):
		reply(ctx, b, log, chatID, "⚠️ Автоудаление возможно не позже чем через 48 часов после публикации.")
	case err != nil:
		log.ErrorContext(ctx, "Failed to set auto-delete", "broadcast_id", broadcastID, "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось установить автоудаление, попробуйте позже.")
	default:
		reply(ctx, b, log, chatID, fmt.Sprintf("✅ Рассылка #%d будет удалена %s.",
			broadcastID, at.Format(timeLayout)))
	}
}

// NewRescheduleHandler returns a handler for /reschedule <id> <ДД.ММ.ГГГГ ЧЧ:ММ>.
// When used as a reply, the replied-to message becomes the new source; otherwise
// the broadcast keeps its original one.
func NewRescheduleHandler(deps HandlerDeps) bot.HandlerFunc {
	return rescheduleHandler{deps}.Handle
}

type rescheduleHandler struct {
	deps HandlerDeps
}

func (h rescheduleHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "reschedule")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	idRaw, timeRaw, _ := strings.Cut(args, " ")
	broadcastID, err := strconv.ParseInt(idRaw, 10, 64)
	if err != nil {
		reply(ctx, b, log, chatID, "Использование: /reschedule <id> <ДД.ММ.ГГГГ ЧЧ:ММ>")
		return
	}
	at, err := time.ParseInLocation(timeLayout, strings.TrimSpace(timeRaw), h.deps.Config.Location())
	if err != nil {
		reply(ctx, b, log, chatID, "Не понял время. Формат: ДД.ММ.ГГГГ ЧЧ:ММ")
		return
	}

	existing, err := h.deps.Store.GetBroadcast(ctx, broadcastID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load broadcast", "broadcast_id", broadcastID, "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось перенести рассылку, попробуйте позже.")
		return
	}
	if existing == nil {
		reply(ctx, b, log, chatID, "Рассылка не найдена.")
		return
	}

	sourceChatID, sourceMessageID := existing.SourceChatID, existing.SourceMessageID
	if source := update.Message.ReplyToMessage; source != nil {
		sourceChatID, sourceMessageID = source.Chat.ID, source.ID
	}

	err = h.deps.Broadcasts.Schedule(ctx, broadcastID, at, sourceChatID, sourceMessageID)
	switch {
	case errors.Is(err, broadcast.ErrDeleted):
		reply(ctx, b, log, chatID, "Рассылка уже удалена.")
	case err != nil:
		log.ErrorContext(ctx, "Failed to reschedule broadcast", "broadcast_id", broadcastID, "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось перенести рассылку, попробуйте позже.")
	default:
		reply(ctx, b, log, chatID, fmt.Sprintf("✅ Рассылка #%d перенесена на %s.",
			broadcastID, at.Format(timeLayout)))
	}
}

// NewEditLastHandler returns a handler for /edit_last <текст>. It rewrites the
// stored text of the newest broadcast and edits every delivered copy in place.
func NewEditLastHandler(deps HandlerDeps) bot.HandlerFunc {
	return editLastHandler{deps}.Handle
}

type editLastHandler struct {
	deps HandlerDeps
}

func (h editLastHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "edit_last")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	text := commandArgs(update.Message.Text)
	if text == "" {
		reply(ctx, b, log, chatID, "Использование: /edit_last <новый текст>")
		return
	}

	lastID, err := h.deps.Store.GetLastBroadcastID(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to find last broadcast", "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось найти последнюю рассылку, попробуйте позже.")
		return
	}
	if lastID == 0 {
		reply(ctx, b, log, chatID, "Рассылок ещё не было.")
		return
	}

	err = h.deps.Broadcasts.EditText(ctx, lastID, text)
	switch {
	case errors.Is(err, broadcast.ErrDeleted):
		reply(ctx, b, log, chatID, "Рассылка уже удалена.")
	case err != nil:
		log.ErrorContext(ctx, "Failed to edit broadcast", "broadcast_id", lastID, "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось изменить рассылку, попробуйте позже.")
	default:
		reply(ctx, b, log, chatID, fmt.Sprintf("✅ Текст рассылки #%d обновлён.", lastID))
	}
}

// NewResendHandler returns a handler for /resend <id>.
func NewResendHandler(deps HandlerDeps) bot.HandlerFunc {
	return resendHandler{deps}.Handle
}

type resendHandler struct {
	deps HandlerDeps
}

func (h resendHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "resend")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	broadcastID, err := strconv.ParseInt(commandArgs(update.Message.Text), 10, 64)
	if err != nil {
		reply(ctx, b, log, chatID, "Использование: /resend <id>")
		return
	}

	result, err := h.deps.Broadcasts.Resend(ctx, broadcastID)
	switch {
	case errors.Is(err, broadcast.ErrNotFound):
		reply(ctx, b, log, chatID, "Рассылка не найдена.")
	case errors.Is(err, broadcast.ErrDeleted):
		reply(ctx, b, log, chatID, "Рассылка уже удалена.")
	case err != nil:
		log.ErrorContext(ctx, "Failed to resend broadcast", "broadcast_id", broadcastID, "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось повторить рассылку, попробуйте позже.")
	default:
		reply(ctx, b, log, chatID, fmt.Sprintf("✅ Рассылка #%d отправлена в %d из %d групп.",
			broadcastID, result.Sent, result.Total))
	}
}

// NewDeleteLastHandler returns a handler for /delete_last.
func NewDeleteLastHandler(deps HandlerDeps) bot.HandlerFunc {
	return deleteLastHandler{deps}.Handle
}

type deleteLastHandler struct {
	deps HandlerDeps
}

func (h deleteLastHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "delete_last")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	lastID, err := h.deps.Store.GetLastBroadcastID(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to find last broadcast", "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось найти последнюю рассылку, попробуйте позже.")
		return
	}
	if lastID == 0 {
		reply(ctx, b, log, chatID, "Рассылок ещё не было.")
		return
	}

	if err := h.deps.Broadcasts.Delete(ctx, lastID); err != nil {
		log.ErrorContext(ctx, "Failed to delete last broadcast", "broadcast_id", lastID, "error", err)
		reply(ctx, b, log, chatID, "❌ Не удалось удалить рассылку, попробуйте позже.")
		return
	}

	reply(ctx, b, log, chatID, fmt.Sprintf("✅ Рассылка #%d удалена.", lastID))
}
