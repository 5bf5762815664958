package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const welcomeMessage = "👋 Привет! Я бот для рассылок по группам.\n" +
	"Добавьте меня в группу, чтобы зарегистрировать её, и используйте /help для списка команд."

const helpMessage = `Команды:
/myid — показать ваш Telegram ID
/lists — показать списки рассылки
/create_list <название> — создать список
/groups — показать зарегистрированные группы
/assign <chat_id> <инструкция> — изменить списки группы ("добавь в VIP, убери из Архива")
/leave_group <chat_id> — покинуть группу и удалить регистрацию
/send <список> [ДД.ММ.ГГГГ ЧЧ:ММ] — ответом на сообщение: разослать его по списку
/broadcasts — показать последние рассылки
/autodelete <id> <ДД.ММ.ГГГГ ЧЧ:ММ> — удалить рассылку в указанное время
/reschedule <id> <ДД.ММ.ГГГГ ЧЧ:ММ> — перенести рассылку
/edit_last <текст> — изменить текст последней рассылки
/resend <id> — повторить рассылку
/delete_last — удалить последнюю рассылку
/admins — список администраторов
/add_admin <id> — добавить администратора
/remove_admin <id> — удалить администратора
/refresh_admin <id> — обновить имя администратора
/transfer_admin <id> — передать права главного администратора`

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return startHandler{deps}.Handle
}

type startHandler struct {
	deps HandlerDeps
}

func (h startHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "start")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Start handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	log.InfoContext(ctx, "Handling /start command",
		"chat_id", update.Message.Chat.ID, "user_id", update.Message.From.ID)
	reply(ctx, b, log, update.Message.Chat.ID, welcomeMessage)
}

// NewHelpHandler returns a handler for the /help command.
func NewHelpHandler(deps HandlerDeps) bot.HandlerFunc {
	return helpHandler{deps}.Handle
}

type helpHandler struct {
	deps HandlerDeps
}

func (h helpHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "help")

	if update.Message == nil {
		return
	}
	reply(ctx, b, log, update.Message.Chat.ID, helpMessage)
}

// NewMyIDHandler returns a handler for the /myid command.
func NewMyIDHandler(deps HandlerDeps) bot.HandlerFunc {
	return myIDHandler{deps}.Handle
}

type myIDHandler struct {
	deps HandlerDeps
}

func (h myIDHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "myid")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	reply(ctx, b, log, update.Message.Chat.ID,
		fmt.Sprintf("Ваш Telegram ID: %d", update.Message.From.ID))
}
