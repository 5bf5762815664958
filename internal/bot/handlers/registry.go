package handlers

import (
	tgbot "github.com/go-telegram/bot"
)

// RegisteredHandler represents a command handler with its registration
// pattern and middleware chain.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// RegisterAllCommands initializes and returns a map of all available bot
// commands and callback handlers with their middleware.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	command := func(pattern string, handler tgbot.HandlerFunc, mw ...tgbot.Middleware) {
		handlers["/"+pattern] = RegisteredHandler{
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     pattern,
			Handler:     handler,
			MatchType:   tgbot.MatchTypeCommandStartOnly,
			Middleware:  mw,
		}
	}

	command("start", NewStartHandler(deps))
	command("help", NewHelpHandler(deps))
	command("myid", NewMyIDHandler(deps))

	adminOnly := AdminOnly(deps)

	command("create_list", NewCreateListHandler(deps), adminOnly)
	command("lists", NewListsHandler(deps), adminOnly)
	command("groups", NewGroupsHandler(deps), adminOnly)
	command("assign", NewAssignHandler(deps), adminOnly)
	command("leave_group", NewLeaveGroupHandler(deps), adminOnly)
	command("send", NewSendHandler(deps), adminOnly)
	command("broadcasts", NewBroadcastsHandler(deps), adminOnly)
	command("autodelete", NewAutoDeleteHandler(deps), adminOnly)
	command("reschedule", NewRescheduleHandler(deps), adminOnly)
	command("edit_last", NewEditLastHandler(deps), adminOnly)
	command("resend", NewResendHandler(deps), adminOnly)
	command("delete_last", NewDeleteLastHandler(deps), adminOnly)

	command("admins", NewAdminsHandler(deps), adminOnly)
	command("add_admin", NewAddAdminHandler(deps), adminOnly)
	command("remove_admin", NewRemoveAdminHandler(deps), adminOnly)
	command("refresh_admin", NewRefreshAdminHandler(deps), adminOnly)
	command("transfer_admin", NewTransferAdminHandler(deps), SuperAdminOnly(deps))

	handlers["assign_callback"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeCallbackQueryData,
		Pattern:     AssignCallbackPrefix,
		Handler:     NewAssignCallbackHandler(deps),
		MatchType:   tgbot.MatchTypePrefix,
	}

	return handlers
}
