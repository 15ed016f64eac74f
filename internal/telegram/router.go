package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/kinbot/kinbot/internal/metrics"
)

// Router handles message routing, command parsing and callback dispatch
type Router struct {
	logger     *logrus.Logger
	handlers   map[string]CommandHandler
	callbacks  map[string]CallbackHandler
	membership MembershipHandler
	observer   MessageObserver
}

// CommandHandler defines the interface for command handlers
type CommandHandler interface {
	Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error
}

// CallbackHandler defines the interface for inline-keyboard callback
// handlers. Callback data is "<action>:<arg>:<arg>..."; handlers are keyed
// by action and receive the remaining args.
type CallbackHandler interface {
	Handle(bot *tgbotapi.BotAPI, query *tgbotapi.CallbackQuery, args []string) error
}

// MembershipHandler receives chat membership events.
type MembershipHandler interface {
	UserJoined(bot *tgbotapi.BotAPI, message *tgbotapi.Message, user *tgbotapi.User) error
	UserLeft(bot *tgbotapi.BotAPI, message *tgbotapi.Message, user *tgbotapi.User) error
}

// MessageObserver sees every group message before command dispatch; used to
// keep the per-chat user directory current.
type MessageObserver interface {
	Observe(bot *tgbotapi.BotAPI, message *tgbotapi.Message)
}

// NewRouter creates a new message router
func NewRouter(logger *logrus.Logger) *Router {
	return &Router{
		logger:    logger,
		handlers:  make(map[string]CommandHandler),
		callbacks: make(map[string]CallbackHandler),
	}
}

// RegisterCommand registers a command handler
func (r *Router) RegisterCommand(command string, handler CommandHandler) {
	r.handlers[command] = handler
	r.logger.Debugf("Registered command: %s", command)
}

// RegisterCallback registers a callback handler for an action prefix
func (r *Router) RegisterCallback(action string, handler CallbackHandler) {
	r.callbacks[action] = handler
	r.logger.Debugf("Registered callback: %s", action)
}

// SetMembershipHandler registers the membership event handler
func (r *Router) SetMembershipHandler(h MembershipHandler) {
	r.membership = h
}

// SetObserver registers the message observer
func (r *Router) SetObserver(o MessageObserver) {
	r.observer = o
}

// HandleMessage handles incoming messages
func (r *Router) HandleMessage(bot *tgbotapi.BotAPI, message *tgbotapi.Message) {
	if message.From == nil || message.Chat == nil {
		return
	}

	if r.handleMembership(bot, message) {
		return
	}

	if r.observer != nil && !message.From.IsBot {
		r.observer.Observe(bot, message)
	}

	if message.Text == "" || !message.IsCommand() {
		return
	}

	command := message.Command()
	args := strings.Fields(message.CommandArguments())

	handler, exists := r.handlers[command]
	if !exists {
		return
	}

	r.logger.WithFields(logrus.Fields{
		"command": command,
		"chat_id": message.Chat.ID,
		"user_id": message.From.ID,
	}).Info("Handling command")
	metrics.CommandsTotal.WithLabelValues(command).Inc()

	if err := handler.Handle(bot, message, args); err != nil {
		metrics.HandlerErrors.Inc()
		r.logger.WithFields(logrus.Fields{
			"command": command,
			"chat_id": message.Chat.ID,
			"user_id": message.From.ID,
			"error":   err,
		}).Error("Command handler failed")

		errorMsg := tgbotapi.NewMessage(message.Chat.ID, "❌ Something went wrong. Please try again.")
		bot.Send(errorMsg)
	}
}

// handleMembership dispatches join/leave service messages. Returns true
// when the message was a membership event.
func (r *Router) handleMembership(bot *tgbotapi.BotAPI, message *tgbotapi.Message) bool {
	isEvent := len(message.NewChatMembers) > 0 || message.LeftChatMember != nil
	if r.membership == nil || !isEvent {
		return isEvent
	}

	if len(message.NewChatMembers) > 0 {
		for i := range message.NewChatMembers {
			user := &message.NewChatMembers[i]
			if user.IsBot {
				continue
			}
			if err := r.membership.UserJoined(bot, message, user); err != nil {
				r.logger.WithField("chat_id", message.Chat.ID).WithError(err).Error("Join handler failed")
			}
		}
		return true
	}

	if !message.LeftChatMember.IsBot {
		if err := r.membership.UserLeft(bot, message, message.LeftChatMember); err != nil {
			r.logger.WithField("chat_id", message.Chat.ID).WithError(err).Error("Leave handler failed")
		}
	}
	return true
}

// HandleCallbackQuery handles callback queries from inline keyboards
func (r *Router) HandleCallbackQuery(bot *tgbotapi.BotAPI, callbackQuery *tgbotapi.CallbackQuery) {
	parts := strings.Split(callbackQuery.Data, ":")
	action := parts[0]

	handler, exists := r.callbacks[action]
	if !exists {
		r.logger.WithFields(logrus.Fields{
			"callback_id": callbackQuery.ID,
			"data":        callbackQuery.Data,
		}).Warn("Unknown callback action")
		bot.Request(tgbotapi.NewCallback(callbackQuery.ID, ""))
		return
	}

	metrics.CallbacksTotal.WithLabelValues(action).Inc()

	if err := handler.Handle(bot, callbackQuery, parts[1:]); err != nil {
		metrics.HandlerErrors.Inc()
		r.logger.WithFields(logrus.Fields{
			"action":  action,
			"user_id": callbackQuery.From.ID,
			"error":   err,
		}).Error("Callback handler failed")
		bot.Request(tgbotapi.NewCallback(callbackQuery.ID, "Something went wrong."))
	}
}
