package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// Bot wraps the Telegram bot API
type Bot struct {
	api    *tgbotapi.BotAPI
	logger *logrus.Logger
	router *Router
	ready  atomic.Bool
}

// NewBot creates a new Telegram bot instance
func NewBot(token string, logger *logrus.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.Infof("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:    api,
		logger: logger,
		router: NewRouter(logger),
	}, nil
}

// Router returns the bot's update router for handler registration.
func (b *Bot) Router() *Router {
	return b.router
}

// Ready reports whether the bot is polling for updates.
func (b *Bot) Ready() bool {
	return b.ready.Load()
}

// Start starts the bot with long polling
func (b *Bot) Start(ctx context.Context) error {
	// Drop any stale webhook so polling works.
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Bot started with long polling")
	b.ready.Store(true)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Stopping bot...")
			b.ready.Store(false)
			b.api.StopReceivingUpdates()
			return nil
		case update := <-updates:
			go b.handleUpdate(update)
		}
	}
}

// handleUpdate processes incoming updates
func (b *Bot) handleUpdate(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorf("Panic in update handler: %v", r)
		}
	}()

	if update.Message != nil {
		b.router.HandleMessage(b.api, update.Message)
	} else if update.CallbackQuery != nil {
		b.router.HandleCallbackQuery(b.api, update.CallbackQuery)
	} else if update.MyChatMember != nil {
		b.handleMyChatMember(update.MyChatMember)
	}
}

// handleMyChatMember reacts to the bot itself being added to or removed
// from a chat.
func (b *Bot) handleMyChatMember(update *tgbotapi.ChatMemberUpdated) {
	h, ok := b.router.membership.(BotMembershipHandler)
	if !ok {
		return
	}

	switch update.NewChatMember.Status {
	case "member", "administrator":
		if err := h.BotAdded(b.api, update.Chat.ID); err != nil {
			b.logger.WithField("chat_id", update.Chat.ID).WithError(err).Error("Bot-added handler failed")
		}
	case "left", "kicked":
		if err := h.BotRemoved(b.api, update.Chat.ID); err != nil {
			b.logger.WithField("chat_id", update.Chat.ID).WithError(err).Error("Bot-removed handler failed")
		}
	}
}

// BotMembershipHandler extends MembershipHandler with events about the bot's
// own chat membership.
type BotMembershipHandler interface {
	MembershipHandler
	BotAdded(bot *tgbotapi.BotAPI, chatID int64) error
	BotRemoved(bot *tgbotapi.BotAPI, chatID int64) error
}

// SendMessage sends a message to a chat
func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SendRaw sends a raw tgbotapi.Chattable message
func (b *Bot) SendRaw(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Errorf("Failed to send message: %v", err)
	}
}
