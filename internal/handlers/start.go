package handlers

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// StartHandler handles the /start command
type StartHandler struct {
	logger *logrus.Logger
}

// NewStartHandler creates a new start command handler
func NewStartHandler(logger *logrus.Logger) *StartHandler {
	return &StartHandler{
		logger: logger,
	}
}

// Handle processes the /start command
func (h *StartHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	welcomeText := `💞 *Welcome to KinBot!*

I keep track of marriages and families in this group chat.

*Getting started:*
• /marry @user - Propose to someone
• /adopt @user - Offer to adopt someone
• /family - Show your family tree
• /help - Show all commands

Reply to someone's message instead of mentioning them if you prefer.

Propose to your special someone with /marry!`

	msg := tgbotapi.NewMessage(message.Chat.ID, welcomeText)
	msg.ParseMode = tgbotapi.ModeMarkdown

	_, err := bot.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send start message: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"user_id": message.From.ID,
	}).Info("Sent start message")

	return nil
}
