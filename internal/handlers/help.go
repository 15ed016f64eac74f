package handlers

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// HelpHandler handles the /help command
type HelpHandler struct {
	logger *logrus.Logger
}

func NewHelpHandler(logger *logrus.Logger) *HelpHandler {
	return &HelpHandler{logger: logger}
}

func (h *HelpHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	helpText := `📚 *KinBot Help*

*Marriage:*
• /marry @user - Propose to someone (or reply to their message)
• /divorce - Dissolve your marriage
• /marriage - Show your marriage info
• /marriages - List all marriages in this chat

*Family:*
• /adopt @user - Offer to adopt someone (you need a spouse)
• /abandon @user - Give up a child of yours
• /leavefamily - Leave your foster family
• /family - Show your family tree

_Proposals need the other side to accept. Divorce does not._`

	msg := tgbotapi.NewMessage(message.Chat.ID, helpText)
	msg.ParseMode = tgbotapi.ModeMarkdown

	_, err := bot.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send help message: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"user_id": message.From.ID,
	}).Info("Sent help message")

	return nil
}
