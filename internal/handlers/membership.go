package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/kinbot/kinbot/internal/service"
)

// MembershipHandler keeps the per-chat directory in sync with group
// membership and cleans up family ties when people leave.
type MembershipHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewMembershipHandler creates a new MembershipHandler.
func NewMembershipHandler(svc *service.Service, logger *logrus.Logger) *MembershipHandler {
	return &MembershipHandler{svc: svc, logger: logger}
}

// Observe records the author of every group message so that @username
// lookups and display names stay current.
func (h *MembershipHandler) Observe(bot *tgbotapi.BotAPI, message *tgbotapi.Message) {
	ctx := context.Background()

	if err := h.svc.EnsureChat(ctx, message.Chat.ID); err != nil {
		h.logger.WithField("chat_id", message.Chat.ID).WithError(err).Error("Failed to register chat")
		return
	}
	err := h.svc.EnsureUser(ctx, message.Chat.ID, message.From.ID, message.From.UserName, message.From.FirstName)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"chat_id": message.Chat.ID,
			"user_id": message.From.ID,
		}).WithError(err).Error("Failed to record user")
	}
}

// UserJoined registers a new chat member.
func (h *MembershipHandler) UserJoined(bot *tgbotapi.BotAPI, message *tgbotapi.Message, user *tgbotapi.User) error {
	ctx := context.Background()

	if err := h.svc.EnsureChat(ctx, message.Chat.ID); err != nil {
		return err
	}
	return h.svc.EnsureUser(ctx, message.Chat.ID, user.ID, user.UserName, user.FirstName)
}

// UserLeft dissolves the leaving member's marriage and removes their
// profile, then breaks the news to whoever is left behind.
func (h *MembershipHandler) UserLeft(bot *tgbotapi.BotAPI, message *tgbotapi.Message, user *tgbotapi.User) error {
	ctx := context.Background()

	dissolution, err := h.svc.HandleUserLeft(ctx, message.Chat.ID, user.ID)
	if err != nil {
		return fmt.Errorf("failed to clean up after leaving user: %w", err)
	}
	if dissolution == nil {
		return nil
	}

	var lines []string
	if partnerID, ok := dissolution.PartnerOf(user.ID); ok {
		lines = append(lines, fmt.Sprintf("💔 %s, your spouse has left the chat. The marriage is over.",
			mentionByID(ctx, h.svc, message.Chat.ID, partnerID)))
	}
	for _, childID := range dissolution.AbandonedChildIDs {
		lines = append(lines, fmt.Sprintf("🍂 %s, your family fell apart. You are on your own now.",
			mentionByID(ctx, h.svc, message.Chat.ID, childID)))
	}
	if len(lines) == 0 {
		return nil
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, strings.Join(lines, "\n"))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send departure notice: %w", err)
	}
	return nil
}

// BotAdded greets the chat when the bot joins it.
func (h *MembershipHandler) BotAdded(bot *tgbotapi.BotAPI, chatID int64) error {
	ctx := context.Background()

	if err := h.svc.EnsureChat(ctx, chatID); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID,
		"👋 Hello! I keep track of marriages and families in this chat.\n"+
			"💍 Start with /marry, or see /help for everything I can do.")
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send greeting: %w", err)
	}
	return nil
}

// BotRemoved drops everything the bot knew about the chat.
func (h *MembershipHandler) BotRemoved(bot *tgbotapi.BotAPI, chatID int64) error {
	return h.svc.HandleBotRemoved(context.Background(), chatID)
}
