package handlers

import (
	"context"
	"fmt"
	"html"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kinbot/kinbot/internal/service"
)

// target is the user a command is aimed at, resolved from a reply, a text
// mention or an @username argument.
type target struct {
	ID    int64
	Name  string
	IsBot bool
}

// resolveTarget finds the user the command refers to. Order matters: an
// explicit mention in the text wins over the replied-to message.
func resolveTarget(ctx context.Context, svc *service.Service, message *tgbotapi.Message) (*target, error) {
	for _, entity := range message.Entities {
		if entity.Type == "text_mention" && entity.User != nil {
			return &target{
				ID:    entity.User.ID,
				Name:  entity.User.FirstName,
				IsBot: entity.User.IsBot,
			}, nil
		}
		if entity.Type == "mention" {
			username := message.Text[entity.Offset+1 : entity.Offset+entity.Length]
			user, err := svc.ResolveUsername(ctx, message.Chat.ID, username)
			if err != nil {
				return nil, err
			}
			if user == nil {
				return nil, nil
			}
			return &target{ID: user.UserID, Name: user.DisplayName()}, nil
		}
	}

	if message.ReplyToMessage != nil && message.ReplyToMessage.From != nil {
		from := message.ReplyToMessage.From
		return &target{ID: from.ID, Name: from.FirstName, IsBot: from.IsBot}, nil
	}

	return nil, nil
}

// mention renders an HTML link that notifies the user.
func mention(userID int64, name string) string {
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, userID, html.EscapeString(name))
}

// mentionByID resolves the display name from the user directory and renders
// a mention.
func mentionByID(ctx context.Context, svc *service.Service, chatID, userID int64) string {
	return mention(userID, svc.DisplayName(ctx, chatID, userID))
}

// reply sends an HTML reply to the message.
func reply(bot *tgbotapi.BotAPI, message *tgbotapi.Message, text string) error {
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyToMessageID = message.MessageID
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// editText replaces a message's text and drops its inline keyboard.
func editText(bot *tgbotapi.BotAPI, chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := bot.Send(edit); err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

// answer closes a callback query, optionally with an alert popup.
func answer(bot *tgbotapi.BotAPI, queryID, text string, alert bool) {
	cb := tgbotapi.NewCallback(queryID, text)
	cb.ShowAlert = alert
	bot.Request(cb)
}

// reasonText maps refusal reasons to user-facing messages.
func reasonText(r service.Reason) string {
	s := string(r)
	if s == "" {
		return "❌ Not possible."
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return "❌ " + string(runes) + "."
}
