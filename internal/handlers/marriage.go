package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/kinbot/kinbot/internal/service"
	"github.com/kinbot/kinbot/pkg/timefmt"
)

const marriagesPerPage = 10

// ---------------------------------------------------------------------------
// MarryHandler – /marry (reply or @mention)
// ---------------------------------------------------------------------------

// MarryHandler handles the /marry command: it validates the proposal and
// posts an inline-keyboard question to the other user. The marriage itself
// is only created when they accept.
type MarryHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewMarryHandler creates a new MarryHandler.
func NewMarryHandler(svc *service.Service, logger *logrus.Logger) *MarryHandler {
	return &MarryHandler{svc: svc, logger: logger}
}

// Handle processes the /marry command.
func (h *MarryHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()

	tgt, err := resolveTarget(ctx, h.svc, message)
	if err != nil {
		return fmt.Errorf("resolve target: %w", err)
	}
	if tgt == nil {
		return reply(bot, message, "❌ Mention the user you want to propose to, or reply to their message.")
	}
	if tgt.IsBot {
		return reply(bot, message, "❌ You cannot marry a bot.")
	}

	elig, err := h.svc.CanMarry(ctx, message.Chat.ID, message.From.ID, tgt.ID)
	if err != nil {
		return fmt.Errorf("check marriage eligibility: %w", err)
	}
	if !elig.OK {
		return reply(bot, message, reasonText(elig.Reason))
	}

	text := fmt.Sprintf("💍 %s, a moment of your attention!\n💖 %s is asking for your hand in marriage.",
		mention(tgt.ID, tgt.Name),
		mention(message.From.ID, message.From.FirstName),
	)

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyToMessageID = message.MessageID
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = proposalKeyboard("marry", message.From.ID, tgt.ID)
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send proposal: %w", err)
	}
	return nil
}

// proposalKeyboard builds the accept/decline/retire keyboard shared by
// marriage and adoption proposals.
func proposalKeyboard(action string, fromID, toID int64) tgbotapi.InlineKeyboardMarkup {
	data := func(verb string) string {
		return fmt.Sprintf("%s:%d:%d:%s", action, fromID, toID, verb)
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Accept", data("accept")),
			tgbotapi.NewInlineKeyboardButtonData("❌ Decline", data("decline")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏃 Withdraw", data("retire")),
		),
	)
}

// parseProposalArgs decodes the "<from>:<to>:<verb>" tail of proposal
// callback data.
func parseProposalArgs(args []string) (fromID, toID int64, verb string, err error) {
	if len(args) != 3 {
		return 0, 0, "", fmt.Errorf("malformed proposal callback: %v", args)
	}
	fromID, err = strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("malformed proposer id %q", args[0])
	}
	toID, err = strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("malformed target id %q", args[1])
	}
	return fromID, toID, args[2], nil
}

// ---------------------------------------------------------------------------
// MarriageCallback – marry:<from>:<to>:<verb>
// ---------------------------------------------------------------------------

// MarriageCallback finalizes marriage proposals.
type MarriageCallback struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewMarriageCallback creates a new MarriageCallback.
func NewMarriageCallback(svc *service.Service, logger *logrus.Logger) *MarriageCallback {
	return &MarriageCallback{svc: svc, logger: logger}
}

// Handle processes a marriage proposal response.
func (c *MarriageCallback) Handle(bot *tgbotapi.BotAPI, query *tgbotapi.CallbackQuery, args []string) error {
	proposerID, targetID, verb, err := parseProposalArgs(args)
	if err != nil {
		return err
	}
	if query.Message == nil {
		return nil
	}
	ctx := context.Background()
	chatID := query.Message.Chat.ID

	switch verb {
	case "accept":
		if query.From.ID != targetID {
			answer(bot, query.ID, "You cannot answer someone else's proposal.", true)
			return nil
		}
		// Anything may have changed since the proposal; validate again.
		elig, err := c.svc.Marry(ctx, chatID, proposerID, targetID)
		if err != nil {
			return fmt.Errorf("create marriage: %w", err)
		}
		answer(bot, query.ID, "", false)
		if !elig.OK {
			return editText(bot, chatID, query.Message.MessageID, reasonText(elig.Reason))
		}
		text := fmt.Sprintf("💍 Congratulations to the newlyweds!\n💝 From today on, %s and %s are married!",
			mentionByID(ctx, c.svc, chatID, proposerID),
			mentionByID(ctx, c.svc, chatID, targetID),
		)
		return editText(bot, chatID, query.Message.MessageID, text)

	case "decline":
		if query.From.ID != targetID {
			answer(bot, query.ID, "You cannot answer someone else's proposal.", true)
			return nil
		}
		answer(bot, query.ID, "", false)
		text := fmt.Sprintf("💔 %s, I am so sorry...\n🥀 %s declined your proposal.",
			mentionByID(ctx, c.svc, chatID, proposerID),
			mentionByID(ctx, c.svc, chatID, targetID),
		)
		return editText(bot, chatID, query.Message.MessageID, text)

	case "retire":
		if query.From.ID != proposerID {
			answer(bot, query.ID, "Only the proposer can withdraw the proposal.", true)
			return nil
		}
		answer(bot, query.ID, "", false)
		del := tgbotapi.NewDeleteMessage(chatID, query.Message.MessageID)
		if _, err := bot.Request(del); err != nil {
			return fmt.Errorf("failed to delete proposal: %w", err)
		}
		return nil
	}

	return fmt.Errorf("unknown proposal verb %q", verb)
}

// ---------------------------------------------------------------------------
// DivorceHandler – /divorce
// ---------------------------------------------------------------------------

// DivorceHandler handles the /divorce command.
type DivorceHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewDivorceHandler creates a new DivorceHandler.
func NewDivorceHandler(svc *service.Service, logger *logrus.Logger) *DivorceHandler {
	return &DivorceHandler{svc: svc, logger: logger}
}

// Handle processes the /divorce command.
func (h *DivorceHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()

	d, err := h.svc.Divorce(ctx, message.Chat.ID, message.From.ID)
	if err != nil {
		return fmt.Errorf("divorce: %w", err)
	}
	if d == nil {
		return reply(bot, message, reasonText(service.ReasonNotMarried))
	}

	var b strings.Builder
	b.WriteString("💔 The marriage has been dissolved.")
	if partnerID, ok := d.PartnerOf(message.From.ID); ok {
		fmt.Fprintf(&b, "\n😔 %s, you are single again.", mentionByID(ctx, h.svc, message.Chat.ID, partnerID))
	}
	if len(d.AbandonedChildIDs) > 0 {
		mentions := make([]string, 0, len(d.AbandonedChildIDs))
		for _, childID := range d.AbandonedChildIDs {
			mentions = append(mentions, mentionByID(ctx, h.svc, message.Chat.ID, childID))
		}
		fmt.Fprintf(&b, "\n🍂 %s: your parents' marriage is over, you are without a family now.",
			strings.Join(mentions, ", "))
	}
	return reply(bot, message, b.String())
}

// ---------------------------------------------------------------------------
// MyMarriageHandler – /marriage
// ---------------------------------------------------------------------------

// MyMarriageHandler handles the /marriage command, showing the caller's
// current marriage.
type MyMarriageHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewMyMarriageHandler creates a new MyMarriageHandler.
func NewMyMarriageHandler(svc *service.Service, logger *logrus.Logger) *MyMarriageHandler {
	return &MyMarriageHandler{svc: svc, logger: logger}
}

// Handle processes the /marriage command.
func (h *MyMarriageHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()

	info, err := h.svc.Marriage.GetByUser(ctx, message.Chat.ID, message.From.ID)
	if err != nil {
		return fmt.Errorf("get marriage: %w", err)
	}
	if info == nil {
		return reply(bot, message, reasonText(service.ReasonNotMarried))
	}

	mentions := make([]string, 0, len(info.Participants))
	for _, id := range info.Participants {
		mentions = append(mentions, mentionByID(ctx, h.svc, message.Chat.ID, id))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👰🤵 Marriage of %s:\n\n", strings.Join(mentions, " and "))
	fmt.Fprintf(&b, "🗓 Registered on %s\n", info.Date.Format("02.01.2006"))
	fmt.Fprintf(&b, "⌛ Together for %s\n", timefmt.Since(info.Date, time.Now().UTC()))
	if len(info.ChildIDs) > 0 {
		children := make([]string, 0, len(info.ChildIDs))
		for _, id := range info.ChildIDs {
			children = append(children, mentionByID(ctx, h.svc, message.Chat.ID, id))
		}
		fmt.Fprintf(&b, "👶 Children: %s\n", strings.Join(children, ", "))
	}
	return reply(bot, message, b.String())
}

// ---------------------------------------------------------------------------
// MarriagesHandler – /marriages, with pagination callbacks
// ---------------------------------------------------------------------------

// MarriagesHandler handles the /marriages command listing every couple in
// the chat.
type MarriagesHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewMarriagesHandler creates a new MarriagesHandler.
func NewMarriagesHandler(svc *service.Service, logger *logrus.Logger) *MarriagesHandler {
	return &MarriagesHandler{svc: svc, logger: logger}
}

// Handle processes the /marriages command.
func (h *MarriagesHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()

	text, keyboard, err := marriagesPage(ctx, h.svc, message.Chat.ID, 1)
	if err != nil {
		return err
	}
	if text == "" {
		return reply(bot, message, "❌ There are no marriages in this chat.")
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyToMessageID = message.MessageID
	msg.ParseMode = tgbotapi.ModeHTML
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send marriages list: %w", err)
	}
	return nil
}

// marriagesPage renders one page of the chat's marriage list.
func marriagesPage(ctx context.Context, svc *service.Service, chatID int64, page int) (string, *tgbotapi.InlineKeyboardMarkup, error) {
	list, err := svc.Marriage.List(ctx, chatID, page, marriagesPerPage)
	if err != nil {
		return "", nil, fmt.Errorf("list marriages: %w", err)
	}
	if len(list.Items) == 0 {
		return "", nil, nil
	}

	now := time.Now().UTC()
	var b strings.Builder
	b.WriteString("💕 Couples of this chat:\n\n")
	for _, m := range list.Items {
		mentions := make([]string, 0, len(m.Participants))
		for _, id := range m.Participants {
			mentions = append(mentions, mentionByID(ctx, svc, chatID, id))
		}
		fmt.Fprintf(&b, "• %s\n   └ Together since %s (%s)\n\n",
			strings.Join(mentions, " & "),
			m.Date.Format("02.01.2006"),
			timefmt.Since(m.Date, now),
		)
	}
	if list.TotalPages > 1 {
		fmt.Fprintf(&b, "Page %d of %d", list.Page, list.TotalPages)
	}

	var buttons []tgbotapi.InlineKeyboardButton
	if list.HasPrev() {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(
			"⬅️", fmt.Sprintf("marriages:%d", list.Page-1)))
	}
	if list.HasNext() {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(
			"➡️", fmt.Sprintf("marriages:%d", list.Page+1)))
	}
	if len(buttons) == 0 {
		return b.String(), nil, nil
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...))
	return b.String(), &keyboard, nil
}

// MarriagesPageCallback flips pages of the /marriages list.
type MarriagesPageCallback struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewMarriagesPageCallback creates a new MarriagesPageCallback.
func NewMarriagesPageCallback(svc *service.Service, logger *logrus.Logger) *MarriagesPageCallback {
	return &MarriagesPageCallback{svc: svc, logger: logger}
}

// Handle processes a marriages pagination callback.
func (c *MarriagesPageCallback) Handle(bot *tgbotapi.BotAPI, query *tgbotapi.CallbackQuery, args []string) error {
	if len(args) != 1 || query.Message == nil {
		return nil
	}
	page, err := strconv.Atoi(args[0])
	if err != nil || page < 1 {
		return fmt.Errorf("malformed page %q", args[0])
	}

	ctx := context.Background()
	chatID := query.Message.Chat.ID

	text, keyboard, err := marriagesPage(ctx, c.svc, chatID, page)
	if err != nil {
		return err
	}
	answer(bot, query.ID, "", false)
	if text == "" {
		return nil
	}

	edit := tgbotapi.NewEditMessageText(chatID, query.Message.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = keyboard
	if _, err := bot.Send(edit); err != nil {
		return fmt.Errorf("failed to edit marriages list: %w", err)
	}
	return nil
}
