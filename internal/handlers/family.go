package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/kinbot/kinbot/internal/models"
	"github.com/kinbot/kinbot/internal/service"
)

// ---------------------------------------------------------------------------
// AdoptHandler – /adopt (reply or @mention)
// ---------------------------------------------------------------------------

// AdoptHandler handles the /adopt command: a married user offers to become
// the target's parent; the adoption happens when the target accepts.
type AdoptHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewAdoptHandler creates a new AdoptHandler.
func NewAdoptHandler(svc *service.Service, logger *logrus.Logger) *AdoptHandler {
	return &AdoptHandler{svc: svc, logger: logger}
}

// Handle processes the /adopt command.
func (h *AdoptHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()

	tgt, err := resolveTarget(ctx, h.svc, message)
	if err != nil {
		return fmt.Errorf("resolve target: %w", err)
	}
	if tgt == nil {
		return reply(bot, message, "❌ Mention the user you want to adopt, or reply to their message.")
	}
	if tgt.IsBot {
		return reply(bot, message, "❌ You cannot adopt a bot.")
	}
	if tgt.ID == message.From.ID {
		return reply(bot, message, "❌ You cannot become your own parent.")
	}

	marriage, err := h.svc.Marriage.GetByUser(ctx, message.Chat.ID, message.From.ID)
	if err != nil {
		return fmt.Errorf("get marriage: %w", err)
	}
	elig, err := h.svc.CheckAdoption(ctx, message.Chat.ID, tgt.ID, marriage)
	if err != nil {
		return fmt.Errorf("check adoption eligibility: %w", err)
	}
	if !elig.OK {
		return reply(bot, message, reasonText(elig.Reason))
	}

	text := fmt.Sprintf("👨‍👩‍👧 %s, %s wants to become your parent!\n🏡 Are you ready to join the family?",
		mention(tgt.ID, tgt.Name),
		mention(message.From.ID, message.From.FirstName),
	)

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyToMessageID = message.MessageID
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = proposalKeyboard("adopt", message.From.ID, tgt.ID)
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send adoption proposal: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// AdoptionCallback – adopt:<parent>:<child>:<verb>
// ---------------------------------------------------------------------------

// AdoptionCallback finalizes adoption proposals.
type AdoptionCallback struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewAdoptionCallback creates a new AdoptionCallback.
func NewAdoptionCallback(svc *service.Service, logger *logrus.Logger) *AdoptionCallback {
	return &AdoptionCallback{svc: svc, logger: logger}
}

// Handle processes an adoption proposal response.
func (c *AdoptionCallback) Handle(bot *tgbotapi.BotAPI, query *tgbotapi.CallbackQuery, args []string) error {
	parentID, childID, verb, err := parseProposalArgs(args)
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
		if query.From.ID != childID {
			answer(bot, query.ID, "You cannot answer someone else's proposal.", true)
			return nil
		}
		elig, err := c.svc.Adopt(ctx, chatID, parentID, childID)
		if err != nil {
			return fmt.Errorf("adopt: %w", err)
		}
		answer(bot, query.ID, "", false)
		if !elig.OK {
			return editText(bot, chatID, query.Message.MessageID, reasonText(elig.Reason))
		}
		text := fmt.Sprintf("👨‍👩‍👧 Congratulations on the new family member!\n💞 %s is now a foster parent of %s!",
			mentionByID(ctx, c.svc, chatID, parentID),
			mentionByID(ctx, c.svc, chatID, childID),
		)
		return editText(bot, chatID, query.Message.MessageID, text)

	case "decline":
		if query.From.ID != childID {
			answer(bot, query.ID, "You cannot answer someone else's proposal.", true)
			return nil
		}
		answer(bot, query.ID, "", false)
		text := fmt.Sprintf("💔 %s, I am so sorry...\n🥀 %s declined to join your family.",
			mentionByID(ctx, c.svc, chatID, parentID),
			mentionByID(ctx, c.svc, chatID, childID),
		)
		return editText(bot, chatID, query.Message.MessageID, text)

	case "retire":
		if query.From.ID != parentID {
			answer(bot, query.ID, "Only the proposer can withdraw the proposal.", true)
			return nil
		}
		answer(bot, query.ID, "", false)
		text := fmt.Sprintf("💔 %s, I am so sorry...\n🥀 %s changed their mind about adopting you.",
			mentionByID(ctx, c.svc, chatID, childID),
			mentionByID(ctx, c.svc, chatID, parentID),
		)
		return editText(bot, chatID, query.Message.MessageID, text)
	}

	return fmt.Errorf("unknown proposal verb %q", verb)
}

// ---------------------------------------------------------------------------
// AbandonHandler – /abandon (reply or @mention)
// ---------------------------------------------------------------------------

// AbandonHandler handles the /abandon command: a parent gives up a child.
type AbandonHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewAbandonHandler creates a new AbandonHandler.
func NewAbandonHandler(svc *service.Service, logger *logrus.Logger) *AbandonHandler {
	return &AbandonHandler{svc: svc, logger: logger}
}

// Handle processes the /abandon command.
func (h *AbandonHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()

	tgt, err := resolveTarget(ctx, h.svc, message)
	if err != nil {
		return fmt.Errorf("resolve target: %w", err)
	}
	if tgt == nil {
		return reply(bot, message, "❌ Mention the child you want to give up, or reply to their message.")
	}

	elig, err := h.svc.AbandonChild(ctx, message.Chat.ID, message.From.ID, tgt.ID)
	if err != nil {
		return fmt.Errorf("abandon child: %w", err)
	}
	if !elig.OK {
		return reply(bot, message, reasonText(elig.Reason))
	}

	text := fmt.Sprintf("💔 %s, hard news...\n😔 %s gave up their parental rights.\n🍂 You are no longer part of their family.",
		mention(tgt.ID, tgt.Name),
		mention(message.From.ID, message.From.FirstName),
	)
	return reply(bot, message, text)
}

// ---------------------------------------------------------------------------
// LeaveFamilyHandler – /leavefamily
// ---------------------------------------------------------------------------

// LeaveFamilyHandler handles the /leavefamily command: a child walks out of
// their family on their own.
type LeaveFamilyHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewLeaveFamilyHandler creates a new LeaveFamilyHandler.
func NewLeaveFamilyHandler(svc *service.Service, logger *logrus.Logger) *LeaveFamilyHandler {
	return &LeaveFamilyHandler{svc: svc, logger: logger}
}

// Handle processes the /leavefamily command.
func (h *LeaveFamilyHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()

	elig, err := h.svc.LeaveFamily(ctx, message.Chat.ID, message.From.ID)
	if err != nil {
		return fmt.Errorf("leave family: %w", err)
	}
	if !elig.OK {
		return reply(bot, message, reasonText(elig.Reason))
	}

	text := fmt.Sprintf("🧳 %s, you have left your family.\n💔 I hope it was a considered decision...",
		mention(message.From.ID, message.From.FirstName))
	return reply(bot, message, text)
}

// ---------------------------------------------------------------------------
// FamilyTreeHandler – /family
// ---------------------------------------------------------------------------

// FamilyTreeHandler handles the /family command, rendering the caller's
// family tree as an indented text outline.
type FamilyTreeHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewFamilyTreeHandler creates a new FamilyTreeHandler.
func NewFamilyTreeHandler(svc *service.Service, logger *logrus.Logger) *FamilyTreeHandler {
	return &FamilyTreeHandler{svc: svc, logger: logger}
}

// Handle processes the /family command.
func (h *FamilyTreeHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()

	roots, err := h.svc.FamilyTree(ctx, message.Chat.ID, message.From.ID)
	if err != nil {
		return fmt.Errorf("build family tree: %w", err)
	}
	if roots == nil {
		return reply(bot, message, "❌ You are not in a family yet.")
	}

	text := fmt.Sprintf("🌳 Family tree of %s:\n\n%s",
		mention(message.From.ID, message.From.FirstName),
		formatOutline(service.Outline(roots)),
	)
	return reply(bot, message, text)
}

// formatOutline renders the tree outline as indented text. A marriage seen
// for the second time shows up as a back-reference instead of its whole
// subtree.
func formatOutline(entries []models.OutlineEntry) string {
	var b strings.Builder
	for _, e := range entries {
		indent := strings.Repeat("      ", e.Depth)

		if e.Reference {
			name := ""
			if m := e.Node.BloodMember(); m != nil {
				name = m.Name
			}
			fmt.Fprintf(&b, "%s↖️ %s — shown above\n", indent, html.EscapeString(name))
			continue
		}

		parts := make([]string, 0, len(e.Node.Members))
		for _, m := range e.Node.Members {
			name := html.EscapeString(m.Name)
			if m.IsMe {
				name = "<b>" + name + "</b>"
			}
			if !m.IsPartner && strings.HasPrefix(m.AdoptionNote, "child") {
				name += " <i>(" + html.EscapeString(m.AdoptionNote) + ")</i>"
			}
			parts = append(parts, name)
		}
		fmt.Fprintf(&b, "%s👪 %s\n", indent, strings.Join(parts, " ⚭ "))
	}
	return b.String()
}
