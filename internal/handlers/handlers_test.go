package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinbot/kinbot/internal/models"
	"github.com/kinbot/kinbot/internal/service"
)

func TestParseProposalArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		from    int64
		to      int64
		verb    string
		wantErr bool
	}{
		{name: "accept", args: []string{"15", "42", "accept"}, from: 15, to: 42, verb: "accept"},
		{name: "negative chat-scoped id", args: []string{"-7", "42", "retire"}, from: -7, to: 42, verb: "retire"},
		{name: "too few args", args: []string{"15", "42"}, wantErr: true},
		{name: "garbage proposer", args: []string{"x", "42", "accept"}, wantErr: true},
		{name: "garbage target", args: []string{"15", "x", "accept"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, verb, err := parseProposalArgs(tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, tt.to, to)
			assert.Equal(t, tt.verb, verb)
		})
	}
}

func TestProposalKeyboard(t *testing.T) {
	kb := proposalKeyboard("marry", 15, 42)
	require.Len(t, kb.InlineKeyboard, 2)
	require.Len(t, kb.InlineKeyboard[0], 2)
	require.Len(t, kb.InlineKeyboard[1], 1)

	assert.Equal(t, "marry:15:42:accept", *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "marry:15:42:decline", *kb.InlineKeyboard[0][1].CallbackData)
	assert.Equal(t, "marry:15:42:retire", *kb.InlineKeyboard[1][0].CallbackData)
}

func TestReasonText(t *testing.T) {
	assert.Equal(t, "❌ You are already married.", reasonText(service.ReasonAlreadyMarried))
	assert.Equal(t, "❌ Not possible.", reasonText(service.ReasonNone))
}

func TestFormatOutline(t *testing.T) {
	mid := func(v int64) *int64 { return &v }

	parents := &models.TreeNode{
		MarriageID: mid(10),
		Members: []*models.TreeMember{
			{UserID: 1, Name: "Anna", IsMe: true},
			{UserID: 2, Name: "Boris", IsPartner: true, AdoptionNote: "spouse"},
		},
	}
	kid := &models.TreeNode{
		Members: []*models.TreeMember{
			{UserID: 5, Name: "Kid", AdoptionNote: "child for 2 d."},
		},
	}
	parents.Children = []*models.TreeNode{kid}

	out := formatOutline(service.Outline([]*models.TreeNode{parents}))

	assert.Contains(t, out, "<b>Anna</b>")
	assert.Contains(t, out, "Boris")
	assert.Contains(t, out, "Kid <i>(child for 2 d.)</i>")
	assert.NotContains(t, out, "spouse", "the partner marker is not an adoption note")

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "      ")
	assert.Contains(t, lines[1], "      ", "children are indented one level")
}

func TestFormatOutlineReference(t *testing.T) {
	mid := func(v int64) *int64 { return &v }

	shared := &models.TreeNode{
		MarriageID: mid(30),
		Members:    []*models.TreeMember{{UserID: 5, Name: "Eve"}},
	}
	left := &models.TreeNode{
		MarriageID: mid(10),
		Members:    []*models.TreeMember{{UserID: 1, Name: "Anna"}},
		Children:   []*models.TreeNode{shared},
	}
	right := &models.TreeNode{
		MarriageID: mid(20),
		Members:    []*models.TreeMember{{UserID: 3, Name: "Carl"}},
		Children:   []*models.TreeNode{shared},
	}

	out := formatOutline(service.Outline([]*models.TreeNode{left, right}))

	assert.Contains(t, out, "Eve — shown above")
	assert.Equal(t, 1, strings.Count(out, "👪 Eve"), "the shared subtree is expanded exactly once")
}
