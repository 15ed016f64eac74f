package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinbot/kinbot/internal/models"
)

const testChatID = int64(-100500)

func TestCanMarry(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(m *fakeMarriages, g *fakeGraph)
		proposer   int64
		target     int64
		wantOK     bool
		wantReason Reason
	}{
		{
			name:       "self proposal",
			setup:      func(m *fakeMarriages, g *fakeGraph) {},
			proposer:   1,
			target:     1,
			wantReason: ReasonSelfMarriage,
		},
		{
			name: "proposer already married",
			setup: func(m *fakeMarriages, g *fakeGraph) {
				m.marry(1, 3)
			},
			proposer:   1,
			target:     2,
			wantReason: ReasonAlreadyMarried,
		},
		{
			name: "target already married",
			setup: func(m *fakeMarriages, g *fakeGraph) {
				m.marry(2, 3)
			},
			proposer:   1,
			target:     2,
			wantReason: ReasonTargetMarried,
		},
		{
			name: "target is an ancestor of proposer",
			setup: func(m *fakeMarriages, g *fakeGraph) {
				g.ancestors[pair{2, 1}] = true
			},
			proposer:   1,
			target:     2,
			wantReason: ReasonAncestorSpouse,
		},
		{
			name: "proposer is an ancestor of target",
			setup: func(m *fakeMarriages, g *fakeGraph) {
				g.ancestors[pair{1, 2}] = true
			},
			proposer:   1,
			target:     2,
			wantReason: ReasonAncestorSpouse,
		},
		{
			name:     "unrelated singles may marry",
			setup:    func(m *fakeMarriages, g *fakeGraph) {},
			proposer: 1,
			target:   2,
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			marriages := newFakeMarriages()
			graph := newFakeGraph()
			tt.setup(marriages, graph)
			svc, _, _ := newTestService(marriages, graph)

			elig, err := svc.CanMarry(context.Background(), testChatID, tt.proposer, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, elig.OK)
			assert.Equal(t, tt.wantReason, elig.Reason)
		})
	}
}

func TestIncestCycleIsSymmetric(t *testing.T) {
	graph := newFakeGraph()
	graph.ancestors[pair{7, 8}] = true // 7 is an ancestor of 8, not vice versa
	svc, _, _ := newTestService(newFakeMarriages(), graph)

	got, err := svc.IncestCycle(context.Background(), testChatID, 7, 8)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = svc.IncestCycle(context.Background(), testChatID, 8, 7)
	require.NoError(t, err)
	assert.True(t, got, "cycle check must not depend on argument order")
}

func TestMarry(t *testing.T) {
	t.Run("creates the marriage", func(t *testing.T) {
		marriages := newFakeMarriages()
		svc, _, _ := newTestService(marriages, newFakeGraph())

		elig, err := svc.Marry(context.Background(), testChatID, 1, 2)
		require.NoError(t, err)
		assert.True(t, elig.OK)

		m, err := marriages.GetByUser(context.Background(), testChatID, 1)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.True(t, m.HasParticipant(2))
	})

	t.Run("store refusal names the proposer", func(t *testing.T) {
		marriages := newFakeMarriages()
		marriages.createResult = &models.MarriageResult{AlreadyMarried: []int64{1}}
		svc, _, _ := newTestService(marriages, newFakeGraph())

		elig, err := svc.Marry(context.Background(), testChatID, 1, 2)
		require.NoError(t, err)
		assert.False(t, elig.OK)
		assert.Equal(t, ReasonAlreadyMarried, elig.Reason)
	})

	t.Run("store refusal names the target", func(t *testing.T) {
		marriages := newFakeMarriages()
		marriages.createResult = &models.MarriageResult{AlreadyMarried: []int64{2}}
		svc, _, _ := newTestService(marriages, newFakeGraph())

		elig, err := svc.Marry(context.Background(), testChatID, 1, 2)
		require.NoError(t, err)
		assert.False(t, elig.OK)
		assert.Equal(t, ReasonTargetMarried, elig.Reason)
	})

	t.Run("acceptance-time cycle check still applies", func(t *testing.T) {
		marriages := newFakeMarriages()
		graph := newFakeGraph()
		graph.ancestors[pair{2, 1}] = true
		svc, _, _ := newTestService(marriages, graph)

		elig, err := svc.Marry(context.Background(), testChatID, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, ReasonAncestorSpouse, elig.Reason)
		assert.Empty(t, marriages.byUser, "no marriage may be created on refusal")
	})
}

func TestDivorce(t *testing.T) {
	t.Run("not married is a quiet no-op", func(t *testing.T) {
		svc, _, _ := newTestService(newFakeMarriages(), newFakeGraph())

		d, err := svc.Divorce(context.Background(), testChatID, 1)
		require.NoError(t, err)
		assert.Nil(t, d)
	})

	t.Run("dissolution reports partner and orphans", func(t *testing.T) {
		marriages := newFakeMarriages()
		m := marriages.marry(1, 2)
		m.ChildIDs = []int64{5, 6}
		svc, _, _ := newTestService(marriages, newFakeGraph())

		d, err := svc.Divorce(context.Background(), testChatID, 1)
		require.NoError(t, err)
		require.NotNil(t, d)

		partner, ok := d.PartnerOf(1)
		assert.True(t, ok)
		assert.Equal(t, int64(2), partner)
		assert.Equal(t, []int64{5, 6}, d.AbandonedChildIDs)

		again, err := svc.Divorce(context.Background(), testChatID, 2)
		require.NoError(t, err)
		assert.Nil(t, again, "second dissolution of the same marriage is a no-op")
	})
}

func TestHandleUserLeft(t *testing.T) {
	marriages := newFakeMarriages()
	m := marriages.marry(1, 2)
	m.ChildIDs = []int64{5}
	svc, _, users := newTestService(marriages, newFakeGraph())
	users.byID[1] = &models.User{ChatID: testChatID, UserID: 1, Nickname: "Lev"}

	d, err := svc.HandleUserLeft(context.Background(), testChatID, 1)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, []int64{5}, d.AbandonedChildIDs)
	assert.Equal(t, []int64{1}, users.deleted)
}

func TestHandleBotRemoved(t *testing.T) {
	svc, chats, _ := newTestService(newFakeMarriages(), newFakeGraph())

	require.NoError(t, svc.HandleBotRemoved(context.Background(), testChatID))
	assert.Equal(t, []int64{testChatID}, chats.forgotten)
}
