package service

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kinbot/kinbot/internal/models"
)

// pair keys symmetric and directed two-user relations in the fakes.
type pair struct{ a, b int64 }

type fakeChats struct {
	added     []int64
	forgotten []int64
}

func (f *fakeChats) Add(ctx context.Context, chatID int64) error {
	f.added = append(f.added, chatID)
	return nil
}

func (f *fakeChats) Forget(ctx context.Context, chatID int64) error {
	f.forgotten = append(f.forgotten, chatID)
	return nil
}

type fakeUsers struct {
	byID    map[int64]*models.User
	deleted []int64
}

func (f *fakeUsers) Upsert(ctx context.Context, user *models.User) error {
	if f.byID == nil {
		f.byID = make(map[int64]*models.User)
	}
	f.byID[user.UserID] = user
	return nil
}

func (f *fakeUsers) Get(ctx context.Context, chatID, userID int64) (*models.User, error) {
	return f.byID[userID], nil
}

func (f *fakeUsers) GetByUsername(ctx context.Context, chatID int64, username string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) Delete(ctx context.Context, chatID, userID int64) error {
	f.deleted = append(f.deleted, userID)
	delete(f.byID, userID)
	return nil
}

// fakeMarriages keeps marriages keyed by member user id, mirroring the
// store's one-marriage-per-user rule.
type fakeMarriages struct {
	byUser       map[int64]*models.MarriageInfo
	dissolutions map[int64]*models.Dissolution
	nextID       int64

	createResult *models.MarriageResult

	setParentCalls   []pair // marriageID, childID
	clearParentCalls []int64
}

func newFakeMarriages() *fakeMarriages {
	return &fakeMarriages{
		byUser:       make(map[int64]*models.MarriageInfo),
		dissolutions: make(map[int64]*models.Dissolution),
		nextID:       1,
	}
}

func (f *fakeMarriages) marry(a, b int64) *models.MarriageInfo {
	m := &models.MarriageInfo{
		ID:           f.nextID,
		Date:         time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Participants: []int64{a, b},
	}
	f.nextID++
	f.byUser[a] = m
	f.byUser[b] = m
	return m
}

func (f *fakeMarriages) Create(ctx context.Context, chatID, userA, userB int64) (*models.MarriageResult, error) {
	if f.createResult != nil {
		return f.createResult, nil
	}

	var taken []int64
	for _, id := range []int64{userA, userB} {
		if f.byUser[id] != nil {
			taken = append(taken, id)
		}
	}
	if len(taken) > 0 {
		return &models.MarriageResult{AlreadyMarried: taken}, nil
	}

	m := f.marry(userA, userB)
	return &models.MarriageResult{MarriageID: m.ID}, nil
}

func (f *fakeMarriages) Dissolve(ctx context.Context, chatID, marriageID int64) (*models.Dissolution, error) {
	for _, m := range f.byUser {
		if m.ID == marriageID {
			return f.DissolveByUser(ctx, chatID, m.Participants[0])
		}
	}
	return nil, nil
}

func (f *fakeMarriages) DissolveByUser(ctx context.Context, chatID, userID int64) (*models.Dissolution, error) {
	m := f.byUser[userID]
	if m == nil {
		return nil, nil
	}
	for _, id := range m.Participants {
		delete(f.byUser, id)
	}
	d := &models.Dissolution{
		MarriageID:        m.ID,
		ParticipantIDs:    m.Participants,
		AbandonedChildIDs: m.ChildIDs,
	}
	f.dissolutions[m.ID] = d
	return d, nil
}

func (f *fakeMarriages) GetByUser(ctx context.Context, chatID, userID int64) (*models.MarriageInfo, error) {
	return f.byUser[userID], nil
}

func (f *fakeMarriages) List(ctx context.Context, chatID int64, page, perPage int) (*models.MarriageList, error) {
	seen := make(map[int64]bool)
	var items []*models.MarriageInfo
	for _, m := range f.byUser {
		if !seen[m.ID] {
			seen[m.ID] = true
			items = append(items, m)
		}
	}
	return &models.MarriageList{Items: items, Page: page, TotalPages: 1}, nil
}

func (f *fakeMarriages) SetParent(ctx context.Context, chatID, marriageID, childID int64, adoptionDate time.Time) error {
	f.setParentCalls = append(f.setParentCalls, pair{marriageID, childID})
	return nil
}

func (f *fakeMarriages) ClearParent(ctx context.Context, chatID, childID int64) error {
	f.clearParentCalls = append(f.clearParentCalls, childID)
	return nil
}

// fakeGraph answers reachability queries from literal relation sets.
type fakeGraph struct {
	ancestors map[pair]bool // {ancestor, subject}
	parents   map[pair]bool // {parent, child}
	children  map[int64]bool
	rows      []models.FamilyTreeRow
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		ancestors: make(map[pair]bool),
		parents:   make(map[pair]bool),
		children:  make(map[int64]bool),
	}
}

func (f *fakeGraph) IsAncestor(ctx context.Context, chatID, candidateAncestor, subject int64) (bool, error) {
	return f.ancestors[pair{candidateAncestor, subject}], nil
}

func (f *fakeGraph) IsParent(ctx context.Context, chatID, parentID, childID int64) (bool, error) {
	return f.parents[pair{parentID, childID}], nil
}

func (f *fakeGraph) IsChild(ctx context.Context, chatID, userID int64) (bool, error) {
	return f.children[userID], nil
}

func (f *fakeGraph) FamilyTreeRows(ctx context.Context, chatID, userID int64) ([]models.FamilyTreeRow, error) {
	return f.rows, nil
}

// newTestService wires a Service around the fakes with a silent logger.
func newTestService(marriages *fakeMarriages, graph *fakeGraph) (*Service, *fakeChats, *fakeUsers) {
	l := logrus.New()
	l.SetOutput(io.Discard)

	chats := &fakeChats{}
	users := &fakeUsers{byID: make(map[int64]*models.User)}
	return New(nil, l, chats, users, marriages, graph), chats, users
}
