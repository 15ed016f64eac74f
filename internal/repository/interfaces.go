package repository

import (
	"context"
	"time"

	"github.com/kinbot/kinbot/internal/models"
)

// ChatRepository defines the interface for chat registration. Dropping a chat
// cascades to its users and marriages at the database level.
type ChatRepository interface {
	Add(ctx context.Context, chatID int64) error
	Forget(ctx context.Context, chatID int64) error
}

// UserRepository defines the interface for per-chat user profiles.
type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	Get(ctx context.Context, chatID, userID int64) (*models.User, error)
	GetByUsername(ctx context.Context, chatID int64, username string) (*models.User, error)
	Delete(ctx context.Context, chatID, userID int64) error
}

// MarriageRepository defines the interface for marriage and adoption-link
// mutations. Every mutation runs in a single transaction; a half-created
// marriage is never observable.
type MarriageRepository interface {
	// Create marries two distinct users. The check that neither is already
	// married and the linking of both users happen in one guarded statement,
	// so two concurrent proposals cannot both claim the same person.
	Create(ctx context.Context, chatID, userA, userB int64) (*models.MarriageResult, error)

	// Dissolve deletes the marriage, unlinks both spouses and orphans its
	// children. Returns nil when the marriage does not exist.
	Dissolve(ctx context.Context, chatID, marriageID int64) (*models.Dissolution, error)

	// DissolveByUser dissolves the marriage the given user is a member of.
	// Returns nil when the user is not married.
	DissolveByUser(ctx context.Context, chatID, userID int64) (*models.Dissolution, error)

	// GetByUser returns the marriage the user is a spouse in, or nil.
	GetByUser(ctx context.Context, chatID, userID int64) (*models.MarriageInfo, error)

	// List returns one page of the chat's marriages, oldest first.
	List(ctx context.Context, chatID int64, page, perPage int) (*models.MarriageList, error)

	// SetParent attaches a child to a marriage. Eligibility must have been
	// validated by the caller.
	SetParent(ctx context.Context, chatID, marriageID, childID int64, adoptionDate time.Time) error

	// ClearParent detaches a child from its parent marriage unconditionally.
	ClearParent(ctx context.Context, chatID, childID int64) error
}

// FamilyGraphRepository defines the read-only reachability queries over the
// family forest.
type FamilyGraphRepository interface {
	// IsAncestor reports whether candidateAncestor is reachable from subject
	// by walking parent marriages upward at least one hop.
	IsAncestor(ctx context.Context, chatID, candidateAncestor, subject int64) (bool, error)

	// IsParent reports whether child's parent marriage is the marriage
	// parentID is currently a spouse in (one hop, not transitive).
	IsParent(ctx context.Context, chatID, parentID, childID int64) (bool, error)

	// IsChild reports whether the user currently has a parent marriage.
	IsChild(ctx context.Context, chatID, userID int64) (bool, error)

	// FamilyTreeRows returns the flat bounded window of the family forest
	// around the focal user: two generations up and down plus siblings.
	FamilyTreeRows(ctx context.Context, chatID, userID int64) ([]models.FamilyTreeRow, error)
}
