package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kinbot/kinbot/internal/models"
	"github.com/kinbot/kinbot/internal/repository"
)

// Service is the central business logic layer that holds all repositories
// and provides high-level methods for the application. It is stateless
// between calls; the database is the only shared mutable resource.
type Service struct {
	db       *sql.DB
	logger   *logrus.Logger
	Chats    repository.ChatRepository
	Users    repository.UserRepository
	Marriage repository.MarriageRepository
	Graph    repository.FamilyGraphRepository
}

// New creates a new Service with all required dependencies.
func New(db *sql.DB, logger *logrus.Logger,
	chats repository.ChatRepository,
	users repository.UserRepository,
	marriage repository.MarriageRepository,
	graph repository.FamilyGraphRepository,
) *Service {
	return &Service{
		db: db, logger: logger,
		Chats: chats, Users: users, Marriage: marriage, Graph: graph,
	}
}

// EnsureChat registers the chat so that user and marriage rows have their
// foreign-key anchor.
func (s *Service) EnsureChat(ctx context.Context, chatID int64) error {
	if err := s.Chats.Add(ctx, chatID); err != nil {
		return fmt.Errorf("failed to ensure chat %d: %w", chatID, err)
	}
	return nil
}

// EnsureUser records a user's per-chat profile on first sight and refreshes
// the username on subsequent messages. The nickname defaults to the first
// name and is preserved across upserts.
func (s *Service) EnsureUser(ctx context.Context, chatID, userID int64, username, firstName string) error {
	username = strings.TrimSpace(strings.TrimPrefix(username, "@"))
	nickname := strings.TrimSpace(firstName)
	if nickname == "" {
		nickname = fmt.Sprintf("user %d", userID)
	}

	err := s.Users.Upsert(ctx, &models.User{
		ChatID:   chatID,
		UserID:   userID,
		Username: username,
		Nickname: nickname,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure user (chat_id=%d, user_id=%d): %w", chatID, userID, err)
	}
	return nil
}

// DisplayName resolves a user id to the best human-readable name available.
func (s *Service) DisplayName(ctx context.Context, chatID, userID int64) string {
	user, err := s.Users.Get(ctx, chatID, userID)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"chat_id": chatID,
			"user_id": userID,
		}).WithError(err).Warn("Failed to resolve display name")
	}
	if user == nil {
		return fmt.Sprintf("user %d", userID)
	}
	if name := user.DisplayName(); name != "" {
		return name
	}
	return fmt.Sprintf("user %d", userID)
}

// ResolveUsername finds a chat member by @username, or nil.
func (s *Service) ResolveUsername(ctx context.Context, chatID int64, username string) (*models.User, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, nil
	}
	user, err := s.Users.GetByUsername(ctx, chatID, username)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve username %q: %w", username, err)
	}
	return user, nil
}
