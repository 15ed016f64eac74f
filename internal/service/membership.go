package service

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/kinbot/kinbot/internal/models"
)

// HandleUserLeft cleans up after a user leaves the chat: their marriage is
// dissolved (orphaning any children) and their profile row is removed,
// which also detaches them from their own parent marriage. Cleanup steps
// are independent; all failures are collected rather than stopping at the
// first one.
func (s *Service) HandleUserLeft(ctx context.Context, chatID, userID int64) (*models.Dissolution, error) {
	var errs *multierror.Error

	dissolution, err := s.Divorce(ctx, chatID, userID)
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("failed to dissolve marriage of leaving user: %w", err))
	}

	if err := s.Users.Delete(ctx, chatID, userID); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("failed to delete leaving user: %w", err))
	}

	return dissolution, errs.ErrorOrNil()
}

// HandleBotRemoved forgets the chat entirely; users and marriages cascade
// away with it.
func (s *Service) HandleBotRemoved(ctx context.Context, chatID int64) error {
	if err := s.Chats.Forget(ctx, chatID); err != nil {
		return fmt.Errorf("failed to forget chat %d: %w", chatID, err)
	}
	s.logger.WithField("chat_id", chatID).Info("Chat forgotten")
	return nil
}
