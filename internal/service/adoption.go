package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kinbot/kinbot/internal/metrics"
	"github.com/kinbot/kinbot/internal/models"
)

// CheckAdoption validates that the given marriage may adopt childID.
// Re-parenting is not supported: an already-parented child must leave its
// family first. A marriage also cannot adopt one of its own spouses, nor an
// ancestor of either spouse; the last rule keeps the parent direction
// acyclic independently of the marriage-time check.
func (s *Service) CheckAdoption(ctx context.Context, chatID, childID int64, marriage *models.MarriageInfo) (Eligibility, error) {
	if marriage == nil {
		return refused(ReasonNeedSpouse), nil
	}

	isChild, err := s.Graph.IsChild(ctx, chatID, childID)
	if err != nil {
		return Eligibility{}, err
	}
	if isChild {
		return refused(ReasonAlreadyParented), nil
	}

	if marriage.HasParticipant(childID) {
		return refused(ReasonOwnSpouse), nil
	}

	for _, spouse := range marriage.Participants {
		ancestor, err := s.Graph.IsAncestor(ctx, chatID, childID, spouse)
		if err != nil {
			return Eligibility{}, err
		}
		if ancestor {
			return refused(ReasonOwnAncestor), nil
		}
	}

	return allowed(), nil
}

// Adopt attaches childID to parentID's marriage after re-validating
// eligibility.
func (s *Service) Adopt(ctx context.Context, chatID, parentID, childID int64) (Eligibility, error) {
	marriage, err := s.Marriage.GetByUser(ctx, chatID, parentID)
	if err != nil {
		return Eligibility{}, err
	}

	elig, err := s.CheckAdoption(ctx, chatID, childID, marriage)
	if err != nil || !elig.OK {
		return elig, err
	}

	if err := s.Marriage.SetParent(ctx, chatID, marriage.ID, childID, time.Now().UTC()); err != nil {
		return Eligibility{}, fmt.Errorf("failed to adopt: %w", err)
	}

	metrics.Adoptions.Inc()
	s.logger.WithFields(logrus.Fields{
		"chat_id":     chatID,
		"marriage_id": marriage.ID,
		"child_id":    childID,
	}).Info("Child adopted")

	return allowed(), nil
}

// AbandonChild detaches childID from parentID's marriage. Only an actual
// parent may do this.
func (s *Service) AbandonChild(ctx context.Context, chatID, parentID, childID int64) (Eligibility, error) {
	isParent, err := s.Graph.IsParent(ctx, chatID, parentID, childID)
	if err != nil {
		return Eligibility{}, err
	}
	if !isParent {
		return refused(ReasonNotYourChild), nil
	}

	if err := s.Marriage.ClearParent(ctx, chatID, childID); err != nil {
		return Eligibility{}, fmt.Errorf("failed to abandon child: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"chat_id":  chatID,
		"child_id": childID,
	}).Info("Child abandoned")

	return allowed(), nil
}

// LeaveFamily lets a child detach from its parent marriage on its own.
func (s *Service) LeaveFamily(ctx context.Context, chatID, userID int64) (Eligibility, error) {
	isChild, err := s.Graph.IsChild(ctx, chatID, userID)
	if err != nil {
		return Eligibility{}, err
	}
	if !isChild {
		return refused(ReasonNoFamily), nil
	}

	if err := s.Marriage.ClearParent(ctx, chatID, userID); err != nil {
		return Eligibility{}, fmt.Errorf("failed to leave family: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"chat_id": chatID,
		"user_id": userID,
	}).Info("User left family")

	return allowed(), nil
}
