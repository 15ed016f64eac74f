package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kinbot/kinbot/internal/metrics"
	"github.com/kinbot/kinbot/internal/models"
)

// IncestCycle reports whether marrying a and b would close a vertical
// ancestry cycle. Marriage is not directional, so both ancestor chains are
// unioned: a reachable from b or b reachable from a. Lateral relationships
// (siblings, cousins) are intentionally not checked.
func (s *Service) IncestCycle(ctx context.Context, chatID, a, b int64) (bool, error) {
	found, err := s.Graph.IsAncestor(ctx, chatID, a, b)
	if err != nil {
		return false, err
	}
	if found {
		return true, nil
	}
	return s.Graph.IsAncestor(ctx, chatID, b, a)
}

// CanMarry validates a marriage proposal without mutating anything. The
// same checks run again inside Marry: between proposal and acceptance
// anything can happen.
func (s *Service) CanMarry(ctx context.Context, chatID, proposer, target int64) (Eligibility, error) {
	if proposer == target {
		return refused(ReasonSelfMarriage), nil
	}

	proposerMarriage, err := s.Marriage.GetByUser(ctx, chatID, proposer)
	if err != nil {
		return Eligibility{}, err
	}
	if proposerMarriage != nil {
		return refused(ReasonAlreadyMarried), nil
	}

	targetMarriage, err := s.Marriage.GetByUser(ctx, chatID, target)
	if err != nil {
		return Eligibility{}, err
	}
	if targetMarriage != nil {
		return refused(ReasonTargetMarried), nil
	}

	cycle, err := s.IncestCycle(ctx, chatID, proposer, target)
	if err != nil {
		return Eligibility{}, err
	}
	if cycle {
		return refused(ReasonAncestorSpouse), nil
	}

	return allowed(), nil
}

// Marry validates and creates the marriage. The already-married check and
// the spouse linking are one guarded transaction in the store, so a
// concurrent second proposal loses cleanly and surfaces as a refusal here.
func (s *Service) Marry(ctx context.Context, chatID, proposer, target int64) (Eligibility, error) {
	cycle, err := s.IncestCycle(ctx, chatID, proposer, target)
	if err != nil {
		return Eligibility{}, err
	}
	if cycle {
		return refused(ReasonAncestorSpouse), nil
	}

	result, err := s.Marriage.Create(ctx, chatID, proposer, target)
	if err != nil {
		return Eligibility{}, fmt.Errorf("failed to create marriage: %w", err)
	}
	if !result.OK() {
		for _, id := range result.AlreadyMarried {
			if id == proposer {
				return refused(ReasonAlreadyMarried), nil
			}
		}
		return refused(ReasonTargetMarried), nil
	}

	metrics.MarriagesCreated.Inc()
	s.logger.WithFields(logrus.Fields{
		"chat_id":     chatID,
		"marriage_id": result.MarriageID,
		"users":       []int64{proposer, target},
	}).Info("Marriage created")

	return allowed(), nil
}

// Divorce dissolves the marriage the user is a member of. Returns nil when
// the user is not married; dissolving an already-dissolved marriage is a
// no-op.
func (s *Service) Divorce(ctx context.Context, chatID, userID int64) (*models.Dissolution, error) {
	d, err := s.Marriage.DissolveByUser(ctx, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to dissolve marriage: %w", err)
	}
	if d == nil {
		return nil, nil
	}

	metrics.MarriagesDissolved.Inc()
	s.logger.WithFields(logrus.Fields{
		"chat_id":     chatID,
		"marriage_id": d.MarriageID,
		"children":    len(d.AbandonedChildIDs),
	}).Info("Marriage dissolved")

	return d, nil
}
