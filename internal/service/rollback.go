package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/devtrack/eventledger/internal/domain"
)

// CreateRollbackPoint captures a restorable marker of applier state scoped
// to the session.
func (s *Service) CreateRollbackPoint(ctx context.Context, sessionID, description string) (*domain.RollbackPoint, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	state, err := s.applier.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot applier state: %w", err)
	}

	point := &domain.RollbackPoint{
		ID:          domain.NewRollbackPointID(),
		SessionID:   sessionID,
		Description: description,
		State:       state,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}
	if err := s.store.CreateRollbackPoint(ctx, point); err != nil {
		return nil, fmt.Errorf("failed to create rollback point: %w", err)
	}
	return point, nil
}

// RollbackToPoint restores applier state as of the marker. ReplayResults
// recorded after the marker are kept: a rollback supersedes them, it does
// not erase the audit trail.
func (s *Service) RollbackToPoint(ctx context.Context, sessionID, pointID string) error {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.Options.EnableRollback {
		log.Printf("WARN: rolling back session %s created without enable_rollback", sessionID)
	}

	point, err := s.store.GetRollbackPoint(ctx, pointID)
	if err != nil {
		return fmt.Errorf("failed to get rollback point: %w", err)
	}
	if point == nil || point.SessionID != sessionID {
		return fmt.Errorf("%w: %s", domain.ErrRollbackPointNotFound, pointID)
	}
	if !point.IsActive {
		return fmt.Errorf("rollback point %s is no longer active", pointID)
	}

	if err := s.applier.Restore(point.State); err != nil {
		return fmt.Errorf("failed to restore state: %w", err)
	}
	log.Printf("session %s: rolled back to %s (%s)", sessionID, point.ID, point.Description)
	return nil
}

// GetRollbackPoints lists a session's rollback points.
func (s *Service) GetRollbackPoints(ctx context.Context, sessionID string) ([]domain.RollbackPoint, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListRollbackPoints(ctx, sessionID)
}
