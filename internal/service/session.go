package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/devtrack/eventledger/internal/domain"
	store "github.com/devtrack/eventledger/internal/repository"
)

// CreateSession persists a new replay session in PENDING state. The filter
// is resolved against the store once to size the session; membership is
// re-resolved when the session starts.
func (s *Service) CreateSession(ctx context.Context, name string, filter domain.EventFilter, options domain.ReplayOptions, description string) (*domain.ReplaySession, error) {
	if name == "" {
		return nil, fmt.Errorf("session name is required")
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	total, err := s.store.CountEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count matching events: %w", err)
	}

	// Options are stored as given; every consumer normalizes at the point
	// of use, and the validator wants to see what the caller actually set.
	now := time.Now()
	session := &domain.ReplaySession{
		ID:          domain.NewSessionID(),
		Name:        name,
		Description: description,
		Filter:      filter,
		Options:     options,
		Status:      domain.SessionStatusPending,
		TotalEvents: total,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateReplaySession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// GetSession retrieves a session by id.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.ReplaySession, error) {
	session, err := s.store.GetReplaySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	return session, nil
}

// GetSessions lists sessions, optionally filtered by status.
func (s *Service) GetSessions(ctx context.Context, query store.SessionQuery) ([]domain.ReplaySession, error) {
	return s.store.ListReplaySessions(ctx, query)
}

// PauseReplay asks a RUNNING session's executor to stop claiming further
// events and return the session to PENDING. Pausing a session that is not
// RUNNING is a no-op, not an error.
func (s *Service) PauseReplay(ctx context.Context, sessionID string) error {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != domain.SessionStatusRunning {
		return nil
	}

	if exec := s.lookupExecution(sessionID); exec != nil {
		exec.requestPause()
		return nil
	}
	// No live executor for a RUNNING session: a previous process died
	// mid-run. Make the session resumable directly.
	log.Printf("WARN: pausing session %s with no live executor", sessionID)
	return s.store.UpdateReplaySessionStatus(ctx, sessionID, domain.SessionStatusPending)
}

// CancelReplay aborts a PENDING or RUNNING session. The status moves to
// CANCELLED immediately; in-flight events may still finish, but no new event
// processing begins once the executor observes the signal.
func (s *Service) CancelReplay(ctx context.Context, sessionID string) error {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status.Terminal() {
		return nil
	}

	if err := s.store.UpdateReplaySessionStatus(ctx, sessionID, domain.SessionStatusCancelled); err != nil {
		return fmt.Errorf("failed to cancel session: %w", err)
	}
	if exec := s.lookupExecution(sessionID); exec != nil {
		exec.requestCancel()
	}
	return nil
}
