package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/devtrack/eventledger/internal/domain"
)

// execution is the in-memory handle for one running session. Exactly one
// exists per session id at a time; the state machine rejects a second start
// while the session is RUNNING.
type execution struct {
	sessionID string
	startedAt time.Time
	cancel    context.CancelFunc

	pauseRequested  atomic.Bool
	cancelRequested atomic.Bool
	failed          atomic.Bool
}

func (e *execution) requestPause() {
	e.pauseRequested.Store(true)
}

// requestCancel stops the executor from claiming new events. The run
// context is left alone so in-flight events finish and record results.
func (e *execution) requestCancel() {
	e.cancelRequested.Store(true)
}

// interrupted reports whether the executor should stop claiming new events.
// In-flight events are always allowed to finish.
func (e *execution) interrupted() bool {
	return e.pauseRequested.Load() || e.cancelRequested.Load()
}

// StartReplay transitions a PENDING session to RUNNING and spawns its
// executor. It returns to the caller immediately; status and progress are
// polled via GetSession and GetReplayProgress.
func (s *Service) StartReplay(ctx context.Context, sessionID string) error {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != domain.SessionStatusPending {
		return fmt.Errorf("%w: %s is %s", domain.ErrSessionNotPending, sessionID, session.Status)
	}

	// The PENDING->RUNNING transition happens inside one UPDATE, so of two
	// concurrent starts exactly one wins the claim.
	claimed, err := s.store.ClaimReplaySession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to claim session: %w", err)
	}
	if !claimed {
		return fmt.Errorf("%w: %s was claimed concurrently", domain.ErrSessionNotPending, sessionID)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	exec := &execution{
		sessionID: sessionID,
		startedAt: time.Now(),
		cancel:    cancel,
	}
	s.registerExecution(exec)

	go s.runReplay(runCtx, exec, session)
	return nil
}

// runReplay drives one session from RUNNING to a terminal (or paused)
// state. It owns all writes to the session's records for the duration.
func (s *Service) runReplay(ctx context.Context, exec *execution, session *domain.ReplaySession) {
	defer exec.cancel()
	defer s.unregisterExecution(session.ID)

	opts := session.Options.Normalized()

	events, skip, err := s.resolveReplayEvents(ctx, session)
	if err != nil {
		log.Printf("ERROR: session %s: failed to resolve events: %v", session.ID, err)
		s.finishReplay(exec, session.ID, domain.SessionStatusFailed)
		return
	}
	if err := s.store.ResetReplaySessionProgress(ctx, session.ID, len(events)); err != nil {
		log.Printf("ERROR: session %s: failed to reset progress: %v", session.ID, err)
		s.finishReplay(exec, session.ID, domain.SessionStatusFailed)
		return
	}

	if opts.EnableRollback && opts.Mode != domain.ModeDryRun {
		if _, err := s.CreateRollbackPoint(ctx, session.ID, "auto: before replay"); err != nil {
			log.Printf("ERROR: session %s: failed to create rollback point: %v", session.ID, err)
			s.finishReplay(exec, session.ID, domain.SessionStatusFailed)
			return
		}
	}

	if opts.EnableValidation {
		report, err := s.ValidateReplay(ctx, session.ID)
		if err != nil {
			log.Printf("WARN: session %s: validation failed: %v", session.ID, err)
		} else {
			for _, issue := range report.Issues {
				log.Printf("WARN: session %s: validation issue %s: %s", session.ID, issue.Type, issue.Detail)
			}
		}
	}

	switch opts.Strategy {
	case domain.StrategyParallel:
		s.runParallel(ctx, exec, session, opts, events, skip)
	case domain.StrategyDependencyAware:
		s.runDependencyAware(ctx, exec, session, opts, events, skip)
	default:
		// SEQUENTIAL and SELECTIVE: SELECTIVE is sequential order over the
		// include/skip-resolved subset, which resolveReplayEvents built.
		s.runSequential(ctx, exec, session, opts, events, skip)
	}

	switch {
	case exec.cancelRequested.Load():
		s.finishReplay(exec, session.ID, domain.SessionStatusCancelled)
	case exec.pauseRequested.Load():
		s.finishReplay(exec, session.ID, domain.SessionStatusPending)
	case exec.failed.Load() && opts.StopOnError:
		s.finishReplay(exec, session.ID, domain.SessionStatusFailed)
	default:
		s.finishReplay(exec, session.ID, domain.SessionStatusCompleted)
	}
}

// finishReplay records the final status. It uses a fresh context: the run
// context may already be cancelled, and the terminal status must land.
func (s *Service) finishReplay(exec *execution, sessionID string, status domain.SessionStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.UpdateReplaySessionStatus(ctx, sessionID, status); err != nil {
		log.Printf("ERROR: session %s: failed to set status %s: %v", sessionID, status, err)
	}
}

// resolveReplayEvents re-resolves the session's filter to the current event
// list in ascending timestamp order, applies the IncludeEvents restriction,
// and returns the SkipEvents set. Skipped events stay in the list so they
// are counted and recorded as SKIPPED.
func (s *Service) resolveReplayEvents(ctx context.Context, session *domain.ReplaySession) ([]domain.Event, map[string]bool, error) {
	filter := session.Filter
	filter.SortBy = domain.SortByTimestamp
	filter.SortOrder = domain.SortAsc
	if filter.Limit == 0 {
		filter.Limit = -1 // replay the full match, not one page
	}

	events, err := s.store.GetEvents(ctx, filter)
	if err != nil {
		return nil, nil, err
	}

	opts := session.Options
	if len(opts.IncludeEvents) > 0 {
		include := make(map[string]bool, len(opts.IncludeEvents))
		for _, id := range opts.IncludeEvents {
			include[id] = true
		}
		kept := events[:0]
		for _, e := range events {
			if include[e.ID] {
				kept = append(kept, e)
			}
		}
		events = kept
	}

	skip := make(map[string]bool, len(opts.SkipEvents))
	for _, id := range opts.SkipEvents {
		skip[id] = true
	}
	return events, skip, nil
}

// processEvent replays one event and records its result. Every event yields
// exactly one ReplayResult and one processed-counter increment, whatever the
// outcome.
func (s *Service) processEvent(ctx context.Context, exec *execution, session *domain.ReplaySession, opts domain.ReplayOptions, event domain.Event, skipped bool) domain.ReplayResultStatus {
	started := time.Now()
	status := domain.ResultApplied
	errDetail := ""

	switch {
	case skipped:
		status = domain.ResultSkipped
	case opts.Mode == domain.ModeDryRun:
		// Simulated apply: no side effect anywhere.
	default:
		if opts.Mode != domain.ModeFast {
			if err := domain.ValidatePayload(event.Type, event.Payload); err != nil {
				status = domain.ResultFailed
				errDetail = err.Error()
			}
		}
		if status == domain.ResultApplied {
			if err := s.applier.Apply(ctx, event); err != nil {
				status = domain.ResultFailed
				errDetail = err.Error()
			}
		}
	}

	if opts.Mode == domain.ModeVerbose {
		log.Printf("session %s: event %s (%s) -> %s", session.ID, event.ID, event.Type, status)
	}

	result := &domain.ReplayResult{
		ID:         domain.NewResultID(),
		SessionID:  session.ID,
		EventID:    event.ID,
		Status:     status,
		Error:      errDetail,
		DurationMs: time.Since(started).Milliseconds(),
		CreatedAt:  time.Now(),
	}
	// Results and counters are recorded on a fresh context so a cancel
	// arriving mid-event cannot lose the outcome of work already done.
	recordCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.CreateReplayResult(recordCtx, result); err != nil {
		log.Printf("ERROR: session %s: failed to record result for %s: %v", session.ID, event.ID, err)
	}
	if err := s.store.IncrementReplaySessionProcessed(recordCtx, session.ID); err != nil {
		log.Printf("ERROR: session %s: failed to bump progress: %v", session.ID, err)
	}

	if status == domain.ResultFailed {
		exec.failed.Store(true)
	}
	return status
}

// runSequential processes events one at a time in filter sort order.
func (s *Service) runSequential(ctx context.Context, exec *execution, session *domain.ReplaySession, opts domain.ReplayOptions, events []domain.Event, skip map[string]bool) {
	for _, event := range events {
		if exec.interrupted() {
			return
		}
		status := s.processEvent(ctx, exec, session, opts, event, skip[event.ID])
		if status == domain.ResultFailed && opts.StopOnError {
			return
		}
	}
}

// runParallel processes up to MaxConcurrency events at once with no
// ordering guarantee between them.
func (s *Service) runParallel(ctx context.Context, exec *execution, session *domain.ReplaySession, opts domain.ReplayOptions, events []domain.Event, skip map[string]bool) {
	sem := make(chan struct{}, opts.MaxConcurrency)
	var wg sync.WaitGroup
	var stop atomic.Bool

	for _, event := range events {
		if exec.interrupted() || stop.Load() {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(event domain.Event) {
			defer wg.Done()
			defer func() { <-sem }()
			status := s.processEvent(ctx, exec, session, opts, event, skip[event.ID])
			if status == domain.ResultFailed && opts.StopOnError {
				stop.Store(true)
			}
		}(event)
	}
	wg.Wait()
}

// runDependencyAware executes events in dependency waves: each wave holds
// only events whose dependencies have completed, and runs them like a
// bounded parallel batch. Events sharing a dependency key are ordered by
// timestamp; unrelated events may run concurrently.
func (s *Service) runDependencyAware(ctx context.Context, exec *execution, session *domain.ReplaySession, opts domain.ReplayOptions, events []domain.Event, skip map[string]bool) {
	waves := dependencyWaves(events)
	for _, wave := range waves {
		if exec.interrupted() {
			return
		}
		s.runParallel(ctx, exec, session, opts, wave, skip)
		if exec.failed.Load() && opts.StopOnError {
			return
		}
	}
}

// dependencyWaves partitions events (given in ascending timestamp order)
// into waves such that every event lands in a later wave than everything it
// depends on. An event's wave is one past the deepest wave among the events
// it shares a dependency key with.
func dependencyWaves(events []domain.Event) [][]domain.Event {
	var waves [][]domain.Event
	lastWaveForKey := make(map[string]int)

	for _, event := range events {
		wave := 0
		keys := event.DependencyKeys()
		for _, key := range keys {
			if depth, ok := lastWaveForKey[key]; ok && depth+1 > wave {
				wave = depth + 1
			}
		}
		for len(waves) <= wave {
			waves = append(waves, nil)
		}
		waves[wave] = append(waves[wave], event)
		for _, key := range keys {
			lastWaveForKey[key] = wave
		}
	}
	return waves
}

// GetReplayProgress reports a session's execution progress. A session that
// has never been started has no progress to report.
func (s *Service) GetReplayProgress(ctx context.Context, sessionID string) (*domain.ReplayProgress, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	exec := s.lookupExecution(sessionID)
	neverStarted := session.Status == domain.SessionStatusPending ||
		session.Status == domain.SessionStatusCancelled
	if neverStarted && session.ProcessedEvents == 0 && exec == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoProgress, sessionID)
	}

	progress := &domain.ReplayProgress{
		SessionID:       session.ID,
		Status:          session.Status,
		TotalEvents:     session.TotalEvents,
		ProcessedEvents: session.ProcessedEvents,
	}
	if exec != nil && session.Status == domain.SessionStatusRunning && session.ProcessedEvents > 0 {
		elapsed := time.Since(exec.startedAt)
		remaining := session.TotalEvents - session.ProcessedEvents
		if remaining > 0 {
			eta := elapsed.Milliseconds() * int64(remaining) / int64(session.ProcessedEvents)
			if eta > 0 {
				progress.EstimatedTimeRemainingMs = eta
			}
		}
	}
	return progress, nil
}

// GetReplayResults lists the per-event results recorded for a session.
func (s *Service) GetReplayResults(ctx context.Context, sessionID string) ([]domain.ReplayResult, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.GetReplayResults(ctx, sessionID)
}
