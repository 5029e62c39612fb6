// Package service implements the event ledger and replay engine.
package service

import (
	"sync"

	"github.com/devtrack/eventledger/internal/domain"
	store "github.com/devtrack/eventledger/internal/repository"
	"github.com/devtrack/eventledger/policy"
)

// Service owns the ledger operations: event ingestion and queries, replay
// session lifecycle, execution, rollback, and validation. Running executors
// live in an explicit registry on the Service rather than package state, so
// lifecycle is visible: entries are inserted by StartReplay and removed when
// the run goroutine finishes.
type Service struct {
	store        store.Store
	applier      Applier
	policyEngine *policy.Engine
	retention    domain.RetentionPolicy

	mu         sync.Mutex
	executions map[string]*execution
}

// New creates a new Service. applier may be nil, in which case replays are
// applied against an in-memory StateApplier.
func New(st store.Store, applier Applier, policyEngine *policy.Engine, retention domain.RetentionPolicy) *Service {
	if applier == nil {
		applier = NewStateApplier()
	}
	return &Service{
		store:        st,
		applier:      applier,
		policyEngine: policyEngine,
		retention:    retention,
		executions:   make(map[string]*execution),
	}
}

// Applier exposes the configured effect boundary, mainly for inspection in
// tests and diagnostics.
func (s *Service) Applier() Applier {
	return s.applier
}

func (s *Service) registerExecution(exec *execution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[exec.sessionID] = exec
}

func (s *Service) lookupExecution(sessionID string) *execution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executions[sessionID]
}

func (s *Service) unregisterExecution(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.executions, sessionID)
}
