package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/devtrack/eventledger/internal/domain"
)

// Applier is the effect boundary the executor drives. Replaying an event
// calls Apply; rollback points capture Snapshot and RollbackToPoint feeds it
// back through Restore. The surrounding application injects its real applier
// (file writer, record mutator, sync runner); the default StateApplier only
// projects events into memory.
type Applier interface {
	Apply(ctx context.Context, event domain.Event) error
	Snapshot() ([]byte, error)
	Restore(state []byte) error
}

// AppliedRecord is the per-target projection StateApplier maintains.
type AppliedRecord struct {
	LastEventID string `json:"last_event_id"`
	LastType    string `json:"last_type"`
	ApplyCount  int    `json:"apply_count"`
}

// StateApplier is an in-memory Applier keyed by the event's dependency
// targets. It gives replays an observable, snapshot-able effect without
// touching anything outside the process.
type StateApplier struct {
	mu    sync.Mutex
	state map[string]AppliedRecord
}

// NewStateApplier creates an empty StateApplier.
func NewStateApplier() *StateApplier {
	return &StateApplier{state: make(map[string]AppliedRecord)}
}

// Apply projects the event onto every target it touches. Events with no
// derivable target are rejected: an effect that cannot name what it changes
// cannot be replayed meaningfully.
func (a *StateApplier) Apply(ctx context.Context, event domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	keys := event.DependencyKeys()
	if len(keys) == 0 {
		return fmt.Errorf("event %s has no applicable target", event.ID)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, key := range keys {
		rec := a.state[key]
		rec.LastEventID = event.ID
		rec.LastType = string(event.Type)
		rec.ApplyCount++
		a.state[key] = rec
	}
	return nil
}

// Snapshot serializes the current projection.
func (a *StateApplier) Snapshot() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return json.Marshal(a.state)
}

// Restore replaces the projection with a previously captured snapshot.
func (a *StateApplier) Restore(state []byte) error {
	restored := make(map[string]AppliedRecord)
	if len(state) > 0 {
		if err := json.Unmarshal(state, &restored); err != nil {
			return fmt.Errorf("failed to restore applier state: %w", err)
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = restored
	return nil
}

// Lookup returns the projection for one target key.
func (a *StateApplier) Lookup(key string) (AppliedRecord, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.state[key]
	return rec, ok
}

// Len returns the number of tracked targets.
func (a *StateApplier) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.state)
}
