package domain

import (
	"encoding/json"
	"time"
)

// SessionStatus represents the status of a replay session.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "PENDING"
	SessionStatusRunning   SessionStatus = "RUNNING"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusFailed    SessionStatus = "FAILED"
	SessionStatusCancelled SessionStatus = "CANCELLED"
)

// Terminal reports whether no further transitions are allowed from s.
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionStatusCompleted, SessionStatusFailed, SessionStatusCancelled:
		return true
	}
	return false
}

// ReplayMode controls how deeply a replay touches external state.
type ReplayMode string

const (
	ModeSafe    ReplayMode = "SAFE"
	ModeFast    ReplayMode = "FAST"
	ModeVerbose ReplayMode = "VERBOSE"
	ModeDryRun  ReplayMode = "DRY_RUN"
)

// ReplayStrategy controls ordering and parallelism while replaying.
type ReplayStrategy string

const (
	StrategySequential      ReplayStrategy = "SEQUENTIAL"
	StrategyParallel        ReplayStrategy = "PARALLEL"
	StrategyDependencyAware ReplayStrategy = "DEPENDENCY_AWARE"
	StrategySelective       ReplayStrategy = "SELECTIVE"
)

// ReplayOptions configures a session's execution.
type ReplayOptions struct {
	Mode             ReplayMode     `json:"mode"`
	Strategy         ReplayStrategy `json:"strategy"`
	StopOnError      bool           `json:"stop_on_error"`
	EnableValidation bool           `json:"enable_validation"`
	EnableRollback   bool           `json:"enable_rollback"`
	MaxConcurrency   int            `json:"max_concurrency"`
	SkipEvents       []string       `json:"skip_events,omitempty"`
	IncludeEvents    []string       `json:"include_events,omitempty"`
}

// Normalized returns a copy with defaults applied.
func (o ReplayOptions) Normalized() ReplayOptions {
	if o.Mode == "" {
		o.Mode = ModeSafe
	}
	if o.Strategy == "" {
		o.Strategy = StrategySequential
	}
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = 1
	}
	return o
}

// ReplaySession is a named, configured intent to re-process a filtered
// subset of recorded events. The filter value is snapshotted at creation;
// event membership is re-resolved from it every time the session starts, so
// a paused session resumed later sees a consistent predicate but current
// data. Sessions are retained for audit and never deleted by this subsystem.
type ReplaySession struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Description     string        `json:"description,omitempty"`
	Filter          EventFilter   `json:"filter"`
	Options         ReplayOptions `json:"options"`
	Status          SessionStatus `json:"status"`
	TotalEvents     int           `json:"total_events"`
	ProcessedEvents int           `json:"processed_events"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// ReplayResultStatus is the outcome of replaying one event.
type ReplayResultStatus string

const (
	ResultApplied ReplayResultStatus = "APPLIED"
	ResultSkipped ReplayResultStatus = "SKIPPED"
	ResultFailed  ReplayResultStatus = "FAILED"
)

// ReplayResult records the outcome of one (session, event) pair. Results are
// append-only during a run and are never revised afterwards, even by a
// rollback.
type ReplayResult struct {
	ID         string             `json:"id"`
	SessionID  string             `json:"session_id"`
	EventID    string             `json:"event_id"`
	Status     ReplayResultStatus `json:"status"`
	Error      string             `json:"error,omitempty"`
	DurationMs int64              `json:"duration_ms"`
	CreatedAt  time.Time          `json:"created_at"`
}

// RollbackPoint is a restorable marker of applier state scoped to a session.
type RollbackPoint struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	Description string          `json:"description,omitempty"`
	State       json.RawMessage `json:"state,omitempty"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ReplayProgress is a point-in-time view of a session's execution.
type ReplayProgress struct {
	SessionID                string        `json:"session_id"`
	Status                   SessionStatus `json:"status"`
	TotalEvents              int           `json:"total_events"`
	ProcessedEvents          int           `json:"processed_events"`
	EstimatedTimeRemainingMs int64         `json:"estimated_time_remaining_ms"`
}

// ValidationIssue is one advisory finding from pre-flight validation.
type ValidationIssue struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

// ValidationReport is the result of validating a session's configuration.
// Issues are advisory; IsValid only goes false when the policy hook blocks.
type ValidationReport struct {
	SessionID string            `json:"session_id"`
	IsValid   bool              `json:"is_valid"`
	Issues    []ValidationIssue `json:"issues"`
}
