package domain

import "errors"

// Typed failures surfaced to callers. Boundaries match on these with
// errors.Is; wrapped detail carries the context.
var (
	// ErrSessionNotFound is returned when an unknown session id is passed
	// to any session-scoped operation.
	ErrSessionNotFound = errors.New("replay session not found")

	// ErrNoProgress is returned when progress is requested for a session
	// that has never been started.
	ErrNoProgress = errors.New("replay session has not been started")

	// ErrInvalidFilter is returned when a structurally invalid filter is
	// used to create a session or query events.
	ErrInvalidFilter = errors.New("invalid event filter")

	// ErrSessionNotPending is returned when starting a session that is not
	// in the PENDING state.
	ErrSessionNotPending = errors.New("replay session is not pending")

	// ErrRollbackPointNotFound is returned for unknown or foreign rollback
	// point ids.
	ErrRollbackPointNotFound = errors.New("rollback point not found")

	// ErrEventNotFound is returned when a single-event lookup misses.
	ErrEventNotFound = errors.New("event not found")

	// ErrStoreUnavailable is returned when the persistence layer cannot be
	// reached. It is fatal and never swallowed: a dropped event would
	// corrupt the audit trail this subsystem exists to provide.
	ErrStoreUnavailable = errors.New("event store unavailable")
)
