// Package store defines the storage interface and its SQLite implementation.
package store

import (
	"context"
	"time"

	"github.com/devtrack/eventledger/internal/domain"
)

// ExportFormat selects the serialization for ExportEvents.
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
	ExportSQL  ExportFormat = "sql"
)

// EventStatistics aggregates counts over the events matching a filter.
type EventStatistics struct {
	Total      int                      `json:"total"`
	ByType     map[domain.EventType]int `json:"by_type"`
	BySeverity map[domain.Severity]int  `json:"by_severity"`
	ByDay      map[string]int           `json:"by_day"` // YYYY-MM-DD buckets
	Oldest     *time.Time               `json:"oldest,omitempty"`
	Newest     *time.Time               `json:"newest,omitempty"`
}

// SessionQuery filters ListReplaySessions.
type SessionQuery struct {
	Status domain.SessionStatus
	Limit  int
	Offset int
}

// Store defines the interface for ledger persistence.
type Store interface {
	// Event operations
	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvent(ctx context.Context, eventID string) (*domain.Event, error)
	GetEvents(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error)
	CountEvents(ctx context.Context, filter domain.EventFilter) (int, error)
	SearchEvents(ctx context.Context, query string, filter domain.EventFilter) ([]domain.Event, error)
	GetStatistics(ctx context.Context, filter domain.EventFilter) (*EventStatistics, error)
	ExportEvents(ctx context.Context, filter domain.EventFilter, format ExportFormat) ([]byte, error)
	RunRetentionCleanup(ctx context.Context, policy domain.RetentionPolicy, now time.Time) (int64, error)

	// Replay session operations
	CreateReplaySession(ctx context.Context, session *domain.ReplaySession) error
	GetReplaySession(ctx context.Context, sessionID string) (*domain.ReplaySession, error)
	ListReplaySessions(ctx context.Context, query SessionQuery) ([]domain.ReplaySession, error)
	UpdateReplaySessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error
	ClaimReplaySession(ctx context.Context, sessionID string) (bool, error)
	ResetReplaySessionProgress(ctx context.Context, sessionID string, totalEvents int) error
	IncrementReplaySessionProcessed(ctx context.Context, sessionID string) error

	// Replay result operations
	CreateReplayResult(ctx context.Context, result *domain.ReplayResult) error
	GetReplayResults(ctx context.Context, sessionID string) ([]domain.ReplayResult, error)

	// Rollback point operations
	CreateRollbackPoint(ctx context.Context, point *domain.RollbackPoint) error
	GetRollbackPoint(ctx context.Context, pointID string) (*domain.RollbackPoint, error)
	ListRollbackPoints(ctx context.Context, sessionID string) ([]domain.RollbackPoint, error)
	DeactivateRollbackPoint(ctx context.Context, pointID string) error

	// Lifecycle
	Close() error
}
