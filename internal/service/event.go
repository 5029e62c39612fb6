package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/devtrack/eventledger/internal/domain"
	store "github.com/devtrack/eventledger/internal/repository"
)

// LogEventInput carries the fields for one new event.
type LogEventInput struct {
	Type      domain.EventType
	Severity  domain.Severity
	Source    string
	Message   string
	Payload   any
	ProjectID string
	ChangeID  string
}

// LogEvent validates and appends one event. Store failures are surfaced as
// ErrStoreUnavailable, never swallowed: silent event loss would corrupt the
// audit trail.
func (s *Service) LogEvent(ctx context.Context, in LogEventInput) (*domain.Event, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("unknown event type %q", in.Type)
	}
	if in.Severity == "" {
		in.Severity = domain.SeverityInfo
	}
	if !in.Severity.Valid() {
		return nil, fmt.Errorf("unknown severity %q", in.Severity)
	}
	if in.Source == "" {
		return nil, fmt.Errorf("source is required")
	}

	var raw json.RawMessage
	switch p := in.Payload.(type) {
	case nil:
	case json.RawMessage:
		raw = p
	case []byte:
		raw = json.RawMessage(p)
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		raw = b
	}
	if err := domain.ValidatePayload(in.Type, raw); err != nil {
		return nil, err
	}

	event := &domain.Event{
		ID:        domain.NewEventID(),
		Type:      in.Type,
		Severity:  in.Severity,
		Source:    in.Source,
		Message:   in.Message,
		Payload:   raw,
		ProjectID: in.ProjectID,
		ChangeID:  in.ChangeID,
		Timestamp: time.Now(),
	}
	if err := s.store.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("%w: create event: %v", domain.ErrStoreUnavailable, err)
	}
	return event, nil
}

// LogFileChange records a file edit observed by the file watcher.
func (s *Service) LogFileChange(ctx context.Context, path, changeKind, projectID, changeID string) (*domain.Event, error) {
	return s.LogEvent(ctx, LogEventInput{
		Type:     domain.EventTypeFileChange,
		Severity: domain.SeverityInfo,
		Source:   "file-watcher",
		Message:  fmt.Sprintf("%s %s", changeKind, path),
		Payload: domain.FileChangePayload{
			Path:       path,
			ChangeKind: changeKind,
		},
		ProjectID: projectID,
		ChangeID:  changeID,
	})
}

// LogRecordChange records a record mutation.
func (s *Service) LogRecordChange(ctx context.Context, table, operation, recordID, projectID, changeID string) (*domain.Event, error) {
	return s.LogEvent(ctx, LogEventInput{
		Type:     domain.EventTypeDBChange,
		Severity: domain.SeverityInfo,
		Source:   "database",
		Message:  fmt.Sprintf("%s %s/%s", operation, table, recordID),
		Payload: domain.DBChangePayload{
			Table:     table,
			Operation: operation,
			RecordID:  recordID,
		},
		ProjectID: projectID,
		ChangeID:  changeID,
	})
}

// LogSyncOperation records one synchronization run. Failed syncs are logged
// at ERROR so they outlive routine runs under the default retention policy.
func (s *Service) LogSyncOperation(ctx context.Context, direction, table, status, projectID string) (*domain.Event, error) {
	severity := domain.SeverityInfo
	if status == "failed" {
		severity = domain.SeverityError
	}
	return s.LogEvent(ctx, LogEventInput{
		Type:     domain.EventTypeSyncOperation,
		Severity: severity,
		Source:   "sync",
		Message:  fmt.Sprintf("sync %s %s: %s", direction, table, status),
		Payload: domain.SyncOperationPayload{
			Direction: direction,
			Table:     table,
			Status:    status,
		},
		ProjectID: projectID,
	})
}

// GetEvent retrieves a single event by id.
func (s *Service) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrEventNotFound, eventID)
	}
	return event, nil
}

// GetEvents retrieves events matching the filter.
func (s *Service) GetEvents(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error) {
	return s.store.GetEvents(ctx, filter)
}

// SearchEvents retrieves events whose message or payload contains query,
// ANDed with the filter predicates.
func (s *Service) SearchEvents(ctx context.Context, query string, filter domain.EventFilter) ([]domain.Event, error) {
	return s.store.SearchEvents(ctx, query, filter)
}

// GetStatistics aggregates counts over the events matching the filter.
func (s *Service) GetStatistics(ctx context.Context, filter domain.EventFilter) (*store.EventStatistics, error) {
	return s.store.GetStatistics(ctx, filter)
}

// ExportData serializes the matching events in the requested format.
func (s *Service) ExportData(ctx context.Context, filter domain.EventFilter, format store.ExportFormat) ([]byte, error) {
	return s.store.ExportEvents(ctx, filter, format)
}

// RunRetentionCleanup applies the configured retention policy now.
func (s *Service) RunRetentionCleanup(ctx context.Context) (int64, error) {
	return s.store.RunRetentionCleanup(ctx, s.retention, time.Now())
}
