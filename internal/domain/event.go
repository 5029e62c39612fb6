// Package domain defines the core domain models for the event ledger.
package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the kind of state-changing operation an event records.
type EventType string

const (
	EventTypeFileChange    EventType = "FILE_CHANGE"
	EventTypeDBChange      EventType = "DB_CHANGE"
	EventTypeSyncOperation EventType = "SYNC_OPERATION"
)

// KnownEventTypes lists every event type the ledger accepts at ingestion.
var KnownEventTypes = []EventType{
	EventTypeFileChange,
	EventTypeDBChange,
	EventTypeSyncOperation,
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	for _, k := range KnownEventTypes {
		if t == k {
			return true
		}
	}
	return false
}

// Severity is the ordered severity of an event.
type Severity string

const (
	SeverityDebug    Severity = "DEBUG"
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

var severityRank = map[Severity]int{
	SeverityDebug:    0,
	SeverityInfo:     1,
	SeverityWarning:  2,
	SeverityError:    3,
	SeverityCritical: 4,
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// AtLeast reports whether s is at least as severe as min.
func (s Severity) AtLeast(min Severity) bool {
	return severityRank[s] >= severityRank[min]
}

// SeveritiesAtLeast returns every severity at or above min, in rank order.
func SeveritiesAtLeast(min Severity) []Severity {
	all := []Severity{SeverityDebug, SeverityInfo, SeverityWarning, SeverityError, SeverityCritical}
	out := make([]Severity, 0, len(all))
	for _, s := range all {
		if s.AtLeast(min) {
			out = append(out, s)
		}
	}
	return out
}

// Event is one immutable record of a state-changing operation. Events are
// appended by producers and removed only by retention cleanup.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Severity  Severity        `json:"severity"`
	Source    string          `json:"source"`
	Message   string          `json:"message"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	ProjectID string          `json:"project_id,omitempty"`
	ChangeID  string          `json:"change_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// DependencyKeys returns the resource keys this event touches. Two events
// sharing a key are ordered by timestamp under dependency-aware replay.
// FILE_CHANGE events key on the file path; DB_CHANGE and SYNC_OPERATION
// events key on the table, so a sync run is ordered against the record
// mutations it syncs. A shared non-empty ChangeID also links events.
func (e Event) DependencyKeys() []string {
	var keys []string
	switch e.Type {
	case EventTypeFileChange:
		var p FileChangePayload
		if json.Unmarshal(e.Payload, &p) == nil && p.Path != "" {
			keys = append(keys, "file:"+p.Path)
		}
	case EventTypeDBChange:
		var p DBChangePayload
		if json.Unmarshal(e.Payload, &p) == nil && p.Table != "" {
			keys = append(keys, "table:"+p.Table)
		}
	case EventTypeSyncOperation:
		var p SyncOperationPayload
		if json.Unmarshal(e.Payload, &p) == nil && p.Table != "" {
			keys = append(keys, "table:"+p.Table)
		}
	}
	if e.ChangeID != "" {
		keys = append(keys, "change:"+e.ChangeID)
	}
	return keys
}

// NewEventID returns a fresh monotonic-sortable event id.
func NewEventID() string {
	return newID("evt")
}

// NewSessionID returns a fresh replay session id.
func NewSessionID() string {
	return newID("replay")
}

// NewRollbackPointID returns a fresh rollback point id.
func NewRollbackPointID() string {
	return newID("rb")
}

// NewResultID returns a fresh replay result id.
func NewResultID() string {
	return newID("res")
}

// newID builds ids of the form <prefix>_<epochMillis>_<8hex>: time-ordered
// for sorting, with a random suffix so they stay unguessable.
func newID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), uuid.New().String()[:8])
}
