package domain

import (
	"encoding/json"
	"fmt"
)

// FileChangePayload is the payload for FILE_CHANGE events.
type FileChangePayload struct {
	Path       string         `json:"path"`
	ChangeKind string         `json:"change_kind"` // created, modified, deleted, renamed
	Extra      map[string]any `json:"extra,omitempty"`
}

// DBChangePayload is the payload for DB_CHANGE events.
type DBChangePayload struct {
	Table     string         `json:"table"`
	Operation string         `json:"operation"` // insert, update, delete
	RecordID  string         `json:"record_id,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// SyncOperationPayload is the payload for SYNC_OPERATION events.
type SyncOperationPayload struct {
	Direction string         `json:"direction"` // push, pull
	Table     string         `json:"table"`
	Status    string         `json:"status"` // started, completed, failed
	Extra     map[string]any `json:"extra,omitempty"`
}

// ValidatePayload checks that raw is a well-formed payload for the given
// event type. Payload shape is validated once at ingestion, not on reads.
func ValidatePayload(t EventType, raw json.RawMessage) error {
	if len(raw) == 0 {
		return fmt.Errorf("payload is required for event type %s", t)
	}
	switch t {
	case EventTypeFileChange:
		var p FileChangePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("malformed FILE_CHANGE payload: %w", err)
		}
		if p.Path == "" {
			return fmt.Errorf("FILE_CHANGE payload missing path")
		}
	case EventTypeDBChange:
		var p DBChangePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("malformed DB_CHANGE payload: %w", err)
		}
		if p.Table == "" {
			return fmt.Errorf("DB_CHANGE payload missing table")
		}
		if p.Operation == "" {
			return fmt.Errorf("DB_CHANGE payload missing operation")
		}
	case EventTypeSyncOperation:
		var p SyncOperationPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("malformed SYNC_OPERATION payload: %w", err)
		}
		if p.Table == "" {
			return fmt.Errorf("SYNC_OPERATION payload missing table")
		}
	default:
		return fmt.Errorf("unknown event type %q", t)
	}
	return nil
}
