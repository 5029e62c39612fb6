package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestEventTypeValid(t *testing.T) {
	for _, et := range KnownEventTypes {
		if !et.Valid() {
			t.Fatalf("expected %s to be valid", et)
		}
	}
	if EventType("HTTP_REQUEST").Valid() {
		t.Fatalf("expected HTTP_REQUEST to be invalid")
	}
	if EventType("").Valid() {
		t.Fatalf("expected empty type to be invalid")
	}
}

func TestSeverityAtLeast(t *testing.T) {
	if !SeverityError.AtLeast(SeverityWarning) {
		t.Fatalf("ERROR should be at least WARNING")
	}
	if SeverityDebug.AtLeast(SeverityInfo) {
		t.Fatalf("DEBUG should not be at least INFO")
	}
	if !SeverityCritical.AtLeast(SeverityCritical) {
		t.Fatalf("CRITICAL should be at least itself")
	}
}

func TestSeveritiesAtLeast(t *testing.T) {
	got := SeveritiesAtLeast(SeverityWarning)
	want := []Severity{SeverityWarning, SeverityError, SeverityCritical}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestDependencyKeysFileChange(t *testing.T) {
	e := Event{
		ID:      "e1",
		Type:    EventTypeFileChange,
		Payload: json.RawMessage(`{"path":"src/main.go","change_kind":"modified"}`),
	}
	keys := e.DependencyKeys()
	if len(keys) != 1 || keys[0] != "file:src/main.go" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestDependencyKeysTableAndChange(t *testing.T) {
	e := Event{
		ID:       "e1",
		Type:     EventTypeDBChange,
		ChangeID: "chg_1",
		Payload:  json.RawMessage(`{"table":"users","operation":"update"}`),
	}
	keys := e.DependencyKeys()
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}
	if keys[0] != "table:users" || keys[1] != "change:chg_1" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestDependencyKeysSyncSharesTableKey(t *testing.T) {
	record := Event{
		Type:    EventTypeDBChange,
		Payload: json.RawMessage(`{"table":"users","operation":"insert"}`),
	}
	sync := Event{
		Type:    EventTypeSyncOperation,
		Payload: json.RawMessage(`{"direction":"push","table":"users","status":"completed"}`),
	}
	if record.DependencyKeys()[0] != sync.DependencyKeys()[0] {
		t.Fatalf("record mutation and sync of the same table should share a key")
	}
}

func TestDependencyKeysEmptyPayload(t *testing.T) {
	e := Event{Type: EventTypeFileChange}
	if keys := e.DependencyKeys(); len(keys) != 0 {
		t.Fatalf("expected no keys, got %v", keys)
	}
}

func TestValidatePayload(t *testing.T) {
	cases := []struct {
		name    string
		typ     EventType
		payload string
		wantErr bool
	}{
		{"file change ok", EventTypeFileChange, `{"path":"a.txt","change_kind":"created"}`, false},
		{"file change missing path", EventTypeFileChange, `{"change_kind":"created"}`, true},
		{"db change ok", EventTypeDBChange, `{"table":"users","operation":"delete"}`, false},
		{"db change missing operation", EventTypeDBChange, `{"table":"users"}`, true},
		{"sync ok", EventTypeSyncOperation, `{"direction":"pull","table":"tasks","status":"started"}`, false},
		{"sync missing table", EventTypeSyncOperation, `{"direction":"pull","status":"started"}`, true},
		{"malformed json", EventTypeFileChange, `{`, true},
		{"empty payload", EventTypeFileChange, ``, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePayload(tc.typ, json.RawMessage(tc.payload))
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewIDFormat(t *testing.T) {
	id := NewEventID()
	parts := strings.Split(id, "_")
	if len(parts) != 3 || parts[0] != "evt" {
		t.Fatalf("unexpected id format: %s", id)
	}
	if len(parts[2]) != 8 {
		t.Fatalf("expected 8-char suffix, got %q", parts[2])
	}
	if id == NewEventID() {
		t.Fatalf("ids should be unique")
	}
}
