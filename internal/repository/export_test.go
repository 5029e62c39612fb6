package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/devtrack/eventledger/internal/domain"
)

// seedExportFixture writes two fixed events so export bytes are fully
// deterministic.
func seedExportFixture(t *testing.T, s *SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	events := []domain.Event{
		{
			ID:        "evt_001",
			Type:      domain.EventTypeFileChange,
			Severity:  domain.SeverityInfo,
			Source:    "file-watcher",
			Message:   "modified src/app.go",
			Payload:   json.RawMessage(`{"path":"src/app.go","change_kind":"modified"}`),
			ProjectID: "proj_1",
			Timestamp: time.Date(2026, 3, 15, 12, 1, 0, 0, time.UTC),
		},
		{
			ID:        "evt_002",
			Type:      domain.EventTypeDBChange,
			Severity:  domain.SeverityWarning,
			Source:    "database",
			Message:   "update users/42",
			Payload:   json.RawMessage(`{"table":"users","operation":"update","record_id":"42"}`),
			ChangeID:  "chg_9",
			Timestamp: time.Date(2026, 3, 15, 12, 2, 0, 0, time.UTC),
		},
	}
	for i := range events {
		if err := s.CreateEvent(ctx, &events[i]); err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
	}
}

func exportFilter() domain.EventFilter {
	return domain.EventFilter{SortBy: domain.SortByTimestamp, SortOrder: domain.SortAsc}
}

func TestExportJSONRoundTrip(t *testing.T) {
	s := newTestStore(t)
	seedExportFixture(t, s)

	blob, err := s.ExportEvents(context.Background(), exportFilter(), ExportJSON)
	if err != nil {
		t.Fatalf("ExportEvents failed: %v", err)
	}

	var envelope ExportEnvelope
	if err := json.Unmarshal(blob, &envelope); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if envelope.Count != 2 || len(envelope.Events) != 2 {
		t.Fatalf("unexpected envelope: count=%d events=%d", envelope.Count, len(envelope.Events))
	}
	if envelope.Events[0].ID != "evt_001" || envelope.Events[1].ID != "evt_002" {
		t.Fatalf("unexpected order: %+v", envelope.Events)
	}
	if envelope.Events[0].ProjectID != "proj_1" {
		t.Fatalf("optional field lost in round trip: %+v", envelope.Events[0])
	}
	if !envelope.Events[1].Timestamp.Equal(time.Date(2026, 3, 15, 12, 2, 0, 0, time.UTC)) {
		t.Fatalf("timestamp lost in round trip: %v", envelope.Events[1].Timestamp)
	}
}

func TestExportJSONEmpty(t *testing.T) {
	s := newTestStore(t)

	blob, err := s.ExportEvents(context.Background(), exportFilter(), ExportJSON)
	if err != nil {
		t.Fatalf("ExportEvents failed: %v", err)
	}
	var envelope ExportEnvelope
	if err := json.Unmarshal(blob, &envelope); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if envelope.Count != 0 || envelope.Events == nil || len(envelope.Events) != 0 {
		t.Fatalf("empty export should carry an empty list: %s", blob)
	}
}

func TestExportCSVGolden(t *testing.T) {
	s := newTestStore(t)
	seedExportFixture(t, s)

	blob, err := s.ExportEvents(context.Background(), exportFilter(), ExportCSV)
	if err != nil {
		t.Fatalf("ExportEvents failed: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "export_csv", blob)
}

func TestExportSQLGolden(t *testing.T) {
	s := newTestStore(t)
	seedExportFixture(t, s)

	blob, err := s.ExportEvents(context.Background(), exportFilter(), ExportSQL)
	if err != nil {
		t.Fatalf("ExportEvents failed: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "export_sql", blob)
}

func TestExportUnknownFormat(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.ExportEvents(context.Background(), exportFilter(), ExportFormat("xml")); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
