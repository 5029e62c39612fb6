package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/devtrack/eventledger/internal/domain"
)

// ExportEnvelope is the JSON export shape. It round-trips: unmarshalling an
// export yields the same events GetEvents returned for the filter.
type ExportEnvelope struct {
	Events []domain.Event `json:"events"`
	Count  int            `json:"count"`
}

// ExportEvents serializes the events matching the filter. JSON exports
// round-trip back into Event values; CSV and SQL are one-way ops exports.
func (s *SQLiteStore) ExportEvents(ctx context.Context, filter domain.EventFilter, format ExportFormat) ([]byte, error) {
	events, err := s.GetEvents(ctx, filter)
	if err != nil {
		return nil, err
	}

	switch format {
	case ExportJSON:
		return exportJSON(events)
	case ExportCSV:
		return exportCSV(events)
	case ExportSQL:
		return exportSQL(events)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

func exportJSON(events []domain.Event) ([]byte, error) {
	envelope := ExportEnvelope{Events: events, Count: len(events)}
	if envelope.Events == nil {
		envelope.Events = []domain.Event{}
	}
	return json.MarshalIndent(envelope, "", "  ")
}

func exportCSV(events []domain.Event) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"id", "type", "severity", "source", "message", "project_id", "change_id", "timestamp", "payload"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, e := range events {
		record := []string{
			e.ID,
			string(e.Type),
			string(e.Severity),
			e.Source,
			e.Message,
			e.ProjectID,
			e.ChangeID,
			e.Timestamp.UTC().Format(time.RFC3339),
			string(e.Payload),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportSQL(events []domain.Event) ([]byte, error) {
	var b strings.Builder
	b.WriteString("BEGIN TRANSACTION;\n")
	for _, e := range events {
		b.WriteString("INSERT INTO events (" + eventColumns + ") VALUES (")
		b.WriteString(sqlQuote(e.ID) + ", ")
		b.WriteString(sqlQuote(string(e.Type)) + ", ")
		b.WriteString(sqlQuote(string(e.Severity)) + ", ")
		b.WriteString(sqlQuote(e.Source) + ", ")
		b.WriteString(sqlQuote(e.Message) + ", ")
		b.WriteString(sqlQuote(string(e.Payload)) + ", ")
		b.WriteString(sqlQuote(e.ProjectID) + ", ")
		b.WriteString(sqlQuote(e.ChangeID) + ", ")
		b.WriteString(strconv.FormatInt(e.Timestamp.UnixMilli(), 10))
		b.WriteString(");\n")
	}
	b.WriteString("COMMIT;\n")
	return []byte(b.String()), nil
}

// sqlQuote renders a single-quoted SQL string literal, NULL for empty.
func sqlQuote(v string) string {
	if v == "" {
		return "NULL"
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
