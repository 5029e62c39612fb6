package domain

import (
	"fmt"
	"time"
)

// SortOrder is the direction of a sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Sortable event fields, as accepted in EventFilter.SortBy.
const (
	SortByTimestamp = "timestamp"
	SortBySeverity  = "severity"
	SortByType      = "type"
	SortBySource    = "source"
	SortByID        = "id"
)

// DefaultFilterLimit applies when a filter does not set its own limit.
const DefaultFilterLimit = 100

var sortableFields = map[string]bool{
	SortByTimestamp: true,
	SortBySeverity:  true,
	SortByType:      true,
	SortBySource:    true,
	SortByID:        true,
}

// EventFilter is a value object describing a predicate over events. It is
// never persisted as state of its own; queries and replay sessions carry a
// copy and re-evaluate it each time it is applied.
type EventFilter struct {
	Types       []EventType `json:"types,omitempty"`
	Severities  []Severity  `json:"severities,omitempty"`
	MinSeverity Severity    `json:"min_severity,omitempty"`
	Source      string      `json:"source,omitempty"`
	ProjectID   string      `json:"project_id,omitempty"`
	ChangeID    string      `json:"change_id,omitempty"`
	Since       *time.Time  `json:"since,omitempty"`
	Until       *time.Time  `json:"until,omitempty"`
	Limit       int         `json:"limit,omitempty"` // -1 means no limit
	Offset      int         `json:"offset,omitempty"`
	SortBy      string      `json:"sort_by,omitempty"`
	SortOrder   SortOrder   `json:"sort_order,omitempty"`
}

// Validate checks the filter for structural problems. All failures wrap
// ErrInvalidFilter.
func (f EventFilter) Validate() error {
	for _, t := range f.Types {
		if !t.Valid() {
			return fmt.Errorf("%w: unknown event type %q", ErrInvalidFilter, t)
		}
	}
	for _, s := range f.Severities {
		if !s.Valid() {
			return fmt.Errorf("%w: unknown severity %q", ErrInvalidFilter, s)
		}
	}
	if f.MinSeverity != "" && !f.MinSeverity.Valid() {
		return fmt.Errorf("%w: unknown min severity %q", ErrInvalidFilter, f.MinSeverity)
	}
	// -1 is the no-limit sentinel; anything below it is a caller bug.
	if f.Limit < -1 {
		return fmt.Errorf("%w: negative limit", ErrInvalidFilter)
	}
	if f.Offset < 0 {
		return fmt.Errorf("%w: negative offset", ErrInvalidFilter)
	}
	if f.SortBy != "" && !sortableFields[f.SortBy] {
		return fmt.Errorf("%w: cannot sort by %q", ErrInvalidFilter, f.SortBy)
	}
	if f.SortOrder != "" && f.SortOrder != SortAsc && f.SortOrder != SortDesc {
		return fmt.Errorf("%w: unknown sort order %q", ErrInvalidFilter, f.SortOrder)
	}
	if f.Since != nil && f.Until != nil && f.Since.After(*f.Until) {
		return fmt.Errorf("%w: since is after until", ErrInvalidFilter)
	}
	return nil
}

// Normalized returns a copy with query defaults applied: newest first,
// capped page size.
func (f EventFilter) Normalized() EventFilter {
	if f.SortBy == "" {
		f.SortBy = SortByTimestamp
	}
	if f.SortOrder == "" {
		f.SortOrder = SortDesc
	}
	if f.Limit == 0 {
		f.Limit = DefaultFilterLimit
	}
	return f
}

// IsEmpty reports whether the filter constrains nothing, i.e. it would match
// every event in the store.
func (f EventFilter) IsEmpty() bool {
	return len(f.Types) == 0 &&
		len(f.Severities) == 0 &&
		f.MinSeverity == "" &&
		f.Source == "" &&
		f.ProjectID == "" &&
		f.ChangeID == "" &&
		f.Since == nil &&
		f.Until == nil
}
