package store

import (
	"fmt"
	"strings"

	"github.com/devtrack/eventledger/internal/domain"
)

// eventQuery accumulates typed filter clauses and renders them into one
// parameterized WHERE clause. Values never reach the SQL text directly.
type eventQuery struct {
	conds []string
	args  []any
}

func (q *eventQuery) where(expr string, args ...any) {
	q.conds = append(q.conds, expr)
	q.args = append(q.args, args...)
}

func (q *eventQuery) whereIn(column string, values []string) {
	if len(values) == 0 {
		return
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		q.args = append(q.args, v)
	}
	q.conds = append(q.conds, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ",")))
}

// clause renders the accumulated conditions, or an empty string when there
// are none.
func (q *eventQuery) clause() string {
	if len(q.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.conds, " AND ")
}

// newEventQuery translates a filter's predicate fields. Pagination and sort
// are rendered separately so aggregate queries can reuse the predicate.
func newEventQuery(f domain.EventFilter) *eventQuery {
	q := &eventQuery{}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		q.whereIn("type", types)
	}
	if len(f.Severities) > 0 {
		sevs := make([]string, len(f.Severities))
		for i, s := range f.Severities {
			sevs[i] = string(s)
		}
		q.whereIn("severity", sevs)
	}
	if f.MinSeverity != "" {
		atLeast := domain.SeveritiesAtLeast(f.MinSeverity)
		sevs := make([]string, len(atLeast))
		for i, s := range atLeast {
			sevs[i] = string(s)
		}
		q.whereIn("severity", sevs)
	}
	if f.Source != "" {
		q.where("source = ?", f.Source)
	}
	if f.ProjectID != "" {
		q.where("project_id = ?", f.ProjectID)
	}
	if f.ChangeID != "" {
		q.where("change_id = ?", f.ChangeID)
	}
	if f.Since != nil {
		q.where("ts >= ?", f.Since.UnixMilli())
	}
	if f.Until != nil {
		q.where("ts <= ?", f.Until.UnixMilli())
	}
	return q
}

// severityRankExpr sorts severities by rank, not alphabetically. The TEXT
// column would put CRITICAL before DEBUG otherwise.
const severityRankExpr = `CASE severity
	WHEN 'DEBUG' THEN 0
	WHEN 'INFO' THEN 1
	WHEN 'WARNING' THEN 2
	WHEN 'ERROR' THEN 3
	WHEN 'CRITICAL' THEN 4
	ELSE 5 END`

var sortColumns = map[string]string{
	domain.SortByTimestamp: "ts",
	domain.SortBySeverity:  severityRankExpr,
	domain.SortByType:      "type",
	domain.SortBySource:    "source",
	domain.SortByID:        "event_id",
}

// orderClause renders the ORDER BY for a normalized filter. event_id breaks
// ties so a given filter always yields the same order.
func orderClause(f domain.EventFilter) string {
	column, ok := sortColumns[f.SortBy]
	if !ok {
		column = "ts"
	}
	dir := "DESC"
	if f.SortOrder == domain.SortAsc {
		dir = "ASC"
	}
	if column == "event_id" {
		return fmt.Sprintf(" ORDER BY event_id %s", dir)
	}
	return fmt.Sprintf(" ORDER BY %s %s, event_id %s", column, dir, dir)
}

// pageClause renders LIMIT/OFFSET for a normalized filter. Limit < 0 means
// no limit.
func pageClause(f domain.EventFilter) (string, []any) {
	if f.Limit < 0 {
		return "", nil
	}
	if f.Offset > 0 {
		return " LIMIT ? OFFSET ?", []any{f.Limit, f.Offset}
	}
	return " LIMIT ?", []any{f.Limit}
}
