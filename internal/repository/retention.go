package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/devtrack/eventledger/internal/domain"
)

// RunRetentionCleanup deletes events older than their resolved retention
// window (type override wins over severity default, which wins over
// DefaultDays; a zero window keeps forever), then caps total row count by
// evicting oldest-first past MaxTotalEvents. Returns the number of deleted
// rows.
func (s *SQLiteStore) RunRetentionCleanup(ctx context.Context, policy domain.RetentionPolicy, now time.Time) (int64, error) {
	var deleted int64

	cutoff := func(days int) int64 {
		return now.Add(-time.Duration(days) * 24 * time.Hour).UnixMilli()
	}

	// Type-specific windows first; those types are then excluded from the
	// severity and default passes.
	var typedArgs []any
	for _, t := range domain.KnownEventTypes {
		days, ok := policy.TypeDays[t]
		if !ok {
			continue
		}
		typedArgs = append(typedArgs, string(t))
		if days <= 0 {
			continue
		}
		n, err := s.deleteEvents(ctx, `type = ? AND ts < ?`, string(t), cutoff(days))
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	notTypedClause := ""
	if len(typedArgs) > 0 {
		notTypedClause = fmt.Sprintf(" AND type NOT IN (%s)", placeholders(len(typedArgs)))
	}

	// Severity windows for everything without a type override.
	var coveredArgs []any
	for _, severity := range domain.SeveritiesAtLeast(domain.SeverityDebug) {
		days, ok := policy.SeverityDays[severity]
		if !ok {
			continue
		}
		coveredArgs = append(coveredArgs, string(severity))
		if days <= 0 {
			continue
		}
		args := append([]any{string(severity), cutoff(days)}, typedArgs...)
		n, err := s.deleteEvents(ctx, `severity = ? AND ts < ?`+notTypedClause, args...)
		if err != nil {
			return deleted, err
		}
		deleted += n
	}

	// Default window for everything else.
	if policy.DefaultDays > 0 {
		clause := `ts < ?` + notTypedClause
		args := append([]any{cutoff(policy.DefaultDays)}, typedArgs...)
		if len(coveredArgs) > 0 {
			clause += fmt.Sprintf(" AND severity NOT IN (%s)", placeholders(len(coveredArgs)))
			args = append(args, coveredArgs...)
		}
		n, err := s.deleteEvents(ctx, clause, args...)
		if err != nil {
			return deleted, err
		}
		deleted += n
	}

	// Size cap: evict oldest-first once the store exceeds MaxTotalEvents.
	if policy.MaxTotalEvents > 0 {
		var count int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
			return deleted, err
		}
		if excess := count - policy.MaxTotalEvents; excess > 0 {
			res, err := s.db.ExecContext(ctx,
				`DELETE FROM events WHERE event_id IN (
					SELECT event_id FROM events ORDER BY ts ASC, event_id ASC LIMIT ?
				)`, excess)
			if err != nil {
				return deleted, err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return deleted, err
			}
			deleted += n
		}
	}

	return deleted, nil
}

func (s *SQLiteStore) deleteEvents(ctx context.Context, clause string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE `+clause, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
