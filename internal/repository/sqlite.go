package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/devtrack/eventledger/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			source TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			payload TEXT,
			project_id TEXT,
			change_id TEXT,
			ts INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(type, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_events_severity ON events(severity, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_events_project ON events(project_id, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_events_change ON events(change_id, ts)`,
		`CREATE TABLE IF NOT EXISTS replay_sessions (
			session_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			filter TEXT NOT NULL,
			options TEXT NOT NULL,
			status TEXT NOT NULL,
			total_events INTEGER NOT NULL DEFAULT 0,
			processed_events INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_replay_sessions_status ON replay_sessions(status, created_at)`,
		`CREATE TABLE IF NOT EXISTS replay_results (
			result_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			event_id TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (session_id) REFERENCES replay_sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_replay_results_session ON replay_results(session_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS rollback_points (
			rollback_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			description TEXT,
			state TEXT,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (session_id) REFERENCES replay_sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rollback_points_session ON rollback_points(session_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const eventColumns = "event_id, type, severity, source, message, payload, project_id, change_id, ts"

// CreateEvent appends an event row. Events are immutable once written.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *domain.Event) error {
	payload := ""
	if event.Payload != nil {
		payload = string(event.Payload)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Type, event.Severity, event.Source, event.Message,
		payload, nullString(event.ProjectID), nullString(event.ChangeID), event.Timestamp.UnixMilli())
	return err
}

// GetEvent retrieves a single event by id.
func (s *SQLiteStore) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE event_id = ?`, eventID)
	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

// GetEvents retrieves events matching the filter, deterministically ordered.
func (s *SQLiteStore) GetEvents(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error) {
	return s.queryEvents(ctx, filter, "")
}

// SearchEvents combines a substring match over message and payload with the
// same filter predicates as GetEvents.
func (s *SQLiteStore) SearchEvents(ctx context.Context, query string, filter domain.EventFilter) ([]domain.Event, error) {
	return s.queryEvents(ctx, filter, query)
}

func (s *SQLiteStore) queryEvents(ctx context.Context, filter domain.EventFilter, search string) ([]domain.Event, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	filter = filter.Normalized()

	q := newEventQuery(filter)
	if search != "" {
		like := "%" + search + "%"
		q.where("(message LIKE ? OR payload LIKE ?)", like, like)
	}

	query := `SELECT ` + eventColumns + ` FROM events` + q.clause() + orderClause(filter)
	args := q.args
	page, pageArgs := pageClause(filter)
	query += page
	args = append(args, pageArgs...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

// CountEvents counts events matching the filter, ignoring pagination.
func (s *SQLiteStore) CountEvents(ctx context.Context, filter domain.EventFilter) (int, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}
	q := newEventQuery(filter)
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events`+q.clause(), q.args...).Scan(&count)
	return count, err
}

// GetStatistics aggregates counts by type, severity, and day over the
// events matching the filter's predicates.
func (s *SQLiteStore) GetStatistics(ctx context.Context, filter domain.EventFilter) (*EventStatistics, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	stats := &EventStatistics{
		ByType:     make(map[domain.EventType]int),
		BySeverity: make(map[domain.Severity]int),
		ByDay:      make(map[string]int),
	}

	q := newEventQuery(filter)
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, severity, ts FROM events`+q.clause(), q.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var eventType domain.EventType
		var severity domain.Severity
		var ts int64
		if err := rows.Scan(&eventType, &severity, &ts); err != nil {
			return nil, err
		}
		stats.Total++
		stats.ByType[eventType]++
		stats.BySeverity[severity]++
		t := time.UnixMilli(ts).UTC()
		stats.ByDay[t.Format("2006-01-02")]++
		if stats.Oldest == nil || t.Before(*stats.Oldest) {
			oldest := t
			stats.Oldest = &oldest
		}
		if stats.Newest == nil || t.After(*stats.Newest) {
			newest := t
			stats.Newest = &newest
		}
	}
	return stats, rows.Err()
}

// CreateReplaySession persists a new replay session.
func (s *SQLiteStore) CreateReplaySession(ctx context.Context, session *domain.ReplaySession) error {
	filterJSON, err := json.Marshal(session.Filter)
	if err != nil {
		return fmt.Errorf("failed to marshal filter: %w", err)
	}
	optionsJSON, err := json.Marshal(session.Options)
	if err != nil {
		return fmt.Errorf("failed to marshal options: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO replay_sessions (session_id, name, description, filter, options, status, total_events, processed_events, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.Name, session.Description, string(filterJSON), string(optionsJSON),
		session.Status, session.TotalEvents, session.ProcessedEvents, session.CreatedAt, session.UpdatedAt)
	return err
}

// GetReplaySession retrieves a session by id, or nil when unknown.
func (s *SQLiteStore) GetReplaySession(ctx context.Context, sessionID string) (*domain.ReplaySession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, name, description, filter, options, status, total_events, processed_events, created_at, updated_at
		 FROM replay_sessions WHERE session_id = ?`, sessionID)
	session, err := scanReplaySession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// DefaultSessionListLimit caps ListReplaySessions when no limit is given.
const DefaultSessionListLimit = 50

// ListReplaySessions lists sessions, newest first.
func (s *SQLiteStore) ListReplaySessions(ctx context.Context, query SessionQuery) ([]domain.ReplaySession, error) {
	sqlQuery := `SELECT session_id, name, description, filter, options, status, total_events, processed_events, created_at, updated_at
		 FROM replay_sessions`
	var args []any
	if query.Status != "" {
		sqlQuery += ` WHERE status = ?`
		args = append(args, query.Status)
	}
	sqlQuery += ` ORDER BY created_at DESC, session_id DESC`
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultSessionListLimit
	}
	sqlQuery += ` LIMIT ?`
	args = append(args, limit)
	if query.Offset > 0 {
		sqlQuery += ` OFFSET ?`
		args = append(args, query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.ReplaySession
	for rows.Next() {
		session, err := scanReplaySession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

// UpdateReplaySessionStatus updates the status of a session.
func (s *SQLiteStore) UpdateReplaySessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE replay_sessions SET status = ?, updated_at = ? WHERE session_id = ?`,
		status, time.Now(), sessionID)
	return err
}

// ClaimReplaySession atomically moves a PENDING session to RUNNING and
// reports whether this caller won the claim. The status guard lives in the
// UPDATE itself, so two concurrent starts cannot both succeed.
func (s *SQLiteStore) ClaimReplaySession(ctx context.Context, sessionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE replay_sessions SET status = ?, updated_at = ? WHERE session_id = ? AND status = ?`,
		domain.SessionStatusRunning, time.Now(), sessionID, domain.SessionStatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ResetReplaySessionProgress sets the counters for a fresh run.
func (s *SQLiteStore) ResetReplaySessionProgress(ctx context.Context, sessionID string, totalEvents int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE replay_sessions SET total_events = ?, processed_events = 0, updated_at = ? WHERE session_id = ?`,
		totalEvents, time.Now(), sessionID)
	return err
}

// IncrementReplaySessionProcessed bumps processed_events by one. The update
// happens inside SQLite, so concurrent executor workers cannot lose counts.
func (s *SQLiteStore) IncrementReplaySessionProcessed(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE replay_sessions SET processed_events = processed_events + 1, updated_at = ? WHERE session_id = ?`,
		time.Now(), sessionID)
	return err
}

// CreateReplayResult appends one per-event result.
func (s *SQLiteStore) CreateReplayResult(ctx context.Context, result *domain.ReplayResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO replay_results (result_id, session_id, event_id, status, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.SessionID, result.EventID, result.Status,
		nullString(result.Error), result.DurationMs, result.CreatedAt)
	return err
}

// GetReplayResults lists a session's results in recording order.
func (s *SQLiteStore) GetReplayResults(ctx context.Context, sessionID string) ([]domain.ReplayResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT result_id, session_id, event_id, status, error, duration_ms, created_at
		 FROM replay_results WHERE session_id = ? ORDER BY created_at ASC, rowid ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.ReplayResult
	for rows.Next() {
		var r domain.ReplayResult
		var errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.SessionID, &r.EventID, &r.Status, &errMsg, &r.DurationMs, &r.CreatedAt); err != nil {
			return nil, err
		}
		if errMsg.Valid {
			r.Error = errMsg.String
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// CreateRollbackPoint persists a rollback point with its state snapshot.
func (s *SQLiteStore) CreateRollbackPoint(ctx context.Context, point *domain.RollbackPoint) error {
	state := ""
	if point.State != nil {
		state = string(point.State)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rollback_points (rollback_id, session_id, description, state, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		point.ID, point.SessionID, point.Description, state, point.IsActive, point.CreatedAt)
	return err
}

// GetRollbackPoint retrieves a rollback point by id, or nil when unknown.
func (s *SQLiteStore) GetRollbackPoint(ctx context.Context, pointID string) (*domain.RollbackPoint, error) {
	var p domain.RollbackPoint
	var description, state sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT rollback_id, session_id, description, state, is_active, created_at
		 FROM rollback_points WHERE rollback_id = ?`, pointID).
		Scan(&p.ID, &p.SessionID, &description, &state, &p.IsActive, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if description.Valid {
		p.Description = description.String
	}
	if state.Valid && state.String != "" {
		p.State = json.RawMessage(state.String)
	}
	return &p, nil
}

// ListRollbackPoints lists a session's rollback points, newest first.
func (s *SQLiteStore) ListRollbackPoints(ctx context.Context, sessionID string) ([]domain.RollbackPoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rollback_id, session_id, description, state, is_active, created_at
		 FROM rollback_points WHERE session_id = ? ORDER BY created_at DESC, rollback_id DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.RollbackPoint
	for rows.Next() {
		var p domain.RollbackPoint
		var description, state sql.NullString
		if err := rows.Scan(&p.ID, &p.SessionID, &description, &state, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		if description.Valid {
			p.Description = description.String
		}
		if state.Valid && state.String != "" {
			p.State = json.RawMessage(state.String)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// DeactivateRollbackPoint marks a rollback point unusable.
func (s *SQLiteStore) DeactivateRollbackPoint(ctx context.Context, pointID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE rollback_points SET is_active = 0 WHERE rollback_id = ?`, pointID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var e domain.Event
	var payload, projectID, changeID sql.NullString
	var ts int64
	if err := row.Scan(&e.ID, &e.Type, &e.Severity, &e.Source, &e.Message, &payload, &projectID, &changeID, &ts); err != nil {
		return nil, err
	}
	if payload.Valid && payload.String != "" {
		e.Payload = json.RawMessage(payload.String)
	}
	if projectID.Valid {
		e.ProjectID = projectID.String
	}
	if changeID.Valid {
		e.ChangeID = changeID.String
	}
	e.Timestamp = time.UnixMilli(ts).UTC()
	return &e, nil
}

func scanReplaySession(row rowScanner) (*domain.ReplaySession, error) {
	var sess domain.ReplaySession
	var description, filterJSON, optionsJSON sql.NullString
	if err := row.Scan(&sess.ID, &sess.Name, &description, &filterJSON, &optionsJSON,
		&sess.Status, &sess.TotalEvents, &sess.ProcessedEvents, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		return nil, err
	}
	if description.Valid {
		sess.Description = description.String
	}
	if filterJSON.Valid {
		if err := json.Unmarshal([]byte(filterJSON.String), &sess.Filter); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session filter: %w", err)
		}
	}
	if optionsJSON.Valid {
		if err := json.Unmarshal([]byte(optionsJSON.String), &sess.Options); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session options: %w", err)
		}
	}
	return &sess, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
