package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternlund/lockguard/internal/db"
)

// Store provides append and query operations over the audit event log.
type Store struct {
	db  *db.DB
	hub *Hub
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// SetHub attaches a broadcast hub; every appended event is pushed to it.
func (s *Store) SetHub(h *Hub) { s.hub = h }

// Append inserts a new audit event using q, which may be the store's own
// database or an open transaction so the event commits atomically with a
// lock-state change. If e.ID is empty a UUID is generated; a zero
// timestamp is set to now.
func (s *Store) Append(ctx context.Context, q db.Querier, e Event) (Event, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO audit_events (
			id, timestamp, event_type, principal,
			source_address, client_descriptor, severity, resolved
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.Timestamp.UTC().Format(time.DateTime),
		string(e.Type),
		e.Principal,
		e.Context.SourceAddress,
		e.Context.ClientDescriptor,
		string(e.Severity),
		e.Resolved,
	)
	if err != nil {
		return Event{}, fmt.Errorf("inserting audit event: %w", err)
	}

	if s.hub != nil {
		s.hub.Publish(e)
	}
	return e, nil
}

// GetByID retrieves a single audit event.
func (s *Store) GetByID(ctx context.Context, id string) (*Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, timestamp, event_type, principal,
		       source_address, client_descriptor, severity, resolved
		FROM audit_events WHERE id = ?`, id)

	return scanEvent(row)
}

// QueryFilter controls which audit events are returned by Query.
type QueryFilter struct {
	Principal string
	Type      EventType
	Severity  Severity
	Since     *time.Time
	Until     *time.Time
	Limit     int
	Offset    int
}

// Query returns audit events matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.Principal != "" {
		clauses = append(clauses, "principal = ?")
		args = append(args, filter.Principal)
	}
	if filter.Type != "" {
		clauses = append(clauses, "event_type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Severity != "" {
		clauses = append(clauses, "severity = ?")
		args = append(args, string(filter.Severity))
	}
	if filter.Since != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, filter.Since.UTC().Format(time.DateTime))
	}
	if filter.Until != nil {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, filter.Until.UTC().Format(time.DateTime))
	}

	query := "SELECT id, timestamp, event_type, principal, source_address, client_descriptor, severity, resolved FROM audit_events"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Resolve marks an event as triaged. This is the only permitted mutation
// of an audit record.
func (s *Store) Resolve(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE audit_events SET resolved = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("resolving audit event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// StatsFor aggregates event counts by type and severity over the window
// [now-window, now]. The read path needs no locking: the log only grows.
func (s *Store) StatsFor(ctx context.Context, window time.Duration) (*Stats, error) {
	since := time.Now().UTC().Add(-window).Format(time.DateTime)

	stats := &Stats{
		Window:     window.String(),
		ByType:     make(map[EventType]int),
		BySeverity: make(map[Severity]int),
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT event_type, severity, COUNT(*)
		FROM audit_events
		WHERE timestamp >= ?
		GROUP BY event_type, severity`, since)
	if err != nil {
		return nil, fmt.Errorf("aggregating audit events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			eventType, severity string
			count               int
		)
		if err := rows.Scan(&eventType, &severity, &count); err != nil {
			return nil, err
		}
		stats.ByType[EventType(eventType)] += count
		stats.BySeverity[Severity(severity)] += count
		stats.Total += count
	}
	return stats, rows.Err()
}

// DeleteBefore removes all audit events older than the given time.
// Returns the number of deleted rows. Intended for retention pruning only.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM audit_events WHERE timestamp < ?",
		before.UTC().Format(time.DateTime),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old audit events: %w", err)
	}
	return res.RowsAffected()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(sc scanner) (*Event, error) {
	var (
		e                   Event
		ts                  string
		eventType, severity string
	)

	err := sc.Scan(
		&e.ID, &ts, &eventType, &e.Principal,
		&e.Context.SourceAddress, &e.Context.ClientDescriptor,
		&severity, &e.Resolved,
	)
	if err != nil {
		return nil, err
	}

	e.Type = EventType(eventType)
	e.Severity = Severity(severity)

	if t, parseErr := time.Parse(time.DateTime, ts); parseErr == nil {
		e.Timestamp = t.UTC()
	} else if t, parseErr := time.Parse(time.RFC3339, ts); parseErr == nil {
		e.Timestamp = t.UTC()
	}

	return &e, nil
}
