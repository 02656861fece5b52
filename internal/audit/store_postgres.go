package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresStore persists audit events in a single append-only table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the audit table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS consent_audit (
			id UUID PRIMARY KEY,
			recorded_at TIMESTAMPTZ NOT NULL,
			action TEXT NOT NULL,
			state TEXT NOT NULL DEFAULT '',
			functional BOOLEAN NOT NULL,
			analytics BOOLEAN NOT NULL,
			marketing BOOLEAN NOT NULL,
			preferences BOOLEAN NOT NULL,
			event_count INT NOT NULL DEFAULT 0,
			detail TEXT NOT NULL DEFAULT ''
		)`)
	if err != nil {
		return fmt.Errorf("create audit table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO consent_audit
			(id, recorded_at, action, state, functional, analytics, marketing, preferences, event_count, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		event.ID, event.Timestamp, string(event.Action), event.State,
		event.Snapshot.Functional, event.Snapshot.Analytics,
		event.Snapshot.Marketing, event.Snapshot.Preferences,
		event.Count, event.Detail,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recorded_at, action, state, functional, analytics, marketing, preferences, event_count, detail
		FROM consent_audit
		ORDER BY recorded_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var action string
		if err := rows.Scan(&e.ID, &e.Timestamp, &action, &e.State,
			&e.Snapshot.Functional, &e.Snapshot.Analytics,
			&e.Snapshot.Marketing, &e.Snapshot.Preferences,
			&e.Count, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Action = Action(action)
		events = append(events, e)
	}
	return events, rows.Err()
}
