package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/guestflow/guestflow/pkg/analytics"
)

// EventDirectory reads the events table owned by the events service.
// The analytics core never writes event state.
type EventDirectory struct {
	db *sql.DB
}

// NewEventDirectory creates an event directory over an existing handle.
func NewEventDirectory(db *sql.DB) *EventDirectory {
	return &EventDirectory{db: db}
}

// ListEvents returns every event, newest first.
func (d *EventDirectory) ListEvents(ctx context.Context) ([]*analytics.Event, error) {
	query := `
		SELECT id, name, status, starts_at, ends_at
		FROM events
		ORDER BY created_at DESC
	`
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr("query events", err)
	}
	defer rows.Close()

	var events []*analytics.Event
	for rows.Next() {
		var e analytics.Event
		var startsAt, endsAt sql.NullTime

		if err := rows.Scan(&e.ID, &e.Name, &e.Status, &startsAt, &endsAt); err != nil {
			return nil, storeErr("scan event", err)
		}
		if startsAt.Valid {
			e.StartsAt = &startsAt.Time
		}
		if endsAt.Valid {
			e.EndsAt = &endsAt.Time
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate events", err)
	}
	return events, nil
}

// GetEventName returns an event's display name, or
// analytics.ErrNotFound for unknown ids.
func (d *EventDirectory) GetEventName(ctx context.Context, eventID uuid.UUID) (string, error) {
	var name string
	err := d.db.QueryRowContext(ctx, `SELECT name FROM events WHERE id = $1`, eventID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("event %s: %w", eventID, analytics.ErrNotFound)
	}
	if err != nil {
		return "", storeErr("query event name", err)
	}
	return name, nil
}
