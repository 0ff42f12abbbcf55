package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/guestflow/guestflow/pkg/analytics"
)

// MemoryEventDirectory is an in-memory analytics.EventDirectory for
// tests and local development.
type MemoryEventDirectory struct {
	mu     sync.RWMutex
	events map[uuid.UUID]*analytics.Event
}

// NewMemoryEventDirectory creates an empty event directory.
func NewMemoryEventDirectory() *MemoryEventDirectory {
	return &MemoryEventDirectory{
		events: make(map[uuid.UUID]*analytics.Event),
	}
}

// PutEvent adds or replaces an event projection.
func (d *MemoryEventDirectory) PutEvent(event *analytics.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	copied := *event
	d.events[event.ID] = &copied
}

// ListEvents returns every known event, ordered by name.
func (d *MemoryEventDirectory) ListEvents(ctx context.Context) ([]*analytics.Event, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	events := make([]*analytics.Event, 0, len(d.events))
	for _, e := range d.events {
		copied := *e
		events = append(events, &copied)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].Name < events[j].Name
	})
	return events, nil
}

// GetEventName returns an event's display name, or
// analytics.ErrNotFound for unknown ids.
func (d *MemoryEventDirectory) GetEventName(ctx context.Context, eventID uuid.UUID) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.events[eventID]
	if !ok {
		return "", fmt.Errorf("event %s: %w", eventID, analytics.ErrNotFound)
	}
	return e.Name, nil
}
