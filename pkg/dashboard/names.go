package dashboard

import (
	"context"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/guestflow/guestflow/pkg/analytics"
)

// defaultNameCacheSize covers far more events than a single organizer
// account ever holds.
const defaultNameCacheSize = 1024

// CachingEventDirectory memoizes event display names in-process.
// Activity feeds resolve the same handful of names on every request;
// names change rarely enough that LRU staleness is acceptable.
type CachingEventDirectory struct {
	inner analytics.EventDirectory
	names *lru.Cache[uuid.UUID, string]
}

// NewCachingEventDirectory wraps inner with an LRU name cache of the
// given size. size <= 0 selects the default.
func NewCachingEventDirectory(inner analytics.EventDirectory, size int) (*CachingEventDirectory, error) {
	if size <= 0 {
		size = defaultNameCacheSize
	}
	names, err := lru.New[uuid.UUID, string](size)
	if err != nil {
		return nil, err
	}
	return &CachingEventDirectory{inner: inner, names: names}, nil
}

// ListEvents delegates to the underlying directory and primes the name
// cache from the result.
func (d *CachingEventDirectory) ListEvents(ctx context.Context) ([]*analytics.Event, error) {
	events, err := d.inner.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		d.names.Add(e.ID, e.Name)
	}
	return events, nil
}

// GetEventName returns the cached name when present, otherwise asks the
// underlying directory and remembers the answer. Lookup failures are
// not cached.
func (d *CachingEventDirectory) GetEventName(ctx context.Context, eventID uuid.UUID) (string, error) {
	if name, ok := d.names.Get(eventID); ok {
		return name, nil
	}
	name, err := d.inner.GetEventName(ctx, eventID)
	if err != nil {
		return "", err
	}
	d.names.Add(eventID, name)
	return name, nil
}
