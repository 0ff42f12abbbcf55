package dashboard

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guestflow/guestflow/pkg/analytics"
	"github.com/guestflow/guestflow/pkg/storage"
)

// countingDirectory counts lookups reaching the underlying directory.
type countingDirectory struct {
	analytics.EventDirectory
	nameLookups int
}

func (d *countingDirectory) GetEventName(ctx context.Context, eventID uuid.UUID) (string, error) {
	d.nameLookups++
	return d.EventDirectory.GetEventName(ctx, eventID)
}

func TestCachingEventDirectoryMemoizesNames(t *testing.T) {
	inner := storage.NewMemoryEventDirectory()
	e := &analytics.Event{ID: uuid.New(), Name: "Wedding"}
	inner.PutEvent(e)

	counting := &countingDirectory{EventDirectory: inner}
	dir, err := NewCachingEventDirectory(counting, 8)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		name, err := dir.GetEventName(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, "Wedding", name)
	}
	assert.Equal(t, 1, counting.nameLookups, "repeat lookups must hit the cache")
}

func TestCachingEventDirectoryDoesNotCacheFailures(t *testing.T) {
	inner := storage.NewMemoryEventDirectory()
	counting := &countingDirectory{EventDirectory: inner}
	dir, err := NewCachingEventDirectory(counting, 8)
	require.NoError(t, err)
	ctx := context.Background()
	unknown := uuid.New()

	_, err = dir.GetEventName(ctx, unknown)
	assert.ErrorIs(t, err, analytics.ErrNotFound)

	// The event appears later; the earlier miss must not stick.
	inner.PutEvent(&analytics.Event{ID: unknown, Name: "Late Event"})
	name, err := dir.GetEventName(ctx, unknown)
	require.NoError(t, err)
	assert.Equal(t, "Late Event", name)
	assert.Equal(t, 2, counting.nameLookups)
}

func TestCachingEventDirectoryListPrimesCache(t *testing.T) {
	inner := storage.NewMemoryEventDirectory()
	e := &analytics.Event{ID: uuid.New(), Name: "Gala"}
	inner.PutEvent(e)

	counting := &countingDirectory{EventDirectory: inner}
	dir, err := NewCachingEventDirectory(counting, 8)
	require.NoError(t, err)
	ctx := context.Background()

	events, err := dir.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)

	name, err := dir.GetEventName(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gala", name)
	assert.Zero(t, counting.nameLookups, "listing must prime the name cache")
}
