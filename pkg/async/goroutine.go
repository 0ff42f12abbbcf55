package async

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"
)

// SafeGo executes fn in a goroutine with panic recovery, a timeout, and
// error logging. Use it instead of a bare `go func()` for best-effort
// side work that must never crash or outlive its deadline.
//
// Example:
//
//	async.SafeGo(r.Context(), 5*time.Second, "bump engagement counter", func(ctx context.Context) error {
//		return metrics.IncrementPhotoUploads(ctx, eventID, 1)
//	})
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				log.Printf("[SafeGo] PANIC in %s: %v\nStack trace:\n%s",
					taskName, r, string(debug.Stack()))
			}
		}()

		if err := fn(ctx); err != nil {
			// Best-effort work: log and move on.
			log.Printf("[SafeGo] Error in %s: %v", taskName, err)
		}
	}()
}

// SafeGoNoError is SafeGo for functions that don't return errors.
func SafeGoNoError(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context)) {
	SafeGo(parentCtx, timeout, taskName, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

// ForEach processes items concurrently with at most workers goroutines,
// stopping at the first failure. Panics in fn surface as errors rather
// than crashing the process.
//
// Example:
//
//	err := async.ForEach(ctx, eventIDs, 8, func(ctx context.Context, id uuid.UUID) error {
//		return metrics.UpdateMetricsForEvents(ctx, []uuid.UUID{id})
//	})
func ForEach[T any](ctx context.Context, items []T, workers int, fn func(context.Context, T) error) error {
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, item := range items {
		item := item
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
				}
			}()
			return fn(gctx, item)
		})
	}
	return g.Wait()
}
