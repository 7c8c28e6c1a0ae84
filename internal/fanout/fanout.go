// Package fanout bounds how many upstream lookups run concurrently.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Supported concurrency range.
const (
	MinLimit = 1
	MaxLimit = 10
)

// Clamp forces a requested concurrency into the supported range.
func Clamp(limit int) int {
	if limit < MinLimit {
		return MinLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Map runs worker over every item with at most limit invocations in flight;
// as one finishes the next queued item starts immediately. Results are
// index-aligned with the input regardless of completion order. A worker
// error cancels the batch; callers wanting per-item isolation absorb errors
// inside the worker.
func Map[T, R any](ctx context.Context, items []T, limit int, worker func(ctx context.Context, item T) (R, error)) ([]R, error) {
	results := make([]R, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(Clamp(limit))
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			r, err := worker(ctx, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
