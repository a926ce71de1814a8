// Package scheduler runs an indexed list of independent jobs on a fixed-size
// pool of workers.
package scheduler

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// MaxWorkers is the hard cap on the worker count.
const MaxWorkers = 8

// Run calls fn for every index in [0, n) with at most workers calls active
// at once, and returns when all of them have returned.
//
// Workers pull the next unclaimed index from a shared cursor, so a worker
// that finishes a short job immediately picks up the next pending one.
// Completion order is unspecified; callers place results by index.
func Run(ctx context.Context, n, workers int, fn func(ctx context.Context, index int)) {
	if n <= 0 {
		return
	}

	workers = min(max(workers, 1), MaxWorkers, n)

	var (
		cursor atomic.Int64
		g      errgroup.Group
	)

	for range workers {
		g.Go(func() error {
			for {
				i := int(cursor.Add(1) - 1)
				if i >= n {
					return nil
				}

				fn(ctx, i)
			}
		})
	}

	_ = g.Wait()
}
