package sync

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// outcome pairs one hunk with the error, if any, encountered applying it.
// A hunk error never aborts the run: it is recorded and the pool moves on,
// mirroring the reference worker's warn-and-continue handling in
// domain/envelope/sync/runner.rs.
type outcome[H any] struct {
	Hunk H
	Err  error
}

// runPool drains batches with poolSize concurrent workers, each popping
// one batch at a time from behind a shared mutex and releasing it before
// processing, so no lock is held during I/O (grounded on
// email/sync/worker.rs's EmailSyncWorker.process_hunks). Workers stop
// early if ctx is canceled, leaving any remaining batches undrained; the
// caller surfaces that via ctx.Err().
func runPool[H any](ctx context.Context, poolSize int, batches [][]H, process func(context.Context, H) error) []outcome[H] {
	if poolSize < 1 {
		poolSize = 1
	}

	var queueMu sync.Mutex
	remaining := batches

	var resultsMu sync.Mutex
	var results []outcome[H]

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < poolSize; i++ {
		g.Go(func() error {
			for {
				if gctx.Err() != nil {
					return nil
				}

				queueMu.Lock()
				if len(remaining) == 0 {
					queueMu.Unlock()
					return nil
				}
				batch := remaining[0]
				remaining = remaining[1:]
				queueMu.Unlock()

				for _, h := range batch {
					err := process(gctx, h)
					resultsMu.Lock()
					results = append(results, outcome[H]{Hunk: h, Err: err})
					resultsMu.Unlock()
				}
			}
		})
	}
	_ = g.Wait()
	return results
}
