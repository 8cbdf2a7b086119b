package rss

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/newsbrief/internal/logger"
)

// FetchAll fetches every source with at most workers concurrent fetches.
// Results are returned in source order whatever order fetches finish in, so
// downstream ranking is independent of network timing. When ctx expires the
// remaining sources are reported as network errors and the run continues with
// what was collected.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source, workers int) ([]FetchResult, []FetchError) {
	if workers < 1 {
		workers = 1
	}

	start := time.Now()
	results := make([]FetchResult, len(sources))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, src := range sources {
		g.Go(func() error {
			results[i] = f.Fetch(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	var errs []FetchError
	ok := 0
	for _, r := range results {
		if rec, failed := r.ErrorRecord(); failed {
			errs = append(errs, rec)
			continue
		}
		ok++
	}

	logger.Info("processed sources", "ok", ok, "total", len(sources), "elapsed", time.Since(start).Round(time.Millisecond))
	return results, errs
}

// Entries flattens successful results into one pool in source order.
func Entries(results []FetchResult) []Entry {
	var pool []Entry
	for _, r := range results {
		if r.Failed() {
			continue
		}
		pool = append(pool, r.Entries...)
	}
	return pool
}
