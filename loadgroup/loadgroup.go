// Package loadgroup fans a per-key Loader out across a bounded set of
// goroutines via golang.org/x/sync/errgroup, for callers of
// Cache.GetAll whose Loader has no native bulk path.
package loadgroup

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Fetch calls get(ctx, key) for every key in keys concurrently, bounded by
// limit goroutines at a time (limit <= 0 means unbounded), and returns a
// map of every successful result. The first error from any get call cancels
// the rest via ctx and is returned; results already collected are
// discarded, matching errgroup.Group's fail-fast semantics.
func Fetch[K comparable, V any](ctx context.Context, keys []K, limit int, get func(ctx context.Context, key K) (V, error)) (map[K]V, error) {
	results := make(map[K]V, len(keys))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, key := range keys {
		g.Go(func() error {
			v, err := get(gctx, key)
			if err != nil {
				return err
			}
			mu.Lock()
			results[key] = v
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
