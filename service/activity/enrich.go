package activity

import (
	"context"
	"sync"
)

// mapBounded applies fn to every item with at most limit calls in
// flight. Items are processed in consecutive groups of limit; each
// group runs concurrently and completes before the next group starts,
// keeping upstream load bounded and the failure boundary per group.
// Results are returned in item order. fn absorbs its own failures by
// returning a zero value.
func mapBounded[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) R) []R {
	if limit < 1 {
		limit = 1
	}

	results := make([]R, len(items))
	for start := 0; start < len(items); start += limit {
		end := start + limit
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = fn(ctx, items[i])
			}(i)
		}
		wg.Wait()
	}
	return results
}
