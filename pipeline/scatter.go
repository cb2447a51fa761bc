package pipeline

import (
	"context"
	"sync"
)

// ScatterOptions configures a scatter/gather fan-out over a set of
// items: Limit bounds concurrency (0 means unbounded), First stops
// collecting once that many results have come back. OnComplete, if set,
// is called once per collected result with the running completed/total
// count, in the same completion order as the returned results — the
// hook `gather progress=true` renders as a progress bar.
type ScatterOptions struct {
	Limit      int
	First      int
	OnComplete func(done, total int)
}

// ScatterResult pairs a worker's output with the index of the input
// item it came from, so callers can correlate results back to items
// even though completion order is not input order.
type ScatterResult struct {
	Index  int
	Result Result
}

// Scatter runs worker against every item in items, bounded to at most
// Limit concurrent workers, and gathers every result. When First is set,
// Scatter returns as soon as that many workers have completed and
// cancels the context passed to every still-running worker; a worker
// that doesn't observe ctx.Done() at its next I/O boundary simply keeps
// running to completion, but its result is discarded.
func Scatter(ctx context.Context, items [][]byte, opts ScatterOptions, worker func(ctx context.Context, item []byte) Result) []ScatterResult {
	limit := opts.Limit
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}
	if limit == 0 {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, limit)
	out := make(chan ScatterResult, len(items))
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(i int, item []byte) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-workerCtx.Done():
				return
			}
			defer func() { <-sem }()
			out <- ScatterResult{Index: i, Result: worker(workerCtx, item)}
		}(i, item)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	want := opts.First
	if want <= 0 || want > len(items) {
		want = len(items)
	}

	results := make([]ScatterResult, 0, want)
	for r := range out {
		results = append(results, r)
		if opts.OnComplete != nil {
			opts.OnComplete(len(results), len(items))
		}
		if len(results) >= want {
			cancel()
			break
		}
	}

	return results
}
