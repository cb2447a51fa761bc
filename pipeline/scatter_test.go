package pipeline

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScatterRunsEveryItem(t *testing.T) {
	items := [][]byte{[]byte("a"), []byte("b"), []byte("c")}

	results := Scatter(context.Background(), items, ScatterOptions{}, func(ctx context.Context, item []byte) Result {
		return Result{OK: true, Stdout: item}
	})

	require.Len(t, results, 3)
}

func TestScatterRespectsLimit(t *testing.T) {
	items := make([][]byte, 10)
	for i := range items {
		items[i] = []byte("x")
	}

	var concurrent int32
	var maxConcurrent int32

	Scatter(context.Background(), items, ScatterOptions{Limit: 2}, func(ctx context.Context, item []byte) Result {
		n := atomic.AddInt32(&concurrent, 1)
		for {
			cur := atomic.LoadInt32(&maxConcurrent)
			if n <= cur || atomic.CompareAndSwapInt32(&maxConcurrent, cur, n) {
				break
			}
		}
		atomic.AddInt32(&concurrent, -1)
		return Result{OK: true}
	})

	require.LessOrEqual(t, atomic.LoadInt32(&maxConcurrent), int32(2))
}

func TestScatterFirstCutsOffEarly(t *testing.T) {
	items := [][]byte{[]byte("1"), []byte("2"), []byte("3"), []byte("4")}

	results := Scatter(context.Background(), items, ScatterOptions{First: 1}, func(ctx context.Context, item []byte) Result {
		return Result{OK: true, Stdout: item}
	})

	require.Len(t, results, 1)
}

func TestScatterEmptyItems(t *testing.T) {
	results := Scatter(context.Background(), nil, ScatterOptions{}, func(ctx context.Context, item []byte) Result {
		return Result{OK: true}
	})
	require.Empty(t, results)
}

func TestScatterPreservesIndex(t *testing.T) {
	items := [][]byte{[]byte("zero"), []byte("one"), []byte("two")}

	results := Scatter(context.Background(), items, ScatterOptions{}, func(ctx context.Context, item []byte) Result {
		return Result{OK: true, Stdout: item}
	})

	for _, r := range results {
		require.Equal(t, string(items[r.Index]), string(r.Result.Stdout))
	}
}
