package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
}

func TestWorkerPool_CreateDefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -5} {
		pool := NewWorkerPool(n)
		expected := runtime.GOMAXPROCS(0)
		if pool.Workers() != expected {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want %d (GOMAXPROCS)", n, pool.Workers(), expected)
		}
		pool.Close()
	}
}

func TestWorkerPool_ExecuteAll(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	numTasks := 100

	work := make([]func(), numTasks)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}

	pool.ExecuteAll(work)

	if got := counter.Load(); got != int64(numTasks) {
		t.Errorf("executed %d tasks, want %d", got, numTasks)
	}
}

func TestWorkerPool_ForNCoversAllIndices(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	tests := []struct {
		name string
		n    int
	}{
		{"small", 7},
		{"exact_chunks", 16},
		{"large", 10_000},
		{"single", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := make([]int32, tt.n)
			pool.ForN(tt.n, func(start, end int) {
				if start < 0 || end > tt.n || start >= end {
					t.Errorf("bad chunk [%d, %d) for n=%d", start, end, tt.n)
					return
				}
				for i := start; i < end; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
			})

			for i, h := range hits {
				if h != 1 {
					t.Fatalf("index %d visited %d times, want exactly once", i, h)
				}
			}
		})
	}
}

func TestWorkerPool_ForNEmptyRange(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	called := false
	pool.ForN(0, func(start, end int) { called = true })
	pool.ForN(-3, func(start, end int) { called = true })

	if called {
		t.Error("ForN should not invoke fn for an empty range")
	}
}

func TestWorkerPool_ForNChunksDisjoint(t *testing.T) {
	pool := NewWorkerPool(8)
	defer pool.Close()

	// Concurrent per-index mutation without locks must be safe because
	// chunks never overlap. The race detector verifies this.
	const n = 4096
	data := make([]float64, n)
	pool.ForN(n, func(start, end int) {
		for i := start; i < end; i++ {
			data[i] = float64(i) * 2
		}
	})

	for i := range data {
		if data[i] != float64(i)*2 {
			t.Fatalf("data[%d] = %v, want %v", i, data[i], float64(i)*2)
		}
	}
}

func TestWorkerPool_CloseIdempotent(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	pool.Close() // Must not panic.

	// Work after close is a no-op.
	ran := false
	pool.ForN(10, func(start, end int) { ran = true })
	if ran {
		t.Error("ForN after Close should be a no-op")
	}
}

func TestWorkerPool_ConcurrentForN(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var wg sync.WaitGroup
	var total atomic.Int64
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.ForN(1000, func(start, end int) {
				total.Add(int64(end - start))
			})
		}()
	}
	wg.Wait()

	if got := total.Load(); got != 4000 {
		t.Errorf("total processed = %d, want 4000", got)
	}
}
