package parallel

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	assert.Equal(t, 4, pool.Workers())
	assert.True(t, pool.IsRunning())
}

func TestWorkerPool_DefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -5} {
		pool := NewWorkerPool(n)
		assert.Equal(t, runtime.GOMAXPROCS(0), pool.Workers())
		pool.Close()
	}
}

func TestWorkerPool_ExecuteAll(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}
	pool.ExecuteAll(work)
	assert.Equal(t, int64(100), counter.Load())

	pool.ExecuteAll(nil)
}

func TestWorkerPool_ExecuteAllAfterClose(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	pool.Close()
	assert.False(t, pool.IsRunning())

	ran := 0
	pool.ExecuteAll([]func(){func() { ran++ }, func() { ran++ }})
	assert.Equal(t, 2, ran, "closed pool runs work inline")
}

func TestWorkerPool_RowsCoverHeight(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var (
		mu    sync.Mutex
		bands [][2]int
	)
	pool.Rows(1000, func(y0, y1 int) {
		mu.Lock()
		bands = append(bands, [2]int{y0, y1})
		mu.Unlock()
	})

	require.Len(t, bands, 4)
	sort.Slice(bands, func(i, j int) bool { return bands[i][0] < bands[j][0] })
	next := 0
	for _, b := range bands {
		assert.Equal(t, next, b[0])
		next = b[1]
	}
	assert.Equal(t, 1000, next)
}

func TestWorkerPool_RowsSmallOrNil(t *testing.T) {
	var calls [][2]int
	record := func(y0, y1 int) { calls = append(calls, [2]int{y0, y1}) }

	var nilPool *WorkerPool
	nilPool.Rows(500, record)

	pool := NewWorkerPool(4)
	defer pool.Close()
	pool.Rows(10, record)

	assert.Equal(t, [][2]int{{0, 500}, {0, 10}}, calls)
}
