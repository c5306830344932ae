package cmdqueue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/petermattis/goid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// consumer runs a queue consumer goroutine for the duration of a test. The
// consumer is recognized by goroutine id; newConsumer fails the test if the
// ids cannot tell the consumer from the test goroutine.
type consumer struct {
	q      *Queue
	id     atomic.Int64
	cancel context.CancelFunc
	done   chan struct{}
}

func newConsumer(t *testing.T) *consumer {
	t.Helper()
	c := &consumer{done: make(chan struct{})}
	c.q = New(func() bool {
		id := c.id.Load()
		return id > 0 && goid.Get() == id
	})

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	started := make(chan struct{})
	go func() {
		defer close(c.done)
		c.id.Store(goid.Get())
		close(started)
		for c.q.WaitAndFlush(ctx) == nil {
		}
	}()
	<-started
	t.Cleanup(c.stop)

	require.Positive(t, c.id.Load(), "consumer goroutine id")
	require.NotEqual(t, c.id.Load(), goid.Get(), "consumer and test goroutine share an id")
	require.False(t, c.q.isConsumer())
	return c
}

func (c *consumer) stop() {
	c.cancel()
	<-c.done
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestNewPanicsOnNilConsumer(t *testing.T) {
	assert.Panics(t, func() { New(nil) })
}

func TestOnlyTheConsumerIsConsumer(t *testing.T) {
	c := newConsumer(t)

	assert.False(t, c.q.isConsumer(), "test goroutine")

	const producers = 4
	results := make(chan bool, producers)
	for range producers {
		go func() { results <- c.q.isConsumer() }()
	}
	for range producers {
		assert.False(t, <-results, "producer goroutine")
	}

	inside := make(chan bool, 1)
	require.NoError(t, c.q.PushAndSync(Command{Op: "check", Run: func() { inside <- c.q.isConsumer() }}))
	assert.True(t, <-inside, "command body")
}

func TestDrainFIFO(t *testing.T) {
	q := New(func() bool { return true })

	var got []int
	for i := range 10 {
		require.NoError(t, q.Push(Command{Op: "append", Run: func() { got = append(got, i) }}))
	}
	assert.Equal(t, 10, q.Len())
	assert.Equal(t, 10, q.Drain())
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
	assert.Equal(t, 0, q.Len())
}

func TestGlobalFIFOAcrossProducers(t *testing.T) {
	c := newConsumer(t)

	const producers, perProducer = 8, 200

	// Every producer records the global sequence number it observed while
	// holding the push lock order; the consumer must see them ascending.
	var (
		seqMu   sync.Mutex
		nextSeq int
		mu      sync.Mutex
		order   []int
	)
	var wg sync.WaitGroup
	for range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perProducer {
				seqMu.Lock()
				seq := nextSeq
				nextSeq++
				err := c.q.Push(Command{Op: "record", Run: func() {
					mu.Lock()
					order = append(order, seq)
					mu.Unlock()
				}})
				seqMu.Unlock()
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	c.q.FlushIfPending()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, producers*perProducer)
	for i := 1; i < len(order); i++ {
		require.Less(t, order[i-1], order[i], "commands executed out of push order")
	}
}

func TestPerProducerOrder(t *testing.T) {
	c := newConsumer(t)

	const producers, perProducer = 4, 300
	var mu sync.Mutex
	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}
	var violations atomic.Int32

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perProducer {
				_ = c.q.Push(Command{Run: func() {
					mu.Lock()
					if last[p] != i-1 {
						violations.Add(1)
					}
					last[p] = i
					mu.Unlock()
				}})
			}
		}()
	}
	wg.Wait()
	c.q.FlushIfPending()

	assert.Zero(t, violations.Load())
	for p := range producers {
		assert.Equal(t, perProducer-1, last[p])
	}
}

func TestFlushIfPendingWaitsForRunningCommand(t *testing.T) {
	c := newConsumer(t)

	release := make(chan struct{})
	started := make(chan struct{})
	var applied atomic.Bool
	require.NoError(t, c.q.Push(Command{Op: "slow", Run: func() {
		close(started)
		<-release
		applied.Store(true)
	}}))
	<-started

	flushed := make(chan struct{})
	go func() {
		c.q.FlushIfPending()
		close(flushed)
	}()

	select {
	case <-flushed:
		t.Fatal("FlushIfPending returned while a command was still running")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-flushed
	assert.True(t, applied.Load())
}

func TestFlushIfPendingOnConsumerDrainsInline(t *testing.T) {
	q := New(func() bool { return true })
	var n int
	_ = q.Push(Command{Run: func() { n++ }})
	_ = q.Push(Command{Run: func() { n++ }})

	q.FlushIfPending()
	assert.Equal(t, 2, n)
}

func TestReentrantFlushKeepsOrder(t *testing.T) {
	q := New(func() bool { return true })
	var got []string
	_ = q.Push(Command{Op: "a", Run: func() {
		got = append(got, "a")
		q.FlushIfPending()
		got = append(got, "a-end")
	}})
	_ = q.Push(Command{Op: "b", Run: func() { got = append(got, "b") }})

	q.Drain()
	assert.Equal(t, []string{"a", "b", "a-end"}, got)
	assert.Zero(t, q.Len())
}

func TestNestedFlushHoldsLaterWaiters(t *testing.T) {
	c := newConsumer(t)

	started, proceed, release := make(chan struct{}), make(chan struct{}), make(chan struct{})
	var finished atomic.Bool
	require.NoError(t, c.q.Push(Command{Op: "outer", Run: func() {
		close(started)
		<-proceed
		c.q.FlushIfPending()
		<-release
		finished.Store(true)
	}}))
	<-started

	synced := make(chan struct{})
	go func() {
		assert.NoError(t, c.q.PushAndSync(Command{Op: "marker"}))
		close(synced)
	}()
	require.Eventually(t, func() bool { return c.q.Len() == 1 }, time.Second, time.Millisecond)
	close(proceed)

	// The marker runs inside the outer command's flush, but its waiter
	// must not wake before the outer command returns.
	require.Eventually(t, func() bool { return c.q.Len() == 0 }, time.Second, time.Millisecond)
	select {
	case <-synced:
		t.Fatal("PushAndSync returned while an earlier command was still running")
	case <-time.After(30 * time.Millisecond):
	}
	close(release)
	<-synced
	assert.True(t, finished.Load())
}

func TestNestedDrainReleasesAfterOutermost(t *testing.T) {
	q := New(func() bool { return true })
	a := Command{Op: "a", done: make(chan struct{})}
	b := Command{Op: "b", done: make(chan struct{})}
	var releasedDuringA bool
	a.Run = func() {
		require.NoError(t, q.Push(b))
		q.FlushIfPending()
		releasedDuringA = isClosed(b.done)
	}
	q.execute(a)

	assert.False(t, releasedDuringA, "b released inside a")
	assert.True(t, isClosed(a.done))
	assert.True(t, isClosed(b.done))
	assert.Zero(t, q.depth)
	assert.Empty(t, q.held)
}

func TestPanickingCommandDoesNotAbortDrain(t *testing.T) {
	q := New(func() bool { return true })
	var ran []int
	_ = q.Push(Command{Op: "ok", Run: func() { ran = append(ran, 1) }})
	_ = q.Push(Command{Target: "texture", Op: "boom", Run: func() { panic("bad handle") }})
	_ = q.Push(Command{Op: "ok", Run: func() { ran = append(ran, 3) }})

	assert.NotPanics(t, func() { q.Drain() })
	assert.Equal(t, []int{1, 3}, ran)

	s := q.Stats()
	assert.Equal(t, uint64(3), s.Pushed)
	assert.Equal(t, uint64(2), s.Executed)
	assert.Equal(t, uint64(1), s.Failed)
}

func TestPushAndSync(t *testing.T) {
	c := newConsumer(t)

	var applied atomic.Int32
	for range 50 {
		_ = c.q.Push(Command{Run: func() { applied.Add(1) }})
	}
	require.NoError(t, c.q.PushAndSync(Command{Op: "marker"}))
	assert.Equal(t, int32(50), applied.Load())
}

func TestCloseRejectsAndReleases(t *testing.T) {
	q := New(func() bool { return false })

	var ran atomic.Bool
	_ = q.Push(Command{Op: "never", Run: func() { ran.Store(true) }})

	waiting := make(chan error, 1)
	go func() { waiting <- q.PushAndSync(Command{Op: "marker"}) }()

	require.Eventually(t, func() bool { return q.Len() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, 2, q.Close())
	assert.NoError(t, <-waiting)
	assert.False(t, ran.Load())
	assert.True(t, q.Closed())

	assert.ErrorIs(t, q.Push(Command{Op: "late"}), ErrClosed)
	assert.ErrorIs(t, q.PushAndSync(Command{Op: "late"}), ErrClosed)
	assert.Zero(t, q.Close(), "Close is idempotent")
	assert.Equal(t, uint64(3), q.Stats().Dropped)
}

func TestWaitAndFlushHonorsContext(t *testing.T) {
	q := New(func() bool { return true })
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.WaitAndFlush(ctx), context.DeadlineExceeded)
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "texture.texture_2d_update", Command{Target: "texture", Op: "texture_2d_update"}.String())
	assert.Equal(t, "flush", Command{Op: "flush"}.String())
}
