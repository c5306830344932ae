// Package cmdqueue implements the multi-producer, single-consumer command
// queue that carries deferred operations to the render thread.
//
// Ordering: every Push is serialized under a single mutex, so the consumer
// observes one global FIFO order across all producers. A command pushed by
// goroutine A before goroutine B pushes its command always runs first.
//
// Failure: a command that panics is recovered, logged and counted. The
// drain continues with the next command; the queue itself has no failure
// state other than ErrClosed after Close.
package cmdqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Push and PushAndSync after Close.
var ErrClosed = errors.New("cmdqueue: queue closed")

// Command is a deferred invocation. Run is a closure over the target
// collaborator and a snapshot of the operation's arguments.
type Command struct {
	// Target names the collaborator the command runs against.
	Target string

	// Op names the operation, for logging.
	Op string

	// Run performs the operation. A nil Run is a pure sync marker.
	Run func()

	// done is closed after Run returns (or after the queue is closed
	// without running the command).
	done chan struct{}
}

func (c Command) String() string {
	if c.Target == "" {
		return c.Op
	}
	return c.Target + "." + c.Op
}

// Stats reports queue counters.
type Stats struct {
	Pushed   uint64
	Executed uint64
	Failed   uint64
	Dropped  uint64
}

// Queue is an unbounded FIFO of Commands with concurrent producers and one
// consumer. The consumer is identified by the isConsumer function given to
// New; only the consumer may call Drain or WaitAndFlush.
//
// Thread safety: Push, PushAndSync, FlushIfPending, Len, Stats and Close are
// safe for concurrent use.
type Queue struct {
	isConsumer func() bool

	mu     sync.Mutex
	buf    []Command
	head   int
	closed bool

	// wake has capacity 1 and is signaled on every push.
	wake chan struct{}

	// depth counts the commands running on the consumer, nested ones
	// included. held collects the completion signals of commands that
	// finished inside another command; they are released once the
	// outermost command returns. Both are touched only by the consumer.
	depth int
	held  []chan struct{}

	pushed   atomic.Uint64
	executed atomic.Uint64
	failed   atomic.Uint64
	dropped  atomic.Uint64
}

// New creates an empty queue. isConsumer must report whether the calling
// goroutine is the queue's single consumer.
func New(isConsumer func() bool) *Queue {
	if isConsumer == nil {
		panic("cmdqueue: New isConsumer is nil")
	}
	return &Queue{
		isConsumer: isConsumer,
		wake:       make(chan struct{}, 1),
	}
}

// Push appends cmd to the queue. It never blocks on the consumer.
func (q *Queue) Push(cmd Command) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.dropped.Add(1)
		return fmt.Errorf("%v: %w", cmd, ErrClosed)
	}
	q.buf = append(q.buf, cmd)
	q.mu.Unlock()

	q.pushed.Add(1)
	q.signal()
	return nil
}

// PushAndSync appends cmd and blocks until the consumer has executed it,
// and therefore every command pushed before it.
//
// Called from the consumer, PushAndSync drains the pending commands and then
// runs cmd inline.
func (q *Queue) PushAndSync(cmd Command) error {
	if q.isConsumer() {
		q.Drain()
		q.execute(cmd)
		return nil
	}

	cmd.done = make(chan struct{})
	if err := q.Push(cmd); err != nil {
		return err
	}
	<-cmd.done
	return nil
}

// FlushIfPending makes every command pushed so far take effect before it
// returns.
//
// From a producer it blocks until the consumer has executed them. From the
// consumer it executes them inline; a call made from inside a running
// command keeps popping the head of the queue, so FIFO order still holds and
// nothing waits on itself. Producers waiting on commands run that way are
// released only after the enclosing command has returned.
//
// If the queue is closed FlushIfPending returns immediately.
func (q *Queue) FlushIfPending() {
	if q.isConsumer() {
		q.Drain()
		return
	}
	// A marker is pushed even when the queue looks empty: the consumer may
	// still be running a command it already popped.
	_ = q.PushAndSync(Command{Op: "flush"})
}

// Drain executes and removes queued commands in order until the queue is
// empty, including commands pushed while draining. It returns the number of
// commands executed. Drain must only be called by the consumer.
func (q *Queue) Drain() int {
	n := 0
	for {
		cmd, ok := q.pop()
		if !ok {
			return n
		}
		q.execute(cmd)
		n++
	}
}

// WaitAndFlush blocks until at least one command is queued or ctx is done,
// then drains the queue. It returns ctx.Err() if the context ended before a
// command arrived. WaitAndFlush must only be called by the consumer.
func (q *Queue) WaitAndFlush(ctx context.Context) error {
	for q.Len() == 0 {
		select {
		case <-q.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	q.Drain()
	return nil
}

// Len returns the number of queued commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf) - q.head
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close rejects further pushes. Commands still queued are dropped without
// running; goroutines waiting on them in PushAndSync are released.
// Close is idempotent and returns the number of dropped commands.
func (q *Queue) Close() int {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0
	}
	q.closed = true
	rest := q.buf[q.head:]
	q.buf = nil
	q.head = 0
	q.mu.Unlock()

	for _, cmd := range rest {
		if cmd.Run != nil {
			slogger().Warn("cmdqueue: dropping command on close", "command", cmd.String())
			q.dropped.Add(1)
		}
		if cmd.done != nil {
			close(cmd.done)
		}
	}
	q.signal()
	return len(rest)
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Pushed:   q.pushed.Load(),
		Executed: q.executed.Load(),
		Failed:   q.failed.Load(),
		Dropped:  q.dropped.Load(),
	}
}

func (q *Queue) pop() (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == len(q.buf) {
		return Command{}, false
	}
	cmd := q.buf[q.head]
	q.buf[q.head] = Command{}
	q.head++
	if q.head == len(q.buf) {
		q.buf = q.buf[:0]
		q.head = 0
	}
	return cmd, true
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// execute runs one command. A panic inside Run is recovered so that the
// remaining commands still execute.
//
// The done channel of a command run inside another command is held until the
// outermost one returns: a waiter must not see its command complete while a
// command queued before it is still running.
func (q *Queue) execute(cmd Command) {
	q.depth++
	defer func() {
		q.depth--
		if cmd.done != nil {
			q.held = append(q.held, cmd.done)
		}
		if q.depth == 0 {
			for _, done := range q.held {
				close(done)
			}
			q.held = q.held[:0]
		}
	}()
	if cmd.Run == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			q.failed.Add(1)
			slogger().Warn("cmdqueue: command panicked", "command", cmd.String(), "panic", r)
		}
	}()
	cmd.Run()
	q.executed.Add(1)
}
