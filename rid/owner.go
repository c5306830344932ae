package rid

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Owner errors.
var (
	// ErrNotAllocated is returned when a RID was never allocated by the owner
	// or has already been freed.
	ErrNotAllocated = errors.New("rid: not allocated by this owner")

	// ErrAlreadyInitialized is returned when Initialize is called twice for
	// the same RID.
	ErrAlreadyInitialized = errors.New("rid: already initialized")
)

type slot[T any] struct {
	value       T
	initialized bool
}

// Owner stores resources of one kind keyed by RID.
//
// Allocate reserves a RID without data; Initialize attaches the data later.
// Get, View and Update only see initialized resources, so an operation that
// reaches a resource before its initialize step observes "not found" rather
// than a zero value.
//
// Owner is safe for concurrent use. Storages mutate their resources through
// Update so that direct queries from other goroutines never race with the
// render thread.
type Owner[T any] struct {
	name  string
	mu    sync.RWMutex
	slots map[RID]*slot[T]
}

// NewOwner creates an empty owner. The name is used in error messages.
func NewOwner[T any](name string) *Owner[T] {
	return &Owner[T]{
		name:  name,
		slots: make(map[RID]*slot[T]),
	}
}

// Name returns the owner's name.
func (o *Owner[T]) Name() string {
	return o.name
}

// Allocate reserves a new RID owned by o.
func (o *Owner[T]) Allocate() RID {
	r := Next()
	o.mu.Lock()
	o.slots[r] = &slot[T]{}
	o.mu.Unlock()
	return r
}

// Initialize attaches v to a previously allocated RID.
func (o *Owner[T]) Initialize(r RID, v T) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.slots[r]
	if !ok {
		return fmt.Errorf("%s %v: %w", o.name, r, ErrNotAllocated)
	}
	if s.initialized {
		return fmt.Errorf("%s %v: %w", o.name, r, ErrAlreadyInitialized)
	}
	s.value = v
	s.initialized = true
	return nil
}

// Owns reports whether r was allocated by o and not yet freed.
// Uninitialized RIDs are owned.
func (o *Owner[T]) Owns(r RID) bool {
	o.mu.RLock()
	_, ok := o.slots[r]
	o.mu.RUnlock()
	return ok
}

// Get returns the resource for r if it is initialized.
func (o *Owner[T]) Get(r RID) (T, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	s, ok := o.slots[r]
	if !ok || !s.initialized {
		var zero T
		return zero, false
	}
	return s.value, true
}

// View calls fn with the resource for r under the read lock.
// It returns false without calling fn if r is not initialized.
func (o *Owner[T]) View(r RID, fn func(T)) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	s, ok := o.slots[r]
	if !ok || !s.initialized {
		return false
	}
	fn(s.value)
	return true
}

// Update calls fn with a pointer to the resource for r under the write lock.
// It returns false without calling fn if r is not initialized.
func (o *Owner[T]) Update(r RID, fn func(*T)) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.slots[r]
	if !ok || !s.initialized {
		return false
	}
	fn(&s.value)
	return true
}

// Free releases r. It returns false if r is not owned by o.
func (o *Owner[T]) Free(r RID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.slots[r]; !ok {
		return false
	}
	delete(o.slots, r)
	return true
}

// Len returns the number of owned RIDs, initialized or not.
func (o *Owner[T]) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.slots)
}

// RIDs returns the initialized RIDs in ascending (allocation) order.
func (o *Owner[T]) RIDs() []RID {
	o.mu.RLock()
	out := make([]RID, 0, len(o.slots))
	for r, s := range o.slots {
		if s.initialized {
			out = append(out, r)
		}
	}
	o.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Range calls fn for every initialized resource in allocation order until fn
// returns false. The read lock is held for the whole iteration, so fn must
// not call back into o with Update or Free.
func (o *Owner[T]) Range(fn func(RID, T) bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	keys := make([]RID, 0, len(o.slots))
	for r, s := range o.slots {
		if s.initialized {
			keys = append(keys, r)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, r := range keys {
		if !fn(r, o.slots[r].value) {
			return
		}
	}
}
