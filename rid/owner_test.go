package rid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextUnique(t *testing.T) {
	const goroutines, perGoroutine = 8, 500

	var mu sync.Mutex
	seen := make(map[RID]struct{}, goroutines*perGoroutine)

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]RID, 0, perGoroutine)
			for range perGoroutine {
				local = append(local, Next())
			}
			mu.Lock()
			for _, r := range local {
				seen[r] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine)
	_, hasInvalid := seen[Invalid]
	assert.False(t, hasInvalid)
}

func TestRIDString(t *testing.T) {
	assert.Equal(t, "RID(7)", RID(7).String())
	assert.False(t, Invalid.IsValid())
	assert.True(t, RID(1).IsValid())
}

func TestOwnerTwoPhase(t *testing.T) {
	o := NewOwner[int]("number")
	r := o.Allocate()

	assert.True(t, o.Owns(r))
	_, ok := o.Get(r)
	assert.False(t, ok, "uninitialized RID must not be visible")
	assert.False(t, o.Update(r, func(*int) {}))

	require.NoError(t, o.Initialize(r, 5))
	v, ok := o.Get(r)
	require.True(t, ok)
	assert.Equal(t, 5, v)

	assert.ErrorIs(t, o.Initialize(r, 6), ErrAlreadyInitialized)
	assert.ErrorIs(t, o.Initialize(Next(), 1), ErrNotAllocated)
}

func TestOwnerUpdateAndView(t *testing.T) {
	o := NewOwner[[]string]("list")
	r := o.Allocate()
	require.NoError(t, o.Initialize(r, nil))

	assert.True(t, o.Update(r, func(v *[]string) { *v = append(*v, "a", "b") }))

	var got []string
	assert.True(t, o.View(r, func(v []string) { got = v }))
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestOwnerFreeOnce(t *testing.T) {
	o := NewOwner[string]("name")
	r := o.Allocate()
	require.NoError(t, o.Initialize(r, "x"))

	assert.True(t, o.Free(r))
	assert.False(t, o.Free(r))
	assert.False(t, o.Owns(r))
	assert.Equal(t, 0, o.Len())
}

func TestOwnerRangeOrder(t *testing.T) {
	o := NewOwner[int]("order")
	var want []RID
	for i := range 5 {
		r := o.Allocate()
		require.NoError(t, o.Initialize(r, i))
		want = append(want, r)
	}
	// An allocated but uninitialized RID is skipped.
	o.Allocate()

	var got []RID
	o.Range(func(r RID, _ int) bool {
		got = append(got, r)
		return true
	})
	assert.Equal(t, want, got)
	assert.Equal(t, want, o.RIDs())
	assert.Equal(t, 6, o.Len())
}
