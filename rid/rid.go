// Package rid provides opaque resource identifiers and the generic storage
// that collaborators use to own the resources behind them.
//
// A RID carries no payload. It is issued by Next, which is safe for
// concurrent use and never hands out the same value twice in a process.
// Storages keep RIDs in an Owner, which separates the cheap allocate step
// (reserve a RID) from the potentially slow initialize step (attach the
// resource data). This split is what lets the rendering server return a
// handle to a caller before the resource behind it exists.
package rid

import (
	"strconv"
	"sync/atomic"
)

// RID is an opaque resource identifier. Equality is identity.
type RID uint64

// Invalid is the zero RID. Next never returns it.
const Invalid RID = 0

// IsValid reports whether r is not the zero RID.
func (r RID) IsValid() bool {
	return r != Invalid
}

// String returns a debug representation such as "RID(42)".
func (r RID) String() string {
	return "RID(" + strconv.FormatUint(uint64(r), 10) + ")"
}

var counter atomic.Uint64

// Next returns a new, process-wide unique RID.
func Next() RID {
	return RID(counter.Add(1))
}
