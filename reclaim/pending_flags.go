package reclaim

import (
	"github.com/vkngwrapper/arsenal/bindless"
	"github.com/vkngwrapper/arsenal/bindless/internal/stable"
)

const (
	flagNotPending uint64 = 0
	flagPending    uint64 = 1
)

// PendingFlags makes "is this index already queued for release" a single
// atomic decision: of any number of goroutines racing to release the same
// handle, exactly one wins the 0 to 1 transition and owns the deferred free.
type PendingFlags struct {
	flags stable.Uint64Array
}

// NewPendingFlags builds a flag set with room for at least initialCapacity
// indices, all clear.
func NewPendingFlags(initialCapacity int) *PendingFlags {
	flags := &PendingFlags{}
	flags.flags.Grow(initialCapacity)
	return flags
}

// TryMarkPending attempts the 0 to 1 transition for index and returns true
// iff this call performed it, i.e. the caller owns this release cycle. The
// flag set grows as needed before the atomic attempt.
func (f *PendingFlags) TryMarkPending(index bindless.SlotIndex) bool {
	f.EnsureCapacity(index)
	return f.flags.CompareAndSwap(int(index), flagNotPending, flagPending)
}

// ClearPending sets the flag at index back to 0. Only the code path that
// actually performs the deferred free may call this.
func (f *PendingFlags) ClearPending(index bindless.SlotIndex) {
	f.flags.Store(int(index), flagNotPending)
}

// IsPending reports whether index is currently queued for release. Indices
// beyond the flag set's capacity have never been marked and report false.
func (f *PendingFlags) IsPending(index bindless.SlotIndex) bool {
	if int(index) >= f.flags.Len() {
		return false
	}
	return f.flags.Load(int(index)) == flagPending
}

// EnsureCapacity grows the flag set to cover index, preserving existing flag
// values. Safe to call concurrently with flag operations on already-covered
// indices.
func (f *PendingFlags) EnsureCapacity(index bindless.SlotIndex) {
	f.flags.Grow(int(index) + 1)
}
