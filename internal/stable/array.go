package stable

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ChunkSize is the number of entries per storage chunk. Chunks are never
// moved or freed once published, so entries below a previously observed
// capacity stay addressable for the array's lifetime.
const ChunkSize = 1024

type chunk [ChunkSize]atomic.Uint64

// Uint64Array is a growable array of atomic uint64 values. Loads, stores and
// read-modify-write operations on in-capacity entries are lock-free; growth
// appends chunks under a mutex and never disturbs already-published entries.
// New entries are zero-initialized.
//
// Operations on entries at or beyond the current capacity panic. Callers
// must Grow first on all such code paths.
type Uint64Array struct {
	chunks   atomic.Pointer[[]*chunk]
	growLock sync.Mutex
}

// Len returns the current capacity in entries.
func (a *Uint64Array) Len() int {
	chunks := a.chunks.Load()
	if chunks == nil {
		return 0
	}
	return len(*chunks) * ChunkSize
}

// Grow extends the array to hold at least capacity entries. It is safe to
// call concurrently with entry operations on already-covered indices.
func (a *Uint64Array) Grow(capacity int) {
	if capacity <= a.Len() {
		return
	}

	a.growLock.Lock()
	defer a.growLock.Unlock()

	chunkCount := 0
	old := a.chunks.Load()
	if old != nil {
		chunkCount = len(*old)
	}

	wantChunks := (capacity + ChunkSize - 1) / ChunkSize
	if wantChunks <= chunkCount {
		return
	}

	next := make([]*chunk, wantChunks)
	if old != nil {
		copy(next, *old)
	}
	for i := chunkCount; i < wantChunks; i++ {
		next[i] = &chunk{}
	}

	a.chunks.Store(&next)
}

func (a *Uint64Array) entry(index int) *atomic.Uint64 {
	chunks := a.chunks.Load()
	if chunks == nil || index < 0 || index >= len(*chunks)*ChunkSize {
		panic(fmt.Sprintf("entry index %d is beyond the array's capacity %d", index, a.Len()))
	}

	return &(*chunks)[index/ChunkSize][index%ChunkSize]
}

func (a *Uint64Array) Load(index int) uint64 {
	return a.entry(index).Load()
}

func (a *Uint64Array) Store(index int, value uint64) {
	a.entry(index).Store(value)
}

// Add atomically adds delta to the entry at index and returns the new value.
func (a *Uint64Array) Add(index int, delta uint64) uint64 {
	return a.entry(index).Add(delta)
}

// CompareAndSwap atomically replaces the entry at index with new if it
// currently holds old, returning whether the swap was performed.
func (a *Uint64Array) CompareAndSwap(index int, old, new uint64) bool {
	return a.entry(index).CompareAndSwap(old, new)
}
