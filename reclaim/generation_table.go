package reclaim

import (
	"github.com/vkngwrapper/arsenal/bindless"
	"github.com/vkngwrapper/arsenal/bindless/internal/stable"
)

// GenerationTable maps slot indices to generation counters so that a handle
// referring to a since-recycled slot can be detected cheaply. The table only
// grows, never shrinks: growth appends storage under a lock while loads and
// bumps on already-covered indices stay lock-free.
type GenerationTable struct {
	entries stable.Uint64Array
}

// NewGenerationTable builds a table with room for at least initialCapacity
// indices, all at generation 0.
func NewGenerationTable(initialCapacity int) *GenerationTable {
	table := &GenerationTable{}
	table.entries.Grow(initialCapacity)
	return table
}

// Capacity returns the number of indices the table currently covers.
func (t *GenerationTable) Capacity() int {
	return t.entries.Len()
}

// Load returns the current generation for index. The index must be covered:
// callers are required to call EnsureCapacity on all code paths that may see
// a new index before loading it.
func (t *GenerationTable) Load(index bindless.SlotIndex) bindless.Generation {
	return bindless.Generation(t.entries.Load(int(index)))
}

// Bump increments the generation at index by exactly 1 and returns the new
// generation. It must be called exactly once per reclamation of the index,
// never on allocation.
func (t *GenerationTable) Bump(index bindless.SlotIndex) bindless.Generation {
	return bindless.Generation(t.entries.Add(int(index), 1))
}

// EnsureCapacity grows the table to cover index, initializing new entries to
// generation 0. Safe to call concurrently with Load and Bump on
// already-covered indices.
func (t *GenerationTable) EnsureCapacity(index bindless.SlotIndex) {
	t.entries.Grow(int(index) + 1)
}
