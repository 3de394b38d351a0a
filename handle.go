package bindless

import (
	"fmt"
	"math"
)

// SlotIndex identifies a position in a GPU-visible descriptor table. Slot
// indices are stable and non-overlapping for as long as they are live;
// consumers pass them to shaders as root/push constants.
type SlotIndex uint32

// InvalidSlotIndex is the reserved sentinel value denoting "no slot".
const InvalidSlotIndex SlotIndex = math.MaxUint32

// MaxSlotIndex is the largest index that can actually be handed out.
// InvalidSlotIndex is reserved and never allocatable.
const MaxSlotIndex SlotIndex = math.MaxUint32 - 1

// Generation counts how many times a slot index has been reclaimed. It starts
// at 0 for every index and is incremented by exactly 1 per reclamation, never
// on allocation. Wrapping is assumed not to occur in practice.
type Generation uint64

// VersionedHandle pairs a slot index with the generation it was allocated at.
// Two handles refer to the same live allocation iff both the index and the
// generation match the tracker's current state for that index.
//
// The zero value is invalid and is never current. Handles should be treated
// as an opaque pair of integers; consumers must not assume any further
// structure.
type VersionedHandle struct {
	// index is stored offset by one so that the zero value of VersionedHandle
	// is invalid.
	index      uint32
	generation Generation
}

// NewVersionedHandle builds a handle for the provided index and generation.
// Passing InvalidSlotIndex produces an invalid handle.
func NewVersionedHandle(index SlotIndex, generation Generation) VersionedHandle {
	if index == InvalidSlotIndex {
		return VersionedHandle{}
	}
	return VersionedHandle{
		index:      uint32(index) + 1,
		generation: generation,
	}
}

// IsValid returns false for the zero value and for handles built from
// InvalidSlotIndex.
func (h VersionedHandle) IsValid() bool {
	return h.index != 0
}

// Index returns the slot index this handle refers to, or InvalidSlotIndex for
// an invalid handle.
func (h VersionedHandle) Index() SlotIndex {
	if h.index == 0 {
		return InvalidSlotIndex
	}
	return SlotIndex(h.index - 1)
}

// Generation returns the generation this handle was stamped with.
func (h VersionedHandle) Generation() Generation {
	return h.generation
}

func (h VersionedHandle) String() string {
	if !h.IsValid() {
		return "VersionedHandle{invalid}"
	}
	return fmt.Sprintf("VersionedHandle{index: %d, generation: %d}", h.Index(), h.generation)
}
