package segmented

import (
	"fmt"

	"github.com/vkngwrapper/arsenal/bindless"
)

// segment is one fixed-capacity run of slot indices within a domain. Segments
// are append-only: they are never resized or removed, so indices handed out
// from a segment stay valid for the allocator's lifetime.
type segment struct {
	baseIndex bindless.SlotIndex
	capacity  uint32

	allocatedCount uint32
	// nextUnused is the lowest position that has never been handed out
	nextUnused uint32
	// freePositions holds recycled positions, reused LIFO
	freePositions []uint32
	// liveBitmap tracks which positions are currently allocated, one bit per
	// position, so a double release trips an invariant check instead of
	// corrupting the counts
	liveBitmap []uint64
}

func newSegment(baseIndex bindless.SlotIndex, capacity uint32) *segment {
	return &segment{
		baseIndex:  baseIndex,
		capacity:   capacity,
		liveBitmap: make([]uint64, (capacity+63)/64),
	}
}

func (s *segment) end() bindless.SlotIndex {
	return s.baseIndex + bindless.SlotIndex(s.capacity)
}

func (s *segment) contains(index bindless.SlotIndex) bool {
	return index >= s.baseIndex && index < s.end()
}

func (s *segment) isFull() bool {
	return s.allocatedCount == s.capacity
}

func (s *segment) remaining() uint32 {
	return s.capacity - s.allocatedCount
}

// allocate hands out a free position, preferring recycled positions over
// never-used ones. Returns false if the segment is full.
func (s *segment) allocate() (bindless.SlotIndex, bool) {
	var position uint32
	switch {
	case len(s.freePositions) > 0:
		position = s.freePositions[len(s.freePositions)-1]
		s.freePositions = s.freePositions[:len(s.freePositions)-1]
	case s.nextUnused < s.capacity:
		position = s.nextUnused
		s.nextUnused++
	default:
		return bindless.InvalidSlotIndex, false
	}

	s.markLive(position)
	s.allocatedCount++
	return s.baseIndex + bindless.SlotIndex(position), true
}

// release returns a previously allocated index to the segment's free set.
// The index must be owned by this segment.
func (s *segment) release(index bindless.SlotIndex) {
	position := uint32(index - s.baseIndex)
	s.markFree(position)

	s.freePositions = append(s.freePositions, position)
	s.allocatedCount--
}

func (s *segment) isLive(position uint32) bool {
	return s.liveBitmap[position/64]&(uint64(1)<<(position%64)) != 0
}

func (s *segment) markLive(position uint32) {
	if s.isLive(position) {
		panic(fmt.Sprintf("position %d in the segment based at %d was handed out while still live", position, s.baseIndex))
	}
	s.liveBitmap[position/64] |= uint64(1) << (position % 64)
}

func (s *segment) markFree(position uint32) {
	if !s.isLive(position) {
		panic(fmt.Sprintf("position %d in the segment based at %d was released while not live", position, s.baseIndex))
	}
	s.liveBitmap[position/64] &^= uint64(1) << (position % 64)
}
