package reclaim_test

import (
	"sync"

	"github.com/vkngwrapper/arsenal/bindless"
)

// testBackend is a minimal allocate/free backend with a LIFO free list, in
// place of a real segmented allocator.
type testBackend struct {
	mutex     sync.Mutex
	next      bindless.SlotIndex
	freeList  []bindless.SlotIndex
	freeCount map[bindless.SlotIndex]int
	frees     int
}

func newTestBackend() *testBackend {
	return &testBackend{
		freeCount: make(map[bindless.SlotIndex]int),
	}
}

func (b *testBackend) allocate(_ bindless.DomainKey) (bindless.SlotIndex, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if count := len(b.freeList); count > 0 {
		index := b.freeList[count-1]
		b.freeList = b.freeList[:count-1]
		return index, nil
	}

	index := b.next
	b.next++
	return index, nil
}

func (b *testBackend) free(_ bindless.DomainKey, index bindless.SlotIndex) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.frees++
	b.freeCount[index]++
	b.freeList = append(b.freeList, index)
}

func (b *testBackend) totalFrees() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.frees
}

func (b *testBackend) freesOf(index bindless.SlotIndex) int {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.freeCount[index]
}

var testDomain = bindless.DomainKey{
	ViewType:   bindless.ViewTypeTexture,
	Visibility: bindless.VisibilityShaderVisible,
}
