package stable_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/arsenal/bindless/internal/stable"
)

func TestArrayGrowPreservesEntries(t *testing.T) {
	var array stable.Uint64Array
	array.Grow(10)
	require.Equal(t, stable.ChunkSize, array.Len())

	array.Store(0, 17)
	array.Store(5, 23)

	// Force several additional chunks
	array.Grow(stable.ChunkSize*4 + 1)
	require.Equal(t, stable.ChunkSize*5, array.Len())

	require.Equal(t, uint64(17), array.Load(0))
	require.Equal(t, uint64(23), array.Load(5))
	require.Equal(t, uint64(0), array.Load(stable.ChunkSize*4))

	array.Store(stable.ChunkSize*4, 99)
	require.Equal(t, uint64(99), array.Load(stable.ChunkSize*4))
}

func TestArrayCompareAndSwap(t *testing.T) {
	var array stable.Uint64Array
	array.Grow(1)

	require.True(t, array.CompareAndSwap(0, 0, 1))
	require.False(t, array.CompareAndSwap(0, 0, 1))
	require.Equal(t, uint64(1), array.Load(0))

	require.Equal(t, uint64(2), array.Add(0, 1))
}

func TestArrayOutOfRangePanics(t *testing.T) {
	var array stable.Uint64Array
	require.Panics(t, func() { array.Load(0) })

	array.Grow(1)
	require.Panics(t, func() { array.Load(stable.ChunkSize) })
}

func TestArrayConcurrentGrowAndAccess(t *testing.T) {
	var array stable.Uint64Array
	array.Grow(stable.ChunkSize)

	for i := 0; i < stable.ChunkSize; i++ {
		array.Store(i, uint64(i))
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for capacity := stable.ChunkSize * 2; capacity <= stable.ChunkSize*32; capacity += stable.ChunkSize {
			array.Grow(capacity)
		}
	}()

	go func() {
		defer wg.Done()
		for iteration := 0; iteration < 100; iteration++ {
			for i := 0; i < stable.ChunkSize; i++ {
				array.Add(i, 1)
			}
		}
	}()

	wg.Wait()

	require.Equal(t, stable.ChunkSize*32, array.Len())
	for i := 0; i < stable.ChunkSize; i++ {
		require.Equal(t, uint64(i)+100, array.Load(i))
	}
}
