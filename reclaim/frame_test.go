package reclaim_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/arsenal/bindless"
	"github.com/vkngwrapper/arsenal/bindless/reclaim"
)

func TestFrameStrategyNoPrematureReuse(t *testing.T) {
	backend := newTestBackend()
	strategy := reclaim.NewFrameStrategy(nil, backend.allocate, backend.free)

	h1, err := strategy.Allocate(testDomain)
	require.NoError(t, err)
	require.Equal(t, bindless.SlotIndex(0), h1.Index())
	require.Equal(t, bindless.Generation(0), h1.Generation())
	require.True(t, strategy.IsHandleCurrent(h1))

	strategy.Release(testDomain, h1)

	// The slot must not come back before a frame boundary
	h2, err := strategy.Allocate(testDomain)
	require.NoError(t, err)
	require.NotEqual(t, h1.Index(), h2.Index())
	require.Equal(t, 0, backend.totalFrees())

	strategy.OnBeginFrame(0)
	require.Equal(t, 1, backend.totalFrees())

	// Reuse comes back with the generation bumped
	h3, err := strategy.Allocate(testDomain)
	require.NoError(t, err)
	require.Equal(t, h1.Index(), h3.Index())
	require.Equal(t, h1.Generation()+1, h3.Generation())
	require.True(t, strategy.IsHandleCurrent(h3))
	require.False(t, strategy.IsHandleCurrent(h1))
}

func TestFrameStrategyIdempotentRelease(t *testing.T) {
	backend := newTestBackend()
	strategy := reclaim.NewFrameStrategy(nil, backend.allocate, backend.free)

	handle, err := strategy.Allocate(testDomain)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		strategy.Release(testDomain, handle)
	}
	require.Equal(t, 1, strategy.PendingCount())

	strategy.OnBeginFrame(0)
	require.Equal(t, 1, backend.totalFrees())
	require.Equal(t, 1, backend.freesOf(handle.Index()))
}

func TestFrameStrategyConcurrentReleaseSameHandle(t *testing.T) {
	backend := newTestBackend()
	strategy := reclaim.NewFrameStrategy(nil, backend.allocate, backend.free)

	handle, err := strategy.Allocate(testDomain)
	require.NoError(t, err)

	const contenders = 16
	var start sync.WaitGroup
	var done sync.WaitGroup
	start.Add(1)
	done.Add(contenders)

	for i := 0; i < contenders; i++ {
		go func() {
			defer done.Done()
			start.Wait()
			strategy.Release(testDomain, handle)
		}()
	}

	start.Done()
	done.Wait()

	require.Equal(t, 1, strategy.PendingCount())
	strategy.OnBeginFrame(0)
	require.Equal(t, 1, backend.totalFrees())
}

func TestFrameStrategyInvalidHandleNoOps(t *testing.T) {
	backend := newTestBackend()
	strategy := reclaim.NewFrameStrategy(nil, backend.allocate, backend.free)

	strategy.Release(testDomain, bindless.VersionedHandle{})
	require.Equal(t, 0, strategy.PendingCount())
	require.False(t, strategy.IsHandleCurrent(bindless.VersionedHandle{}))

	strategy.OnBeginFrame(0)
	require.Equal(t, 0, backend.totalFrees())
}

func TestFrameStrategyStaleHandleNotCurrent(t *testing.T) {
	backend := newTestBackend()
	strategy := reclaim.NewFrameStrategy(nil, backend.allocate, backend.free)

	// A handle for an index this strategy has never seen is not current
	foreign := bindless.NewVersionedHandle(12345, 0)
	require.False(t, strategy.IsHandleCurrent(foreign))
}

func TestFrameStrategyEmptyFrameBoundary(t *testing.T) {
	backend := newTestBackend()
	strategy := reclaim.NewFrameStrategy(nil, backend.allocate, backend.free)

	// Frame boundaries with nothing pending are cheap no-ops
	strategy.OnBeginFrame(0)
	strategy.OnBeginFrame(1)
	require.Equal(t, 0, backend.totalFrees())
}

func TestFrameStrategyStress(t *testing.T) {
	backend := newTestBackend()
	strategy := reclaim.NewFrameStrategy(nil, backend.allocate, backend.free)

	const workers = 8
	const cycles = 500

	var wg sync.WaitGroup
	wg.Add(workers)

	stop := make(chan struct{})
	frameDone := make(chan struct{})
	go func() {
		defer close(frameDone)
		frameSlot := uint32(0)
		for {
			select {
			case <-stop:
				return
			default:
				strategy.OnBeginFrame(frameSlot)
				frameSlot++
			}
		}
	}()

	for worker := 0; worker < workers; worker++ {
		go func() {
			defer wg.Done()
			for i := 0; i < cycles; i++ {
				handle, err := strategy.Allocate(testDomain)
				if err != nil {
					continue
				}
				strategy.Release(testDomain, handle)
			}
		}()
	}

	wg.Wait()
	close(stop)
	<-frameDone

	// A final boundary drains everything that was still deferred
	strategy.OnBeginFrame(0)

	require.Equal(t, workers*cycles, backend.totalFrees())
	require.Equal(t, 0, strategy.PendingCount())
}
