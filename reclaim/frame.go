package reclaim

import (
	"context"
	"sync"

	"log/slog"

	"github.com/vkngwrapper/arsenal/bindless"
)

// FrameStrategy defers slot reuse across a frame boundary: a released slot is
// not handed back to the backend until the next OnBeginFrame call, which
// models the GPU pipeline latency without an explicit fence. Use
// TimelineStrategy when precise per-queue completion values are available.
//
// All methods are safe to call from arbitrary goroutines and never block on
// GPU work.
type FrameStrategy struct {
	strategyCore

	mutex    sync.Mutex
	deferred []pendingFree
}

// NewFrameStrategy builds a FrameStrategy over the injected backend. The
// logger may be nil, in which case slog.Default() is used.
func NewFrameStrategy(logger *slog.Logger, allocate bindless.AllocateFunc, free bindless.FreeFunc) *FrameStrategy {
	return &FrameStrategy{
		strategyCore: newStrategyCore(logger, allocate, free),
	}
}

// Allocate calls the allocate backend for the domain and stamps the returned
// index with its current generation. It never blocks.
func (s *FrameStrategy) Allocate(domain bindless.DomainKey) (bindless.VersionedHandle, error) {
	return s.allocateHandle(domain)
}

// Release queues the handle's slot for reclamation at the next frame
// boundary. Invalid handles and handles already pending release, including
// from another goroutine racing on the same handle, are silently ignored.
func (s *FrameStrategy) Release(domain bindless.DomainKey, handle bindless.VersionedHandle) {
	if !handle.IsValid() {
		return
	}

	if !s.pending.TryMarkPending(handle.Index()) {
		return
	}

	s.mutex.Lock()
	s.deferred = append(s.deferred, pendingFree{domain: domain, index: handle.Index()})
	s.mutex.Unlock()
}

// OnBeginFrame promotes every release recorded before this frame boundary to
// reclaimable: the generation is bumped, the pending flag cleared, and the
// backend free invoked, at which point the backend may recycle the index.
// The external frame-lifecycle owner must invoke this once per frame;
// frameSlot is an opaque identifier used only for logging.
func (s *FrameStrategy) OnBeginFrame(frameSlot uint32) {
	s.mutex.Lock()
	ready := s.deferred
	s.deferred = nil
	s.mutex.Unlock()

	if len(ready) == 0 {
		return
	}

	for _, entry := range ready {
		s.reclaim(entry)
	}

	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "FrameStrategy::OnBeginFrame reclaimed deferred slots",
		slog.Uint64("frameSlot", uint64(frameSlot)),
		slog.Int("count", len(ready)))
}

// IsHandleCurrent reports whether the handle still refers to the live
// allocation of its slot. Invalid handles are never current.
func (s *FrameStrategy) IsHandleCurrent(handle bindless.VersionedHandle) bool {
	return s.isHandleCurrent(handle)
}

// PendingCount returns the number of releases waiting on the next frame
// boundary. Diagnostic use only.
func (s *FrameStrategy) PendingCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.deferred)
}
