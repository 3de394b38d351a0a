package reclaim

import (
	"context"
	"sync"

	"log/slog"

	"github.com/vkngwrapper/arsenal/bindless"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Timeline is an external execution timeline, such as a GPU queue fence,
// exposing a monotonically increasing completed value. Implementations must
// be comparable (pointer types are), since the strategy keys per-timeline
// state on the timeline's identity.
//
// A timeline whose lifetime can end before the strategy's may additionally
// implement Alive() bool; Process prunes dead timelines and drops their
// pending buckets on the next sweep.
type Timeline interface {
	// CompletedValue returns the timeline's current completed value. It must
	// never decrease.
	CompletedValue() uint64
}

// BatchRelease is one (domain, handle) pair for TimelineStrategy.ReleaseBatch.
type BatchRelease struct {
	Domain bindless.DomainKey
	Handle bindless.VersionedHandle
}

// timelineQueue holds the pending buckets for one timeline: entries grouped
// by the completed value they wait for, with the keys kept sorted so that a
// sweep is a prefix removal rather than a full scan.
type timelineQueue struct {
	mutex   sync.Mutex
	targets []uint64
	buckets map[uint64][]pendingFree

	stall stallMonitor
}

func (q *timelineQueue) push(target uint64, entries ...pendingFree) {
	position, found := slices.BinarySearch(q.targets, target)
	if !found {
		q.targets = slices.Insert(q.targets, position, target)
	}
	q.buckets[target] = append(q.buckets[target], entries...)
}

// takeCompleted removes every bucket whose target is <= completed and
// returns the collected entries.
func (q *timelineQueue) takeCompleted(completed uint64) []pendingFree {
	cut, _ := slices.BinarySearchFunc(q.targets, completed, func(target, completed uint64) int {
		if target <= completed {
			return -1
		}
		return 1
	})
	if cut == 0 {
		return nil
	}

	var ready []pendingFree
	for _, target := range q.targets[:cut] {
		ready = append(ready, q.buckets[target]...)
		delete(q.buckets, target)
	}
	q.targets = slices.Delete(q.targets, 0, cut)

	return ready
}

func (q *timelineQueue) pendingCount() int {
	count := 0
	for _, bucket := range q.buckets {
		count += len(bucket)
	}
	return count
}

// TimelineStrategy defers slot reuse until a caller-supplied completion
// counter on an external timeline reaches a caller-supplied target value. It
// supports many independent timelines concurrently, with one lock per
// timeline so that releases on different queues do not contend.
//
// Completion is polled, never awaited: the owner is expected to call Process
// periodically, typically once per frame.
type TimelineStrategy struct {
	strategyCore

	registryMutex sync.Mutex
	queues        map[Timeline]*timelineQueue
}

// NewTimelineStrategy builds a TimelineStrategy over the injected backend.
// The logger may be nil, in which case slog.Default() is used.
func NewTimelineStrategy(logger *slog.Logger, allocate bindless.AllocateFunc, free bindless.FreeFunc) *TimelineStrategy {
	return &TimelineStrategy{
		strategyCore: newStrategyCore(logger, allocate, free),
		queues:       make(map[Timeline]*timelineQueue),
	}
}

// Allocate calls the allocate backend for the domain and stamps the returned
// index with its current generation. It never blocks.
func (s *TimelineStrategy) Allocate(domain bindless.DomainKey) (bindless.VersionedHandle, error) {
	return s.allocateHandle(domain)
}

// Release queues the handle's slot for reclamation once timeline's completed
// value reaches target. Invalid handles and handles already pending release
// are silently ignored; of any number of goroutines racing to release the
// same handle, exactly one enqueues. A nil timeline is a caller error: the
// release is dropped and logged, since there is nothing to gate on.
func (s *TimelineStrategy) Release(domain bindless.DomainKey, handle bindless.VersionedHandle, timeline Timeline, target uint64) {
	if !handle.IsValid() {
		return
	}

	if timeline == nil {
		s.logger.LogAttrs(context.Background(), slog.LevelError, "TimelineStrategy::Release dropped a release with no timeline",
			slog.String("domain", domain.String()),
			slog.Uint64("index", uint64(handle.Index())))
		return
	}

	if !s.pending.TryMarkPending(handle.Index()) {
		return
	}

	queue := s.queueFor(timeline)
	queue.mutex.Lock()
	queue.push(target, pendingFree{domain: domain, index: handle.Index()})
	queue.mutex.Unlock()
}

// ReleaseBatch is equivalent to calling Release for each item, but takes the
// timeline lock once for the whole batch, which matters for bulk end-of-frame
// teardown. Items that fail the pending-guard race are silently skipped.
func (s *TimelineStrategy) ReleaseBatch(timeline Timeline, target uint64, items []BatchRelease) {
	if timeline == nil {
		s.logger.LogAttrs(context.Background(), slog.LevelError, "TimelineStrategy::ReleaseBatch dropped a batch with no timeline",
			slog.Int("count", len(items)))
		return
	}

	var winners []pendingFree
	for _, item := range items {
		if !item.Handle.IsValid() {
			continue
		}
		if !s.pending.TryMarkPending(item.Handle.Index()) {
			continue
		}
		winners = append(winners, pendingFree{domain: item.Domain, index: item.Handle.Index()})
	}

	if len(winners) == 0 {
		return
	}

	queue := s.queueFor(timeline)
	queue.mutex.Lock()
	queue.push(target, winners...)
	queue.mutex.Unlock()
}

func (s *TimelineStrategy) queueFor(timeline Timeline) *timelineQueue {
	s.registryMutex.Lock()
	defer s.registryMutex.Unlock()

	queue, ok := s.queues[timeline]
	if !ok {
		queue = &timelineQueue{
			buckets: make(map[uint64][]pendingFree),
		}
		s.queues[timeline] = queue
	}

	return queue
}

// ProcessFor reads timeline's current completed value and reclaims every
// pending entry whose target it has reached. The backend free calls happen
// outside the timeline lock, and each entry's generation is bumped before
// its slot is freed, so a handle comparison racing with the free never sees
// a stale match.
func (s *TimelineStrategy) ProcessFor(timeline Timeline) {
	if timeline == nil {
		return
	}

	s.registryMutex.Lock()
	queue, ok := s.queues[timeline]
	s.registryMutex.Unlock()
	if !ok {
		return
	}

	completed := timeline.CompletedValue()

	queue.mutex.Lock()
	ready := queue.takeCompleted(completed)
	queue.stall.observe(s.logger, timeline, completed, len(queue.targets))
	queue.mutex.Unlock()

	if len(ready) == 0 {
		return
	}

	for _, entry := range ready {
		s.reclaim(entry)
	}

	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "TimelineStrategy::ProcessFor reclaimed completed slots",
		slog.Uint64("completed", completed),
		slog.Int("count", len(ready)))
}

// Process sweeps every known timeline, pruning timelines that report
// themselves dead via Alive() first. A pruned timeline's buckets are dropped
// with it. Intended to be invoked periodically by the owner.
func (s *TimelineStrategy) Process() {
	s.registryMutex.Lock()
	for timeline, queue := range s.queues {
		liveness, ok := timeline.(interface{ Alive() bool })
		if !ok || liveness.Alive() {
			continue
		}

		queue.mutex.Lock()
		dropped := queue.pendingCount()
		queue.mutex.Unlock()
		if dropped > 0 {
			s.logger.LogAttrs(context.Background(), slog.LevelWarn, "TimelineStrategy::Process dropped buckets of a dead timeline",
				slog.Int("count", dropped))
		}
		delete(s.queues, timeline)
	}
	timelines := maps.Keys(s.queues)
	s.registryMutex.Unlock()

	for _, timeline := range timelines {
		s.ProcessFor(timeline)
	}
}

// IsHandleCurrent reports whether the handle still refers to the live
// allocation of its slot. Invalid handles are never current.
func (s *TimelineStrategy) IsHandleCurrent(handle bindless.VersionedHandle) bool {
	return s.isHandleCurrent(handle)
}

// PendingCount returns the number of entries waiting on the provided
// timeline. Diagnostic use only.
func (s *TimelineStrategy) PendingCount(timeline Timeline) int {
	s.registryMutex.Lock()
	queue, ok := s.queues[timeline]
	s.registryMutex.Unlock()
	if !ok {
		return 0
	}

	queue.mutex.Lock()
	defer queue.mutex.Unlock()

	return queue.pendingCount()
}
