package segmented

import (
	"context"
	"fmt"
	"math"
	"sync"

	"log/slog"

	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/arsenal/bindless"
)

// CreateInfo is the configuration for a segmented index Allocator.
type CreateInfo struct {
	// Logger receives debug output and growth warnings. When nil,
	// slog.Default() is used.
	Logger *slog.Logger
	// Heaps maps each view type the allocator will serve to its heap policy.
	// Allocating for a view type with no entry here is a programming error
	// and panics.
	Heaps map[bindless.ResourceViewType]HeapDescription
}

// Allocator hands out unique slot indices per (view type, visibility) domain
// in O(1) amortized, appending fixed-capacity segments when a domain is
// exhausted and growth is permitted. Segment bases are assigned from a single
// allocator-wide cursor, so index ranges never overlap across domains and
// Release can resolve ownership by range containment alone.
//
// Every operation is serialized by a single mutex scoped to the allocator
// instance. Allocation and release are rare relative to descriptor use, so
// the coarse lock favors correctness over throughput.
type Allocator struct {
	logger       *slog.Logger
	descriptions map[bindless.ResourceViewType]HeapDescription

	mutex    sync.Mutex
	domains  *swiss.Map[bindless.DomainKey, *domainState]
	nextBase bindless.SlotIndex
}

type domainState struct {
	key         bindless.DomainKey
	desc        HeapDescription
	segments    []*segment
	growthCount int
}

// New builds an Allocator from the provided configuration. Every heap
// description is validated up front: a misconfigured description is a static
// configuration error and fails construction.
func New(info CreateInfo) (*Allocator, error) {
	logger := info.Logger
	if logger == nil {
		logger = slog.Default()
	}

	descriptions := make(map[bindless.ResourceViewType]HeapDescription, len(info.Heaps))
	for viewType, desc := range info.Heaps {
		if err := desc.Validate(); err != nil {
			return nil, cerrors.Wrapf(bindless.ErrUnknownDomain, "heap description for %s is invalid: %v", viewType, err)
		}
		descriptions[viewType] = desc
	}

	return &Allocator{
		logger:       logger,
		descriptions: descriptions,
		domains:      swiss.NewMap[bindless.DomainKey, *domainState](uint32(len(descriptions)*2 + 1)),
	}, nil
}

// Allocate hands out a free index in the requested domain. It returns
// bindless.ErrOutOfSpace when the domain's capacity and growth budget are
// exhausted, or when the domain's configured capacity is zero.
func (a *Allocator) Allocate(viewType bindless.ResourceViewType, visibility bindless.DescriptorVisibility) (bindless.SlotIndex, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	defer bindless.DebugValidate(unlockedValidation{allocator: a})

	domain := a.domainFor(bindless.DomainKey{ViewType: viewType, Visibility: visibility})

	if len(domain.segments) == 0 {
		capacity := domain.desc.CapacityFor(visibility)
		if capacity == 0 {
			return bindless.InvalidSlotIndex, cerrors.Wrapf(bindless.ErrOutOfSpace, "domain %s is configured with zero capacity", domain.key)
		}

		if _, err := a.appendSegment(domain, capacity); err != nil {
			return bindless.InvalidSlotIndex, err
		}
	}

	// First fit among non-full segments, lowest segment first, so a fixed
	// call sequence always produces the same indices
	for _, seg := range domain.segments {
		if seg.isFull() {
			continue
		}

		index, ok := seg.allocate()
		if !ok {
			panic(fmt.Sprintf("a non-full segment based at %d refused an allocation", seg.baseIndex))
		}
		return index, nil
	}

	if !domain.desc.AllowGrowth || domain.growthCount >= domain.desc.MaxGrowthIterations {
		return bindless.InvalidSlotIndex, cerrors.Wrapf(bindless.ErrOutOfSpace, "domain %s is full and cannot grow further", domain.key)
	}

	prev := domain.segments[len(domain.segments)-1]
	capacity, clamped := grownCapacity(prev.capacity, domain.desc.GrowthFactor)
	if clamped {
		a.logger.LogAttrs(context.Background(), slog.LevelWarn, "growth capacity clamped to the index type's maximum",
			slog.String("domain", domain.key.String()),
			slog.Uint64("previousCapacity", uint64(prev.capacity)))
	}
	if capacity == 0 {
		return bindless.InvalidSlotIndex, cerrors.Wrapf(bindless.ErrOutOfSpace, "domain %s computed a zero growth capacity", domain.key)
	}

	seg, err := a.appendSegment(domain, capacity)
	if err != nil {
		return bindless.InvalidSlotIndex, err
	}
	domain.growthCount++

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "Allocator::Allocate grew domain",
		slog.String("domain", domain.key.String()),
		slog.Uint64("capacity", uint64(seg.capacity)),
		slog.Int("growthCount", domain.growthCount))

	index, ok := seg.allocate()
	if !ok {
		panic(fmt.Sprintf("a freshly grown segment based at %d refused an allocation", seg.baseIndex))
	}
	return index, nil
}

func (a *Allocator) domainFor(key bindless.DomainKey) *domainState {
	domain, ok := a.domains.Get(key)
	if ok {
		return domain
	}

	desc, ok := a.descriptions[key.ViewType]
	if !ok {
		panic(fmt.Sprintf("no heap description is configured for view type %s: domain routing is static and must be configured at startup", key.ViewType))
	}

	domain = &domainState{
		key:  key,
		desc: desc,
	}
	a.domains.Put(key, domain)
	return domain
}

// appendSegment carves a new segment out of the allocator-wide index space.
// The requested capacity is clamped to the remaining index range; a clamp is
// a configuration smell and logged as a warning.
func (a *Allocator) appendSegment(domain *domainState, capacity uint32) (*segment, error) {
	if a.nextBase > bindless.MaxSlotIndex {
		return nil, cerrors.Wrapf(bindless.ErrOutOfSpace, "the slot index space is exhausted at base %d", a.nextBase)
	}

	available := uint64(bindless.MaxSlotIndex) - uint64(a.nextBase) + 1
	if uint64(capacity) > available {
		a.logger.LogAttrs(context.Background(), slog.LevelWarn, "segment capacity clamped to the remaining index range",
			slog.String("domain", domain.key.String()),
			slog.Uint64("requested", uint64(capacity)),
			slog.Uint64("clamped", available))
		capacity = uint32(available)
	}

	seg := newSegment(a.nextBase, capacity)
	a.nextBase += bindless.SlotIndex(capacity)
	domain.segments = append(domain.segments, seg)
	return seg, nil
}

// Release returns an index to the segment that owns it. It returns
// bindless.ErrNotFound if no segment's range contains the index, which
// indicates the caller released an index it never received.
func (a *Allocator) Release(index bindless.SlotIndex) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	defer bindless.DebugValidate(unlockedValidation{allocator: a})

	seg := a.findSegment(index)
	if seg == nil {
		return cerrors.Wrapf(bindless.ErrNotFound, "index %d", index)
	}

	seg.release(index)
	return nil
}

// Contains returns true iff some segment in some domain owns the index's
// range. It says nothing about whether the index is currently allocated.
func (a *Allocator) Contains(index bindless.SlotIndex) bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.findSegment(index) != nil
}

func (a *Allocator) findSegment(index bindless.SlotIndex) *segment {
	var found *segment
	a.domains.Iter(func(_ bindless.DomainKey, domain *domainState) bool {
		for _, seg := range domain.segments {
			if seg.contains(index) {
				found = seg
				return true
			}
		}
		return false
	})

	return found
}

// RemainingCount aggregates the free positions across all of the domain's
// segments. A full domain that is still allowed to grow reports the
// configured initial capacity as an optimistic estimate, since growth will
// occur on demand.
func (a *Allocator) RemainingCount(viewType bindless.ResourceViewType, visibility bindless.DescriptorVisibility) int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	domain := a.domainFor(bindless.DomainKey{ViewType: viewType, Visibility: visibility})

	remaining := 0
	for _, seg := range domain.segments {
		remaining += int(seg.remaining())
	}

	if remaining == 0 && domain.desc.AllowGrowth && domain.growthCount < domain.desc.MaxGrowthIterations {
		return int(domain.desc.CapacityFor(visibility))
	}

	return remaining
}

// AllocatedCount aggregates the live allocations across all of the domain's
// segments.
func (a *Allocator) AllocatedCount(viewType bindless.ResourceViewType, visibility bindless.DescriptorVisibility) int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	domain := a.domainFor(bindless.DomainKey{ViewType: viewType, Visibility: visibility})

	allocated := 0
	for _, seg := range domain.segments {
		allocated += int(seg.allocatedCount)
	}

	return allocated
}

// AddStatistics sums the allocator's segment statistics across all domains
// into the statistics currently present in the provided object.
func (a *Allocator) AddStatistics(stats *bindless.Statistics) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.domains.Iter(func(_ bindless.DomainKey, domain *domainState) bool {
		for _, seg := range domain.segments {
			stats.SegmentCount++
			stats.AllocatedCount += int(seg.allocatedCount)
			stats.RemainingCount += int(seg.remaining())
		}
		return false
	})
}

// AddDetailedStatistics sums the allocator's segment statistics across all
// domains into the statistics currently present in the provided object.
func (a *Allocator) AddDetailedStatistics(stats *bindless.DetailedStatistics) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.domains.Iter(func(_ bindless.DomainKey, domain *domainState) bool {
		stats.GrowthCount += domain.growthCount
		for _, seg := range domain.segments {
			stats.AddSegment(int(seg.capacity), int(seg.allocatedCount))
		}
		return false
	})
}

// BackendFor returns allocate/free callbacks bound to this allocator,
// suitable for injection into the reclaim strategies. The free callback logs
// and ignores a NotFound release rather than surfacing it, since by the time
// a deferred free runs there is no caller left to hand the error to.
func (a *Allocator) BackendFor() (bindless.AllocateFunc, bindless.FreeFunc) {
	allocate := func(domain bindless.DomainKey) (bindless.SlotIndex, error) {
		return a.Allocate(domain.ViewType, domain.Visibility)
	}
	free := func(domain bindless.DomainKey, index bindless.SlotIndex) {
		err := a.Release(index)
		if err != nil {
			a.logger.LogAttrs(context.Background(), slog.LevelError, "deferred free targeted an unowned index",
				slog.String("domain", domain.String()),
				slog.Uint64("index", uint64(index)),
				slog.Any("error", err))
		}
	}

	return allocate, free
}

// grownCapacity computes the next segment capacity from the previous one. The
// product is rounded and clamped in float64 before the narrowing conversion:
// an out-of-range float to uint32 conversion has no portable result, so a
// product past the index range must never reach it.
func grownCapacity(previous uint32, factor float32) (capacity uint32, clamped bool) {
	grown := math.Round(float64(previous) * float64(factor))
	if grown > float64(bindless.MaxSlotIndex) {
		return uint32(bindless.MaxSlotIndex), true
	}
	return uint32(grown), false
}

// unlockedValidation adapts the allocator for DebugValidate calls made on
// mutation paths that already hold the allocator's mutex.
type unlockedValidation struct {
	allocator *Allocator
}

func (v unlockedValidation) Validate() error {
	return v.allocator.validateLocked()
}

// Validate performs internal consistency checks on the allocator. When the
// allocator is functioning correctly this cannot return an error, but it may
// assist in diagnosing issues with the implementation.
func (a *Allocator) Validate() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.validateLocked()
}

func (a *Allocator) validateLocked() error {
	var iterErr error
	a.domains.Iter(func(_ bindless.DomainKey, domain *domainState) bool {
		prevEnd := bindless.SlotIndex(0)
		first := true
		for _, seg := range domain.segments {
			if !first && seg.baseIndex < prevEnd {
				iterErr = cerrors.Errorf("domain %s has a segment based at %d overlapping the previous segment ending at %d", domain.key, seg.baseIndex, prevEnd)
				return true
			}
			prevEnd = seg.end()
			first = false

			if seg.allocatedCount > seg.capacity {
				iterErr = cerrors.Errorf("the segment based at %d has %d allocations but only capacity %d", seg.baseIndex, seg.allocatedCount, seg.capacity)
				return true
			}

			if seg.nextUnused-uint32(len(seg.freePositions)) != seg.allocatedCount {
				iterErr = cerrors.Errorf("the segment based at %d has inconsistent bookkeeping: %d handed out, %d free, %d allocated", seg.baseIndex, seg.nextUnused, len(seg.freePositions), seg.allocatedCount)
				return true
			}
		}
		return false
	})

	return iterErr
}

// PrintDetailedMap writes a json blob with the full segment layout of every
// domain. Diagnostic use only.
func (a *Allocator) PrintDetailedMap(writer *jwriter.Writer) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	objState := writer.Object()
	defer objState.End()

	a.domains.Iter(func(key bindless.DomainKey, domain *domainState) bool {
		domainObj := objState.Name(key.String()).Object()

		domainObj.Name("GrowthCount").Int(domain.growthCount)
		domainObj.Name("GrowthAllowed").Bool(domain.desc.AllowGrowth)

		segmentArray := domainObj.Name("Segments").Array()
		for _, seg := range domain.segments {
			segObj := segmentArray.Object()
			segObj.Name("Base").Int(int(seg.baseIndex))
			segObj.Name("Capacity").Int(int(seg.capacity))
			segObj.Name("Allocated").Int(int(seg.allocatedCount))
			segObj.Name("Remaining").Int(int(seg.remaining()))
			segObj.End()
		}
		segmentArray.End()

		domainObj.End()
		return false
	})
}
