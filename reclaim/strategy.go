package reclaim

import (
	"log/slog"

	"github.com/vkngwrapper/arsenal/bindless"
)

// pendingFree is one deferred reclamation, queued until its gating condition
// is met.
type pendingFree struct {
	domain bindless.DomainKey
	index  bindless.SlotIndex
}

// strategyCore carries the state shared by the reuse strategies: the injected
// backend, the generation tracker, and the pending-release guard.
type strategyCore struct {
	logger   *slog.Logger
	allocate bindless.AllocateFunc
	free     bindless.FreeFunc

	generations *GenerationTable
	pending     *PendingFlags
}

func newStrategyCore(logger *slog.Logger, allocate bindless.AllocateFunc, free bindless.FreeFunc) strategyCore {
	if logger == nil {
		logger = slog.Default()
	}
	if allocate == nil || free == nil {
		panic("a reuse strategy requires both an allocate and a free backend")
	}

	return strategyCore{
		logger:      logger,
		allocate:    allocate,
		free:        free,
		generations: NewGenerationTable(0),
		pending:     NewPendingFlags(0),
	}
}

// allocateHandle calls the backend, ensures tracker and guard capacity for
// the returned index, and stamps the index with its current generation.
func (c *strategyCore) allocateHandle(domain bindless.DomainKey) (bindless.VersionedHandle, error) {
	index, err := c.allocate(domain)
	if err != nil {
		return bindless.VersionedHandle{}, err
	}

	c.generations.EnsureCapacity(index)
	c.pending.EnsureCapacity(index)

	return bindless.NewVersionedHandle(index, c.generations.Load(index)), nil
}

// isHandleCurrent reports whether the handle still refers to the live
// allocation of its slot. Invalid handles and handles whose index the
// tracker has never covered are never current.
func (c *strategyCore) isHandleCurrent(handle bindless.VersionedHandle) bool {
	if !handle.IsValid() || int(handle.Index()) >= c.generations.Capacity() {
		return false
	}

	return c.generations.Load(handle.Index()) == handle.Generation()
}

// reclaim finishes one release cycle. The generation bump happens before the
// backend free so that any handle comparison racing with the free observes
// the bumped generation, never a stale match.
func (c *strategyCore) reclaim(entry pendingFree) {
	c.generations.Bump(entry.index)
	c.pending.ClearPending(entry.index)
	c.free(entry.domain, entry.index)
}
