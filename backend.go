package bindless

// AllocateFunc is the injected allocation backend for a reuse strategy. It
// must return an index not currently owned by any live allocation in the
// provided domain, and may draw from an internal free list before minting
// new indices. It must be safe to call concurrently from multiple goroutines.
type AllocateFunc func(domain DomainKey) (SlotIndex, error)

// FreeFunc is the injected free backend for a reuse strategy. The strategy
// guarantees exactly one invocation per release cycle, after the gating
// condition for the release has been satisfied. It must be safe to call
// concurrently from multiple goroutines.
type FreeFunc func(domain DomainKey, index SlotIndex)
