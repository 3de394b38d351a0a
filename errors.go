package bindless

import "github.com/pkg/errors"

// ErrOutOfSpace is returned when a domain's configured capacity, and its
// growth budget if growth is allowed, is exhausted. Callers should surface
// this upward as an allocation failure rather than ignore it.
var ErrOutOfSpace error = errors.New("descriptor domain is out of space")

// ErrNotFound is returned when a released or queried slot index is not owned
// by any segment. This indicates a caller bug: only indices previously
// received from Allocate may be released.
var ErrNotFound error = errors.New("slot index is not owned by any segment")

// ErrUnknownDomain is returned when a heap configuration fails validation at
// construction. A missing heap description at allocation time is a static
// configuration error and panics instead.
var ErrUnknownDomain error = errors.New("no valid heap description for domain")
