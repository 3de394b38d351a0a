package segmented

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/vkngwrapper/arsenal/bindless"
)

// HeapDescription is the per-view-type policy for a descriptor index heap.
// It covers both visibility domains of the view type: the shader-visible
// capacity and the CPU-only capacity are selected by the visibility half of
// the domain key at allocation time.
//
// When AllowGrowth is false, capacity is fixed at construction. When it is
// true, an exhausted domain appends a new segment sized by GrowthFactor, up
// to MaxGrowthIterations times.
type HeapDescription struct {
	ShaderVisibleCapacity uint32
	CPUVisibleCapacity    uint32

	AllowGrowth         bool
	GrowthFactor        float32
	MaxGrowthIterations int
}

// Validate checks that the description is internally consistent. Growth
// requires a positive growth factor and a non-negative iteration budget.
func (d HeapDescription) Validate() error {
	if d.AllowGrowth && d.GrowthFactor <= 0 {
		return cerrors.Errorf("growth is allowed but the growth factor is %f", d.GrowthFactor)
	}
	if d.AllowGrowth && d.MaxGrowthIterations < 0 {
		return cerrors.Errorf("growth is allowed but the growth iteration budget is %d", d.MaxGrowthIterations)
	}

	return nil
}

// CapacityFor returns the initial segment capacity configured for the
// provided visibility.
func (d HeapDescription) CapacityFor(visibility bindless.DescriptorVisibility) uint32 {
	if visibility == bindless.VisibilityShaderVisible {
		return d.ShaderVisibleCapacity
	}
	return d.CPUVisibleCapacity
}

// DefaultHeapDescriptions returns a starting configuration suitable for a
// mid-sized bindless renderer: large growable tables for sampled resources,
// smaller fixed tables for samplers and constant buffers.
func DefaultHeapDescriptions() map[bindless.ResourceViewType]HeapDescription {
	grownTable := HeapDescription{
		ShaderVisibleCapacity: 4096,
		CPUVisibleCapacity:    1024,
		AllowGrowth:           true,
		GrowthFactor:          2,
		MaxGrowthIterations:   8,
	}
	fixedTable := HeapDescription{
		ShaderVisibleCapacity: 2048,
		CPUVisibleCapacity:    256,
	}

	return map[bindless.ResourceViewType]HeapDescription{
		bindless.ViewTypeTexture:            grownTable,
		bindless.ViewTypeTypedBuffer:        grownTable,
		bindless.ViewTypeStructuredBuffer:   grownTable,
		bindless.ViewTypeRawBuffer:          grownTable,
		bindless.ViewTypeRWTexture:          grownTable,
		bindless.ViewTypeRWStructuredBuffer: grownTable,
		bindless.ViewTypeConstantBuffer:     fixedTable,
		bindless.ViewTypeSampler: {
			ShaderVisibleCapacity: 256,
			CPUVisibleCapacity:    64,
		},
	}
}
