package bindless

import "fmt"

// ResourceViewType identifies the kind of resource view a descriptor slot
// holds. Together with DescriptorVisibility it selects the allocation domain.
type ResourceViewType uint32

const (
	// ViewTypeTexture is a sampled texture view (SRV)
	ViewTypeTexture ResourceViewType = iota
	// ViewTypeTypedBuffer is a typed buffer view with a format conversion on load
	ViewTypeTypedBuffer
	// ViewTypeStructuredBuffer is a structured buffer view with a fixed element stride
	ViewTypeStructuredBuffer
	// ViewTypeRawBuffer is a byte-address buffer view
	ViewTypeRawBuffer
	// ViewTypeConstantBuffer is a constant/uniform buffer view
	ViewTypeConstantBuffer
	// ViewTypeSampler is a sampler object
	ViewTypeSampler
	// ViewTypeRWTexture is a writable (UAV) texture view
	ViewTypeRWTexture
	// ViewTypeRWStructuredBuffer is a writable (UAV) structured buffer view
	ViewTypeRWStructuredBuffer
)

var resourceViewTypeMapping = map[ResourceViewType]string{
	ViewTypeTexture:            "Texture",
	ViewTypeTypedBuffer:        "TypedBuffer",
	ViewTypeStructuredBuffer:   "StructuredBuffer",
	ViewTypeRawBuffer:          "RawBuffer",
	ViewTypeConstantBuffer:     "ConstantBuffer",
	ViewTypeSampler:            "Sampler",
	ViewTypeRWTexture:          "RWTexture",
	ViewTypeRWStructuredBuffer: "RWStructuredBuffer",
}

func (t ResourceViewType) String() string {
	str, ok := resourceViewTypeMapping[t]
	if !ok {
		return fmt.Sprintf("ResourceViewType(%d)", uint32(t))
	}
	return str
}

// DescriptorVisibility indicates which descriptor table a slot lives in:
// the shader-visible table sampled by the GPU, or a CPU-only staging table.
type DescriptorVisibility uint32

const (
	// VisibilityShaderVisible slots index the GPU-visible descriptor table
	VisibilityShaderVisible DescriptorVisibility = iota
	// VisibilityCPUOnly slots index a CPU-side staging table
	VisibilityCPUOnly
)

var descriptorVisibilityMapping = map[DescriptorVisibility]string{
	VisibilityShaderVisible: "ShaderVisible",
	VisibilityCPUOnly:       "CPUOnly",
}

func (v DescriptorVisibility) String() string {
	str, ok := descriptorVisibilityMapping[v]
	if !ok {
		return fmt.Sprintf("DescriptorVisibility(%d)", uint32(v))
	}
	return str
}

// DomainKey identifies one allocation domain as a (view type, visibility)
// pair. It routes calls to the correct backend instance and carries no
// allocation state itself.
type DomainKey struct {
	ViewType   ResourceViewType
	Visibility DescriptorVisibility
}

func (k DomainKey) String() string {
	return fmt.Sprintf("%s/%s", k.ViewType, k.Visibility)
}
