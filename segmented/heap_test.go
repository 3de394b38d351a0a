package segmented_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/arsenal/bindless"
	"github.com/vkngwrapper/arsenal/bindless/segmented"
)

func TestHeapDescriptionValidate(t *testing.T) {
	desc := segmented.HeapDescription{
		ShaderVisibleCapacity: 16,
		AllowGrowth:           true,
		GrowthFactor:          2,
		MaxGrowthIterations:   4,
	}
	require.NoError(t, desc.Validate())

	desc.GrowthFactor = 0
	require.Error(t, desc.Validate())

	desc.GrowthFactor = 1.5
	desc.MaxGrowthIterations = -1
	require.Error(t, desc.Validate())

	// Fixed-capacity heaps don't care about the growth settings
	desc.AllowGrowth = false
	require.NoError(t, desc.Validate())
}

func TestHeapDescriptionCapacityFor(t *testing.T) {
	desc := segmented.HeapDescription{
		ShaderVisibleCapacity: 128,
		CPUVisibleCapacity:    32,
	}

	require.Equal(t, uint32(128), desc.CapacityFor(bindless.VisibilityShaderVisible))
	require.Equal(t, uint32(32), desc.CapacityFor(bindless.VisibilityCPUOnly))
}

func TestDefaultHeapDescriptionsAreValid(t *testing.T) {
	heaps := segmented.DefaultHeapDescriptions()
	require.NotEmpty(t, heaps)

	for viewType, desc := range heaps {
		require.NoError(t, desc.Validate(), "description for %s", viewType)
	}

	_, err := segmented.New(segmented.CreateInfo{Heaps: heaps})
	require.NoError(t, err)
}

func TestNewRejectsInvalidDescription(t *testing.T) {
	_, err := segmented.New(segmented.CreateInfo{
		Heaps: map[bindless.ResourceViewType]segmented.HeapDescription{
			bindless.ViewTypeTexture: {
				ShaderVisibleCapacity: 16,
				AllowGrowth:           true,
				GrowthFactor:          -1,
			},
		},
	})
	require.ErrorIs(t, err, bindless.ErrUnknownDomain)
}
