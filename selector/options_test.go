package selector_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/alcove/selector"
	"github.com/vkngwrapper/core/v2/core1_0"
)

func TestParseSelectOption(t *testing.T) {
	option, err := selector.ParseSelectOption("Important")
	require.NoError(t, err)
	require.Equal(t, selector.OptionImportant, option)
	require.Equal(t, "important", option.String())

	_, err = selector.ParseSelectOption("mandatory")
	require.Error(t, err)
}

func TestParseDeviceType(t *testing.T) {
	deviceType, err := selector.ParseDeviceType("integrated")
	require.NoError(t, err)
	require.Equal(t, core1_0.PhysicalDeviceTypeIntegratedGPU, deviceType)
	require.Equal(t, "integrated", selector.DeviceTypeName(deviceType))

	_, err = selector.ParseDeviceType("quantum")
	require.Error(t, err)
}

func TestParseQueueFlags(t *testing.T) {
	flags, err := selector.ParseQueueFlags([]string{"graphics", "Compute"})
	require.NoError(t, err)
	require.Equal(t, core1_0.QueueGraphics|core1_0.QueueCompute, flags)

	flags, err = selector.ParseQueueFlags(nil)
	require.NoError(t, err)
	require.Equal(t, core1_0.QueueFlags(0), flags)

	_, err = selector.ParseQueueFlags([]string{"video"})
	require.Error(t, err)
}
