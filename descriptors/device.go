package descriptors

import (
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

//go:generate mockgen -source device.go -destination ./mocks/mocks.go -package mock_descriptors

// Device creates the fixed-capacity descriptor pools that an Allocator grows into
type Device interface {
	CreatePool(maxSets int, poolSizes []core1_0.DescriptorPoolSize) (Pool, common.VkResult, error)
}

// Pool is a single fixed-capacity descriptor pool owned by the device
type Pool interface {
	AllocateSet(layout core1_0.DescriptorSetLayout) (core1_0.DescriptorSet, common.VkResult, error)
	Reset() (common.VkResult, error)
	Destroy()
}
