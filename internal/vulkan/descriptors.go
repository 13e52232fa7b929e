package vulkan

import (
	"github.com/vkngwrapper/alcove/descriptors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// DescriptorDevice creates the descriptor pools an allocator grows into
type DescriptorDevice struct {
	device core1_0.Device
}

var _ descriptors.Device = DescriptorDevice{}

func NewDescriptorDevice(device *Device) DescriptorDevice {
	return DescriptorDevice{device: device.device}
}

func (d DescriptorDevice) CreatePool(maxSets int, poolSizes []core1_0.DescriptorPoolSize) (descriptors.Pool, common.VkResult, error) {
	pool, res, err := d.device.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets:   maxSets,
		PoolSizes: poolSizes,
	})
	if err != nil {
		return nil, res, err
	}

	return &DescriptorPool{device: d.device, pool: pool}, res, nil
}

// DescriptorPool allocates one set at a time from a single core1_0.DescriptorPool
type DescriptorPool struct {
	device core1_0.Device
	pool   core1_0.DescriptorPool
}

func (p *DescriptorPool) AllocateSet(layout core1_0.DescriptorSetLayout) (core1_0.DescriptorSet, common.VkResult, error) {
	sets, res, err := p.device.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: p.pool,
		SetLayouts:     []core1_0.DescriptorSetLayout{layout},
	})
	if err != nil {
		return nil, res, err
	}

	return sets[0], res, nil
}

func (p *DescriptorPool) Reset() (common.VkResult, error) {
	return p.pool.Reset(0)
}

func (p *DescriptorPool) Destroy() {
	p.pool.Destroy(nil)
}
