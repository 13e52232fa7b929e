package descriptors

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/driver"
)

// LayoutDevice is the portion of core1_0.Device needed to build descriptor set layouts
type LayoutDevice interface {
	CreateDescriptorSetLayout(allocationCallbacks *driver.AllocationCallbacks, o core1_0.DescriptorSetLayoutCreateInfo) (core1_0.DescriptorSetLayout, common.VkResult, error)
}

// LayoutBuilder accumulates single-descriptor bindings for a descriptor set layout
type LayoutBuilder struct {
	bindings []core1_0.DescriptorSetLayoutBinding
}

func (b *LayoutBuilder) AddBinding(binding int, descriptorType core1_0.DescriptorType) {
	b.bindings = append(b.bindings, core1_0.DescriptorSetLayoutBinding{
		Binding:         binding,
		DescriptorType:  descriptorType,
		DescriptorCount: 1,
	})
}

func (b *LayoutBuilder) Clear() {
	b.bindings = nil
}

// CreateInfo returns the layout create info for the accumulated bindings, with stages added to
// every binding's stage flags
func (b *LayoutBuilder) CreateInfo(stages core1_0.ShaderStageFlags, flags core1_0.DescriptorSetLayoutCreateFlags) core1_0.DescriptorSetLayoutCreateInfo {
	bindings := make([]core1_0.DescriptorSetLayoutBinding, len(b.bindings))
	for i, binding := range b.bindings {
		binding.StageFlags |= stages
		bindings[i] = binding
	}

	return core1_0.DescriptorSetLayoutCreateInfo{
		Flags:    flags,
		Bindings: bindings,
	}
}

func (b *LayoutBuilder) Build(device LayoutDevice, stages core1_0.ShaderStageFlags, flags core1_0.DescriptorSetLayoutCreateFlags) (core1_0.DescriptorSetLayout, common.VkResult, error) {
	layout, res, err := device.CreateDescriptorSetLayout(nil, b.CreateInfo(stages, flags))
	if err != nil {
		return nil, res, errors.Mark(errors.Wrap(err, "failed to create descriptor set layout"), ErrDeviceCall)
	}

	return layout, res, nil
}
