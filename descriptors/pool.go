package descriptors

import (
	"github.com/pkg/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/core1_1"
)

type poolState int

const (
	poolReady poolState = iota
	poolFull
	poolDestroyed
)

func (s poolState) String() string {
	switch s {
	case poolReady:
		return "Ready"
	case poolFull:
		return "Full"
	case poolDestroyed:
		return "Destroyed"
	}

	return "Unknown"
}

// IsExhaustion reports whether a device result means the pool ran out of room, either because
// it is out of descriptor memory or because its free space is too fragmented
func IsExhaustion(res common.VkResult) bool {
	return res == core1_1.VkErrorOutOfPoolMemory || res == core1_0.VKErrorFragmentedPool
}

type descriptorPool struct {
	id      int
	maxSets int
	state   poolState
	handle  Pool

	allocatedSets int
}

func (p *descriptorPool) Allocate(layout core1_0.DescriptorSetLayout) (core1_0.DescriptorSet, common.VkResult, error) {
	if p.state == poolDestroyed {
		return nil, core1_0.VKErrorUnknown, errors.Errorf("attempted to allocate from descriptor pool %d after it was destroyed", p.id)
	}

	set, res, err := p.handle.AllocateSet(layout)
	if err != nil {
		return nil, res, err
	}

	p.allocatedSets++
	return set, res, nil
}

func (p *descriptorPool) Reset() (common.VkResult, error) {
	if p.state == poolDestroyed {
		return core1_0.VKErrorUnknown, errors.Errorf("attempted to reset descriptor pool %d after it was destroyed", p.id)
	}

	res, err := p.handle.Reset()
	if err != nil {
		return res, errors.Wrapf(err, "failed to reset descriptor pool %d", p.id)
	}

	p.allocatedSets = 0
	p.state = poolReady
	return res, nil
}

func (p *descriptorPool) Destroy() {
	if p.state == poolDestroyed {
		return
	}

	p.handle.Destroy()
	p.handle = nil
	p.state = poolDestroyed
}
