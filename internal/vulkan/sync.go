package vulkan

import (
	"time"

	"github.com/vkngwrapper/alcove/frames"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// Fence wraps a core1_0.Fence so it can be used as a frames.Fence
type Fence struct {
	fence core1_0.Fence
}

var _ frames.Fence = &Fence{}

func (f *Fence) Handle() core1_0.Fence { return f.fence }

func (f *Fence) Wait(timeout time.Duration) (common.VkResult, error) {
	return f.fence.Wait(timeout)
}

func (f *Fence) Reset() (common.VkResult, error) {
	return f.fence.Reset()
}

func (f *Fence) Destroy() {
	f.fence.Destroy(nil)
}

// Semaphore wraps a core1_0.Semaphore so it can be used as a frames.Semaphore
type Semaphore struct {
	semaphore core1_0.Semaphore
}

var _ frames.Semaphore = &Semaphore{}

func (s *Semaphore) Handle() core1_0.Semaphore { return s.semaphore }

func (s *Semaphore) Destroy() {
	s.semaphore.Destroy(nil)
}

// CommandScope is a command pool that owns exactly one primary command buffer. The pool is
// created with CommandPoolCreateResetBuffer so the buffer can be reset on its own.
type CommandScope struct {
	pool   core1_0.CommandPool
	buffer core1_0.CommandBuffer
}

var _ frames.CommandScope = &CommandScope{}

func (s *CommandScope) CommandBuffer() core1_0.CommandBuffer { return s.buffer }

func (s *CommandScope) Reset() (common.VkResult, error) {
	return s.buffer.Reset(0)
}

func (s *CommandScope) Begin() (common.VkResult, error) {
	return s.buffer.Begin(core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
}

func (s *CommandScope) End() (common.VkResult, error) {
	return s.buffer.End()
}

// Destroy destroys the pool, which frees its command buffer along with it
func (s *CommandScope) Destroy() {
	s.pool.Destroy(nil)
}

func fenceHandle(fence frames.Fence) core1_0.Fence {
	if fence == nil {
		return nil
	}
	return fence.(*Fence).fence
}

func semaphoreHandles(semaphore frames.Semaphore) []core1_0.Semaphore {
	if semaphore == nil {
		return nil
	}
	return []core1_0.Semaphore{semaphore.(*Semaphore).semaphore}
}
