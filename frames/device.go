package frames

import (
	"time"

	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

//go:generate mockgen -source device.go -destination ./mocks/mocks.go -package mock_frames

// Fence is a host-wait primitive that the device signals when submitted work completes
type Fence interface {
	Wait(timeout time.Duration) (common.VkResult, error)
	Reset() (common.VkResult, error)
	Destroy()
}

// Semaphore orders device operations relative to one another without host involvement
type Semaphore interface {
	Destroy()
}

// CommandScope is a resettable primary command buffer along with the pool it was allocated from
type CommandScope interface {
	Reset() (common.VkResult, error)
	Begin() (common.VkResult, error)
	End() (common.VkResult, error)
	CommandBuffer() core1_0.CommandBuffer
	Destroy()
}

// Device creates synchronization primitives and command scopes, and submits recorded commands
// to the graphics queue
type Device interface {
	CreateFence(signaled bool) (Fence, common.VkResult, error)
	CreateSemaphore() (Semaphore, common.VkResult, error)
	CreateCommandScope() (CommandScope, common.VkResult, error)
	// Submit queues commands for execution. wait and signal may be nil. When wait is provided,
	// execution waits on it at waitStage.
	Submit(commands CommandScope, wait Semaphore, waitStage core1_0.PipelineStageFlags, signal Semaphore, fence Fence) (common.VkResult, error)
}

// Presenter acquires presentation images and queues them for display
type Presenter interface {
	AcquireNextImage(timeout time.Duration, signal Semaphore) (int, common.VkResult, error)
	Present(imageIndex int, wait Semaphore) (common.VkResult, error)
}
