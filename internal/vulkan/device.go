package vulkan

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/alcove/frames"
	"github.com/vkngwrapper/alcove/selector"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_portability_subset"
)

// Device is the logical device created for a selected accelerator, along with the queues
// retrieved for its graphics and present families
type Device struct {
	logger *slog.Logger

	physicalDevice core1_0.PhysicalDevice
	device         core1_0.Device

	graphicsFamily int
	graphicsQueue  core1_0.Queue
	presentFamily  int
	presentQueue   core1_0.Queue
}

var _ frames.Device = &Device{}

// CreateDevice creates a logical device on the selected accelerator with one queue from each
// distinct resolved family. extensions are enabled on the device, and the portability subset
// extension is added when the accelerator exposes it.
func CreateDevice(logger *slog.Logger, selection *selector.Selection, extensions []string) (*Device, error) {
	if selection.GraphicsFamily < 0 {
		return nil, errors.New("the selected accelerator has no graphics queue family")
	}

	physicalDevice := selection.Candidate.Device
	families := []int{selection.GraphicsFamily}
	if selection.PresentFamily >= 0 && selection.PresentFamily != selection.GraphicsFamily {
		families = append(families, selection.PresentFamily)
	}

	queueInfos := make([]core1_0.DeviceQueueCreateInfo, 0, len(families))
	for _, family := range families {
		queueInfos = append(queueInfos, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: family,
			QueuePriorities:  []float32{1.0},
		})
	}

	extensionNames := append([]string(nil), extensions...)
	for _, name := range selection.Candidate.Extensions {
		if name == khr_portability_subset.ExtensionName {
			extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
			break
		}
	}

	device, _, err := physicalDevice.CreateDevice(nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos:      queueInfos,
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create a logical device on %s", selection.Candidate.Name)
	}

	d := &Device{
		logger:         logger,
		physicalDevice: physicalDevice,
		device:         device,
		graphicsFamily: selection.GraphicsFamily,
		graphicsQueue:  device.GetQueue(selection.GraphicsFamily, 0),
		presentFamily:  selection.PresentFamily,
	}
	if selection.PresentFamily >= 0 {
		d.presentQueue = device.GetQueue(selection.PresentFamily, 0)
	}

	logger.LogAttrs(context.Background(), slog.LevelInfo, "Device created",
		slog.String("device", selection.Candidate.Name),
		slog.Int("graphicsFamily", d.graphicsFamily),
		slog.Int("presentFamily", d.presentFamily),
		slog.Any("extensions", extensionNames),
	)

	return d, nil
}

func (d *Device) Handle() core1_0.Device                 { return d.device }
func (d *Device) PhysicalDevice() core1_0.PhysicalDevice { return d.physicalDevice }
func (d *Device) GraphicsFamily() int                    { return d.graphicsFamily }
func (d *Device) GraphicsQueue() core1_0.Queue           { return d.graphicsQueue }
func (d *Device) PresentFamily() int                     { return d.presentFamily }
func (d *Device) PresentQueue() core1_0.Queue            { return d.presentQueue }

func (d *Device) WaitIdle() (common.VkResult, error) {
	return d.device.WaitIdle()
}

// Destroy destroys the logical device. Every object created from it must already be destroyed.
func (d *Device) Destroy() {
	d.device.Destroy(nil)
}

func (d *Device) CreateFence(signaled bool) (frames.Fence, common.VkResult, error) {
	var flags core1_0.FenceCreateFlags
	if signaled {
		flags = core1_0.FenceCreateSignaled
	}

	fence, res, err := d.device.CreateFence(nil, core1_0.FenceCreateInfo{
		Flags: flags,
	})
	if err != nil {
		return nil, res, err
	}

	return &Fence{fence: fence}, res, nil
}

func (d *Device) CreateSemaphore() (frames.Semaphore, common.VkResult, error) {
	semaphore, res, err := d.device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return nil, res, err
	}

	return &Semaphore{semaphore: semaphore}, res, nil
}

// CreateCommandScope creates a command pool on the graphics family and allocates one primary
// command buffer from it
func (d *Device) CreateCommandScope() (frames.CommandScope, common.VkResult, error) {
	pool, res, err := d.device.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateResetBuffer,
		QueueFamilyIndex: d.graphicsFamily,
	})
	if err != nil {
		return nil, res, err
	}

	buffers, res, err := d.device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		pool.Destroy(nil)
		return nil, res, err
	}

	return &CommandScope{pool: pool, buffer: buffers[0]}, res, nil
}

func (d *Device) Submit(commands frames.CommandScope, wait frames.Semaphore, waitStage core1_0.PipelineStageFlags, signal frames.Semaphore, fence frames.Fence) (common.VkResult, error) {
	submit := core1_0.SubmitInfo{
		CommandBuffers:   []core1_0.CommandBuffer{commands.CommandBuffer()},
		WaitSemaphores:   semaphoreHandles(wait),
		SignalSemaphores: semaphoreHandles(signal),
	}
	if wait != nil {
		submit.WaitDstStageMask = []core1_0.PipelineStageFlags{waitStage}
	}

	return d.graphicsQueue.Submit(fenceHandle(fence), []core1_0.SubmitInfo{submit})
}
