package vulkan

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/alcove/frames"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_surface"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"
)

// Presenter owns a swapchain on the window surface and presents its images on the device's
// present queue
type Presenter struct {
	extension khr_swapchain.Extension
	swapchain khr_swapchain.Swapchain
	queue     core1_0.Queue

	format     core1_0.Format
	extent     core1_0.Extent2D
	imageCount int
}

var _ frames.Presenter = &Presenter{}

// CreatePresenter creates a FIFO swapchain for surface. width and height are used only when the
// surface leaves the extent up to the swapchain.
func CreatePresenter(logger *slog.Logger, device *Device, surface khr_surface.Surface, width, height int) (*Presenter, error) {
	if device.presentQueue == nil {
		return nil, errors.New("the device has no present queue")
	}

	capabilities, _, err := surface.PhysicalDeviceSurfaceCapabilities(device.physicalDevice)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query surface capabilities")
	}

	formats, _, err := surface.PhysicalDeviceSurfaceFormats(device.physicalDevice)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query surface formats")
	}
	if len(formats) == 0 {
		return nil, errors.New("the surface reports no formats")
	}

	// Surfaces list their preferred format first
	format := formats[0]

	extent := capabilities.CurrentExtent
	if uint32(extent.Width) == math.MaxUint32 {
		extent = core1_0.Extent2D{
			Width:  clamp(width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
			Height: clamp(height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
		}
	}

	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}

	sharingMode := core1_0.SharingModeExclusive
	var queueFamilyIndices []int
	if device.graphicsFamily != device.presentFamily {
		sharingMode = core1_0.SharingModeConcurrent
		queueFamilyIndices = []int{device.graphicsFamily, device.presentFamily}
	}

	extension := khr_swapchain.CreateExtensionFromDevice(device.device)
	swapchain, _, err := extension.CreateSwapchain(device.device, nil, khr_swapchain.SwapchainCreateInfo{
		Surface: surface,

		MinImageCount:    imageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment | core1_0.ImageUsageTransferDst,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    khr_surface.PresentModeFIFO,
		Clipped:        true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create swapchain")
	}

	logger.LogAttrs(context.Background(), slog.LevelInfo, "Swapchain created",
		slog.Int("width", extent.Width),
		slog.Int("height", extent.Height),
		slog.Int("minImageCount", imageCount),
		slog.Any("format", format.Format),
	)

	return &Presenter{
		extension:  extension,
		swapchain:  swapchain,
		queue:      device.presentQueue,
		format:     format.Format,
		extent:     extent,
		imageCount: imageCount,
	}, nil
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

func (p *Presenter) Swapchain() khr_swapchain.Swapchain { return p.swapchain }
func (p *Presenter) Format() core1_0.Format              { return p.format }
func (p *Presenter) Extent() core1_0.Extent2D            { return p.extent }
func (p *Presenter) MinImageCount() int                  { return p.imageCount }

// AcquireNextImage returns the index of the next presentable image, signaling signal once the
// image is ready to be rendered to. An out-of-date swapchain is reported as an error.
func (p *Presenter) AcquireNextImage(timeout time.Duration, signal frames.Semaphore) (int, common.VkResult, error) {
	var semaphore core1_0.Semaphore
	if signal != nil {
		semaphore = signal.(*Semaphore).semaphore
	}

	return p.swapchain.AcquireNextImage(timeout, semaphore, nil)
}

func (p *Presenter) Present(imageIndex int, wait frames.Semaphore) (common.VkResult, error) {
	return p.extension.QueuePresent(p.queue, khr_swapchain.PresentInfo{
		WaitSemaphores: semaphoreHandles(wait),
		Swapchains:     []khr_swapchain.Swapchain{p.swapchain},
		ImageIndices:   []int{imageIndex},
	})
}

func (p *Presenter) Destroy() {
	p.swapchain.Destroy(nil)
}
