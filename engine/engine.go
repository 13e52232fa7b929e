package engine

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/alcove/descriptors"
	"github.com/vkngwrapper/alcove/frames"
	"github.com/vkngwrapper/alcove/internal/vulkan"
	"github.com/vkngwrapper/alcove/release"
	"github.com/vkngwrapper/alcove/selector"
	"github.com/vkngwrapper/core/v2"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_surface"
)

// MinimizedPause is how long Run sleeps between polls while the window is minimized
const MinimizedPause = 100 * time.Millisecond

// ErrAlreadyRunning is returned by New when another Engine has not been destroyed yet
var ErrAlreadyRunning = errors.New("an engine is already running in this process")

var running atomic.Bool

func claim() error {
	if !running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	return nil
}

func unclaim() {
	running.Store(false)
}

// Window is the windowing collaborator the engine presents to
type Window interface {
	// RequiredInstanceExtensions lists the instance extensions CreateSurface depends on
	RequiredInstanceExtensions() []string
	CreateSurface(instance core1_0.Instance) (khr_surface.Surface, error)
	// Extent is the size of the drawable area in pixels
	Extent() (width, height int)
	ShouldClose() bool
	Minimized() bool
	PollEvents()
}

// DrawFunc records a frame's commands into frame.Commands. imageIndex is the swapchain image
// that will be presented.
type DrawFunc func(frame *frames.Frame, imageIndex int) error

// Engine is the single owning root of the device, its queues, the frame pacer and the global
// descriptor allocator. Only one Engine may exist in a process at a time.
type Engine struct {
	logger  *slog.Logger
	window  Window
	options Options

	instance    *vulkan.Instance
	surface     khr_surface.Surface
	selection   *selector.Selection
	device      *vulkan.Device
	presenter   *vulkan.Presenter
	pacer       *frames.Pacer
	descriptors *descriptors.Allocator

	// releases is flushed once, at Destroy, most recently registered first
	releases  release.Queue
	destroyed bool
}

// New brings up the instance, surface, device, swapchain, frame pacer and descriptor allocator.
// Everything created before a failing stage is released again before New returns.
func New(logger *slog.Logger, window Window, options Options) (*Engine, error) {
	err := claim()
	if err != nil {
		return nil, err
	}

	options.fillDefaults()
	engine := &Engine{
		logger:  logger,
		window:  window,
		options: options,
	}
	engine.releases.Init(logger, "global", release.OrderLIFO)

	err = engine.init()
	if err != nil {
		if engine.device != nil {
			_, _ = engine.device.WaitIdle()
		}
		engine.releases.Flush()
		unclaim()
		return nil, err
	}

	return engine, nil
}

func (e *Engine) fail(stage string, err error) error {
	e.logger.Error("engine startup failed",
		slog.String("stage", stage),
		slog.Any("error", err),
	)
	return errors.Wrapf(err, "engine startup failed at %s", stage)
}

func (e *Engine) init() error {
	loader, err := core.CreateSystemLoader()
	if err != nil {
		return e.fail("load vulkan", err)
	}

	requiredExtensions := e.window.RequiredInstanceExtensions()
	availableExtensions, _, err := loader.AvailableExtensions()
	if err != nil {
		return e.fail("enumerate instance extensions", err)
	}
	missing := reportMissing(e.logger, "instance extension", availableExtensions, requiredExtensions)
	if len(missing) > 0 {
		return e.fail("check instance extensions", errors.Newf("missing instance extensions %v", missing))
	}

	validation := e.options.Validation
	if validation {
		layers, _, err := loader.AvailableLayers()
		if err != nil {
			return e.fail("enumerate instance layers", err)
		}
		// Running without validation is preferable to not running at all
		if len(reportMissing(e.logger, "validation layer", layers, []string{vulkan.ValidationLayerName})) > 0 {
			validation = false
		}
	}

	e.instance, err = vulkan.CreateInstance(e.logger, loader, vulkan.InstanceOptions{
		ApplicationName: e.options.ApplicationName,
		Extensions:      requiredExtensions,
		Validation:      validation,
	})
	if err != nil {
		return e.fail("create instance", err)
	}
	e.releases.PushDestroyer(e.instance)

	surface, err := e.window.CreateSurface(e.instance.Handle())
	if err != nil {
		return e.fail("create surface", err)
	}
	e.surface = surface
	e.releases.Push(func() { surface.Destroy(nil) })

	criteria := e.options.Criteria()
	e.selection, err = vulkan.SelectPhysicalDevice(e.logger, e.instance.Handle(), surface, criteria)
	if err != nil {
		return e.fail("select accelerator", err)
	}
	e.logger.Debug("accelerator selection report", slog.String("report", e.selection.BuildReportString()))

	e.device, err = vulkan.CreateDevice(e.logger, e.selection, criteria.Extensions)
	if err != nil {
		return e.fail("create device", err)
	}
	e.releases.PushDestroyer(e.device)

	width, height := e.window.Extent()
	e.presenter, err = vulkan.CreatePresenter(e.logger, e.device, surface, width, height)
	if err != nil {
		return e.fail("create swapchain", err)
	}
	e.releases.PushDestroyer(e.presenter)

	e.pacer, err = frames.New(e.logger, e.device, e.presenter, e.options.pacerOptions())
	if err != nil {
		return e.fail("create frame pacer", err)
	}
	e.releases.PushDestroyer(e.pacer)

	e.descriptors, err = descriptors.New(e.logger, vulkan.NewDescriptorDevice(e.device), e.options.descriptorOptions())
	if err != nil {
		return e.fail("create descriptor allocator", err)
	}
	e.releases.PushDestroyer(e.descriptors)

	return nil
}

func (e *Engine) Device() core1_0.Device                 { return e.device.Handle() }
func (e *Engine) PhysicalDevice() core1_0.PhysicalDevice { return e.device.PhysicalDevice() }
func (e *Engine) GraphicsQueue() core1_0.Queue           { return e.device.GraphicsQueue() }
func (e *Engine) GraphicsFamily() int                    { return e.device.GraphicsFamily() }
func (e *Engine) Selection() *selector.Selection         { return e.selection }
func (e *Engine) SwapchainFormat() core1_0.Format        { return e.presenter.Format() }
func (e *Engine) SwapchainExtent() core1_0.Extent2D      { return e.presenter.Extent() }
func (e *Engine) Pacer() *frames.Pacer                   { return e.pacer }
func (e *Engine) Descriptors() *descriptors.Allocator    { return e.descriptors }

// Releases is the engine-lifetime release queue. Objects pushed here are released at Destroy
// in the reverse of the order they were pushed.
func (e *Engine) Releases() *release.Queue { return &e.releases }

// Draw runs one pass of the frame protocol, calling record between the start of the frame and
// its submission. Any error is fatal to the engine.
func (e *Engine) Draw(record DrawFunc) error {
	frame, imageIndex, err := e.pacer.BeginFrame()
	if err != nil {
		return e.frameFailure("begin frame", err)
	}

	if record != nil {
		err = record(frame, imageIndex)
		if err != nil {
			return e.frameFailure("record frame", err)
		}
	}

	err = e.pacer.Submit(frame)
	if err != nil {
		return e.frameFailure("submit frame", err)
	}

	err = e.pacer.Present(frame, imageIndex)
	if err != nil {
		return e.frameFailure("present frame", err)
	}

	return nil
}

func (e *Engine) frameFailure(stage string, err error) error {
	e.logger.Error("frame failed",
		slog.String("stage", stage),
		slog.Int("frameNumber", e.pacer.FrameNumber()),
		slog.Bool("deviceLost", errors.Is(err, frames.ErrDeviceLost)),
		slog.Any("error", err),
	)
	return errors.Wrapf(err, "frame %d failed at %s", e.pacer.FrameNumber(), stage)
}

// Run draws frames until the window asks to close. While the window is minimized, drawing is
// paused without releasing anything.
func (e *Engine) Run(record DrawFunc) error {
	return runLoop(e.window, MinimizedPause, func() error {
		return e.Draw(record)
	})
}

func runLoop(window Window, pause time.Duration, draw func() error) error {
	for !window.ShouldClose() {
		window.PollEvents()

		if window.Minimized() {
			time.Sleep(pause)
			continue
		}

		err := draw()
		if err != nil {
			return err
		}
	}

	return nil
}

// Destroy waits for the device to go idle and releases everything the engine and its
// collaborators registered, then allows a new Engine to be created
func (e *Engine) Destroy() {
	if e.destroyed {
		return
	}
	e.destroyed = true

	_, err := e.device.WaitIdle()
	if err != nil {
		e.logger.Error("failed to wait for device idle before teardown", slog.Any("error", err))
	}

	e.logger.Debug("descriptor statistics", slog.String("stats", e.descriptors.BuildStatsString()))

	e.releases.Flush()
	unclaim()
	e.logger.Info("engine destroyed")
}
