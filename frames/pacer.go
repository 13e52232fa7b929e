package frames

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

const (
	DefaultFenceTimeout     = time.Second
	DefaultAcquireTimeout   = time.Second
	DefaultImmediateTimeout = 9999999999 * time.Nanosecond
)

// Options contains the bounded timeouts used by a Pacer. Zero values are replaced with the
// package defaults.
type Options struct {
	FenceTimeout     time.Duration
	AcquireTimeout   time.Duration
	ImmediateTimeout time.Duration
}

func (o *Options) fillDefaults() {
	if o.FenceTimeout <= 0 {
		o.FenceTimeout = DefaultFenceTimeout
	}
	if o.AcquireTimeout <= 0 {
		o.AcquireTimeout = DefaultAcquireTimeout
	}
	if o.ImmediateTimeout <= 0 {
		o.ImmediateTimeout = DefaultImmediateTimeout
	}
}

// Pacer drives the double-buffered frame loop. Each frame it waits for the current slot's
// previous submission, releases that slot's deferred objects, acquires a presentation image,
// and opens the slot's command scope for recording. Submit and Present then close out the
// frame and advance to the next slot.
//
// BeginFrame, Submit and Present must be called from the goroutine that owns the frame loop.
// ImmediateSubmit may be called from any goroutine; calls are serialized.
type Pacer struct {
	logger    *slog.Logger
	device    Device
	presenter Presenter
	options   Options

	frames      [FrameOverlap]Frame
	frameNumber int

	immediateMutex    sync.Mutex
	immediateFence    Fence
	immediateCommands CommandScope
}

// New creates every frame slot along with the dedicated fence and command scope used by
// ImmediateSubmit. presenter may be nil if only ImmediateSubmit will be used.
func New(logger *slog.Logger, device Device, presenter Presenter, options Options) (*Pacer, error) {
	options.fillDefaults()

	pacer := &Pacer{
		logger:    logger,
		device:    device,
		presenter: presenter,
		options:   options,
	}

	for i := range pacer.frames {
		err := pacer.frames[i].init(logger, device, i)
		if err != nil {
			pacer.Destroy()
			return nil, err
		}
	}

	var err error
	pacer.immediateFence, err = create(func() (Fence, common.VkResult, error) { return device.CreateFence(false) }, "create immediate fence")
	if err != nil {
		pacer.Destroy()
		return nil, err
	}

	pacer.immediateCommands, err = create(device.CreateCommandScope, "create immediate command scope")
	if err != nil {
		pacer.Destroy()
		return nil, err
	}

	return pacer, nil
}

// FrameNumber is the number of frames that have been presented
func (p *Pacer) FrameNumber() int {
	return p.frameNumber
}

// CurrentFrame is the slot the next call to BeginFrame will use
func (p *Pacer) CurrentFrame() *Frame {
	return &p.frames[p.frameNumber%FrameOverlap]
}

// BeginFrame waits for the current slot to become reusable, flushes its release queue, acquires
// the next presentation image, and begins the slot's command scope. It returns the slot and
// the index of the acquired image.
func (p *Pacer) BeginFrame() (*Frame, int, error) {
	if p.presenter == nil {
		return nil, -1, errors.New("BeginFrame requires a presenter")
	}

	frame := p.CurrentFrame()

	res, err := frame.RenderFence.Wait(p.options.FenceTimeout)
	if err = checkResult(res, err, "wait for render fence"); err != nil {
		return nil, -1, err
	}

	p.logger.LogAttrs(context.Background(), slog.LevelDebug, "Pacer::BeginFrame",
		slog.Int("frameNumber", p.frameNumber),
		slog.Int("slot", frame.Index),
		slog.Int("releases", frame.Releases.Len()),
	)
	frame.Releases.Flush()

	res, err = frame.RenderFence.Reset()
	if err = checkResult(res, err, "reset render fence"); err != nil {
		return nil, -1, err
	}

	imageIndex, res, err := p.presenter.AcquireNextImage(p.options.AcquireTimeout, frame.AcquireSemaphore)
	if err = checkResult(res, err, "acquire presentation image"); err != nil {
		return nil, -1, err
	}

	res, err = frame.Commands.Reset()
	if err = checkResult(res, err, "reset frame command scope"); err != nil {
		return nil, -1, err
	}

	res, err = frame.Commands.Begin()
	if err = checkResult(res, err, "begin frame command scope"); err != nil {
		return nil, -1, err
	}

	return frame, imageIndex, nil
}

// Submit ends the slot's command scope and submits it to the graphics queue. Execution waits
// for the acquired image at the color attachment output stage, then signals the slot's render
// semaphore and render fence.
func (p *Pacer) Submit(frame *Frame) error {
	res, err := frame.Commands.End()
	if err = checkResult(res, err, "end frame command scope"); err != nil {
		return err
	}

	res, err = p.device.Submit(frame.Commands, frame.AcquireSemaphore, core1_0.PipelineStageColorAttachmentOutput, frame.RenderSemaphore, frame.RenderFence)
	return checkResult(res, err, "submit frame")
}

// Present queues imageIndex for display once the slot's render semaphore signals, then advances
// to the next slot
func (p *Pacer) Present(frame *Frame, imageIndex int) error {
	res, err := p.presenter.Present(imageIndex, frame.RenderSemaphore)
	if err = checkResult(res, err, "present"); err != nil {
		return err
	}

	p.frameNumber++
	return nil
}

// ImmediateSubmit records commands with record, submits them to the graphics queue, and blocks
// until the device has finished executing them. Only one immediate submission runs at a time.
func (p *Pacer) ImmediateSubmit(record func(commands CommandScope) error) error {
	p.immediateMutex.Lock()
	defer p.immediateMutex.Unlock()

	res, err := p.immediateFence.Reset()
	if err = checkResult(res, err, "reset immediate fence"); err != nil {
		return err
	}

	res, err = p.immediateCommands.Reset()
	if err = checkResult(res, err, "reset immediate command scope"); err != nil {
		return err
	}

	res, err = p.immediateCommands.Begin()
	if err = checkResult(res, err, "begin immediate command scope"); err != nil {
		return err
	}

	err = record(p.immediateCommands)
	if err != nil {
		return errors.Wrap(err, "record immediate commands")
	}

	res, err = p.immediateCommands.End()
	if err = checkResult(res, err, "end immediate command scope"); err != nil {
		return err
	}

	res, err = p.device.Submit(p.immediateCommands, nil, 0, nil, p.immediateFence)
	if err = checkResult(res, err, "immediate submit"); err != nil {
		return err
	}

	res, err = p.immediateFence.Wait(p.options.ImmediateTimeout)
	return checkResult(res, err, "wait for immediate fence")
}

// Destroy flushes every slot's release queue and destroys the objects the Pacer created. The
// device must be idle.
func (p *Pacer) Destroy() {
	for i := range p.frames {
		p.frames[i].destroy()
	}

	if p.immediateCommands != nil {
		p.immediateCommands.Destroy()
		p.immediateCommands = nil
	}
	if p.immediateFence != nil {
		p.immediateFence.Destroy()
		p.immediateFence = nil
	}
}
