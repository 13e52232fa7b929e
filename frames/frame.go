package frames

import (
	"fmt"
	"log/slog"

	"github.com/vkngwrapper/alcove/release"
	"github.com/vkngwrapper/core/v2/common"
)

// FrameOverlap is the number of frame slots in rotation
const FrameOverlap = 2

// Frame is one frame slot. Everything in it belongs to the slot and is only reused once
// RenderFence reports that the device finished the slot's previous submission.
type Frame struct {
	Index int

	Commands         CommandScope
	RenderFence      Fence
	AcquireSemaphore Semaphore
	RenderSemaphore  Semaphore

	// Releases is flushed each time this slot comes back around, after RenderFence has been
	// waited on. Objects only referenced by this slot's commands can be queued here.
	Releases release.Queue
}

func (f *Frame) init(logger *slog.Logger, device Device, index int) error {
	f.Index = index
	f.Releases.Init(logger, fmt.Sprintf("frame %d", index), release.OrderFIFO)

	var err error
	f.Commands, err = create(device.CreateCommandScope, "create frame command scope")
	if err != nil {
		return err
	}

	// Signaled so the first wait on a fresh slot returns immediately
	f.RenderFence, err = create(func() (Fence, common.VkResult, error) { return device.CreateFence(true) }, "create render fence")
	if err != nil {
		return err
	}

	f.AcquireSemaphore, err = create(device.CreateSemaphore, "create acquire semaphore")
	if err != nil {
		return err
	}

	f.RenderSemaphore, err = create(device.CreateSemaphore, "create render semaphore")
	return err
}

func (f *Frame) destroy() {
	// At shutdown the most recently registered object goes first, as with the global queue
	f.Releases.FlushInOrder(release.OrderLIFO)

	if f.RenderSemaphore != nil {
		f.RenderSemaphore.Destroy()
		f.RenderSemaphore = nil
	}
	if f.AcquireSemaphore != nil {
		f.AcquireSemaphore.Destroy()
		f.AcquireSemaphore = nil
	}
	if f.RenderFence != nil {
		f.RenderFence.Destroy()
		f.RenderFence = nil
	}
	if f.Commands != nil {
		f.Commands.Destroy()
		f.Commands = nil
	}
}

func create[T any](constructor func() (T, common.VkResult, error), stage string) (T, error) {
	obj, res, err := constructor()
	if checkErr := checkResult(res, err, stage); checkErr != nil {
		var zero T
		return zero, checkErr
	}
	return obj, nil
}
