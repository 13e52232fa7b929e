package frames_test

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/alcove/frames"
	"github.com/vkngwrapper/core/v2/core1_0"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func simPacer(t *testing.T) (*simDevice, *simPresenter, *frames.Pacer) {
	device := &simDevice{}
	presenter := &simPresenter{device: device, images: 3}

	pacer, err := frames.New(testLogger(), device, presenter, frames.Options{})
	require.NoError(t, err)

	return device, presenter, pacer
}

func runFrame(t *testing.T, device *simDevice, pacer *frames.Pacer, frameNumber int) {
	frame, imageIndex, err := pacer.BeginFrame()
	require.NoError(t, err)
	require.Equal(t, frameNumber%frames.FrameOverlap, frame.Index)

	renderFence := frame.RenderFence.(*simFence)
	frame.Releases.Push(func() {
		// The slot's previous submission must be finished before its releases run
		require.False(t, renderFence.Pending())
		device.Record("release frame %d", frameNumber)
	})

	require.NoError(t, pacer.Submit(frame))
	require.NoError(t, pacer.Present(frame, imageIndex))
}

func TestFrameSlotsWaitBeforeRelease(t *testing.T) {
	device, _, pacer := simPacer(t)

	for frameNumber := 0; frameNumber < 2*frames.FrameOverlap; frameNumber++ {
		runFrame(t, device, pacer, frameNumber)
	}
	require.Equal(t, 2*frames.FrameOverlap, pacer.FrameNumber())

	require.Equal(t, []string{
		"wait fence 0",
		"reset fence 0",
		"acquire image 0 semaphore 0",
		"begin scope 0",
		"submit scope 0 fence 0",
		"present image 0 semaphore 1",

		"wait fence 1",
		"reset fence 1",
		"acquire image 1 semaphore 2",
		"begin scope 1",
		"submit scope 1 fence 1",
		"present image 1 semaphore 3",

		"wait fence 0",
		"release frame 0",
		"reset fence 0",
		"acquire image 2 semaphore 0",
		"begin scope 0",
		"submit scope 0 fence 0",
		"present image 2 semaphore 1",

		"wait fence 1",
		"release frame 1",
		"reset fence 1",
		"acquire image 0 semaphore 2",
		"begin scope 1",
		"submit scope 1 fence 1",
		"present image 0 semaphore 3",
	}, device.Events())
}

func TestDestroyFlushesOutstandingReleases(t *testing.T) {
	device, _, pacer := simPacer(t)

	for frameNumber := 0; frameNumber < 2*frames.FrameOverlap; frameNumber++ {
		runFrame(t, device, pacer, frameNumber)
	}

	device.WaitIdle()
	before := len(device.Events())
	pacer.Destroy()
	events := device.Events()[before:]

	require.Contains(t, events, "release frame 2")
	require.Contains(t, events, "release frame 3")
	require.Contains(t, events, "destroy fence 0")
	require.Contains(t, events, "destroy fence 1")
	require.Contains(t, events, "destroy fence 2")
	require.Contains(t, events, "destroy scope 2")
	require.Contains(t, events, "destroy semaphore 3")
}

func TestDestroyReleasesFrameObjectsNewestFirst(t *testing.T) {
	device, _, pacer := simPacer(t)

	frame, imageIndex, err := pacer.BeginFrame()
	require.NoError(t, err)
	for _, name := range []string{"image", "view", "framebuffer"} {
		name := name
		frame.Releases.Push(func() { device.Record("release %s", name) })
	}
	require.NoError(t, pacer.Submit(frame))
	require.NoError(t, pacer.Present(frame, imageIndex))

	device.WaitIdle()
	before := len(device.Events())
	pacer.Destroy()

	var released []string
	for _, event := range device.Events()[before:] {
		if strings.HasPrefix(event, "release ") {
			released = append(released, event)
		}
	}
	require.Equal(t, []string{"release framebuffer", "release view", "release image"}, released)
}

func TestFenceTimeoutIsDeviceLost(t *testing.T) {
	device, _, pacer := simPacer(t)

	runFrame(t, device, pacer, 0)
	runFrame(t, device, pacer, 1)

	device.hang = true

	_, _, err := pacer.BeginFrame()
	require.Error(t, err)
	require.True(t, errors.Is(err, frames.ErrDeviceLost))

	// Slot 0 is still in use so its releases must not have run
	require.NotContains(t, device.Events(), "release frame 0")
	require.Equal(t, 1, pacer.CurrentFrame().Releases.Len())
}

func TestAcquireTimeoutIsDeviceLost(t *testing.T) {
	_, presenter, pacer := simPacer(t)
	presenter.acquireResult = core1_0.VKTimeout

	_, _, err := pacer.BeginFrame()
	require.True(t, errors.Is(err, frames.ErrDeviceLost))
}

func TestAcquireFailureIsDeviceCall(t *testing.T) {
	_, presenter, pacer := simPacer(t)
	presenter.acquireResult = core1_0.VKErrorOutOfDeviceMemory

	_, _, err := pacer.BeginFrame()
	require.True(t, errors.Is(err, frames.ErrDeviceCall))
	require.False(t, errors.Is(err, frames.ErrDeviceLost))
}

func TestBeginFrameWithoutPresenter(t *testing.T) {
	pacer, err := frames.New(testLogger(), &simDevice{}, nil, frames.Options{})
	require.NoError(t, err)

	_, _, err = pacer.BeginFrame()
	require.Error(t, err)
}

func TestImmediateSubmitBlocks(t *testing.T) {
	device, _, pacer := simPacer(t)

	err := pacer.ImmediateSubmit(func(commands frames.CommandScope) error {
		device.Record("record immediate")
		return nil
	})
	require.NoError(t, err)

	require.Equal(t, []string{
		"reset fence 2",
		"begin scope 2",
		"record immediate",
		"submit scope 2 fence 2",
		"wait fence 2",
	}, device.Events())
}

func TestImmediateSubmitSerializes(t *testing.T) {
	device, _, pacer := simPacer(t)

	const submitters = 8

	var wait sync.WaitGroup
	errs := make(chan error, submitters)
	wait.Add(submitters)
	for i := 0; i < submitters; i++ {
		go func() {
			defer wait.Done()

			errs <- pacer.ImmediateSubmit(func(commands frames.CommandScope) error {
				device.Record("record immediate")
				return nil
			})
		}()
	}
	wait.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	events := device.Events()
	require.Len(t, events, submitters*5)
	for i := 0; i < submitters; i++ {
		// Each submission's fence reset follows the previous submission's completion
		require.Equal(t, []string{
			"reset fence 2",
			"begin scope 2",
			"record immediate",
			"submit scope 2 fence 2",
			"wait fence 2",
		}, events[i*5:(i+1)*5])
	}
}

func TestImmediateSubmitRecordError(t *testing.T) {
	device, _, pacer := simPacer(t)

	recordErr := errors.New("bad upload")
	err := pacer.ImmediateSubmit(func(commands frames.CommandScope) error {
		return recordErr
	})
	require.True(t, errors.Is(err, recordErr))
	require.NotContains(t, device.Events(), "submit scope 2 fence 2")
}

func TestImmediateSubmitTimeout(t *testing.T) {
	device, _, pacer := simPacer(t)
	device.hang = true

	err := pacer.ImmediateSubmit(func(commands frames.CommandScope) error {
		return nil
	})
	require.True(t, errors.Is(err, frames.ErrDeviceLost))
}
