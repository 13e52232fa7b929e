package frames_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/alcove/frames"
	mock_frames "github.com/vkngwrapper/alcove/frames/mocks"
	"github.com/vkngwrapper/core/v2/core1_0"
	"go.uber.org/mock/gomock"
)

// sameMatcher matches only the exact object it was created with. gomock.Eq compares mocks
// deeply, which cannot tell two mocks of the same type apart.
type sameMatcher struct {
	obj any
}

func same(obj any) gomock.Matcher {
	return sameMatcher{obj: obj}
}

func (m sameMatcher) Matches(x any) bool {
	return x == m.obj
}

func (m sameMatcher) String() string {
	return fmt.Sprintf("is %p", m.obj)
}

type mockSlot struct {
	commands *mock_frames.MockCommandScope
	fence    *mock_frames.MockFence
	acquire  *mock_frames.MockSemaphore
	render   *mock_frames.MockSemaphore
}

type mockRig struct {
	device    *mock_frames.MockDevice
	presenter *mock_frames.MockPresenter

	slots             [frames.FrameOverlap]mockSlot
	immediateFence    *mock_frames.MockFence
	immediateCommands *mock_frames.MockCommandScope
}

func readyMockPacer(t *testing.T, ctrl *gomock.Controller, options frames.Options) (*mockRig, *frames.Pacer) {
	rig := &mockRig{
		device:            mock_frames.NewMockDevice(ctrl),
		presenter:         mock_frames.NewMockPresenter(ctrl),
		immediateFence:    mock_frames.NewMockFence(ctrl),
		immediateCommands: mock_frames.NewMockCommandScope(ctrl),
	}

	// Expectations with identical arguments are matched in the order they are declared
	for i := range rig.slots {
		slot := &rig.slots[i]
		slot.commands = mock_frames.NewMockCommandScope(ctrl)
		slot.fence = mock_frames.NewMockFence(ctrl)
		slot.acquire = mock_frames.NewMockSemaphore(ctrl)
		slot.render = mock_frames.NewMockSemaphore(ctrl)

		rig.device.EXPECT().CreateCommandScope().Return(slot.commands, core1_0.VKSuccess, nil)
		rig.device.EXPECT().CreateFence(true).Return(slot.fence, core1_0.VKSuccess, nil)
		rig.device.EXPECT().CreateSemaphore().Return(slot.acquire, core1_0.VKSuccess, nil)
		rig.device.EXPECT().CreateSemaphore().Return(slot.render, core1_0.VKSuccess, nil)
	}
	rig.device.EXPECT().CreateFence(false).Return(rig.immediateFence, core1_0.VKSuccess, nil)
	rig.device.EXPECT().CreateCommandScope().Return(rig.immediateCommands, core1_0.VKSuccess, nil)

	pacer, err := frames.New(testLogger(), rig.device, rig.presenter, options)
	require.NoError(t, err)

	return rig, pacer
}

func TestFrameProtocolArguments(t *testing.T) {
	ctrl := gomock.NewController(t)

	rig, pacer := readyMockPacer(t, ctrl, frames.Options{
		FenceTimeout:   250 * time.Millisecond,
		AcquireTimeout: 500 * time.Millisecond,
	})
	slot := rig.slots[0]

	gomock.InOrder(
		slot.fence.EXPECT().Wait(250*time.Millisecond).Return(core1_0.VKSuccess, nil),
		slot.fence.EXPECT().Reset().Return(core1_0.VKSuccess, nil),
		rig.presenter.EXPECT().AcquireNextImage(500*time.Millisecond, same(slot.acquire)).Return(2, core1_0.VKSuccess, nil),
		slot.commands.EXPECT().Reset().Return(core1_0.VKSuccess, nil),
		slot.commands.EXPECT().Begin().Return(core1_0.VKSuccess, nil),
		slot.commands.EXPECT().End().Return(core1_0.VKSuccess, nil),
		rig.device.EXPECT().Submit(
			same(slot.commands),
			same(slot.acquire),
			core1_0.PipelineStageColorAttachmentOutput,
			same(slot.render),
			same(slot.fence),
		).Return(core1_0.VKSuccess, nil),
		rig.presenter.EXPECT().Present(2, same(slot.render)).Return(core1_0.VKSuccess, nil),
	)

	frame, imageIndex, err := pacer.BeginFrame()
	require.NoError(t, err)
	require.Equal(t, 2, imageIndex)
	require.Equal(t, 0, frame.Index)

	require.NoError(t, pacer.Submit(frame))
	require.NoError(t, pacer.Present(frame, imageIndex))
	require.Equal(t, 1, pacer.FrameNumber())
	require.Equal(t, 1, pacer.CurrentFrame().Index)
}

func TestImmediateSubmitArguments(t *testing.T) {
	ctrl := gomock.NewController(t)

	rig, pacer := readyMockPacer(t, ctrl, frames.Options{})

	var recorded frames.CommandScope
	gomock.InOrder(
		rig.immediateFence.EXPECT().Reset().Return(core1_0.VKSuccess, nil),
		rig.immediateCommands.EXPECT().Reset().Return(core1_0.VKSuccess, nil),
		rig.immediateCommands.EXPECT().Begin().Return(core1_0.VKSuccess, nil),
		rig.immediateCommands.EXPECT().End().Return(core1_0.VKSuccess, nil),
		rig.device.EXPECT().Submit(same(rig.immediateCommands), nil, core1_0.PipelineStageFlags(0), nil, same(rig.immediateFence)).Return(core1_0.VKSuccess, nil),
		rig.immediateFence.EXPECT().Wait(frames.DefaultImmediateTimeout).Return(core1_0.VKSuccess, nil),
	)

	err := pacer.ImmediateSubmit(func(commands frames.CommandScope) error {
		recorded = commands
		return nil
	})
	require.NoError(t, err)
	require.Same(t, rig.immediateCommands, recorded)
}

func TestDestroyReleasesEverything(t *testing.T) {
	ctrl := gomock.NewController(t)

	rig, pacer := readyMockPacer(t, ctrl, frames.Options{})
	for _, slot := range rig.slots {
		slot.commands.EXPECT().Destroy()
		slot.fence.EXPECT().Destroy()
		slot.acquire.EXPECT().Destroy()
		slot.render.EXPECT().Destroy()
	}
	rig.immediateCommands.EXPECT().Destroy()
	rig.immediateFence.EXPECT().Destroy()

	pacer.Destroy()

	// A second destroy finds nothing left
	pacer.Destroy()
}

func TestNewCleansUpAfterFailure(t *testing.T) {
	ctrl := gomock.NewController(t)

	device := mock_frames.NewMockDevice(ctrl)
	commands := mock_frames.NewMockCommandScope(ctrl)

	device.EXPECT().CreateCommandScope().Return(commands, core1_0.VKSuccess, nil)
	device.EXPECT().CreateFence(true).Return(nil, core1_0.VKErrorOutOfHostMemory, core1_0.VKErrorOutOfHostMemory.ToError())
	commands.EXPECT().Destroy()

	_, err := frames.New(testLogger(), device, nil, frames.Options{})
	require.True(t, errors.Is(err, frames.ErrDeviceCall))
}
