package frames_test

import (
	"fmt"
	"sync"
	"time"

	"github.com/vkngwrapper/alcove/frames"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// simDevice stands in for a device whose queue completes submitted work whenever the host
// waits on the submission's fence. Every call is appended to an event log.
type simDevice struct {
	lock   sync.Mutex
	events []string

	fences     []*simFence
	semaphores int
	scopes     int

	// hang makes fences with pending work time out instead of completing
	hang bool
}

func (d *simDevice) log(format string, args ...any) {
	d.events = append(d.events, fmt.Sprintf(format, args...))
}

func (d *simDevice) Record(format string, args ...any) {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.log(format, args...)
}

// WaitIdle completes all outstanding work
func (d *simDevice) WaitIdle() {
	d.lock.Lock()
	defer d.lock.Unlock()

	for _, fence := range d.fences {
		if fence.pending {
			fence.pending = false
			fence.signaled = true
		}
	}
	d.log("wait idle")
}

func (d *simDevice) Events() []string {
	d.lock.Lock()
	defer d.lock.Unlock()

	return append([]string(nil), d.events...)
}

func (d *simDevice) CreateFence(signaled bool) (frames.Fence, common.VkResult, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	fence := &simFence{device: d, id: len(d.fences), signaled: signaled}
	d.fences = append(d.fences, fence)
	return fence, core1_0.VKSuccess, nil
}

func (d *simDevice) CreateSemaphore() (frames.Semaphore, common.VkResult, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	semaphore := &simSemaphore{device: d, id: d.semaphores}
	d.semaphores++
	return semaphore, core1_0.VKSuccess, nil
}

func (d *simDevice) CreateCommandScope() (frames.CommandScope, common.VkResult, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	scope := &simScope{device: d, id: d.scopes}
	d.scopes++
	return scope, core1_0.VKSuccess, nil
}

func (d *simDevice) Submit(commands frames.CommandScope, wait frames.Semaphore, waitStage core1_0.PipelineStageFlags, signal frames.Semaphore, fence frames.Fence) (common.VkResult, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	f := fence.(*simFence)
	if f.pending {
		return core1_0.VKErrorUnknown, fmt.Errorf("fence %d submitted while still pending", f.id)
	}

	f.pending = true
	f.signaled = false
	d.log("submit scope %d fence %d", commands.(*simScope).id, f.id)
	return core1_0.VKSuccess, nil
}

type simFence struct {
	device    *simDevice
	id        int
	signaled  bool
	pending   bool
	destroyed bool
}

func (f *simFence) Pending() bool {
	f.device.lock.Lock()
	defer f.device.lock.Unlock()

	return f.pending
}

func (f *simFence) Wait(timeout time.Duration) (common.VkResult, error) {
	f.device.lock.Lock()
	defer f.device.lock.Unlock()

	if f.pending && !f.device.hang {
		f.pending = false
		f.signaled = true
	}

	if !f.signaled {
		f.device.log("timeout fence %d", f.id)
		return core1_0.VKTimeout, nil
	}

	f.device.log("wait fence %d", f.id)
	return core1_0.VKSuccess, nil
}

func (f *simFence) Reset() (common.VkResult, error) {
	f.device.lock.Lock()
	defer f.device.lock.Unlock()

	if f.pending {
		return core1_0.VKErrorUnknown, fmt.Errorf("fence %d reset while still pending", f.id)
	}

	f.signaled = false
	f.device.log("reset fence %d", f.id)
	return core1_0.VKSuccess, nil
}

func (f *simFence) Destroy() {
	f.device.lock.Lock()
	defer f.device.lock.Unlock()

	f.destroyed = true
	f.device.log("destroy fence %d", f.id)
}

type simSemaphore struct {
	device *simDevice
	id     int
}

func (s *simSemaphore) Destroy() {
	s.device.lock.Lock()
	defer s.device.lock.Unlock()

	s.device.log("destroy semaphore %d", s.id)
}

type simScope struct {
	device    *simDevice
	id        int
	recording bool
}

func (s *simScope) Reset() (common.VkResult, error) {
	s.device.lock.Lock()
	defer s.device.lock.Unlock()

	s.recording = false
	return core1_0.VKSuccess, nil
}

func (s *simScope) Begin() (common.VkResult, error) {
	s.device.lock.Lock()
	defer s.device.lock.Unlock()

	s.recording = true
	s.device.log("begin scope %d", s.id)
	return core1_0.VKSuccess, nil
}

func (s *simScope) End() (common.VkResult, error) {
	s.device.lock.Lock()
	defer s.device.lock.Unlock()

	if !s.recording {
		return core1_0.VKErrorUnknown, fmt.Errorf("scope %d ended without beginning", s.id)
	}
	s.recording = false
	return core1_0.VKSuccess, nil
}

func (s *simScope) CommandBuffer() core1_0.CommandBuffer {
	return nil
}

func (s *simScope) Destroy() {
	s.device.lock.Lock()
	defer s.device.lock.Unlock()

	s.device.log("destroy scope %d", s.id)
}

// simPresenter hands out swapchain images round-robin
type simPresenter struct {
	device *simDevice
	images int
	next   int

	acquireResult common.VkResult
}

func (p *simPresenter) AcquireNextImage(timeout time.Duration, signal frames.Semaphore) (int, common.VkResult, error) {
	p.device.lock.Lock()
	defer p.device.lock.Unlock()

	if p.acquireResult != core1_0.VKSuccess {
		return -1, p.acquireResult, p.acquireResult.ToError()
	}

	image := p.next
	p.next = (p.next + 1) % p.images
	p.device.log("acquire image %d semaphore %d", image, signal.(*simSemaphore).id)
	return image, core1_0.VKSuccess, nil
}

func (p *simPresenter) Present(imageIndex int, wait frames.Semaphore) (common.VkResult, error) {
	p.device.lock.Lock()
	defer p.device.lock.Unlock()

	p.device.log("present image %d semaphore %d", imageIndex, wait.(*simSemaphore).id)
	return core1_0.VKSuccess, nil
}
