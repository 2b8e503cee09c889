// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderloop

import (
	"runtime"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// FrameCallback is invoked once per display refresh signal.
// Context implements it; hosts register additional callbacks as needed.
type FrameCallback interface {
	DoFrame(vsync time.Time)
}

// RenderThread is the serialized rendering execution context shared by the
// contexts created on it.
//
// All GPU-state-mutating operations (draw, layer create/destroy, surface
// binding) run here. Tasks are executed one at a time on a dedicated
// goroutine locked to its OS thread, since GPU APIs commonly require a
// stable thread.
type RenderThread struct {
	device gpucontext.DeviceProvider

	tasks   chan func()
	stop    chan struct{}
	stopped chan struct{}

	stopOnce sync.Once

	mu        sync.Mutex
	callbacks map[FrameCallback]struct{}
}

// NewRenderThread starts the rendering executor. The device provider is the
// host-supplied GPU context handle; it may be NullDeviceProvider for
// CPU-only pipelines and tests.
func NewRenderThread(device gpucontext.DeviceProvider) *RenderThread {
	rt := &RenderThread{
		device:    device,
		tasks:     make(chan func()),
		stop:      make(chan struct{}),
		stopped:   make(chan struct{}),
		callbacks: make(map[FrameCallback]struct{}),
	}
	go rt.loop()
	return rt
}

func (rt *RenderThread) loop() {
	defer close(rt.stopped)
	// GPU operations must happen on a single OS thread. The thread is not
	// unlocked on exit to keep the Go runtime from reusing it.
	runtime.LockOSThread()
	for {
		select {
		case fn := <-rt.tasks:
			fn()
		case <-rt.stop:
			return
		}
	}
}

// DeviceProvider returns the shared GPU context handle.
func (rt *RenderThread) DeviceProvider() gpucontext.DeviceProvider {
	return rt.device
}

// Post schedules fn asynchronously. Tasks run serialized in submission
// order. Posts after Stop are dropped.
func (rt *RenderThread) Post(fn func()) {
	if fn == nil {
		return
	}
	select {
	case rt.tasks <- fn:
	case <-rt.stop:
		Logger().Warn("renderloop: task posted to stopped render thread")
	}
}

// Call runs fn synchronously on the render thread and waits for it.
// Must not be called from the render thread itself — that deadlocks.
func (rt *RenderThread) Call(fn func()) {
	done := make(chan struct{})
	rt.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
	case <-rt.stopped:
	}
}

// Run schedules fn and returns a fence resolving with its error.
func (rt *RenderThread) Run(fn func() error) *Fence {
	f := newFence()
	rt.Post(func() {
		var err error
		if fn != nil {
			err = fn()
		}
		f.resolve(err)
	})
	return f
}

// AddFrameCallback registers cb for DispatchFrame fan-out. Idempotent.
func (rt *RenderThread) AddFrameCallback(cb FrameCallback) {
	if cb == nil {
		return
	}
	rt.mu.Lock()
	rt.callbacks[cb] = struct{}{}
	rt.mu.Unlock()
}

// RemoveFrameCallback deregisters cb. Idempotent.
func (rt *RenderThread) RemoveFrameCallback(cb FrameCallback) {
	rt.mu.Lock()
	delete(rt.callbacks, cb)
	rt.mu.Unlock()
}

// DispatchFrame posts one task invoking DoFrame on every registered
// callback. The host calls this once per display refresh signal.
func (rt *RenderThread) DispatchFrame(vsync time.Time) {
	rt.Post(func() {
		rt.mu.Lock()
		snapshot := make([]FrameCallback, 0, len(rt.callbacks))
		for cb := range rt.callbacks {
			snapshot = append(snapshot, cb)
		}
		rt.mu.Unlock()
		for _, cb := range snapshot {
			cb.DoFrame(vsync)
		}
	})
}

// Stop shuts the executor down. Queued tasks that have not started are
// dropped. Blocks until the render goroutine exits.
func (rt *RenderThread) Stop() {
	rt.stopOnce.Do(func() { close(rt.stop) })
	<-rt.stopped
}

// NullDeviceProvider is a DeviceProvider with no GPU behind it, for
// CPU-only pipelines and tests.
type NullDeviceProvider struct{}

// Device returns nil for the null provider.
func (NullDeviceProvider) Device() gpucontext.Device { return nil }

// Queue returns nil for the null provider.
func (NullDeviceProvider) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null provider.
func (NullDeviceProvider) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns undefined format for the null provider.
func (NullDeviceProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// AdapterInfo returns unknown adapter metadata for the null provider.
func (NullDeviceProvider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
}

// Ensure NullDeviceProvider implements gpucontext.DeviceProvider.
var _ gpucontext.DeviceProvider = NullDeviceProvider{}
