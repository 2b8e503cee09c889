// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderloop

import (
	"image"

	"github.com/gogpu/renderloop/telemetry"
)

// Proxy is the producer-side handle to a Context. Every GPU-state-mutating
// call is marshaled onto the render thread rather than invoked directly;
// errors never cross the context boundary as panics — they come back
// through fences or synchronous results.
//
// A Proxy is not itself goroutine-safe: it represents one producer.
type Proxy struct {
	rt  *RenderThread
	ctx *Context
}

// NewProxy creates a Context on the render thread and returns its
// producer-side handle.
func NewProxy(rt *RenderThread, pipeline Pipeline, opts ...Option) *Proxy {
	var ctx *Context
	rt.Call(func() {
		ctx = NewContext(rt, pipeline, opts...)
	})
	return &Proxy{rt: rt, ctx: ctx}
}

// Context returns the underlying orchestrator for render-thread code.
func (p *Proxy) Context() *Context { return p.ctx }

// SetSurface binds a new presentable surface, asynchronously.
func (p *Proxy) SetSurface(s Surface) {
	p.rt.Post(func() { p.ctx.SetSurface(s) })
}

// PauseSurface suppresses drawing for the given surface and reports whether
// a surface is still attached.
func (p *Proxy) PauseSurface(s Surface) bool {
	var attached bool
	p.rt.Call(func() { attached = p.ctx.PauseSurface(s) })
	return attached
}

// SetStopped toggles draw suppression, asynchronously.
func (p *Proxy) SetStopped(stopped bool) {
	p.rt.Post(func() { p.ctx.SetStopped(stopped) })
}

// SetOpaque declares the window content fully opaque, asynchronously.
func (p *Proxy) SetOpaque(opaque bool) {
	p.rt.Post(func() { p.ctx.SetOpaque(opaque) })
}

// SetLightGeometry updates the shadow light, asynchronously.
func (p *Proxy) SetLightGeometry(g LightGeometry) {
	p.rt.Post(func() { p.ctx.SetLightGeometry(g) })
}

// SetContentDrawBounds updates the main-content bounds, asynchronously.
func (p *Proxy) SetContentDrawBounds(b image.Rectangle) {
	p.rt.Post(func() { p.ctx.SetContentDrawBounds(b) })
}

// AddRenderNode adds a root scene node, synchronously.
func (p *Proxy) AddRenderNode(n Node, placeFront bool) {
	p.rt.Call(func() { p.ctx.AddRenderNode(n, placeFront) })
}

// RemoveRenderNode removes a root scene node, synchronously.
func (p *Proxy) RemoveRenderNode(n Node) {
	p.rt.Call(func() { p.ctx.RemoveRenderNode(n) })
}

// SyncAndDraw synchronizes the tree and draws one frame, synchronously,
// returning the draw error.
func (p *Proxy) SyncAndDraw(info *TreeInfo) error {
	var err error
	p.rt.Call(func() {
		p.ctx.SynchronizeTree(info)
		err = p.ctx.Draw()
	})
	return err
}

// EnqueueFrameWork queues deferred frame work. The context's queue is
// goroutine-safe, so no marshaling is needed.
func (p *Proxy) EnqueueFrameWork(fn func() error) *Fence {
	return p.ctx.EnqueueFrameWork(fn)
}

// BuildLayer eagerly builds the node's offscreen layer, synchronously.
func (p *Proxy) BuildLayer(n Node) {
	p.rt.Call(func() { p.ctx.BuildLayer(n) })
}

// FrameNumber returns the monotonic frame counter.
func (p *Proxy) FrameNumber() uint64 { return p.ctx.FrameNumber() }

// AddFrameMetricsObserver registers a completed-frame statistics observer.
func (p *Proxy) AddFrameMetricsObserver(o telemetry.Observer) {
	p.ctx.AddFrameMetricsObserver(o)
}

// RemoveFrameMetricsObserver deregisters an observer.
func (p *Proxy) RemoveFrameMetricsObserver(o telemetry.Observer) {
	p.ctx.RemoveFrameMetricsObserver(o)
}

// Destroy tears the context down on the render thread and waits for it.
func (p *Proxy) Destroy() {
	p.rt.Call(func() { p.ctx.Destroy() })
}
