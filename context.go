// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderloop

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/renderloop/internal/ring"
	"github.com/gogpu/renderloop/telemetry"
)

// State is the orchestrator's lifecycle state.
type State int

const (
	// StateDetached: no surface attached. Tree updates accumulate; draws
	// are no-ops.
	StateDetached State = iota

	// StateAttachedStopped: surface attached but drawing suppressed.
	// Damage accumulates and is drawn in full on resume.
	StateAttachedStopped

	// StateAttachedActive: attached and drawing.
	StateAttachedActive
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDetached:
		return "Detached"
	case StateAttachedStopped:
		return "AttachedStopped"
	case StateAttachedActive:
		return "AttachedActive"
	default:
		return "Unknown"
	}
}

// Context is the per-window frame orchestrator: it owns the attached
// surface, synchronizes scene-graph updates with draws, paces frame
// production against the swap cadence, and records per-frame timing.
//
// Unless noted otherwise, Context methods must run on the rendering
// execution context (see RenderThread); use Proxy from producer
// goroutines. A Context created with a nil RenderThread is single-threaded
// and may be driven inline.
type Context struct {
	rt       *RenderThread
	pipeline Pipeline

	name          string
	opaque        bool
	stopped       bool
	isDirty       bool
	swapBehavior  SwapBehavior
	light         LightGeometry
	lightInfo     LightInfo
	contentBounds image.Rectangle
	clock         func() time.Time
	strict        bool

	surface           Surface
	pendingSurface    Surface
	hasPendingSurface bool
	drawing           bool
	destroyed         bool

	damage    DamageAccumulator
	layers    LayerUpdateQueue
	animation AnimationContext
	rootNodes []Node

	prefetched map[Node]struct{}
	pins       *PinCache

	frameNumber   atomic.Uint64
	lastDropVsync time.Time

	swap    *swapChain
	current telemetry.FrameInfo
	frames  *ring.Ring[telemetry.FrameInfo]
	jank    *telemetry.JankTracker

	reporterMu sync.Mutex
	reporter   *telemetry.Reporter

	workMu sync.Mutex
	work   []workItem
}

// NewContext creates a frame orchestrator bound to the render thread and
// pipeline. It registers itself as a frame callback on the render thread;
// Destroy deregisters it.
//
// Must be called on the rendering execution context (NewProxy does this
// for you). rt may be nil for single-threaded use.
func NewContext(rt *RenderThread, pipeline Pipeline, opts ...Option) *Context {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Context{
		rt:            rt,
		pipeline:      pipeline,
		name:          cfg.name,
		opaque:        cfg.opaque,
		swapBehavior:  cfg.swapBehavior,
		light:         cfg.light,
		lightInfo:     cfg.lightInfo,
		contentBounds: cfg.contentBounds,
		clock:         cfg.clock,
		strict:        cfg.strictLifecycle,
		prefetched:    make(map[Node]struct{}),
		pins:          NewPinCache(cfg.pinBudget),
		swap:          newSwapChain(cfg.pacing),
		frames:        ring.New[telemetry.FrameInfo](telemetry.FrameRingCapacity(cfg.jank.Interval)),
		jank:          telemetry.NewJankTracker(cfg.jank),
	}
	if cfg.factory != nil {
		c.animation = cfg.factory.CreateAnimationContext(c.clock)
	} else {
		c.animation = noopAnimationContext{}
	}
	if rt != nil {
		rt.AddFrameCallback(c)
	}
	return c
}

// Name returns the context's diagnostic name. Safe from any goroutine once
// set.
func (c *Context) Name() string { return c.name }

// SetName sets the diagnostic name used in log output.
func (c *Context) SetName(name string) { c.name = name }

// SetOpaque declares the window content fully opaque.
func (c *Context) SetOpaque(opaque bool) { c.opaque = opaque }

// SetSwapBehavior selects the dirty-region strategy. Won't take effect
// until the next surface is attached.
func (c *Context) SetSwapBehavior(b SwapBehavior) { c.swapBehavior = b }

// SetLightGeometry positions the shadow-casting light.
func (c *Context) SetLightGeometry(g LightGeometry) { c.light = g }

// SetLightInfo sets shadow alpha parameters.
func (c *Context) SetLightInfo(li LightInfo) { c.lightInfo = li }

// SetContentDrawBounds sets the bounds of the main content within the
// surface; the pipeline receives them on every draw.
func (c *Context) SetContentDrawBounds(b image.Rectangle) { c.contentBounds = b }

// DeviceProvider returns the shared GPU context handle, or nil when the
// context is single-threaded.
func (c *Context) DeviceProvider() gpucontext.DeviceProvider {
	if c.rt == nil {
		return nil
	}
	return c.rt.DeviceProvider()
}

// State returns the current lifecycle state.
func (c *Context) State() State {
	switch {
	case c.surface == nil:
		return StateDetached
	case c.stopped:
		return StateAttachedStopped
	default:
		return StateAttachedActive
	}
}

// HasSurface reports whether a surface is attached.
func (c *Context) HasSurface() bool { return c.surface != nil }

// FrameNumber returns the monotonic frame counter. It increments exactly
// once per attempted draw, whether or not the draw executed. Safe from any
// goroutine.
func (c *Context) FrameNumber() uint64 { return c.frameNumber.Load() }

// AddRenderNode adds a root scene node, in front of the existing roots when
// placeFront is true. Roots are shared: the context never mutates them.
func (c *Context) AddRenderNode(n Node, placeFront bool) {
	if n == nil {
		return
	}
	if placeFront {
		c.rootNodes = append([]Node{n}, c.rootNodes...)
		return
	}
	c.rootNodes = append(c.rootNodes, n)
}

// RemoveRenderNode removes a root scene node.
func (c *Context) RemoveRenderNode(n Node) {
	for i, root := range c.rootNodes {
		if root == n {
			c.rootNodes = append(c.rootNodes[:i], c.rootNodes[i+1:]...)
			return
		}
	}
}

// SetSurface binds a new presentable surface, tearing down any prior
// surface's GPU-side state first. When a draw is in flight the swap is
// queued silently and applied after the draw completes.
func (c *Context) SetSurface(s Surface) {
	if c.drawing {
		c.pendingSurface = s
		c.hasPendingSurface = true
		return
	}
	c.setSurface(s)
}

func (c *Context) setSurface(s Surface) {
	old := c.surface
	if err := c.pipeline.SetSurface(s); err != nil {
		Logger().Warn("renderloop: pipeline rejected surface", "name", c.name, "err", err)
	}
	c.surface = s
	if old != nil && old != s {
		old.Release()
	}
	// Pacing history from the previous swap chain is meaningless for a new
	// surface.
	c.swap.clear()
}

// PauseSurface suppresses drawing when s is the currently attached surface
// (or s is nil). Returns whether a surface is still attached.
func (c *Context) PauseSurface(s Surface) bool {
	if s == nil || s == c.surface {
		c.SetStopped(true)
	}
	return c.surface != nil
}

// SetStopped transitions between AttachedActive and AttachedStopped. While
// stopped, tree updates are accepted and damage accumulates, but draws are
// suppressed. On resume, accumulated damage is drawn in full.
func (c *Context) SetStopped(stopped bool) {
	if c.stopped == stopped {
		return
	}
	c.stopped = stopped
	if !stopped && c.isDirty && c.surface != nil {
		if err := c.Draw(); err != nil {
			Logger().Warn("renderloop: resume draw failed", "name", c.name, "err", err)
		}
	}
}

// SynchronizeTree pulls updated geometry, paint state, and damage from the
// scene graph into the damage accumulator and layer update queue. Legal in
// every state: while detached or stopped the results accumulate until
// drawing resumes.
func (c *Context) SynchronizeTree(info *TreeInfo) {
	if c.destroyed {
		return
	}
	if info == nil {
		info = &TreeInfo{}
	}
	now := c.clock()
	if info.Vsync.IsZero() {
		info.Vsync = now
	}
	if info.QueuedAt.IsZero() {
		info.QueuedAt = now
	}

	c.current = telemetry.FrameInfo{}
	c.current.Set(telemetry.MarkerIntendedVsync, info.Vsync)
	c.current.Set(telemetry.MarkerVsync, info.Vsync)
	c.current.Set(telemetry.MarkerSyncQueued, info.QueuedAt)
	c.current.Set(telemetry.MarkerSyncStart, now)

	info.Damage = &c.damage
	info.Layers = &c.layers

	c.animation.StartFrame()
	if info.Target != nil {
		info.Target.Sync(info)
	} else {
		for _, n := range c.rootNodes {
			n.Sync(info)
		}
	}
	c.animation.RunAnimations(info)

	if !c.damage.IsEmpty() {
		c.isDirty = true
	}
}

// EnqueueFrameWork queues work that must execute and complete before the
// next frame's draw is considered finished. Items run on the rendering
// execution context in submission order; each returned fence resolves with
// its item's error. Safe from any goroutine.
func (c *Context) EnqueueFrameWork(fn func() error) *Fence {
	f := newFence()
	c.workMu.Lock()
	if c.destroyed {
		c.workMu.Unlock()
		f.resolve(ErrContextDestroyed)
		return f
	}
	c.work = append(c.work, workItem{fn: fn, fence: f})
	c.workMu.Unlock()
	return f
}

// waitOnFences drains the deferred work queue, executing items in
// submission order and fulfilling their fences. A failing item never skips
// the items behind it.
func (c *Context) waitOnFences() {
	c.workMu.Lock()
	items := c.work
	c.work = nil
	c.workMu.Unlock()
	for _, item := range items {
		item.run()
	}
}

// cancelFrameWork resolves all still-queued fences with ErrWorkCanceled.
func (c *Context) cancelFrameWork() {
	c.workMu.Lock()
	items := c.work
	c.work = nil
	c.workMu.Unlock()
	for _, item := range items {
		item.fence.resolve(ErrWorkCanceled)
	}
}

// Draw produces and presents one frame. The frame counter increments on
// every call; outside AttachedActive the rest is a silent no-op. Pipeline
// or presentation failures are returned, with the frame still counted and
// its timing sample recorded as failed.
func (c *Context) Draw() error {
	frameNumber := c.frameNumber.Add(1)
	if c.destroyed {
		return ErrContextDestroyed
	}
	if c.stopped || c.surface == nil {
		// Tree state keeps accumulating; nothing is presented and no swap
		// history is recorded.
		if !c.damage.IsEmpty() {
			c.isDirty = true
		}
		return nil
	}

	c.drawing = true
	defer func() {
		c.drawing = false
		if c.hasPendingSurface {
			pending := c.pendingSurface
			c.pendingSurface = nil
			c.hasPendingSurface = false
			c.setSurface(pending)
		}
	}()

	c.ensureFrameMarkers()
	c.current.FrameNumber = frameNumber

	// Deferred work must complete before this frame's draw is finished.
	c.waitOnFences()

	dirty := c.computeDirtyRect()
	vsync := c.current.Get(telemetry.MarkerIntendedVsync)

	if c.swap.stuffed() && !dirty.Empty() && !c.isFullFrame(dirty) {
		// Presenting now would only add latency. Skip this frame, keep the
		// damage accumulated, and record a dropped-frame sample.
		c.lastDropVsync = vsync
		c.current.AddFlag(telemetry.FlagSkippedFrame)
		c.finishFrame()
		Logger().Debug("renderloop: swap chain stuffed, dropping frame",
			"name", c.name, "frame", frameNumber)
		return nil
	}

	for _, e := range c.layers.Entries() {
		if !c.pipeline.CreateOrUpdateLayer(e.Node, e.Damage) {
			Logger().Warn("renderloop: layer update failed",
				"name", c.name, "node", e.Node.Name())
		}
	}
	c.layers.Clear()

	c.current.Set(telemetry.MarkerIssueDrawCommands, c.clock())
	drawErr := c.pipeline.Draw(DrawArgs{
		Damage:        dirty,
		Light:         c.light,
		LightInfo:     c.lightInfo,
		ContentBounds: c.contentBounds,
		Opaque:        c.opaque,
		Surface:       c.surface,
	})

	var presentErr error
	if drawErr == nil {
		c.current.Set(telemetry.MarkerSwapBuffers, c.clock())
		res, err := c.surface.Present(dirty)
		if err != nil {
			presentErr = err
		} else {
			// Appended strictly after successful presentation, never
			// speculatively.
			c.swap.record(SwapEntry{
				Damage:          dirty,
				TargetVsync:     vsync,
				SwapCompleted:   res.CompletedAt,
				DequeueDuration: res.DequeueDuration,
				QueueDuration:   res.QueueDuration,
			})
		}
	}

	if drawErr != nil || presentErr != nil {
		// Keep the damage so the next frame repaints the failed region.
		c.current.AddFlag(telemetry.FlagFailedDraw)
		c.isDirty = true
		c.finishFrame()
		if drawErr != nil {
			return fmt.Errorf("renderloop: pipeline draw: %w", drawErr)
		}
		return fmt.Errorf("renderloop: present: %w", presentErr)
	}

	c.damage.Reset()
	c.isDirty = false
	c.finishFrame()
	return nil
}

// ensureFrameMarkers backfills lifecycle markers when Draw runs without a
// preceding SynchronizeTree.
func (c *Context) ensureFrameMarkers() {
	if c.current.Get(telemetry.MarkerIntendedVsync).IsZero() {
		now := c.clock()
		c.current.Set(telemetry.MarkerIntendedVsync, now)
		c.current.Set(telemetry.MarkerVsync, now)
		c.current.Set(telemetry.MarkerSyncQueued, now)
		c.current.Set(telemetry.MarkerSyncStart, now)
	}
}

// finishFrame finalizes the current FrameInfo sample, pushes it into the
// telemetry ring, and fans completed-frame statistics out to observers.
func (c *Context) finishFrame() {
	c.current.Set(telemetry.MarkerFrameCompleted, c.clock())
	fi := c.current
	c.frames.Push(fi)
	stats := c.jank.Add(&fi)

	c.reporterMu.Lock()
	rep := c.reporter
	c.reporterMu.Unlock()
	if rep != nil {
		rep.Report(stats)
	}
	c.current = telemetry.FrameInfo{}
}

// computeDirtyRect produces the minimal region the pipeline must repaint:
// the accumulated damage intersected with the surface bounds, widened under
// SwapBehaviorBufferAge by the damage of the previous buffer-age frames.
func (c *Context) computeDirtyRect() image.Rectangle {
	bounds := c.surface.Bounds()
	dirty := c.damage.Dirty().Intersect(bounds)

	if c.swapBehavior == SwapBehaviorBufferAge {
		age := c.surface.BufferAge()
		if age <= 0 || age-1 > c.swap.size() {
			// Unknown or too-old buffer: repaint everything.
			return bounds
		}
		dirty = dirty.Union(c.swap.damageSince(age - 1)).Intersect(bounds)
	}
	return dirty
}

// isFullFrame reports whether dirty covers enough of the surface to count
// as a full frame. Full frames are presented even under backpressure.
func (c *Context) isFullFrame(dirty image.Rectangle) bool {
	bounds := c.surface.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total <= 0 {
		return true
	}
	area := dirty.Dx() * dirty.Dy()
	return float64(area) >= c.swap.pacing.PartialDamageFraction*float64(total)
}

// DoFrame is the periodic refresh trigger: tree synchronization followed by
// Draw, unless stopped or destroyed. Implements FrameCallback.
func (c *Context) DoFrame(vsync time.Time) {
	if c.stopped || c.destroyed {
		return
	}
	info := &TreeInfo{Vsync: vsync, QueuedAt: vsync}
	c.SynchronizeTree(info)
	if err := c.Draw(); err != nil {
		Logger().Warn("renderloop: frame draw failed", "name", c.name, "err", err)
	}
}

// BuildLayer eagerly creates or refreshes the node's offscreen layer
// outside a frame, remembering it as prefetched. Prefetched layers not
// claimed via MarkLayerInUse are destroyed when the context is.
func (c *Context) BuildLayer(n Node) {
	if n == nil {
		return
	}
	info := &TreeInfo{Vsync: c.clock(), Target: n}
	c.SynchronizeTree(info)
	if !c.pipeline.CreateOrUpdateLayer(n, c.damage.Dirty()) {
		Logger().Warn("renderloop: layer build failed", "name", c.name, "node", n.Name())
		return
	}
	c.prefetched[n] = struct{}{}
}

// MarkLayerInUse claims a prefetched layer: the node's owner is now
// responsible for its lifetime.
func (c *Context) MarkLayerInUse(n Node) {
	delete(c.prefetched, n)
}

// freePrefetchedLayers destroys every unclaimed prefetched layer.
func (c *Context) freePrefetchedLayers() {
	for n := range c.prefetched {
		c.pipeline.DestroyLayer(n)
		delete(c.prefetched, n)
	}
}

// DestroyHardwareResources releases GPU resources that can be recreated on
// demand: unclaimed prefetched layers and pinned images.
func (c *Context) DestroyHardwareResources() {
	c.freePrefetchedLayers()
	c.UnpinImages()
}

// PinImages pins mutable images to the GPU cache so they survive across
// frames without CPU-side copies. Returns false — pinning nothing — when
// the cache budget would be exceeded or the pipeline refuses.
func (c *Context) PinImages(images []PinnedImage) bool {
	pinned := make([]ImageID, 0, len(images))
	for _, img := range images {
		if !c.pins.Pin(img) {
			for _, id := range pinned {
				c.pins.Unpin(id)
			}
			return false
		}
		pinned = append(pinned, img.ID)
	}
	if !c.pipeline.PinImages(pinned) {
		for _, id := range pinned {
			c.pins.Unpin(id)
		}
		return false
	}
	return true
}

// UnpinImages releases every image previously pinned.
func (c *Context) UnpinImages() {
	c.pipeline.UnpinImages()
	c.pins.UnpinAll()
}

// AddFrameMetricsObserver registers an observer for completed-frame
// statistics. The reporter is allocated on the first registration. Safe
// from any goroutine.
func (c *Context) AddFrameMetricsObserver(o telemetry.Observer) {
	if o == nil {
		return
	}
	c.reporterMu.Lock()
	if c.reporter == nil {
		c.reporter = telemetry.NewReporter()
	}
	c.reporter.Add(o)
	c.reporterMu.Unlock()
}

// RemoveFrameMetricsObserver deregisters an observer, freeing the reporter
// when the last one is removed. Safe from any goroutine.
func (c *Context) RemoveFrameMetricsObserver(o telemetry.Observer) {
	c.reporterMu.Lock()
	if c.reporter != nil {
		c.reporter.Remove(o)
		if !c.reporter.HasObservers() {
			c.reporter = nil
		}
	}
	c.reporterMu.Unlock()
}

// JankStats returns the rolling frame totals.
func (c *Context) JankStats() (total, janky, dropped uint64) {
	return c.jank.Totals()
}

// RecentFrames returns up to n most recent FrameInfo samples, oldest first.
func (c *Context) RecentFrames(n int) []telemetry.FrameInfo {
	out := make([]telemetry.FrameInfo, 0, n)
	c.frames.ForEachRecent(n, func(fi telemetry.FrameInfo) {
		out = append(out, fi)
	})
	return out
}

// ResetFrameStats clears the telemetry ring and rolling jank totals.
func (c *Context) ResetFrameStats() {
	c.frames.Clear()
	c.jank.Reset()
}

// Destroy releases the attached surface, flushes prefetched and pinned GPU
// resources, cancels unresolved deferred work with a failure result, and
// detaches from the render thread. Idempotent.
//
// An image still pinned at destroy is a resource leak: fatal under
// WithStrictLifecycle, logged otherwise.
func (c *Context) Destroy() {
	if c.destroyed {
		return
	}
	c.stopped = true
	c.workMu.Lock()
	c.destroyed = true
	c.workMu.Unlock()

	if c.rt != nil {
		c.rt.RemoveFrameCallback(c)
	}

	c.cancelFrameWork()
	c.freePrefetchedLayers()

	if !c.pins.Empty() {
		if c.strict {
			panic(fmt.Sprintf("renderloop: context %q destroyed with %d bytes of pinned images",
				c.name, c.pins.PinnedBytes()))
		}
		Logger().Error("renderloop: context destroyed with pinned images",
			"name", c.name, "bytes", c.pins.PinnedBytes())
	}
	c.UnpinImages()

	if err := c.pipeline.SetSurface(nil); err != nil {
		Logger().Warn("renderloop: pipeline surface teardown failed", "name", c.name, "err", err)
	}
	if c.surface != nil {
		c.surface.Release()
		c.surface = nil
	}
	c.pendingSurface = nil
	c.hasPendingSurface = false

	c.animation.Destroy()
	c.swap.clear()
	c.damage.Reset()
	c.layers.Clear()
}

// Ensure Context implements FrameCallback.
var _ FrameCallback = (*Context)(nil)
