// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderloop

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/renderloop/telemetry"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1000, 0)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// fakeNode reports fixed damage on every sync and optionally enqueues
// itself for a layer update.
type fakeNode struct {
	name        string
	damage      image.Rectangle
	layerDamage image.Rectangle
	needsLayer  bool
	syncs       int
}

func (n *fakeNode) Name() string { return n.name }

func (n *fakeNode) Sync(info *TreeInfo) {
	n.syncs++
	info.Damage.Add(n.damage)
	if n.needsLayer {
		info.Layers.Enqueue(n, n.layerDamage)
	}
}

// fakeSurface records presentations and reports configurable swap timings.
type fakeSurface struct {
	bounds     image.Rectangle
	clock      *fakeClock
	age        int
	dequeue    time.Duration
	queue      time.Duration
	presentErr error

	presents []image.Rectangle
	released bool
}

func newFakeSurface(clock *fakeClock) *fakeSurface {
	return &fakeSurface{bounds: image.Rect(0, 0, 100, 100), clock: clock}
}

func (s *fakeSurface) Bounds() image.Rectangle { return s.bounds }

func (s *fakeSurface) Format() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }

func (s *fakeSurface) BufferAge() int { return s.age }

func (s *fakeSurface) Release() { s.released = true }

func (s *fakeSurface) Present(damage image.Rectangle) (SwapResult, error) {
	if s.presentErr != nil {
		return SwapResult{}, s.presentErr
	}
	s.presents = append(s.presents, damage)
	return SwapResult{
		CompletedAt:     s.clock.Now(),
		DequeueDuration: s.dequeue,
		QueueDuration:   s.queue,
	}, nil
}

// fakePipeline records every orchestrator call and supports injected
// failures.
type fakePipeline struct {
	surfaceErr error
	drawErr    error
	failLayer  bool
	failPin    bool

	surfaces     []Surface
	draws        []DrawArgs
	layerUpdates []Node
	destroyed    []Node
	pinned       [][]ImageID
	unpins       int
}

func (p *fakePipeline) SetSurface(s Surface) error {
	p.surfaces = append(p.surfaces, s)
	return p.surfaceErr
}

func (p *fakePipeline) Draw(args DrawArgs) error {
	p.draws = append(p.draws, args)
	return p.drawErr
}

func (p *fakePipeline) CreateOrUpdateLayer(n Node, damage image.Rectangle) bool {
	if p.failLayer {
		return false
	}
	p.layerUpdates = append(p.layerUpdates, n)
	return true
}

func (p *fakePipeline) DestroyLayer(n Node) {
	p.destroyed = append(p.destroyed, n)
}

func (p *fakePipeline) PinImages(ids []ImageID) bool {
	if p.failPin {
		return false
	}
	p.pinned = append(p.pinned, ids)
	return true
}

func (p *fakePipeline) UnpinImages() { p.unpins++ }

var _ Pipeline = (*fakePipeline)(nil)

// statsRecorder captures observer deliveries.
type statsRecorder struct {
	got []telemetry.FrameStats
}

func (r *statsRecorder) OnFrameMetrics(stats telemetry.FrameStats) {
	r.got = append(r.got, stats)
}

func newTestContext(t *testing.T, opts ...Option) (*Context, *fakePipeline, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	p := &fakePipeline{}
	opts = append([]Option{WithName("test"), WithClock(clock.Now)}, opts...)
	return NewContext(nil, p, opts...), p, clock
}

// syncDamage runs a tree-synchronization pass reporting the given damage.
func syncDamage(c *Context, clock *fakeClock, r image.Rectangle) {
	n := &fakeNode{name: "damage", damage: r}
	c.SynchronizeTree(&TreeInfo{Vsync: clock.Now(), Target: n})
}

func TestContextStateTransitions(t *testing.T) {
	c, _, clock := newTestContext(t)
	if got := c.State(); got != StateDetached {
		t.Fatalf("State() = %v, want Detached", got)
	}

	s := newFakeSurface(clock)
	c.SetSurface(s)
	if got := c.State(); got != StateAttachedActive {
		t.Fatalf("State() = %v after attach, want AttachedActive", got)
	}

	c.SetStopped(true)
	if got := c.State(); got != StateAttachedStopped {
		t.Fatalf("State() = %v after stop, want AttachedStopped", got)
	}

	c.SetStopped(false)
	if got := c.State(); got != StateAttachedActive {
		t.Fatalf("State() = %v after resume, want AttachedActive", got)
	}

	c.Destroy()
	if got := c.State(); got != StateDetached {
		t.Errorf("State() = %v after destroy, want Detached", got)
	}
}

func TestContextFrameCounterIncrementsWhileDetached(t *testing.T) {
	c, p, _ := newTestContext(t)

	for i := 0; i < 3; i++ {
		if err := c.Draw(); err != nil {
			t.Fatalf("Draw() while detached = %v, want nil", err)
		}
	}
	if got := c.FrameNumber(); got != 3 {
		t.Errorf("FrameNumber() = %d, want 3", got)
	}
	if len(p.draws) != 0 {
		t.Errorf("pipeline received %d draws while detached, want 0", len(p.draws))
	}
	// Detached draws leave no telemetry sample.
	if got := len(c.RecentFrames(10)); got != 0 {
		t.Errorf("RecentFrames() = %d samples for detached draws, want 0", got)
	}
}

func TestContextAttachDetachReattach(t *testing.T) {
	c, p, clock := newTestContext(t)

	s1 := newFakeSurface(clock)
	c.SetSurface(s1)
	syncDamage(c, clock, s1.bounds)
	if err := c.Draw(); err != nil {
		t.Fatalf("Draw() = %v", err)
	}
	if len(s1.presents) != 1 || s1.presents[0] != s1.bounds {
		t.Fatalf("presents = %v, want full bounds once", s1.presents)
	}

	c.SetSurface(nil)
	if !s1.released {
		t.Error("old surface not released on detach")
	}
	if err := c.Draw(); err != nil {
		t.Fatalf("Draw() while detached = %v", err)
	}

	s2 := newFakeSurface(clock)
	c.SetSurface(s2)
	if err := c.Draw(); err != nil {
		t.Fatalf("Draw() after reattach = %v", err)
	}

	if got := c.FrameNumber(); got != 3 {
		t.Errorf("FrameNumber() = %d, want 3", got)
	}
	// Damage was consumed by frame 1, so the reattach draw repaints nothing.
	if len(s2.presents) != 1 || !s2.presents[0].Empty() {
		t.Errorf("reattach presents = %v, want one empty present", s2.presents)
	}
	// The pipeline saw every surface change: s1, detach, s2.
	if len(p.surfaces) != 3 || p.surfaces[1] != nil {
		t.Errorf("pipeline surfaces = %d entries, want s1, nil, s2", len(p.surfaces))
	}
	// Detached draws record no sample: frames 1 and 3 only.
	samples := c.RecentFrames(10)
	if len(samples) != 2 {
		t.Fatalf("RecentFrames() = %d samples, want 2", len(samples))
	}
	if samples[0].FrameNumber != 1 || samples[1].FrameNumber != 3 {
		t.Errorf("sample frames = %d, %d, want 1, 3", samples[0].FrameNumber, samples[1].FrameNumber)
	}
}

func TestContextStoppedAccumulatesAndResumes(t *testing.T) {
	c, _, clock := newTestContext(t)
	s := newFakeSurface(clock)
	c.SetSurface(s)
	c.SetStopped(true)

	syncDamage(c, clock, image.Rect(0, 0, 10, 10))
	if err := c.Draw(); err != nil {
		t.Fatalf("Draw() while stopped = %v", err)
	}
	syncDamage(c, clock, image.Rect(40, 40, 60, 60))
	if len(s.presents) != 0 {
		t.Fatalf("presents = %d while stopped, want 0", len(s.presents))
	}

	// Resume draws the accumulated union immediately.
	c.SetStopped(false)
	if len(s.presents) != 1 {
		t.Fatalf("presents = %d after resume, want 1", len(s.presents))
	}
	want := image.Rect(0, 0, 60, 60)
	if s.presents[0] != want {
		t.Errorf("resume presented %v, want %v", s.presents[0], want)
	}
}

func TestContextDeferredWorkRunsInOrder(t *testing.T) {
	c, _, clock := newTestContext(t)
	s := newFakeSurface(clock)
	c.SetSurface(s)

	wantErr := errors.New("upload failed")
	var order []int
	f1 := c.EnqueueFrameWork(func() error { order = append(order, 1); return nil })
	f2 := c.EnqueueFrameWork(func() error { order = append(order, 2); return wantErr })
	f3 := c.EnqueueFrameWork(func() error { order = append(order, 3); return nil })

	syncDamage(c, clock, image.Rect(0, 0, 10, 10))
	if err := c.Draw(); err != nil {
		t.Fatalf("Draw() = %v, work errors must not fail the frame", err)
	}

	if err := f1.Wait(); err != nil {
		t.Errorf("fence 1 = %v, want nil", err)
	}
	if err := f2.Wait(); !errors.Is(err, wantErr) {
		t.Errorf("fence 2 = %v, want %v", err, wantErr)
	}
	if err := f3.Wait(); err != nil {
		t.Errorf("fence 3 = %v, a failing item must not skip the items behind it", err)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("execution order = %v, want [1 2 3]", order)
	}
	// The whole batch belongs to one frame: exactly one sample.
	if got := len(c.RecentFrames(10)); got != 1 {
		t.Errorf("RecentFrames() = %d samples, want 1", got)
	}
}

func TestContextStuffedSwapChainSkipsPartialFrames(t *testing.T) {
	pacing := PacingConfig{
		FrameInterval:         16 * time.Millisecond,
		SlowSwapThreshold:     6 * time.Millisecond,
		StuffedGapFrames:      3,
		PartialDamageFraction: 0.75,
	}
	c, p, clock := newTestContext(t, WithPacing(pacing))
	s := newFakeSurface(clock)
	s.dequeue = 10 * time.Millisecond
	s.queue = 10 * time.Millisecond
	c.SetSurface(s)

	// Fill the swap history with slow swaps.
	for i := 0; i < swapHistorySize; i++ {
		clock.Advance(16 * time.Millisecond)
		syncDamage(c, clock, image.Rect(0, 0, 10, 10))
		if err := c.Draw(); err != nil {
			t.Fatalf("Draw() %d = %v", i, err)
		}
	}
	if len(s.presents) != swapHistorySize {
		t.Fatalf("presents = %d, want %d", len(s.presents), swapHistorySize)
	}

	// Partial damage under backpressure: the frame is counted but skipped.
	clock.Advance(16 * time.Millisecond)
	syncDamage(c, clock, image.Rect(0, 0, 10, 10))
	if err := c.Draw(); err != nil {
		t.Fatalf("skipped Draw() = %v", err)
	}
	if len(s.presents) != swapHistorySize {
		t.Errorf("presents = %d after skip, want %d", len(s.presents), swapHistorySize)
	}
	if got := c.FrameNumber(); got != swapHistorySize+1 {
		t.Errorf("FrameNumber() = %d, want %d", got, swapHistorySize+1)
	}
	_, _, dropped := c.JankStats()
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}

	// Full-frame damage is always presented, and the skipped frame's damage
	// rides along with it.
	clock.Advance(16 * time.Millisecond)
	syncDamage(c, clock, s.bounds)
	if err := c.Draw(); err != nil {
		t.Fatalf("full-frame Draw() = %v", err)
	}
	if len(s.presents) != swapHistorySize+1 {
		t.Fatalf("presents = %d, full frame dropped under backpressure", len(s.presents))
	}
	last := p.draws[len(p.draws)-1]
	if last.Damage != s.bounds {
		t.Errorf("full-frame damage = %v, want %v", last.Damage, s.bounds)
	}
}

func TestContextSetSurfaceDuringDrawIsDeferred(t *testing.T) {
	c, p, clock := newTestContext(t)
	s1 := newFakeSurface(clock)
	c.SetSurface(s1)

	s2 := newFakeSurface(clock)
	// Deferred frame work runs mid-draw; the surface swap must wait for the
	// draw to finish.
	c.EnqueueFrameWork(func() error {
		c.SetSurface(s2)
		return nil
	})

	syncDamage(c, clock, image.Rect(0, 0, 10, 10))
	if err := c.Draw(); err != nil {
		t.Fatalf("Draw() = %v", err)
	}

	if got := p.draws[0].Surface; got != s1 {
		t.Error("draw used the new surface before the frame finished")
	}
	if !c.HasSurface() || c.surface != s2 {
		t.Error("pending surface not applied after the draw")
	}
	if !s1.released {
		t.Error("old surface not released after the deferred swap")
	}
}

func TestContextDrawFailure(t *testing.T) {
	c, p, clock := newTestContext(t)
	s := newFakeSurface(clock)
	c.SetSurface(s)

	drawErr := errors.New("device lost")
	p.drawErr = drawErr
	dirty := image.Rect(0, 0, 30, 30)
	syncDamage(c, clock, dirty)

	err := c.Draw()
	if !errors.Is(err, drawErr) {
		t.Fatalf("Draw() = %v, want wrapped %v", err, drawErr)
	}
	if len(s.presents) != 0 {
		t.Error("failed draw was presented")
	}
	if c.swap.size() != 0 {
		t.Error("swap history recorded for a failed frame")
	}
	samples := c.RecentFrames(1)
	if len(samples) != 1 || !samples[0].HasFlag(telemetry.FlagFailedDraw) {
		t.Error("failed frame not recorded with the failed flag")
	}

	// The damage survives so the next frame repaints the failed region.
	p.drawErr = nil
	if err := c.Draw(); err != nil {
		t.Fatalf("retry Draw() = %v", err)
	}
	if len(s.presents) != 1 || s.presents[0] != dirty {
		t.Errorf("retry presented %v, want %v", s.presents, dirty)
	}
}

func TestContextPresentFailure(t *testing.T) {
	c, _, clock := newTestContext(t)
	s := newFakeSurface(clock)
	c.SetSurface(s)

	presentErr := errors.New("surface lost")
	s.presentErr = presentErr
	syncDamage(c, clock, image.Rect(0, 0, 10, 10))

	if err := c.Draw(); !errors.Is(err, presentErr) {
		t.Fatalf("Draw() = %v, want wrapped %v", err, presentErr)
	}
	if c.swap.size() != 0 {
		t.Error("swap history recorded for a failed present")
	}
	if got := c.jank.FailedFrames(); got != 1 {
		t.Errorf("FailedFrames() = %d, want 1", got)
	}
}

func TestContextBufferAgeWidensDamage(t *testing.T) {
	c, p, clock := newTestContext(t, WithSwapBehavior(SwapBehaviorBufferAge))
	s := newFakeSurface(clock)
	c.SetSurface(s)

	// Age 1: the buffer still holds last frame's content; damage alone.
	s.age = 1
	first := image.Rect(0, 0, 10, 10)
	syncDamage(c, clock, first)
	if err := c.Draw(); err != nil {
		t.Fatalf("Draw() = %v", err)
	}
	if p.draws[0].Damage != first {
		t.Fatalf("age-1 damage = %v, want %v", p.draws[0].Damage, first)
	}

	// Age 2: widened by the damage of the frame before.
	s.age = 2
	syncDamage(c, clock, image.Rect(50, 50, 60, 60))
	if err := c.Draw(); err != nil {
		t.Fatalf("Draw() = %v", err)
	}
	want := image.Rect(0, 0, 60, 60)
	if p.draws[1].Damage != want {
		t.Errorf("age-2 damage = %v, want %v", p.draws[1].Damage, want)
	}

	// Unknown age repaints everything.
	s.age = 0
	syncDamage(c, clock, image.Rect(1, 1, 2, 2))
	if err := c.Draw(); err != nil {
		t.Fatalf("Draw() = %v", err)
	}
	if p.draws[2].Damage != s.bounds {
		t.Errorf("age-0 damage = %v, want full bounds", p.draws[2].Damage)
	}

	// Older than the history can answer for: repaint everything.
	s.age = 9
	syncDamage(c, clock, image.Rect(1, 1, 2, 2))
	if err := c.Draw(); err != nil {
		t.Fatalf("Draw() = %v", err)
	}
	if p.draws[3].Damage != s.bounds {
		t.Errorf("stale-age damage = %v, want full bounds", p.draws[3].Damage)
	}
}

func TestContextLayerUpdatesPrecedeDraw(t *testing.T) {
	c, p, clock := newTestContext(t)
	s := newFakeSurface(clock)
	c.SetSurface(s)

	n := &fakeNode{
		name:        "layered",
		damage:      image.Rect(0, 0, 10, 10),
		layerDamage: image.Rect(0, 0, 5, 5),
		needsLayer:  true,
	}
	c.SynchronizeTree(&TreeInfo{Vsync: clock.Now(), Target: n})
	if err := c.Draw(); err != nil {
		t.Fatalf("Draw() = %v", err)
	}

	if len(p.layerUpdates) != 1 || p.layerUpdates[0] != n {
		t.Fatalf("layerUpdates = %d, want the synced node once", len(p.layerUpdates))
	}
	// The queue drains per frame.
	syncDamage(c, clock, image.Rect(0, 0, 1, 1))
	if err := c.Draw(); err != nil {
		t.Fatalf("Draw() = %v", err)
	}
	if len(p.layerUpdates) != 1 {
		t.Errorf("layerUpdates = %d after second draw, want 1", len(p.layerUpdates))
	}
}

func TestContextDoFrameSyncsRootsAndDraws(t *testing.T) {
	c, _, clock := newTestContext(t)
	s := newFakeSurface(clock)
	c.SetSurface(s)

	n := &fakeNode{name: "root", damage: image.Rect(0, 0, 10, 10)}
	c.AddRenderNode(n, false)

	c.DoFrame(clock.Now())
	if n.syncs != 1 {
		t.Errorf("root synced %d times, want 1", n.syncs)
	}
	if len(s.presents) != 1 {
		t.Errorf("presents = %d, want 1", len(s.presents))
	}

	c.SetStopped(true)
	c.DoFrame(clock.Now())
	if n.syncs != 1 {
		t.Errorf("root synced while stopped")
	}
}

func TestContextRenderNodeOrder(t *testing.T) {
	c, _, _ := newTestContext(t)
	a := &fakeNode{name: "a"}
	b := &fakeNode{name: "b"}
	front := &fakeNode{name: "front"}

	c.AddRenderNode(a, false)
	c.AddRenderNode(b, false)
	c.AddRenderNode(front, true)

	if len(c.rootNodes) != 3 || c.rootNodes[0] != front {
		t.Fatal("placeFront node not at the front")
	}
	c.RemoveRenderNode(b)
	if len(c.rootNodes) != 2 || c.rootNodes[0] != front || c.rootNodes[1] != a {
		t.Error("RemoveRenderNode broke ordering")
	}
}

func TestContextBuildLayerPrefetch(t *testing.T) {
	c, p, clock := newTestContext(t)
	s := newFakeSurface(clock)
	c.SetSurface(s)

	claimed := &fakeNode{name: "claimed", damage: image.Rect(0, 0, 5, 5)}
	orphan := &fakeNode{name: "orphan", damage: image.Rect(0, 0, 5, 5)}
	c.BuildLayer(claimed)
	c.BuildLayer(orphan)
	if len(p.layerUpdates) != 2 {
		t.Fatalf("layerUpdates = %d, want 2", len(p.layerUpdates))
	}

	c.MarkLayerInUse(claimed)
	c.Destroy()

	// Only the unclaimed prefetched layer is torn down with the context.
	if len(p.destroyed) != 1 || p.destroyed[0] != orphan {
		t.Errorf("destroyed = %v, want the orphan only", p.destroyed)
	}
}

func TestContextPinImages(t *testing.T) {
	c, p, _ := newTestContext(t, WithPinBudget(100))

	if !c.PinImages([]PinnedImage{{ID: 1, Bytes: 60}, {ID: 2, Bytes: 40}}) {
		t.Fatal("PinImages within budget = false")
	}
	if len(p.pinned) != 1 || len(p.pinned[0]) != 2 {
		t.Fatalf("pipeline pinned = %v, want one batch of 2", p.pinned)
	}

	// Over budget: all-or-nothing, the batch rolls back.
	c.UnpinImages()
	if c.PinImages([]PinnedImage{{ID: 3, Bytes: 60}, {ID: 4, Bytes: 60}}) {
		t.Fatal("PinImages over budget = true")
	}
	if got := c.pins.PinnedBytes(); got != 0 {
		t.Errorf("PinnedBytes() = %d after rollback, want 0", got)
	}

	// Pipeline refusal rolls the accounting back too.
	p.failPin = true
	if c.PinImages([]PinnedImage{{ID: 5, Bytes: 10}}) {
		t.Fatal("PinImages = true with refusing pipeline")
	}
	if got := c.pins.PinnedBytes(); got != 0 {
		t.Errorf("PinnedBytes() = %d after pipeline refusal, want 0", got)
	}
}

func TestContextDestroyPanicsOnPinLeakWhenStrict(t *testing.T) {
	c, _, _ := newTestContext(t, WithStrictLifecycle(true), WithPinBudget(100))
	c.PinImages([]PinnedImage{{ID: 1, Bytes: 10}})

	defer func() {
		if recover() == nil {
			t.Error("Destroy did not panic with pinned images under strict lifecycle")
		}
	}()
	c.Destroy()
}

func TestContextDestroyLogsPinLeakWhenLenient(t *testing.T) {
	c, p, _ := newTestContext(t, WithPinBudget(100))
	c.PinImages([]PinnedImage{{ID: 1, Bytes: 10}})

	c.Destroy() // must not panic
	if !c.pins.Empty() {
		t.Error("pins not flushed on destroy")
	}
	if p.unpins == 0 {
		t.Error("pipeline UnpinImages not called on destroy")
	}
}

func TestContextDestroyCancelsQueuedWork(t *testing.T) {
	c, _, _ := newTestContext(t)

	ran := false
	f := c.EnqueueFrameWork(func() error { ran = true; return nil })
	c.Destroy()

	if err := f.Wait(); !errors.Is(err, ErrWorkCanceled) {
		t.Errorf("fence = %v, want ErrWorkCanceled", err)
	}
	if ran {
		t.Error("canceled work ran anyway")
	}

	// Post-destroy operations fail fast.
	if err := c.EnqueueFrameWork(func() error { return nil }).Wait(); !errors.Is(err, ErrContextDestroyed) {
		t.Errorf("post-destroy enqueue = %v, want ErrContextDestroyed", err)
	}
	if err := c.Draw(); !errors.Is(err, ErrContextDestroyed) {
		t.Errorf("post-destroy Draw() = %v, want ErrContextDestroyed", err)
	}
	c.Destroy() // idempotent
}

func TestContextDestroyReleasesSurface(t *testing.T) {
	c, p, clock := newTestContext(t)
	s := newFakeSurface(clock)
	c.SetSurface(s)
	c.Destroy()

	if !s.released {
		t.Error("surface not released on destroy")
	}
	// The last pipeline surface binding is the detach.
	if p.surfaces[len(p.surfaces)-1] != nil {
		t.Error("pipeline not detached from the surface on destroy")
	}
}

func TestContextPauseSurface(t *testing.T) {
	c, _, clock := newTestContext(t)
	if c.PauseSurface(nil) {
		t.Error("PauseSurface(nil) = true with no surface attached")
	}

	s := newFakeSurface(clock)
	c.SetSurface(s)
	other := newFakeSurface(clock)

	if !c.PauseSurface(other) {
		t.Error("PauseSurface(other) = false with a surface attached")
	}
	if c.State() != StateAttachedActive {
		t.Error("pausing a foreign surface stopped drawing")
	}

	if !c.PauseSurface(s) {
		t.Error("PauseSurface(current) = false")
	}
	if c.State() != StateAttachedStopped {
		t.Error("pausing the current surface did not stop drawing")
	}
}

func TestContextFrameMetricsObserver(t *testing.T) {
	c, _, clock := newTestContext(t)
	s := newFakeSurface(clock)
	c.SetSurface(s)

	rec := &statsRecorder{}
	c.AddFrameMetricsObserver(rec)
	if c.reporter == nil {
		t.Fatal("reporter not allocated on first observer")
	}

	syncDamage(c, clock, image.Rect(0, 0, 10, 10))
	clock.Advance(5 * time.Millisecond)
	if err := c.Draw(); err != nil {
		t.Fatalf("Draw() = %v", err)
	}

	if len(rec.got) != 1 {
		t.Fatalf("observer received %d reports, want 1", len(rec.got))
	}
	if rec.got[0].FrameNumber != 1 {
		t.Errorf("FrameNumber = %d, want 1", rec.got[0].FrameNumber)
	}
	if rec.got[0].Total != 5*time.Millisecond {
		t.Errorf("Total = %v, want 5ms", rec.got[0].Total)
	}

	c.RemoveFrameMetricsObserver(rec)
	if c.reporter != nil {
		t.Error("reporter not freed after the last observer left")
	}
}

func TestContextResetFrameStats(t *testing.T) {
	c, _, clock := newTestContext(t)
	s := newFakeSurface(clock)
	c.SetSurface(s)

	syncDamage(c, clock, image.Rect(0, 0, 10, 10))
	if err := c.Draw(); err != nil {
		t.Fatalf("Draw() = %v", err)
	}
	c.ResetFrameStats()

	if got := len(c.RecentFrames(10)); got != 0 {
		t.Errorf("RecentFrames() = %d after reset, want 0", got)
	}
	total, janky, dropped := c.JankStats()
	if total != 0 || janky != 0 || dropped != 0 {
		t.Errorf("JankStats() = %d, %d, %d after reset, want zeros", total, janky, dropped)
	}
}

func TestContextJankClassifiedFromDrawTiming(t *testing.T) {
	c, _, clock := newTestContext(t, WithJank(telemetry.JankConfig{
		Interval: 10 * time.Millisecond,
		Multiple: 1.5,
	}))
	s := newFakeSurface(clock)
	c.SetSurface(s)

	syncDamage(c, clock, image.Rect(0, 0, 10, 10))
	clock.Advance(20 * time.Millisecond) // blows the 15ms threshold
	if err := c.Draw(); err != nil {
		t.Fatalf("Draw() = %v", err)
	}

	_, janky, _ := c.JankStats()
	if janky != 1 {
		t.Errorf("janky = %d, want 1", janky)
	}
}

func TestContextDamageClippedToSurface(t *testing.T) {
	c, p, clock := newTestContext(t)
	s := newFakeSurface(clock)
	c.SetSurface(s)

	syncDamage(c, clock, image.Rect(50, 50, 500, 500))
	if err := c.Draw(); err != nil {
		t.Fatalf("Draw() = %v", err)
	}
	want := image.Rect(50, 50, 100, 100)
	if p.draws[0].Damage != want {
		t.Errorf("damage = %v, want clipped %v", p.draws[0].Damage, want)
	}
}
