// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderloop

import (
	"image"
	"time"

	"github.com/gogpu/renderloop/telemetry"
)

// PacingConfig tunes the stuffed-swap-chain heuristic and frame dropping.
// The numeric thresholds are policy, not contract; hosts should override
// them for unusual display pipelines.
type PacingConfig struct {
	// FrameInterval is the display's refresh interval, used when the swap
	// history does not yet establish one.
	FrameInterval time.Duration

	// SlowSwapThreshold is the dequeue/queue duration above which a swap is
	// considered unhealthy. A single healthy swap in the history means the
	// presentation queue is keeping up.
	SlowSwapThreshold time.Duration

	// StuffedGapFrames resets the heuristic when consecutive swap
	// completions are more than this many frame intervals apart — a frame
	// was already effectively dropped, so the queue had room to drain.
	StuffedGapFrames int

	// PartialDamageFraction is the fraction of the surface area at or above
	// which damage counts as a full frame. Full frames are always
	// presented, never dropped for backpressure.
	PartialDamageFraction float64
}

// DefaultPacingConfig returns pacing thresholds for a 60 Hz display.
func DefaultPacingConfig() PacingConfig {
	return PacingConfig{
		FrameInterval:         16666667 * time.Nanosecond,
		SlowSwapThreshold:     6 * time.Millisecond,
		StuffedGapFrames:      3,
		PartialDamageFraction: 0.75,
	}
}

// config holds optional Context configuration.
type config struct {
	name            string
	opaque          bool
	swapBehavior    SwapBehavior
	light           LightGeometry
	lightInfo       LightInfo
	contentBounds   image.Rectangle
	pacing          PacingConfig
	jank            telemetry.JankConfig
	clock           func() time.Time
	strictLifecycle bool
	pinBudget       int64
	factory         ContextFactory
}

func defaultConfig() config {
	return config{
		swapBehavior: SwapBehaviorDefault,
		pacing:       DefaultPacingConfig(),
		jank:         telemetry.DefaultJankConfig(),
		clock:        time.Now,
		pinBudget:    256 << 20, // 256 MiB of pinned images
	}
}

// Option configures a Context during creation.
type Option func(*config)

// WithName sets a human-readable context name used in log output.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithOpaque declares the window content fully opaque.
func WithOpaque(opaque bool) Option {
	return func(c *config) { c.opaque = opaque }
}

// WithSwapBehavior selects the swap behavior used for dirty-region
// computation. Takes effect from the next attached surface.
func WithSwapBehavior(b SwapBehavior) Option {
	return func(c *config) { c.swapBehavior = b }
}

// WithLightGeometry sets the initial shadow light geometry.
func WithLightGeometry(g LightGeometry) Option {
	return func(c *config) { c.light = g }
}

// WithLightInfo sets the initial shadow alpha parameters.
func WithLightInfo(li LightInfo) Option {
	return func(c *config) { c.lightInfo = li }
}

// WithContentDrawBounds sets the initial main-content bounds.
func WithContentDrawBounds(b image.Rectangle) Option {
	return func(c *config) { c.contentBounds = b }
}

// WithPacing overrides the stuffed-swap-chain thresholds.
func WithPacing(p PacingConfig) Option {
	return func(c *config) { c.pacing = p }
}

// WithJank overrides the jank classification thresholds.
func WithJank(j telemetry.JankConfig) Option {
	return func(c *config) { c.jank = j }
}

// WithClock injects the time source. Intended for tests; defaults to
// time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.clock = now
		}
	}
}

// WithStrictLifecycle makes resource-leak assertions fatal (panic) instead
// of logged. Use in debug builds and tests.
func WithStrictLifecycle(strict bool) Option {
	return func(c *config) { c.strictLifecycle = strict }
}

// WithPinBudget sets the GPU cache budget for pinned images, in bytes.
func WithPinBudget(bytes int64) Option {
	return func(c *config) { c.pinBudget = bytes }
}

// WithAnimationContext supplies the factory creating the per-window
// animation context. Defaults to an inert context.
func WithAnimationContext(f ContextFactory) Option {
	return func(c *config) { c.factory = f }
}
