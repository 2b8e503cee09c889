// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderloop

import (
	"image"
	"time"

	"github.com/gogpu/gputypes"
)

// SwapBehavior selects how surface contents survive presentation.
type SwapBehavior int

const (
	// SwapBehaviorDefault assumes buffer contents are preserved across
	// swaps; damage alone determines the repaint region.
	SwapBehaviorDefault SwapBehavior = iota

	// SwapBehaviorBufferAge widens the repaint region by the damage of the
	// previous buffer-age frames, for platforms that cycle buffers.
	SwapBehaviorBufferAge
)

// String returns a human-readable name for the swap behavior.
func (b SwapBehavior) String() string {
	switch b {
	case SwapBehaviorDefault:
		return "Default"
	case SwapBehaviorBufferAge:
		return "BufferAge"
	default:
		return "Unknown"
	}
}

// SwapResult reports the timing of a completed presentation.
type SwapResult struct {
	// CompletedAt is when the swap finished.
	CompletedAt time.Time

	// DequeueDuration is how long acquiring the output buffer took.
	DequeueDuration time.Duration

	// QueueDuration is how long handing the buffer to the presentation
	// queue took.
	QueueDuration time.Duration
}

// Surface is a platform-presentable drawable target.
//
// The orchestrator owns at most one surface at a time, exclusively. All
// Surface methods are invoked on the rendering execution context only.
type Surface interface {
	// Bounds returns the drawable area in pixels.
	Bounds() image.Rectangle

	// Format returns the surface's pixel format.
	Format() gputypes.TextureFormat

	// BufferAge returns how many frames ago the current back buffer was
	// last presented, or 0 when unknown. Only meaningful under
	// SwapBehaviorBufferAge.
	BufferAge() int

	// Present swaps the rendered content to the display, reporting the
	// region that changed. Blocks until the buffer is queued.
	Present(damage image.Rectangle) (SwapResult, error)

	// Release drops the orchestrator's reference to the surface.
	Release()
}
