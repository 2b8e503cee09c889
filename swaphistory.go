// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderloop

import (
	"image"
	"time"

	"github.com/gogpu/renderloop/internal/ring"
)

// swapHistorySize is the number of completed presentations kept for pacing
// decisions. Only the most recent few matter.
const swapHistorySize = 3

// SwapEntry is one completed presentation.
type SwapEntry struct {
	// Damage is the region presented.
	Damage image.Rectangle

	// TargetVsync is the vsync the frame was produced for.
	TargetVsync time.Time

	// SwapCompleted is when the swap finished.
	SwapCompleted time.Time

	// DequeueDuration and QueueDuration are the buffer acquire and queue
	// handoff times reported by the surface.
	DequeueDuration time.Duration
	QueueDuration   time.Duration
}

// swapChain tracks recent swap timings and judges whether the presentation
// queue is backed up enough to justify dropping a frame.
//
// Single-writer: the rendering execution context. Entries are appended
// strictly after successful presentation, never speculatively.
type swapChain struct {
	pacing  PacingConfig
	history *ring.Ring[SwapEntry]
}

func newSwapChain(pacing PacingConfig) *swapChain {
	if pacing.FrameInterval <= 0 {
		pacing = DefaultPacingConfig()
	}
	return &swapChain{
		pacing:  pacing,
		history: ring.New[SwapEntry](swapHistorySize),
	}
}

func (s *swapChain) record(e SwapEntry) { s.history.Push(e) }

func (s *swapChain) size() int { return s.history.Size() }

func (s *swapChain) clear() { s.history.Clear() }

func (s *swapChain) latest() (SwapEntry, bool) { return s.history.Back() }

// damageSince returns the union of the damage presented in the most recent
// n frames. Used for buffer-age-aware partial redraw.
func (s *swapChain) damageSince(n int) image.Rectangle {
	var union image.Rectangle
	s.history.ForEachRecent(n, func(e SwapEntry) {
		union = union.Union(e.Damage)
	})
	return union
}

// stuffed reports whether the presentation queue holds more buffered frames
// than the display can consume before the next vsync — drawing now would
// only add latency without changing what is shown.
//
// Advisory only: the orchestrator skips a frame on a true result, it never
// blocks. With fewer samples than the ring holds there is not enough data
// to judge, so the answer is false and presentation proceeds.
func (s *swapChain) stuffed() bool {
	if !s.history.Full() {
		return false
	}

	interval := s.frameInterval()
	maxGap := interval * time.Duration(max(s.pacing.StuffedGapFrames, 1))

	prev, _ := s.history.FromBack(0)
	if s.healthy(prev) {
		return false
	}
	for i := 1; i < s.history.Size(); i++ {
		e, _ := s.history.FromBack(i)
		gap := prev.SwapCompleted.Sub(e.SwapCompleted)
		if gap < 0 {
			gap = -gap
		}
		// A multi-interval gap means a frame was already effectively
		// dropped and the queue had room to drain.
		if gap > maxGap {
			return false
		}
		if s.healthy(e) {
			return false
		}
		prev = e
	}
	return true
}

// healthy reports whether a swap had fast buffer acquire and queue handoff.
func (s *swapChain) healthy(e SwapEntry) bool {
	return e.DequeueDuration < s.pacing.SlowSwapThreshold &&
		e.QueueDuration < s.pacing.SlowSwapThreshold
}

// frameInterval derives the display interval from the two most recent
// swap-target times, falling back to the configured interval.
func (s *swapChain) frameInterval() time.Duration {
	a, okA := s.history.FromBack(0)
	b, okB := s.history.FromBack(1)
	if okA && okB {
		if d := a.TargetVsync.Sub(b.TargetVsync); d > 0 {
			return d
		}
	}
	return s.pacing.FrameInterval
}
