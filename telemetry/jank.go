// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package telemetry

import (
	"sync"
	"time"
)

// JankConfig tunes jank classification. The thresholds are policy, not
// contract: hosts with unusual refresh rates or latency budgets should
// override the defaults.
type JankConfig struct {
	// Interval is the display's refresh interval.
	Interval time.Duration

	// Multiple is the tolerance factor: a frame is janky when its total
	// duration exceeds Interval * Multiple.
	Multiple float64
}

// DefaultJankConfig returns classification thresholds for a 60 Hz display
// with a 1.5-interval tolerance.
func DefaultJankConfig() JankConfig {
	return JankConfig{
		Interval: 16666667 * time.Nanosecond,
		Multiple: 1.5,
	}
}

// threshold returns the duration above which a frame counts as janky.
func (c JankConfig) threshold() time.Duration {
	m := c.Multiple
	if m <= 0 {
		m = 1
	}
	return time.Duration(float64(c.Interval) * m)
}

// FrameStats is the completed-frame snapshot pushed to observers.
type FrameStats struct {
	// FrameNumber is the orchestrator frame counter for this frame.
	FrameNumber uint64

	// Total is the frame's full production time.
	Total time.Duration

	// SyncDuration covers tree synchronization.
	SyncDuration time.Duration

	// DrawDuration covers pipeline command recording and submission.
	DrawDuration time.Duration

	// SwapDuration covers presentation.
	SwapDuration time.Duration

	// Janky reports whether Total exceeded the configured tolerance.
	Janky bool

	// Dropped reports whether presentation was skipped for backpressure.
	Dropped bool

	// Failed reports whether the pipeline draw or presentation failed.
	Failed bool
}

// JankTracker accumulates rolling jank statistics from FrameInfo samples.
//
// The render side is the single writer; totals may be read concurrently.
type JankTracker struct {
	mu sync.RWMutex

	cfg JankConfig

	totalFrames   uint64
	jankyFrames   uint64
	droppedFrames uint64
	failedFrames  uint64
	longestFrame  time.Duration
}

// NewJankTracker creates a tracker with the given classification config.
func NewJankTracker(cfg JankConfig) *JankTracker {
	if cfg.Interval <= 0 {
		cfg = DefaultJankConfig()
	}
	return &JankTracker{cfg: cfg}
}

// Add classifies a completed frame, updates the rolling totals, and returns
// the stats snapshot for observer fan-out.
func (j *JankTracker) Add(fi *FrameInfo) FrameStats {
	stats := FrameStats{
		FrameNumber:  fi.FrameNumber,
		Total:        fi.TotalDuration(),
		SyncDuration: fi.Duration(MarkerSyncStart, MarkerIssueDrawCommands),
		DrawDuration: fi.Duration(MarkerIssueDrawCommands, MarkerSwapBuffers),
		SwapDuration: fi.Duration(MarkerSwapBuffers, MarkerFrameCompleted),
		Dropped:      fi.HasFlag(FlagSkippedFrame),
		Failed:       fi.HasFlag(FlagFailedDraw),
	}
	stats.Janky = !stats.Dropped && stats.Total > j.cfg.threshold()

	j.mu.Lock()
	j.totalFrames++
	if stats.Janky {
		j.jankyFrames++
	}
	if stats.Dropped {
		j.droppedFrames++
	}
	if stats.Failed {
		j.failedFrames++
	}
	if !stats.Dropped && stats.Total > j.longestFrame {
		j.longestFrame = stats.Total
	}
	j.mu.Unlock()

	return stats
}

// Totals returns the rolling frame counts.
func (j *JankTracker) Totals() (total, janky, dropped uint64) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.totalFrames, j.jankyFrames, j.droppedFrames
}

// FailedFrames returns the number of frames whose draw or present failed.
func (j *JankTracker) FailedFrames() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.failedFrames
}

// LongestFrame returns the longest non-dropped frame seen since the last
// Reset.
func (j *JankTracker) LongestFrame() time.Duration {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.longestFrame
}

// Reset clears all rolling totals.
func (j *JankTracker) Reset() {
	j.mu.Lock()
	j.totalFrames = 0
	j.jankyFrames = 0
	j.droppedFrames = 0
	j.failedFrames = 0
	j.longestFrame = 0
	j.mu.Unlock()
}
