// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package telemetry records per-frame timing samples, classifies janky
// frames, and fans completed-frame statistics out to registered observers.
package telemetry

import "time"

// Marker identifies a named timestamp within a frame's lifecycle.
type Marker int

// Frame lifecycle markers, in chronological order.
const (
	// MarkerIntendedVsync is the vsync the frame was scheduled against.
	MarkerIntendedVsync Marker = iota

	// MarkerVsync is the vsync the frame actually started on.
	MarkerVsync

	// MarkerSyncQueued is when the producer requested tree synchronization.
	MarkerSyncQueued

	// MarkerSyncStart is when tree synchronization began on the render side.
	MarkerSyncStart

	// MarkerIssueDrawCommands is when the pipeline started recording and
	// submitting draw commands.
	MarkerIssueDrawCommands

	// MarkerSwapBuffers is when presentation was requested.
	MarkerSwapBuffers

	// MarkerFrameCompleted is when the frame was finalized.
	MarkerFrameCompleted

	markerCount
)

// String returns a human-readable name for the marker.
func (m Marker) String() string {
	switch m {
	case MarkerIntendedVsync:
		return "IntendedVsync"
	case MarkerVsync:
		return "Vsync"
	case MarkerSyncQueued:
		return "SyncQueued"
	case MarkerSyncStart:
		return "SyncStart"
	case MarkerIssueDrawCommands:
		return "IssueDrawCommands"
	case MarkerSwapBuffers:
		return "SwapBuffers"
	case MarkerFrameCompleted:
		return "FrameCompleted"
	default:
		return "Unknown"
	}
}

// Flags annotate how a frame concluded.
type Flags uint32

const (
	// FlagSkippedFrame marks a frame whose presentation was skipped because
	// the swap chain was backed up.
	FlagSkippedFrame Flags = 1 << iota

	// FlagFailedDraw marks a frame whose pipeline draw or presentation
	// returned an error.
	FlagFailedDraw
)

// FrameInfo is one attempted frame: a vector of named timestamps spanning
// the frame's lifecycle plus outcome flags.
//
// FrameInfo values are stored in a fixed-capacity ring sized to roughly two
// seconds of frames, enabling rolling jank computation without unbounded
// growth.
type FrameInfo struct {
	// FrameNumber is the orchestrator's monotonic frame counter value for
	// this attempt.
	FrameNumber uint64

	flags Flags
	times [markerCount]time.Time
}

// Set records the timestamp for a marker.
func (f *FrameInfo) Set(m Marker, t time.Time) {
	if m >= 0 && m < markerCount {
		f.times[m] = t
	}
}

// Get returns the timestamp recorded for a marker (zero if unset).
func (f *FrameInfo) Get(m Marker) time.Time {
	if m < 0 || m >= markerCount {
		return time.Time{}
	}
	return f.times[m]
}

// AddFlag sets outcome flags on the frame.
func (f *FrameInfo) AddFlag(fl Flags) { f.flags |= fl }

// HasFlag reports whether all of the given flags are set.
func (f *FrameInfo) HasFlag(fl Flags) bool { return f.flags&fl == fl }

// Duration returns the elapsed time between two markers.
// Returns 0 when either marker is unset or the interval is negative.
func (f *FrameInfo) Duration(from, to Marker) time.Duration {
	a, b := f.Get(from), f.Get(to)
	if a.IsZero() || b.IsZero() {
		return 0
	}
	d := b.Sub(a)
	if d < 0 {
		return 0
	}
	return d
}

// TotalDuration returns the frame's total production time: intended vsync
// to completion, falling back to the actual vsync when the intended one
// was never recorded.
func (f *FrameInfo) TotalDuration() time.Duration {
	if !f.Get(MarkerIntendedVsync).IsZero() {
		return f.Duration(MarkerIntendedVsync, MarkerFrameCompleted)
	}
	return f.Duration(MarkerVsync, MarkerFrameCompleted)
}

// FrameRingCapacity returns the FrameInfo ring capacity holding roughly two
// seconds of frames at the given refresh interval. 120 at 60 Hz.
func FrameRingCapacity(interval time.Duration) int {
	if interval <= 0 {
		return 120
	}
	// Round to the nearest frame count: 16.666667ms must yield 120, not 119.
	n := int((2*time.Second + interval/2) / interval)
	if n < 1 {
		n = 1
	}
	return n
}
