// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package telemetry

import (
	"testing"
	"time"
)

func TestFrameInfoMarkers(t *testing.T) {
	base := time.Unix(100, 0)
	var fi FrameInfo
	fi.Set(MarkerIntendedVsync, base)
	fi.Set(MarkerVsync, base)
	fi.Set(MarkerSyncStart, base.Add(1*time.Millisecond))
	fi.Set(MarkerIssueDrawCommands, base.Add(4*time.Millisecond))
	fi.Set(MarkerSwapBuffers, base.Add(9*time.Millisecond))
	fi.Set(MarkerFrameCompleted, base.Add(10*time.Millisecond))

	if got := fi.Get(MarkerSyncStart); !got.Equal(base.Add(1 * time.Millisecond)) {
		t.Errorf("Get(SyncStart) = %v, want %v", got, base.Add(1*time.Millisecond))
	}
	if got := fi.Duration(MarkerSyncStart, MarkerIssueDrawCommands); got != 3*time.Millisecond {
		t.Errorf("Duration(sync) = %v, want 3ms", got)
	}
	if got := fi.TotalDuration(); got != 10*time.Millisecond {
		t.Errorf("TotalDuration() = %v, want 10ms", got)
	}
}

func TestFrameInfoUnsetMarkers(t *testing.T) {
	var fi FrameInfo
	if got := fi.Duration(MarkerSyncStart, MarkerSwapBuffers); got != 0 {
		t.Errorf("Duration with unset markers = %v, want 0", got)
	}
	if got := fi.TotalDuration(); got != 0 {
		t.Errorf("TotalDuration with unset markers = %v, want 0", got)
	}
}

func TestFrameInfoTotalDurationFallsBackToVsync(t *testing.T) {
	base := time.Unix(100, 0)
	var fi FrameInfo
	fi.Set(MarkerVsync, base)
	fi.Set(MarkerFrameCompleted, base.Add(8*time.Millisecond))

	if got := fi.TotalDuration(); got != 8*time.Millisecond {
		t.Errorf("TotalDuration() = %v, want 8ms", got)
	}
}

func TestFrameInfoFlags(t *testing.T) {
	var fi FrameInfo
	if fi.HasFlag(FlagSkippedFrame) {
		t.Error("HasFlag(SkippedFrame) = true on fresh FrameInfo")
	}
	fi.AddFlag(FlagSkippedFrame)
	if !fi.HasFlag(FlagSkippedFrame) {
		t.Error("HasFlag(SkippedFrame) = false after AddFlag")
	}
	if fi.HasFlag(FlagFailedDraw) {
		t.Error("HasFlag(FailedDraw) = true, only SkippedFrame was set")
	}
}

func TestFrameRingCapacity(t *testing.T) {
	tests := []struct {
		interval time.Duration
		want     int
	}{
		{16666667 * time.Nanosecond, 120}, // 60 Hz
		{8333333 * time.Nanosecond, 240},  // 120 Hz
		{33333333 * time.Nanosecond, 60},  // 30 Hz
		{0, 120},                          // unset: 60 Hz default
		{3 * time.Second, 1},              // degenerate: at least one slot
	}
	for _, tt := range tests {
		if got := FrameRingCapacity(tt.interval); got != tt.want {
			t.Errorf("FrameRingCapacity(%v) = %d, want %d", tt.interval, got, tt.want)
		}
	}
}

func TestMarkerString(t *testing.T) {
	if MarkerIntendedVsync.String() != "IntendedVsync" {
		t.Errorf("MarkerIntendedVsync.String() = %q", MarkerIntendedVsync.String())
	}
	if Marker(99).String() != "Unknown" {
		t.Errorf("Marker(99).String() = %q, want Unknown", Marker(99).String())
	}
}
