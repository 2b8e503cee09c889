// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderloop

import "time"

// Node is a root scene-graph node consumed by the orchestrator.
//
// The orchestrator never mutates node content: it only triggers
// re-synchronization, during which the node pulls its pending geometry and
// paint state into render-side form and reports invalidated regions through
// the TreeInfo.
type Node interface {
	// Name returns a human-readable node name for diagnostics.
	Name() string

	// Sync pulls pending updates into the node's render-side state.
	// Damage is reported via info.Damage; nodes whose offscreen layers need
	// refresh this frame enqueue themselves on info.Layers.
	Sync(info *TreeInfo)
}

// TreeInfo carries the inputs and outputs of one tree-synchronization pass.
type TreeInfo struct {
	// Vsync is the target vsync for the frame being prepared.
	Vsync time.Time

	// QueuedAt is when the producer requested synchronization.
	QueuedAt time.Time

	// Target optionally restricts synchronization to a single node.
	// When nil, every root node is synchronized.
	Target Node

	// Damage receives invalidated regions. Wired by the orchestrator before
	// node traversal.
	Damage *DamageAccumulator

	// Layers receives nodes whose offscreen layers need refresh this frame.
	// Wired by the orchestrator before node traversal.
	Layers *LayerUpdateQueue

	// Out carries results of the pass back to the caller.
	Out struct {
		// HasAnimations reports whether any synchronized node still has
		// animations running after this pass.
		HasAnimations bool
	}
}

// AnimationContext evaluates property animations for one window.
// Implementations come from the host toolkit; the default is inert.
type AnimationContext interface {
	// StartFrame marks the beginning of a frame for animation clocks.
	StartFrame()

	// RunAnimations evaluates animations that are not driven by node
	// synchronization, recording damage on the TreeInfo.
	RunAnimations(info *TreeInfo)

	// Destroy releases animation state.
	Destroy()
}

// ContextFactory creates the per-window animation context. The factory is
// supplied at Context creation so the toolkit controls animation semantics
// without the orchestrator depending on it.
type ContextFactory interface {
	CreateAnimationContext(clock func() time.Time) AnimationContext
}

// noopAnimationContext is used when no factory is supplied.
type noopAnimationContext struct{}

func (noopAnimationContext) StartFrame()             {}
func (noopAnimationContext) RunAnimations(*TreeInfo) {}
func (noopAnimationContext) Destroy()                {}

var _ AnimationContext = noopAnimationContext{}
