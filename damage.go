// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderloop

import "image"

// DamageAccumulator merges successive dirty rectangles into a running
// union across a tree-synchronization pass.
//
// Nodes report damage in their local coordinates; an offset stack applies
// the scene-graph translation in effect when Add is called. The accumulator
// is owned and written by the rendering execution context only.
type DamageAccumulator struct {
	dirty   image.Rectangle
	offsets []image.Point
	current image.Point
}

// PushOffset enters a subtree translated by off.
func (d *DamageAccumulator) PushOffset(off image.Point) {
	d.offsets = append(d.offsets, d.current)
	d.current = d.current.Add(off)
}

// PopOffset leaves the most recently pushed subtree.
// Unbalanced pops are ignored.
func (d *DamageAccumulator) PopOffset() {
	if n := len(d.offsets); n > 0 {
		d.current = d.offsets[n-1]
		d.offsets = d.offsets[:n-1]
	}
}

// Add merges a dirty rectangle, translated by the current offset, into the
// running union. Empty rectangles are ignored.
func (d *DamageAccumulator) Add(r image.Rectangle) {
	if r.Empty() {
		return
	}
	d.dirty = d.dirty.Union(r.Add(d.current))
}

// Dirty returns the accumulated union.
func (d *DamageAccumulator) Dirty() image.Rectangle { return d.dirty }

// IsEmpty reports whether no damage has accumulated.
func (d *DamageAccumulator) IsEmpty() bool { return d.dirty.Empty() }

// Reset clears the accumulated damage and the offset stack.
func (d *DamageAccumulator) Reset() {
	d.dirty = image.Rectangle{}
	d.offsets = d.offsets[:0]
	d.current = image.Point{}
}
