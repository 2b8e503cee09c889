// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderloop

import "image"

// LayerEntry is one node whose GPU-resident offscreen layer must be
// refreshed this frame, together with the region to repaint.
type LayerEntry struct {
	Node   Node
	Damage image.Rectangle
}

// LayerUpdateQueue collects the nodes whose offscreen layers need refresh
// this frame. A node appears at most once: enqueueing it again merges the
// damage into the existing entry. Submission order is preserved.
type LayerUpdateQueue struct {
	entries []LayerEntry
	index   map[Node]int
}

// Enqueue adds a node with the given layer damage, merging with any entry
// the node already has.
func (q *LayerUpdateQueue) Enqueue(n Node, damage image.Rectangle) {
	if n == nil {
		return
	}
	if q.index == nil {
		q.index = make(map[Node]int)
	}
	if i, ok := q.index[n]; ok {
		q.entries[i].Damage = q.entries[i].Damage.Union(damage)
		return
	}
	q.index[n] = len(q.entries)
	q.entries = append(q.entries, LayerEntry{Node: n, Damage: damage})
}

// Entries returns the queued updates in submission order.
// The returned slice is a copy.
func (q *LayerUpdateQueue) Entries() []LayerEntry {
	out := make([]LayerEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Len returns the number of queued nodes.
func (q *LayerUpdateQueue) Len() int { return len(q.entries) }

// Clear empties the queue.
func (q *LayerUpdateQueue) Clear() {
	q.entries = q.entries[:0]
	clear(q.index)
}
