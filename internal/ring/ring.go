// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package ring provides a fixed-capacity circular buffer for bounded
// frame-history storage.
package ring

// Ring is a fixed-capacity circular buffer indexed by a monotonic write
// counter modulo capacity. Once full, new pushes overwrite the oldest entry.
//
// Only bounded accessors (Back, FromBack, ForEachRecent) are exposed; there
// is no raw index access, preserving the bounded-memory invariant.
//
// Ring is single-writer. Readers on other goroutines must synchronize
// externally or operate on a snapshot.
type Ring[T any] struct {
	buf   []T
	count uint64 // total pushes since creation or Clear
}

// New creates a ring with the given capacity. Capacity must be positive.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v, overwriting the oldest entry when full.
func (r *Ring[T]) Push(v T) {
	r.buf[int(r.count%uint64(len(r.buf)))] = v
	r.count++
}

// Next returns a pointer to the slot the next Push would fill and advances
// the write counter. Useful for filling large entries in place.
func (r *Ring[T]) Next() *T {
	slot := &r.buf[int(r.count%uint64(len(r.buf)))]
	var zero T
	*slot = zero
	r.count++
	return slot
}

// Size returns the number of valid entries, at most Capacity.
func (r *Ring[T]) Size() int {
	if r.count >= uint64(len(r.buf)) {
		return len(r.buf)
	}
	return int(r.count)
}

// Capacity returns the fixed capacity.
func (r *Ring[T]) Capacity() int { return len(r.buf) }

// Full reports whether the ring has wrapped at least once.
func (r *Ring[T]) Full() bool { return r.count >= uint64(len(r.buf)) }

// Back returns the most recently pushed entry.
// The second result is false when the ring is empty.
func (r *Ring[T]) Back() (T, bool) {
	return r.FromBack(0)
}

// FromBack returns the i-th most recent entry (0 = most recent).
// The second result is false when fewer than i+1 entries exist.
func (r *Ring[T]) FromBack(i int) (T, bool) {
	var zero T
	if i < 0 || i >= r.Size() {
		return zero, false
	}
	idx := (r.count - 1 - uint64(i)) % uint64(len(r.buf))
	return r.buf[int(idx)], true
}

// ForEachRecent calls fn for the min(n, Size) most recent entries, in
// oldest-to-newest order.
func (r *Ring[T]) ForEachRecent(n int, fn func(T)) {
	if n > r.Size() {
		n = r.Size()
	}
	for i := n - 1; i >= 0; i-- {
		v, _ := r.FromBack(i)
		fn(v)
	}
}

// Clear discards all entries.
func (r *Ring[T]) Clear() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.count = 0
}
