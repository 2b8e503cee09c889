// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderloop

import "errors"

// Deferred frame work errors.
var (
	// ErrWorkCanceled resolves fences whose work was still queued when the
	// context was destroyed.
	ErrWorkCanceled = errors.New("renderloop: frame work canceled")

	// ErrContextDestroyed is returned by operations on a destroyed context.
	ErrContextDestroyed = errors.New("renderloop: context destroyed")
)

// Fence is the future paired with a deferred work item. The caller may
// await it independently of the frame that resolves it.
//
// A fence resolves to nil on success or to the work item's error — a
// Unit-or-Error result, never a value.
type Fence struct {
	done chan struct{}
	err  error
}

func newFence() *Fence {
	return &Fence{done: make(chan struct{})}
}

// resolve fulfills the fence. Must be called exactly once.
func (f *Fence) resolve(err error) {
	f.err = err
	close(f.done)
}

// Done returns a channel closed when the work item has run (or was
// canceled).
func (f *Fence) Done() <-chan struct{} { return f.done }

// Wait blocks until the work item has run and returns its error.
func (f *Fence) Wait() error {
	<-f.done
	return f.err
}

// Err returns the work item's error without blocking.
// Returns nil while the fence is unresolved; use Done to distinguish.
func (f *Fence) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// workItem is a queued unit of deferred frame work.
type workItem struct {
	fn    func() error
	fence *Fence
}

// run executes the item and fulfills its fence. A nil function resolves
// successfully.
func (w workItem) run() {
	var err error
	if w.fn != nil {
		err = w.fn()
	}
	w.fence.resolve(err)
}
