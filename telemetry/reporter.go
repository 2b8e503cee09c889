// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package telemetry

import "sync"

// Observer receives completed-frame statistics.
//
// Observers are invoked on the rendering execution context and must not
// block; expensive processing should be handed off to another goroutine.
type Observer interface {
	OnFrameMetrics(stats FrameStats)
}

// Reporter fans completed-frame statistics out to registered observers.
//
// Registration is keyed by observer identity: adding the same observer
// twice is a no-op, as is removing one that was never added.
type Reporter struct {
	mu        sync.RWMutex
	observers map[Observer]struct{}
}

// NewReporter creates an empty reporter.
func NewReporter() *Reporter {
	return &Reporter{observers: make(map[Observer]struct{})}
}

// Add registers an observer. Idempotent.
func (r *Reporter) Add(o Observer) {
	if o == nil {
		return
	}
	r.mu.Lock()
	r.observers[o] = struct{}{}
	r.mu.Unlock()
}

// Remove deregisters an observer. Idempotent.
func (r *Reporter) Remove(o Observer) {
	r.mu.Lock()
	delete(r.observers, o)
	r.mu.Unlock()
}

// HasObservers reports whether any observer is registered.
func (r *Reporter) HasObservers() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.observers) > 0
}

// Report delivers stats to every registered observer.
// The observer set is snapshotted first so observers may remove themselves
// during delivery.
func (r *Reporter) Report(stats FrameStats) {
	r.mu.RLock()
	snapshot := make([]Observer, 0, len(r.observers))
	for o := range r.observers {
		snapshot = append(snapshot, o)
	}
	r.mu.RUnlock()

	for _, o := range snapshot {
		o.OnFrameMetrics(stats)
	}
}
