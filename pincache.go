// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderloop

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ImageID is an opaque handle to a GPU-resident image. Pipeline adapters
// maintain the mapping between IDs and actual backend resources.
type ImageID uint64

// PinnedImage pairs an image with its GPU cache footprint.
type PinnedImage struct {
	ID    ImageID
	Bytes int64
}

// PinCache accounts for images pinned to the GPU cache under a byte budget.
//
// A pinned image is guaranteed to stay in the cache until unpinned. The
// budget is enforced with a weighted semaphore: Pin fails (returns false)
// rather than blocking when the budget would be exceeded, and a completed
// pin/unpin round-trip restores full eligibility for the same image.
//
// Failing to unpin before the owning context is destroyed is a resource
// leak, not a crash; the context's lifecycle checks assert against it.
type PinCache struct {
	budget int64
	sem    *semaphore.Weighted

	mu     sync.Mutex
	pinned map[ImageID]int64

	pins     atomic.Uint64
	rejected atomic.Uint64
}

// NewPinCache creates a cache enforcing the given byte budget.
// A non-positive budget rejects every pin.
func NewPinCache(budgetBytes int64) *PinCache {
	if budgetBytes < 0 {
		budgetBytes = 0
	}
	return &PinCache{
		budget: budgetBytes,
		sem:    semaphore.NewWeighted(budgetBytes),
		pinned: make(map[ImageID]int64),
	}
}

// Pin reserves budget for the image. Returns true when the image is pinned
// (or already was; re-pinning an image does not double-charge). Returns
// false when the remaining budget is insufficient.
func (c *PinCache) Pin(img PinnedImage) bool {
	if img.Bytes < 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pinned[img.ID]; ok {
		return true
	}
	if !c.sem.TryAcquire(img.Bytes) {
		c.rejected.Add(1)
		return false
	}
	c.pinned[img.ID] = img.Bytes
	c.pins.Add(1)
	return true
}

// Unpin releases the image's budget. Unpinning an image that is not pinned
// is logged and otherwise ignored.
func (c *PinCache) Unpin(id ImageID) {
	c.mu.Lock()
	bytes, ok := c.pinned[id]
	if ok {
		delete(c.pinned, id)
	}
	c.mu.Unlock()
	if !ok {
		Logger().Warn("renderloop: unpin of image that is not pinned", "image", uint64(id))
		return
	}
	c.sem.Release(bytes)
}

// UnpinAll releases every pinned image.
func (c *PinCache) UnpinAll() {
	c.mu.Lock()
	var total int64
	for id, bytes := range c.pinned {
		total += bytes
		delete(c.pinned, id)
	}
	c.mu.Unlock()
	if total > 0 {
		c.sem.Release(total)
	}
}

// Empty reports whether no image is pinned.
func (c *PinCache) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pinned) == 0
}

// PinnedBytes returns the bytes currently reserved.
func (c *PinCache) PinnedBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total int64
	for _, bytes := range c.pinned {
		total += bytes
	}
	return total
}

// Stats returns the lifetime pin and rejection counts.
func (c *PinCache) Stats() (pins, rejected uint64) {
	return c.pins.Load(), c.rejected.Load()
}
