// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderloop

import "image"

// LightGeometry positions the scene light used for shadow casting.
type LightGeometry struct {
	// CenterX, CenterY, CenterZ is the light center in surface coordinates.
	CenterX, CenterY, CenterZ float32

	// Radius is the light radius.
	Radius float32
}

// LightInfo carries shadow alpha parameters.
type LightInfo struct {
	// AmbientShadowAlpha is the ambient shadow opacity (0-255).
	AmbientShadowAlpha uint8

	// SpotShadowAlpha is the spot shadow opacity (0-255).
	SpotShadowAlpha uint8
}

// DrawArgs is the per-frame input handed to the pipeline.
type DrawArgs struct {
	// Damage is the minimal region the pipeline must repaint. May be empty,
	// in which case the pipeline may clear or skip per its own contract.
	Damage image.Rectangle

	// Light and LightInfo are the current shadow parameters.
	Light     LightGeometry
	LightInfo LightInfo

	// ContentBounds is the main content area within the surface.
	ContentBounds image.Rectangle

	// Opaque indicates the window content has no translucency.
	Opaque bool

	// Surface is the currently attached presentation target.
	Surface Surface
}

// LayerLifecycle is the narrow capability for managing GPU-resident
// offscreen layers attached to scene nodes. It is the only layer-related
// access the orchestrator holds, making the dependency explicit at the
// type level.
type LayerLifecycle interface {
	// CreateOrUpdateLayer creates or refreshes the offscreen layer for the
	// node, repainting the given damage. Returns false when the layer could
	// not be created or updated.
	CreateOrUpdateLayer(n Node, damage image.Rectangle) bool

	// DestroyLayer releases the node's layer and any state set during
	// CreateOrUpdateLayer.
	DestroyLayer(n Node)
}

// ImagePinner is the narrow capability for keeping mutable images resident
// in the GPU cache across frames, avoiding CPU-side copies.
type ImagePinner interface {
	// PinImages pins the given images. Returns false when the cache budget
	// would be exceeded; in that case none of the images are pinned.
	PinImages(ids []ImageID) bool

	// UnpinImages releases every image previously pinned.
	UnpinImages()
}

// Pipeline is the pluggable rasterization backend.
//
// The orchestrator treats the pipeline as an opaque strategy: it owns
// invocation sequencing, not drawing semantics. All methods are invoked on
// the rendering execution context only.
type Pipeline interface {
	// SetSurface binds the pipeline's GPU state to a new presentation
	// target, tearing down state tied to any prior one. A nil surface
	// detaches.
	SetSurface(s Surface) error

	// Draw records and submits this frame's rendering commands.
	Draw(args DrawArgs) error

	LayerLifecycle
	ImagePinner
}
