// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package renderloop provides per-window frame orchestration for
// GoGPU-based renderers.
//
// # Overview
//
// renderloop sits between a UI toolkit (the producer side) and a rendering
// pipeline (the rasterization backend). It owns the lifecycle of a
// presentable surface, synchronizes scene-graph updates with draw
// operations, paces frame production against the display's swap cadence,
// and records per-frame timing for jank diagnosis.
//
// The package deliberately does NOT draw anything itself. Rasterization is
// delegated to an injected [Pipeline], the scene graph is consumed through
// the [Node] contract, and the GPU device is received from the host via
// gpucontext.DeviceProvider — renderloop receives GPU resources, it never
// creates them.
//
// # Architecture
//
//   - [Context]: the per-window frame orchestrator and state machine
//   - [RenderThread]: the serialized rendering executor all GPU-mutating
//     operations run on
//   - [Proxy]: a producer-side handle that marshals calls onto the
//     render thread
//   - [DamageAccumulator], [LayerUpdateQueue]: invalidation tracking
//   - [PinCache]: budgeted accounting of GPU-resident pinned images
//   - telemetry: frame timing rings, jank classification, and
//     frame-metrics observers
//
// # Quick Start
//
//	rt := renderloop.NewRenderThread(deviceProvider)
//	proxy := renderloop.NewProxy(rt, pipeline,
//	    renderloop.WithName("main-window"))
//
//	proxy.SetSurface(surface)
//
//	// Once per display refresh signal:
//	rt.DispatchFrame(vsyncTime)
//
//	proxy.Destroy()
//	rt.Stop()
//
// # Threading
//
// All surface- and GPU-state-mutating Context methods must run on the
// rendering execution context. Use [Proxy] from other goroutines, or call
// Context methods directly when single-threaded (a nil RenderThread is
// supported for inline use and tests).
package renderloop
