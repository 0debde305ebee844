//go:build windows

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU backend for GPU-accelerated convolution.
//
// WebGPU is a cross-platform graphics and compute API; this backend drives it
// through go-webgpu and is built on Windows only.
//
// Example:
//
//	import (
//	    "github.com/born-ml/blitz/backend/webgpu"
//	    "github.com/born-ml/blitz/conv"
//	)
//
//	func main() {
//	    gpu, err := webgpu.New()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer gpu.Release()
//
//	    ctx, err := conv.NewContext(cfg, workspace, conv.WithBackend(gpu))
//	}
package webgpu

import (
	internalwebgpu "github.com/born-ml/blitz/internal/backend/webgpu"
	"github.com/born-ml/blitz/tensor"
)

// Backend represents the WebGPU backend implementation for GPU-accelerated
// convolution primitives.
type Backend = internalwebgpu.Backend

// MemoryStats represents GPU memory usage statistics.
type MemoryStats = internalwebgpu.MemoryStats

// PoolStats reports staging buffer reuse.
type PoolStats = internalwebgpu.PoolStats

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new WebGPU backend.
//
// This function initializes the WebGPU device and returns a backend
// ready for convolution. Call Release() when done to free GPU resources.
//
// Returns an error if WebGPU initialization fails (e.g., no compatible GPU).
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable checks if WebGPU is available on the current system.
//
// It is useful for graceful fallback to the CPU backend:
//
//	var backend tensor.Backend = cpu.New()
//	if webgpu.IsAvailable() {
//	    gpu, _ := webgpu.New()
//	    backend = gpu
//	}
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
