// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/blitz/internal/tensor"

// Backend defines the device primitives the convolution operations are built
// from: BLAS and hand-written GEMM, transpose, im2col/col2im, the three direct
// kernels and the filter shuffle.
//
// Implementations:
//   - backend/cpu: Pure Go, gonum BLAS and goroutine fan-out
//   - backend/webgpu: WGSL compute shaders via go-webgpu (Windows)
//
// Example:
//
//	import (
//	    "github.com/born-ml/blitz/backend/cpu"
//	    "github.com/born-ml/blitz/conv"
//	)
//
//	ctx, err := conv.NewContext(cfg, workspace, conv.WithBackend(cpu.New()))
type Backend = tensor.Backend

// Conv2DGeometry is the full parameter set of one 2-D convolution.
type Conv2DGeometry = tensor.Conv2DGeometry

// FilterShuffleChannelBlock is the channel block size at which the direct
// backward kernel switches to the shuffled filter layout.
const FilterShuffleChannelBlock = tensor.FilterShuffleChannelBlock

// OutputExtent returns the number of output positions along one spatial axis.
func OutputExtent(in, kernel, pad, stride int) int {
	return tensor.OutputExtent(in, kernel, pad, stride)
}

// UsesShuffledFilter reports whether the direct backward kernel reads the
// shuffled filter layout for g.
func UsesShuffledFilter(g Conv2DGeometry) bool {
	return tensor.UsesShuffledFilter(g)
}
