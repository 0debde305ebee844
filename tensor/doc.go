// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the buffers and backend contract used by the blitz
// convolution operations.
//
// # Overview
//
// A RawTensor is a fixed-shape, host-addressable float32 buffer carrying a
// layout tag (NCHW or NHWC). Activations are 4-D; filters are always KCRS.
//
// # Basic Usage
//
//	import "github.com/born-ml/blitz/tensor"
//
//	func main() {
//	    input, _ := tensor.NewRawWithLayout(
//	        tensor.ActivationShape(tensor.NHWC, 8, 3, 32, 32),
//	        tensor.Float32, tensor.CPU, tensor.NHWC)
//	    filter, _ := tensor.NewRaw(tensor.FilterShape(16, 3, 3, 3), tensor.Float32, tensor.CPU)
//	    _ = input
//	    _ = filter
//	}
//
// # Geometry
//
// Conv2DGeometry holds N, C, H, W, K, R, S, the output extent P x Q, padding
// and stride. OutputExtent computes P and Q:
//
//	P = (H + 2*PadH - R) / StrH + 1
//
// Convolution is float32 only; Float64 tensors are rejected by the operations.
package tensor
