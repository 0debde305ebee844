// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package conv provides 2-D convolution in three directions: Forward,
// BackwardData and BackwardFilter.
//
// # Overview
//
// Each operation runs one of three algorithms:
//   - Direct: one fused kernel over the whole batch on channel-major copies
//   - GemmWithBLAS: im2col per image followed by the backend's BLAS Gemm
//   - GemmWithFused: the same unfolding with the backend's hand-written GEMM
//
// The algorithm is chosen per layer and never substituted at run time.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/blitz/backend/cpu"
//	    "github.com/born-ml/blitz/conv"
//	    "github.com/born-ml/blitz/tensor"
//	)
//
//	func main() {
//	    g := tensor.Conv2DGeometry{N: 8, C: 3, H: 32, W: 32, K: 16, R: 3, S: 3,
//	        P: 32, Q: 32, PadH: 1, PadW: 1, StrH: 1, StrW: 1}
//	    size, _ := conv.WorkspaceSize(g)
//	    ws, _ := tensor.NewRaw(tensor.Shape{size}, tensor.Float32, tensor.CPU)
//
//	    ctx, _ := conv.NewContext(conv.Config{PadH: 1, PadW: 1, StrH: 1, StrW: 1,
//	        Algorithm: conv.Direct}, ws, conv.WithBackend(cpu.New()))
//
//	    if err := conv.Forward(input, filter, output, ctx); err != nil {
//	        // errors.Is(err, conv.ErrLayoutMismatch) etc.
//	    }
//	}
//
// # Errors
//
// Validation failures, an undersized workspace or an unknown algorithm abort the
// operation before any output is written. The error goes to the context's
// FatalSink (LogSink by default) and is returned to the caller.
//
// # Concurrency
//
// A Context owns its workspace for the duration of one operation. A second
// operation on the same Context while the first runs fails with
// ErrWorkspaceBusy; use one Context per concurrent stream.
package conv
