// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for the convolution primitives.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go implementation (no CGO)
//   - gonum BLAS Sgemm for the GemmWithBLAS algorithm
//   - A row-banded hand-written GEMM with a fused alpha/beta epilogue for
//     GemmWithFused
//   - Direct forward, backward-data and filter-update kernels over
//     batch-innermost (CHWN) operands
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/blitz/backend/cpu"
//	    "github.com/born-ml/blitz/conv"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    ctx, err := conv.NewContext(conv.Config{StrH: 1, StrW: 1, Algorithm: conv.Direct},
//	        workspace, conv.WithBackend(backend))
//	}
//
// # Thread Safety
//
// Kernels are synchronous and keep no mutable state between calls, so one
// backend may serve several convolution contexts concurrently.
package cpu
