// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/blitz/internal/backend/cpu"
	"github.com/born-ml/blitz/internal/parallel"
	"github.com/born-ml/blitz/tensor"
)

// Backend represents the CPU backend implementation.
//
// Gemm is served by gonum's BLAS; FusedGemm, transpose, im2col/col2im and the
// direct kernels are pure Go and fan out over goroutines.
type Backend = internalcpu.CPUBackend

// ParallelConfig controls how kernels split work across goroutines.
type ParallelConfig = parallel.Config

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend using one worker per CPU.
//
// Example:
//
//	import (
//	    "github.com/born-ml/blitz/backend/cpu"
//	    "github.com/born-ml/blitz/conv"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    ctx, _ := conv.NewContext(cfg, workspace, conv.WithBackend(backend))
//	}
func New() *Backend {
	return internalcpu.New()
}

// NewWithConfig creates a CPU backend with explicit parallelism settings.
func NewWithConfig(cfg ParallelConfig) *Backend {
	return internalcpu.NewWithConfig(cfg)
}

// DefaultParallelConfig returns one worker per CPU.
func DefaultParallelConfig() ParallelConfig {
	return parallel.DefaultConfig()
}

// Sequential runs every kernel on the calling goroutine.
func Sequential() ParallelConfig {
	return parallel.Sequential()
}
