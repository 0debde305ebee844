// Package cpu implements the convolution primitives in pure Go on the host.
package cpu

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/blitz/internal/parallel"
	"github.com/born-ml/blitz/internal/tensor"
)

// Compile-time check that CPUBackend implements tensor.Backend.
var _ tensor.Backend = (*CPUBackend)(nil)

// CPUBackend implements the convolution primitives on CPU.
//
// Gemm is served by gonum's BLAS; every other kernel is hand-written and fans out
// over goroutines according to the parallel config. Kernels run synchronously, so
// Synchronize has nothing to wait for.
type CPUBackend struct {
	device   tensor.Device
	parallel parallel.Config
	blas     blas.Float32
}

// New creates a new CPU backend with default parallelism.
func New() *CPUBackend {
	return NewWithConfig(parallel.DefaultConfig())
}

// NewWithConfig creates a CPU backend with explicit parallelism settings.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{
		device:   tensor.CPU,
		parallel: cfg,
		blas:     blas32.Implementation(),
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// ParallelConfig returns the fan-out settings used by the kernels.
func (cpu *CPUBackend) ParallelConfig() parallel.Config {
	return cpu.parallel
}

// Synchronize is a no-op: CPU kernels complete before they return.
func (cpu *CPUBackend) Synchronize() error {
	return nil
}
