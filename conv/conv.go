// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package conv

import (
	"github.com/born-ml/blitz/internal/conv"
	"github.com/born-ml/blitz/internal/logger"
	"github.com/born-ml/blitz/tensor"
)

// Context carries the padding, stride, algorithm and workspace of one
// convolution layer. Create one per layer and reuse it across the three
// operations and across batch sizes.
type Context = conv.Context

// Config is the per-layer convolution configuration.
type Config = conv.Config

// Option configures a Context.
type Option = conv.Option

// Algorithm identifies the execution strategy of a convolution.
type Algorithm = conv.Algorithm

// Operation names one of the three convolution directions.
type Operation = conv.Operation

// Event describes one completed, instrumented operation.
type Event = conv.Event

// Observer receives instrumentation events.
type Observer = conv.Observer

// ObserverFunc adapts a function to Observer.
type ObserverFunc = conv.ObserverFunc

// FatalSink receives the errors that abort an operation.
type FatalSink = conv.FatalSink

// LogSink logs aborted operations and lets them return their error.
type LogSink = conv.LogSink

// PanicSink logs aborted operations and then panics.
type PanicSink = conv.PanicSink

// Logger is the structured logger a Context reports through.
type Logger = logger.Logger

// WorkspacePlan is the workspace partition of one operation.
type WorkspacePlan = conv.WorkspacePlan

// Algorithms.
const (
	Direct        = conv.Direct
	GemmWithBLAS  = conv.GemmWithBLAS
	GemmWithFused = conv.GemmWithFused
)

// Operations.
const (
	OpForward        = conv.OpForward
	OpBackwardData   = conv.OpBackwardData
	OpBackwardFilter = conv.OpBackwardFilter
)

// Sentinel errors; match with errors.Is.
var (
	ErrUnsupportedAlgorithm = conv.ErrUnsupportedAlgorithm
	ErrLayoutMismatch       = conv.ErrLayoutMismatch
	ErrWorkspaceTooSmall    = conv.ErrWorkspaceTooSmall
	ErrWorkspaceBusy        = conv.ErrWorkspaceBusy
	ErrInvalidConfig        = conv.ErrInvalidConfig
)

// NewContext validates cfg and returns a Context that borrows workspace.
//
// Example:
//
//	size, _ := conv.WorkspaceSize(g, conv.GemmWithBLAS)
//	ws, _ := tensor.NewRaw(tensor.Shape{size}, tensor.Float32, tensor.CPU)
//	ctx, err := conv.NewContext(conv.Config{PadH: 1, PadW: 1, StrH: 1, StrW: 1,
//	    Algorithm: conv.GemmWithBLAS}, ws, conv.WithBackend(cpu.New()))
func NewContext(cfg Config, workspace *tensor.RawTensor, opts ...Option) (*Context, error) {
	return conv.NewContext(cfg, workspace, opts...)
}

// WithBackend selects the device the operations run on.
func WithBackend(b tensor.Backend) Option { return conv.WithBackend(b) }

// WithLogger sets the logger used for fatal reports and instrumentation.
func WithLogger(l Logger) Option { return conv.WithLogger(l) }

// WithFatalSink sets the policy applied to errors that abort an operation.
func WithFatalSink(s FatalSink) Option { return conv.WithFatalSink(s) }

// WithInstrumentation toggles per-operation timing.
func WithInstrumentation(enabled bool) Option { return conv.WithInstrumentation(enabled) }

// WithObserver receives instrumentation events.
func WithObserver(o Observer) Option { return conv.WithObserver(o) }

// Forward computes output = conv(input, filter).
func Forward(input, filter, output *tensor.RawTensor, ctx *Context) error {
	return conv.Forward(input, filter, output, ctx)
}

// BackwardData computes the input gradient from the output gradient.
func BackwardData(outputGrad, filter, inputGrad *tensor.RawTensor, ctx *Context) error {
	return conv.BackwardData(outputGrad, filter, inputGrad, ctx)
}

// BackwardFilter computes the filter gradient, summed over the batch.
func BackwardFilter(input, outputGrad, filterGrad *tensor.RawTensor, ctx *Context) error {
	return conv.BackwardFilter(input, outputGrad, filterGrad, ctx)
}

// WorkspaceSize returns the workspace element count needed to run every
// operation of g under each of algos (all algorithms when none are given).
func WorkspaceSize(g tensor.Conv2DGeometry, algos ...Algorithm) (int, error) {
	return conv.WorkspaceSize(g, algos...)
}

// PlanWorkspace returns the workspace partition of one operation.
func PlanWorkspace(op Operation, algo Algorithm, g tensor.Conv2DGeometry) (WorkspacePlan, error) {
	return conv.PlanWorkspace(op, algo, g)
}

// Algorithms lists every supported algorithm.
func Algorithms() []Algorithm { return conv.Algorithms() }

// ParseAlgorithm converts a name such as "direct" or "gemm_blas" into an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) { return conv.ParseAlgorithm(name) }
