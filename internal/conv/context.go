package conv

import (
	"fmt"
	"sync"

	"github.com/born-ml/blitz/internal/backend/cpu"
	"github.com/born-ml/blitz/internal/logger"
	"github.com/born-ml/blitz/internal/tensor"
)

// Config is the per-layer convolution configuration.
type Config struct {
	PadH, PadW int
	StrH, StrW int
	Algorithm  Algorithm
}

// Option configures a Context.
type Option func(*Context)

// WithBackend selects the device the operations run on. Defaults to the CPU backend.
func WithBackend(b tensor.Backend) Option {
	return func(ctx *Context) { ctx.backend = b }
}

// WithLogger sets the logger used for fatal reports and instrumentation.
func WithLogger(l logger.Logger) Option {
	return func(ctx *Context) { ctx.logger = l }
}

// WithFatalSink sets the policy applied to errors that abort an operation.
// Defaults to LogSink over the context logger.
func WithFatalSink(s FatalSink) Option {
	return func(ctx *Context) { ctx.sink = s }
}

// WithInstrumentation toggles per-operation timing.
func WithInstrumentation(enabled bool) Option {
	return func(ctx *Context) { ctx.instrument = enabled }
}

// WithObserver receives instrumentation events. Setting an observer does not
// enable instrumentation on its own.
func WithObserver(o Observer) Option {
	return func(ctx *Context) { ctx.observer = o }
}

// Context carries the padding, stride, algorithm and workspace of one
// convolution layer. It is created once per layer and reused across the three
// operations, iterations and batch sizes.
//
// The workspace belongs to whichever operation is running: a second operation
// started on the same Context before the first returns fails with
// ErrWorkspaceBusy. Use one Context per concurrent stream of work.
type Context struct {
	padH, padW int
	strH, strW int
	algorithm  Algorithm

	mu        sync.Mutex
	workspace *tensor.RawTensor

	backend    tensor.Backend
	logger     logger.Logger
	sink       FatalSink
	instrument bool
	observer   Observer
}

// NewContext validates cfg and returns a Context that borrows workspace.
//
// The algorithm is not checked here. An unsupported algorithm is reported by the
// first operation that tries to run it.
func NewContext(cfg Config, workspace *tensor.RawTensor, opts ...Option) (*Context, error) {
	if cfg.StrH < 1 || cfg.StrW < 1 {
		return nil, fmt.Errorf("%w: stride must be >= 1, got (%d, %d)", ErrInvalidConfig, cfg.StrH, cfg.StrW)
	}
	if cfg.PadH < 0 || cfg.PadW < 0 {
		return nil, fmt.Errorf("%w: padding must be >= 0, got (%d, %d)", ErrInvalidConfig, cfg.PadH, cfg.PadW)
	}
	if workspace != nil && workspace.DType() != tensor.Float32 {
		return nil, fmt.Errorf("%w: workspace dtype is %s, expected float32", ErrInvalidConfig, workspace.DType())
	}

	ctx := &Context{
		padH:      cfg.PadH,
		padW:      cfg.PadW,
		strH:      cfg.StrH,
		strW:      cfg.StrW,
		algorithm: cfg.Algorithm,
		workspace: workspace,
	}
	for _, opt := range opts {
		opt(ctx)
	}

	if ctx.backend == nil {
		ctx.backend = cpu.New()
	}
	if ctx.logger == nil {
		ctx.logger = logger.Discard()
	}
	if ctx.sink == nil {
		ctx.sink = LogSink{Logger: ctx.logger}
	}
	if ctx.instrument && ctx.observer == nil {
		ctx.observer = LogObserver{Logger: ctx.logger}
	}
	return ctx, nil
}

// PadH returns the vertical zero padding.
func (ctx *Context) PadH() int { return ctx.padH }

// PadW returns the horizontal zero padding.
func (ctx *Context) PadW() int { return ctx.padW }

// StrH returns the vertical stride.
func (ctx *Context) StrH() int { return ctx.strH }

// StrW returns the horizontal stride.
func (ctx *Context) StrW() int { return ctx.strW }

// Algorithm returns the selected execution strategy.
func (ctx *Context) Algorithm() Algorithm { return ctx.algorithm }

// Backend returns the device the operations run on.
func (ctx *Context) Backend() tensor.Backend { return ctx.backend }

// Workspace returns the borrowed scratch tensor.
func (ctx *Context) Workspace() *tensor.RawTensor {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.workspace
}

// SetWorkspace replaces the scratch tensor, waiting for a running operation to
// finish first.
func (ctx *Context) SetWorkspace(ws *tensor.RawTensor) error {
	if ws != nil && ws.DType() != tensor.Float32 {
		return fmt.Errorf("%w: workspace dtype is %s, expected float32", ErrInvalidConfig, ws.DType())
	}
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.workspace = ws
	return nil
}

// CheckInputDataLayout checks the input activation buffer against the filter and
// output buffers. For BackwardData the input role is played by the input
// gradient.
func (ctx *Context) CheckInputDataLayout(input, filter, output *tensor.RawTensor) error {
	if err := checkRoles(input, filter, output); err != nil {
		return err
	}
	in := DecodeBuffer(input.Shape(), input.Layout())
	f := DecodeFilter(filter.Shape())
	out := DecodeBuffer(output.Shape(), output.Layout())

	if input.Layout() != output.Layout() {
		return mismatch("input", "layout %s does not match output layout %s", input.Layout(), output.Layout())
	}
	if ctx.algorithm == Direct && input.Layout() != tensor.NCHW {
		return mismatch("input", "direct algorithm requires NCHW, got %s", input.Layout())
	}
	if in.C != f.C {
		return mismatch("input", "%d channels but filter expects %d", in.C, f.C)
	}
	if in.N != out.N {
		return mismatch("input", "batch %d does not match output batch %d", in.N, out.N)
	}
	if in.H+2*ctx.padH < f.R || in.W+2*ctx.padW < f.S {
		return mismatch("input", "padded extent %dx%d smaller than kernel %dx%d",
			in.H+2*ctx.padH, in.W+2*ctx.padW, f.R, f.S)
	}
	return nil
}

// CheckFilterDataLayout checks the KCRS filter against the input and output
// buffers.
func (ctx *Context) CheckFilterDataLayout(input, filter, output *tensor.RawTensor) error {
	if err := checkRoles(input, filter, output); err != nil {
		return err
	}
	in := DecodeBuffer(input.Shape(), input.Layout())
	f := DecodeFilter(filter.Shape())
	out := DecodeBuffer(output.Shape(), output.Layout())

	if f.C != in.C {
		return mismatch("filter", "%d input channels but input has %d", f.C, in.C)
	}
	if f.K != out.C {
		return mismatch("filter", "%d output channels but output has %d", f.K, out.C)
	}
	if f.R > in.H+2*ctx.padH || f.S > in.W+2*ctx.padW {
		return mismatch("filter", "kernel %dx%d exceeds padded input %dx%d",
			f.R, f.S, in.H+2*ctx.padH, in.W+2*ctx.padW)
	}
	return nil
}

// CheckOutputDataLayout checks the output buffer against the dimensions implied
// by the input, the filter and the context's padding and stride. For the
// backward operations the output role is played by the output gradient.
func (ctx *Context) CheckOutputDataLayout(input, filter, output *tensor.RawTensor) error {
	if err := checkRoles(input, filter, output); err != nil {
		return err
	}
	in := DecodeBuffer(input.Shape(), input.Layout())
	f := DecodeFilter(filter.Shape())
	out := DecodeBuffer(output.Shape(), output.Layout())
	want := ctx.OutputDims(in, f)

	if out.N != want.N {
		return mismatch("output", "batch %d, expected %d", out.N, want.N)
	}
	if out.C != want.C {
		return mismatch("output", "%d channels, expected %d", out.C, want.C)
	}
	if out.H != want.H || out.W != want.W {
		return mismatch("output", "spatial extent %dx%d, expected %dx%d", out.H, out.W, want.H, want.W)
	}
	return nil
}

// validate runs the three role checks and returns the decoded geometry.
func (ctx *Context) validate(input, filter, output *tensor.RawTensor) (tensor.Conv2DGeometry, error) {
	if err := ctx.CheckInputDataLayout(input, filter, output); err != nil {
		return tensor.Conv2DGeometry{}, err
	}
	if err := ctx.CheckFilterDataLayout(input, filter, output); err != nil {
		return tensor.Conv2DGeometry{}, err
	}
	if err := ctx.CheckOutputDataLayout(input, filter, output); err != nil {
		return tensor.Conv2DGeometry{}, err
	}
	return ctx.Geometry(DecodeBuffer(input.Shape(), input.Layout()), DecodeFilter(filter.Shape())), nil
}

func checkRoles(input, filter, output *tensor.RawTensor) error {
	if err := checkBuffer("input", input); err != nil {
		return err
	}
	if err := checkBuffer("filter", filter); err != nil {
		return err
	}
	return checkBuffer("output", output)
}

func checkBuffer(role string, t *tensor.RawTensor) error {
	if t == nil {
		return mismatch(role, "tensor is nil")
	}
	shape := t.Shape()
	if len(shape) != 4 {
		return mismatch(role, "expected rank 4, got shape %v", shape)
	}
	for _, d := range shape {
		if d <= 0 {
			return mismatch(role, "non-positive dimension in shape %v", shape)
		}
	}
	if t.DType() != tensor.Float32 {
		return mismatch(role, "dtype %s, expected float32", t.DType())
	}
	return nil
}

func mismatch(role, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrLayoutMismatch, role, fmt.Sprintf(format, args...))
}
