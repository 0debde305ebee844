package conv

import (
	"fmt"

	"github.com/born-ml/blitz/internal/tensor"
)

// operands are the three buffers of one operation in their forward roles.
// BackwardData passes the input gradient as input and the output gradient as
// output; BackwardFilter passes the filter gradient as filter.
type operands struct {
	input  *tensor.RawTensor
	filter *tensor.RawTensor
	output *tensor.RawTensor
}

// gemmFunc is the shared signature of Backend.Gemm and Backend.FusedGemm.
type gemmFunc func(a, b, c []float32, transA, transB bool, alpha, beta float32, m, n, k int)

// strategy runs one algorithm once the operands are validated, the written
// tensor is cleared and the workspace is known to be large enough.
type strategy func(ctx *Context, ops operands, g tensor.Conv2DGeometry, plan WorkspacePlan)

// execute owns the workspace for the duration of one operation: validate, plan,
// check capacity, clear the written tensor, run, synchronize.
func (ctx *Context) execute(op Operation, ops operands, written *tensor.RawTensor, run strategy) error {
	if !ctx.mu.TryLock() {
		return ctx.fatal(op, ErrWorkspaceBusy)
	}
	defer ctx.mu.Unlock()

	g, err := ctx.validate(ops.input, ops.filter, ops.output)
	if err != nil {
		return ctx.fatal(op, err)
	}
	plan, err := PlanWorkspace(op, ctx.algorithm, g)
	if err != nil {
		return ctx.fatal(op, err)
	}
	if err := plan.Check(ctx.workspace); err != nil {
		return ctx.fatal(op, err)
	}

	t := ctx.startTimer(op, g)
	written.Fill(0)
	run(ctx, ops, g, plan)
	if err := ctx.backend.Synchronize(); err != nil {
		return ctx.fatal(op, fmt.Errorf("synchronize %s: %w", ctx.backend.Name(), err))
	}
	t.stop()
	return nil
}

// fatal wraps err with the operation name and hands it to the fatal sink.
func (ctx *Context) fatal(op Operation, err error) error {
	err = fmt.Errorf("conv: %s: %w", op, err)
	ctx.sink.Fatal(op, ctx.algorithm, err)
	return err
}

func (ctx *Context) unsupported(op Operation) error {
	return ctx.fatal(op, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, ctx.algorithm))
}
