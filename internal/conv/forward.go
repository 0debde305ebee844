package conv

import "github.com/born-ml/blitz/internal/tensor"

// Forward computes output = conv2d(input, filter) with the context's padding,
// stride and algorithm. Output is cleared first and fully overwritten.
//
// Input and output are [N, C, H, W] / [N, K, P, Q] (or the NHWC order when tagged
// so); the filter is [K, C, R, S].
func Forward(input, filter, output *tensor.RawTensor, ctx *Context) error {
	var run strategy
	switch ctx.algorithm {
	case Direct:
		run = forwardDirect
	case GemmWithBLAS:
		run = forwardGemm(ctx.backend.Gemm)
	case GemmWithFused:
		run = forwardGemm(ctx.backend.FusedGemm)
	default:
		return ctx.unsupported(OpForward)
	}
	return ctx.execute(OpForward, operands{input: input, filter: filter, output: output}, output, run)
}

// forwardDirect makes channel-major copies of input and filter, runs one fused
// kernel for the whole batch and transposes the result back to batch-major.
func forwardDirect(ctx *Context, ops operands, g tensor.Conv2DGeometry, plan WorkspacePlan) {
	b := ctx.backend
	ctx.workspace.Fill(0)

	in := plan.View(ctx.workspace, regionInput)
	out := plan.View(ctx.workspace, regionOutput)
	filter := plan.View(ctx.workspace, regionFilter)

	b.Transpose(ops.input.AsFloat32(), in, g.N, g.CHW())
	b.Transpose(ops.filter.AsFloat32(), filter, g.K, g.CRS())
	b.Conv2DDirectForward(in, out, filter, g)
	b.Transpose(out, ops.output.AsFloat32(), g.KPQ(), g.N)
}

// forwardGemm unfolds one image at a time and multiplies it with the filter,
// overwriting that image's output slice.
func forwardGemm(gemm gemmFunc) strategy {
	return func(ctx *Context, ops operands, g tensor.Conv2DGeometry, plan WorkspacePlan) {
		patches := plan.View(ctx.workspace, regionPatches)
		filter := ops.filter.AsFloat32()
		layout := ops.input.Layout()

		for n := range g.N {
			ctx.backend.Im2col(ops.input.Slice(n*g.CHW(), g.CHW()), patches, g, layout)
			out := ops.output.Slice(n*g.KPQ(), g.KPQ())
			if layout == tensor.NHWC {
				// [PQ, CRS] x [K, CRS]^T -> [PQ, K]
				gemm(patches, filter, out, false, true, 1, 0, g.PQ(), g.K, g.CRS())
			} else {
				// [K, CRS] x [PQ, CRS]^T -> [K, PQ]
				gemm(filter, patches, out, false, true, 1, 0, g.K, g.PQ(), g.CRS())
			}
		}
	}
}
