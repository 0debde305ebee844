package conv

import "github.com/born-ml/blitz/internal/tensor"

// BackwardFilter computes the gradient of the loss with respect to the filter,
// summed over the batch. filterGrad is cleared first.
func BackwardFilter(input, outputGrad, filterGrad *tensor.RawTensor, ctx *Context) error {
	var run strategy
	switch ctx.algorithm {
	case Direct:
		run = updateDirect
	case GemmWithBLAS:
		run = updateGemm(ctx.backend.Gemm)
	case GemmWithFused:
		run = updateGemm(ctx.backend.FusedGemm)
	default:
		return ctx.unsupported(OpBackwardFilter)
	}
	return ctx.execute(OpBackwardFilter, operands{input: input, filter: filterGrad, output: outputGrad}, filterGrad, run)
}

// updateDirect correlates channel-major copies of input and output gradient in
// one kernel and transposes the CRSK result back to KCRS.
func updateDirect(ctx *Context, ops operands, g tensor.Conv2DGeometry, plan WorkspacePlan) {
	b := ctx.backend
	ctx.workspace.Fill(0)

	in := plan.View(ctx.workspace, regionInput)
	outGrad := plan.View(ctx.workspace, regionOutput)
	update := plan.View(ctx.workspace, regionFilter)

	b.Transpose(ops.input.AsFloat32(), in, g.N, g.CHW())
	b.Transpose(ops.output.AsFloat32(), outGrad, g.N, g.KPQ())
	b.Conv2DDirectUpdate(in, outGrad, update, g)
	b.Transpose(update, ops.filter.AsFloat32(), g.CRS(), g.K)
}

// updateGemm accumulates every image's contribution into the filter gradient
// with beta = 1.
func updateGemm(gemm gemmFunc) strategy {
	return func(ctx *Context, ops operands, g tensor.Conv2DGeometry, plan WorkspacePlan) {
		patches := plan.View(ctx.workspace, regionPatches)
		filterGrad := ops.filter.AsFloat32()
		layout := ops.input.Layout()

		for n := range g.N {
			ctx.backend.Im2col(ops.input.Slice(n*g.CHW(), g.CHW()), patches, g, layout)
			dy := ops.output.Slice(n*g.KPQ(), g.KPQ())
			if layout == tensor.NHWC {
				// [PQ, K]^T x [PQ, CRS] -> [K, CRS]
				gemm(dy, patches, filterGrad, true, false, 1, 1, g.K, g.CRS(), g.PQ())
			} else {
				// [K, PQ] x [PQ, CRS] -> [K, CRS]
				gemm(dy, patches, filterGrad, false, false, 1, 1, g.K, g.CRS(), g.PQ())
			}
		}
	}
}
