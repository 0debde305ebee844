package conv

import "github.com/born-ml/blitz/internal/tensor"

// BackwardData computes the gradient of the loss with respect to the convolution
// input. inputGrad is cleared first and fully overwritten.
func BackwardData(outputGrad, filter, inputGrad *tensor.RawTensor, ctx *Context) error {
	var run strategy
	switch ctx.algorithm {
	case Direct:
		run = backwardDataDirect
	case GemmWithBLAS:
		run = backwardDataGemm(ctx.backend.Gemm)
	case GemmWithFused:
		run = backwardDataGemm(ctx.backend.FusedGemm)
	default:
		return ctx.unsupported(OpBackwardData)
	}
	return ctx.execute(OpBackwardData, operands{input: inputGrad, filter: filter, output: outputGrad}, inputGrad, run)
}

// backwardDataDirect runs the fused backward kernel on a channel-major copy of
// the output gradient. When C is a multiple of FilterShuffleChannelBlock the
// kernel reads a shuffled filter copy instead of the KCRS filter.
func backwardDataDirect(ctx *Context, ops operands, g tensor.Conv2DGeometry, plan WorkspacePlan) {
	b := ctx.backend
	ctx.workspace.Fill(0)

	inGrad := plan.View(ctx.workspace, regionInput)
	outGrad := plan.View(ctx.workspace, regionOutput)
	b.Transpose(ops.output.AsFloat32(), outGrad, g.N, g.KPQ())

	filter := ops.filter.AsFloat32()
	if tensor.UsesShuffledFilter(g) {
		shuffled := plan.View(ctx.workspace, regionFilter)
		b.FilterShuffle(filter, shuffled, g)
		filter = shuffled
	}

	b.Conv2DDirectBackward(inGrad, outGrad, filter, g)
	b.Transpose(inGrad, ops.input.AsFloat32(), g.CHW(), g.N)
}

// backwardDataGemm multiplies each image's output gradient by the filter into a
// patch matrix and folds it back into that image's input gradient.
func backwardDataGemm(gemm gemmFunc) strategy {
	return func(ctx *Context, ops operands, g tensor.Conv2DGeometry, plan WorkspacePlan) {
		patches := plan.View(ctx.workspace, regionPatches)
		filter := ops.filter.AsFloat32()
		layout := ops.input.Layout()

		for n := range g.N {
			dy := ops.output.Slice(n*g.KPQ(), g.KPQ())
			if layout == tensor.NHWC {
				// [PQ, K] x [K, CRS] -> [PQ, CRS]
				gemm(dy, filter, patches, false, false, 1, 0, g.PQ(), g.CRS(), g.K)
			} else {
				// [K, PQ]^T x [K, CRS] -> [PQ, CRS]
				gemm(dy, filter, patches, true, false, 1, 0, g.PQ(), g.CRS(), g.K)
			}
			ctx.backend.Col2im(patches, ops.input.Slice(n*g.CHW(), g.CHW()), g, layout)
		}
	}
}
