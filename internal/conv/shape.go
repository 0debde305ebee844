package conv

import "github.com/born-ml/blitz/internal/tensor"

// BufferDims are the semantic dimensions of an activation buffer.
type BufferDims struct {
	N, C, H, W int
}

// FilterDims are the semantic dimensions of a filter bank.
type FilterDims struct {
	K, C, R, S int
}

// DecodeBuffer unpacks a 4-D activation shape according to its layout.
// It does not validate; callers check the rank first.
func DecodeBuffer(shape tensor.Shape, layout tensor.Layout) BufferDims {
	if layout == tensor.NHWC {
		return BufferDims{N: shape[0], H: shape[1], W: shape[2], C: shape[3]}
	}
	return BufferDims{N: shape[0], C: shape[1], H: shape[2], W: shape[3]}
}

// DecodeFilter unpacks a 4-D KCRS filter shape. It does not validate.
func DecodeFilter(shape tensor.Shape) FilterDims {
	return FilterDims{K: shape[0], C: shape[1], R: shape[2], S: shape[3]}
}

// OutputDims derives the output buffer dimensions implied by an input, a filter
// and the context's padding and stride.
func (ctx *Context) OutputDims(in BufferDims, filter FilterDims) BufferDims {
	return BufferDims{
		N: in.N,
		C: filter.K,
		H: tensor.OutputExtent(in.H, filter.R, ctx.padH, ctx.strH),
		W: tensor.OutputExtent(in.W, filter.S, ctx.padW, ctx.strW),
	}
}

// Geometry assembles the full convolution geometry from decoded dimensions.
func (ctx *Context) Geometry(in BufferDims, filter FilterDims) tensor.Conv2DGeometry {
	out := ctx.OutputDims(in, filter)
	return tensor.Conv2DGeometry{
		N: in.N, C: in.C, H: in.H, W: in.W,
		K: filter.K, R: filter.R, S: filter.S,
		P: out.H, Q: out.W,
		PadH: ctx.padH, PadW: ctx.padW,
		StrH: ctx.strH, StrW: ctx.strW,
	}
}
