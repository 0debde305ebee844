//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"

	"github.com/born-ml/blitz/internal/tensor"
)

// Gemm runs the naive one-thread-per-element matrix multiply.
func (b *Backend) Gemm(a, bm, c []float32, transA, transB bool, alpha, beta float32, m, n, k int) {
	b.gemm("gemm", gemmShader, a, bm, c, transA, transB, alpha, beta, m, n, k)
}

// FusedGemm runs the workgroup-tiled matrix multiply.
func (b *Backend) FusedGemm(a, bm, c []float32, transA, transB bool, alpha, beta float32, m, n, k int) {
	b.gemm("tiled_gemm", tiledGemmShader, a, bm, c, transA, transB, alpha, beta, m, n, k)
}

func (b *Backend) gemm(name, code string, a, bm, c []float32, transA, transB bool, alpha, beta float32, m, n, k int) {
	if m < 0 || n < 0 || k < 0 {
		panic(fmt.Sprintf("%s: negative dimension m=%d n=%d k=%d", name, m, n, k))
	}
	if len(a) < m*k || len(bm) < k*n || len(c) < m*n {
		panic(fmt.Sprintf("%s: operands too short for [%d,%d] x [%d,%d]: len(a)=%d len(b)=%d len(c)=%d",
			name, m, k, k, n, len(a), len(bm), len(c)))
	}
	if m == 0 || n == 0 {
		return
	}
	if k == 0 {
		// No shader reads an empty operand buffer.
		for i := range c[:m*n] {
			if beta == 0 {
				c[i] = 0
			} else {
				c[i] *= beta
			}
		}
		return
	}

	b.record(b.dispatch(name, code, []operand{
		{data: a[:m*k]},
		{data: bm[:k*n]},
		{data: c[:m*n], readback: true},
	}, packGemmParams(transA, transB, alpha, beta, m, n, k), tiledGroups(m, n)))
}

// Transpose writes the cols x rows transpose of src into dst.
func (b *Backend) Transpose(src, dst []float32, rows, cols int) {
	size := rows * cols
	if len(src) < size || len(dst) < size {
		panic(fmt.Sprintf("transpose: buffers too short for %dx%d: len(src)=%d len(dst)=%d", rows, cols, len(src), len(dst)))
	}
	if size == 0 {
		return
	}
	if &src[0] == &dst[0] {
		panic("transpose: src and dst must not alias")
	}

	params := make([]byte, 16)
	//nolint:gosec // G115: matrix dimensions are non-negative
	binary.LittleEndian.PutUint32(params[0:4], uint32(rows))
	//nolint:gosec // G115: matrix dimensions are non-negative
	binary.LittleEndian.PutUint32(params[4:8], uint32(cols))

	b.record(b.dispatch("transpose", transposeShader, []operand{
		{data: src[:size]},
		{data: dst[:size], readback: true},
	}, params, tiledGroups(rows, cols)))
}

// Im2col unfolds one image into a PQ x CRS patch matrix.
func (b *Backend) Im2col(image, patches []float32, g tensor.Conv2DGeometry, layout tensor.Layout) {
	checkImage("im2col", image, patches, g)
	total := g.PatchSize()
	b.record(b.dispatch("im2col", im2colShader, []operand{
		{data: image[:g.CHW()]},
		{data: patches[:total], readback: true},
	}, packConvParams(g, layoutFlag(layout), total), linearGroups(total)))
}

// Col2im adds a PQ x CRS patch matrix back into one image.
func (b *Backend) Col2im(patches, image []float32, g tensor.Conv2DGeometry, layout tensor.Layout) {
	checkImage("col2im", image, patches, g)
	total := g.CHW()
	b.record(b.dispatch("col2im", col2imShader, []operand{
		{data: patches[:g.PatchSize()]},
		{data: image[:total], readback: true},
	}, packConvParams(g, layoutFlag(layout), total), linearGroups(total)))
}

// Conv2DDirectForward computes the KPQN output from a CHWN input and a CRSK filter.
func (b *Backend) Conv2DDirectForward(input, output, filter []float32, g tensor.Conv2DGeometry) {
	checkDirect("direct forward", input, output, filter, g)
	total := g.OutputSize()
	b.record(b.dispatch("direct_forward", directForwardShader, []operand{
		{data: input[:g.InputSize()]},
		{data: filter[:g.FilterSize()]},
		{data: output[:total], readback: true},
	}, packConvParams(g, 0, total), linearGroups(total)))
}

// Conv2DDirectBackward computes the CHWN input gradient from the KPQN output gradient.
func (b *Backend) Conv2DDirectBackward(inputGrad, outputGrad, filter []float32, g tensor.Conv2DGeometry) {
	checkDirect("direct backward", inputGrad, outputGrad, filter, g)
	var flag uint32
	if tensor.UsesShuffledFilter(g) {
		flag = 1
	}
	total := g.InputSize()
	b.record(b.dispatch("direct_backward", directBackwardShader, []operand{
		{data: outputGrad[:g.OutputSize()]},
		{data: filter[:g.FilterSize()]},
		{data: inputGrad[:total], readback: true},
	}, packConvParams(g, flag, total), linearGroups(total)))
}

// Conv2DDirectUpdate computes the CRSK filter gradient.
func (b *Backend) Conv2DDirectUpdate(input, outputGrad, update []float32, g tensor.Conv2DGeometry) {
	checkDirect("direct update", input, outputGrad, update, g)
	total := g.FilterSize()
	b.record(b.dispatch("direct_update", directUpdateShader, []operand{
		{data: input[:g.InputSize()]},
		{data: outputGrad[:g.OutputSize()]},
		{data: update[:total], readback: true},
	}, packConvParams(g, 0, total), linearGroups(total)))
}

// FilterShuffle writes shuffled[c][r][s][k] = filter[k][c][R-1-r][S-1-s].
func (b *Backend) FilterShuffle(filter, shuffled []float32, g tensor.Conv2DGeometry) {
	total := g.FilterSize()
	if len(filter) < total || len(shuffled) < total {
		panic("filter shuffle: buffers too short")
	}
	b.record(b.dispatch("filter_shuffle", filterShuffleShader, []operand{
		{data: filter[:total]},
		{data: shuffled[:total], readback: true},
	}, packConvParams(g, 0, total), linearGroups(total)))
}

func layoutFlag(layout tensor.Layout) uint32 {
	if layout == tensor.NHWC {
		return 1
	}
	return 0
}

func checkImage(op string, image, patches []float32, g tensor.Conv2DGeometry) {
	if len(image) < g.CHW() {
		panic(fmt.Sprintf("%s: image buffer has %d elements, need %d", op, len(image), g.CHW()))
	}
	if len(patches) < g.PatchSize() {
		panic(fmt.Sprintf("%s: patch buffer has %d elements, need %d", op, len(patches), g.PatchSize()))
	}
}

// checkDirect takes the buffers in input, output, filter role order.
func checkDirect(op string, input, output, filter []float32, g tensor.Conv2DGeometry) {
	if len(input) < g.InputSize() || len(output) < g.OutputSize() || len(filter) < g.FilterSize() {
		panic(fmt.Sprintf("%s: buffers too short: len(input)=%d/%d len(output)=%d/%d len(filter)=%d/%d",
			op, len(input), g.InputSize(), len(output), g.OutputSize(), len(filter), g.FilterSize()))
	}
}
