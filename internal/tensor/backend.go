package tensor

// Backend defines the device primitives the convolution core is built from.
// Backends handle the actual computation; the core only sequences them.
//
// All buffers are float32 views (see RawTensor.Slice) and every matrix is
// row-major. Implementations may run kernels asynchronously but must finish all
// launched work before Synchronize returns.
//
// Implementations:
//   - CPU: Pure Go, gonum BLAS for Gemm, goroutine fan-out for direct kernels
//   - WebGPU: WGSL compute shaders via go-webgpu
type Backend interface {
	// Gemm computes C = alpha*op(A)*op(B) + beta*C with op(A) MxK, op(B) KxN and
	// C MxN, using the backend's BLAS implementation. beta=0 overwrites C.
	Gemm(a, b, c []float32, transA, transB bool, alpha, beta float32, m, n, k int)

	// FusedGemm has the Gemm contract but runs the backend's hand-written kernel.
	FusedGemm(a, b, c []float32, transA, transB bool, alpha, beta float32, m, n, k int)

	// Transpose writes the cols x rows transpose of the rows x cols matrix src
	// into dst. src and dst must not alias.
	Transpose(src, dst []float32, rows, cols int)

	// Im2col gathers the receptive fields of one image into a PQ x CRS patch
	// matrix. Padding positions read as zero.
	Im2col(image, patches []float32, g Conv2DGeometry, layout Layout)

	// Col2im scatter-adds a PQ x CRS patch matrix back into one image.
	// Overlapping receptive fields accumulate.
	Col2im(patches, image []float32, g Conv2DGeometry, layout Layout)

	// Conv2DDirectForward computes output (KPQN) from input (CHWN) and the
	// transposed filter (CRSK).
	Conv2DDirectForward(input, output, filter []float32, g Conv2DGeometry)

	// Conv2DDirectBackward computes the input gradient (CHWN) from the output
	// gradient (KPQN). The filter is KCRS when C is not a multiple of
	// FilterShuffleChannelBlock and the FilterShuffle layout otherwise.
	Conv2DDirectBackward(inputGrad, outputGrad, filter []float32, g Conv2DGeometry)

	// Conv2DDirectUpdate computes the filter gradient (CRSK) from input (CHWN)
	// and output gradient (KPQN).
	Conv2DDirectUpdate(input, outputGrad, update []float32, g Conv2DGeometry)

	// FilterShuffle rewrites a KCRS filter into the layout the direct backward
	// kernel expects for channel counts divisible by FilterShuffleChannelBlock:
	// shuffled[c][r][s][k] = filter[k][c][R-1-r][S-1-s].
	FilterShuffle(filter, shuffled []float32, g Conv2DGeometry)

	// Synchronize blocks until every launched kernel has completed.
	Synchronize() error

	// Metadata
	Name() string
	Device() Device
}

// FilterShuffleChannelBlock is the channel block size at which the direct
// backward kernel switches to the shuffled filter layout.
const FilterShuffleChannelBlock = 64

// UsesShuffledFilter reports whether the direct backward kernel reads the
// shuffled filter layout for the given geometry.
func UsesShuffledFilter(g Conv2DGeometry) bool {
	return g.C%FilterShuffleChannelBlock == 0
}
