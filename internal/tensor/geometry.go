package tensor

// Conv2DGeometry is the full parameter set of one 2-D convolution.
//
// Activations are N images of C channels at HxW; the filter bank holds K filters of
// C channels at RxS; the output holds N images of K channels at PxQ.
type Conv2DGeometry struct {
	N, C, H, W int
	K, R, S    int
	P, Q       int
	PadH, PadW int
	StrH, StrW int
}

// OutputExtent returns the number of output positions along one spatial axis.
// A result below 1 means the kernel does not fit the padded input.
func OutputExtent(in, kernel, pad, stride int) int {
	if stride <= 0 {
		return 0
	}
	span := in + 2*pad - kernel
	if span < 0 {
		return 0
	}
	return span/stride + 1
}

// CHW is the element count of one input image.
func (g Conv2DGeometry) CHW() int { return g.C * g.H * g.W }

// PQ is the number of output pixels per channel.
func (g Conv2DGeometry) PQ() int { return g.P * g.Q }

// KPQ is the element count of one output image.
func (g Conv2DGeometry) KPQ() int { return g.K * g.P * g.Q }

// CRS is the receptive-field volume of one output pixel.
func (g Conv2DGeometry) CRS() int { return g.C * g.R * g.S }

// InputSize is the element count of the whole input batch.
func (g Conv2DGeometry) InputSize() int { return g.N * g.CHW() }

// OutputSize is the element count of the whole output batch.
func (g Conv2DGeometry) OutputSize() int { return g.N * g.KPQ() }

// FilterSize is the element count of the filter bank.
func (g Conv2DGeometry) FilterSize() int { return g.K * g.CRS() }

// PatchSize is the element count of one image's unfolded patch matrix.
func (g Conv2DGeometry) PatchSize() int { return g.CRS() * g.PQ() }

// FLOPs returns the multiply-add count of one pass over the batch, counted as two
// operations each. All three convolution directions share it.
func (g Conv2DGeometry) FLOPs() float64 {
	return float64(g.KPQ()) * float64(g.CRS()) * float64(2*g.N)
}
