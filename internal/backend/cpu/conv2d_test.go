package cpu

import (
	"testing"

	"github.com/born-ml/blitz/internal/tensor"
)

func geometry(n, c, h, w, k, r, s, pad, stride int) tensor.Conv2DGeometry {
	return tensor.Conv2DGeometry{
		N: n, C: c, H: h, W: w, K: k, R: r, S: s,
		P:    tensor.OutputExtent(h, r, pad, stride),
		Q:    tensor.OutputExtent(w, s, pad, stride),
		PadH: pad, PadW: pad, StrH: stride, StrW: stride,
	}
}

// TestIm2col_Basic unfolds a 3x3 image with a 2x2 kernel.
func TestIm2col_Basic(t *testing.T) {
	backend := New()
	g := geometry(1, 1, 3, 3, 1, 2, 2, 0, 1)

	// 1 2 3
	// 4 5 6
	// 7 8 9
	image := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}
	patches := make([]float32, g.PatchSize())

	backend.Im2col(image, patches, g, tensor.NCHW)

	// One row per output position, columns in (c, r, s) order.
	expected := []float32{
		1, 2, 4, 5,
		2, 3, 5, 6,
		4, 5, 7, 8,
		5, 6, 8, 9,
	}
	if !float32SliceEqual(patches, expected, 0) {
		t.Errorf("Im2col = %v, want %v", patches, expected)
	}
}

// TestIm2col_Padding checks that padding positions read as zero.
func TestIm2col_Padding(t *testing.T) {
	backend := New()
	g := geometry(1, 1, 2, 2, 1, 3, 3, 1, 1)
	image := []float32{1, 2, 3, 4}
	patches := make([]float32, g.PatchSize())
	for i := range patches {
		patches[i] = -1 // stale contents must be overwritten
	}

	backend.Im2col(image, patches, g, tensor.NCHW)

	// Output position (0, 0): kernel centered on pixel (0, 0).
	first := []float32{0, 0, 0, 0, 1, 2, 0, 3, 4}
	if !float32SliceEqual(patches[:9], first, 0) {
		t.Errorf("first patch = %v, want %v", patches[:9], first)
	}
	for i, v := range patches {
		if v == -1 {
			t.Fatalf("patch element %d not written", i)
		}
	}
}

// TestIm2col_LayoutsAgree checks that NHWC images unfold to the same patch
// matrix as their NCHW counterpart.
func TestIm2col_LayoutsAgree(t *testing.T) {
	backend := New()
	g := geometry(1, 3, 4, 5, 2, 3, 2, 1, 2)
	nchw := randomSlice(4, g.CHW())
	nhwc := make([]float32, g.CHW())
	for c := 0; c < g.C; c++ {
		for h := 0; h < g.H; h++ {
			for w := 0; w < g.W; w++ {
				nhwc[(h*g.W+w)*g.C+c] = nchw[(c*g.H+h)*g.W+w]
			}
		}
	}

	a := make([]float32, g.PatchSize())
	b := make([]float32, g.PatchSize())
	backend.Im2col(nchw, a, g, tensor.NCHW)
	backend.Im2col(nhwc, b, g, tensor.NHWC)

	if !float32SliceEqual(a, b, 0) {
		t.Error("NHWC patches differ from NCHW patches")
	}
}

// TestCol2im_IsAdjointOfIm2col verifies <im2col(x), y> == <x, col2im(y)> for
// strided, padded geometries with overlapping fields.
func TestCol2im_IsAdjointOfIm2col(t *testing.T) {
	geometries := []tensor.Conv2DGeometry{
		geometry(1, 2, 5, 5, 1, 3, 3, 1, 1),
		geometry(1, 3, 7, 6, 1, 3, 2, 2, 2),
		geometry(1, 1, 4, 4, 1, 4, 4, 0, 1),
	}

	for name, backend := range testBackends() {
		for _, layout := range []tensor.Layout{tensor.NCHW, tensor.NHWC} {
			for _, g := range geometries {
				x := randomSlice(5, g.CHW())
				y := randomSlice(6, g.PatchSize())

				cols := make([]float32, g.PatchSize())
				backend.Im2col(x, cols, g, layout)
				img := make([]float32, g.CHW())
				backend.Col2im(y, img, g, layout)

				var lhs, rhs float64
				for i := range cols {
					lhs += float64(cols[i]) * float64(y[i])
				}
				for i := range img {
					rhs += float64(x[i]) * float64(img[i])
				}
				if d := lhs - rhs; d > 1e-4 || d < -1e-4 {
					t.Errorf("%s %s %+v: <im2col x, y> = %v, <x, col2im y> = %v", name, layout, g, lhs, rhs)
				}
			}
		}
	}
}

// TestCol2im_Accumulates checks that col2im adds into the image instead of
// overwriting it.
func TestCol2im_Accumulates(t *testing.T) {
	backend := New()
	g := geometry(1, 1, 2, 2, 1, 1, 1, 0, 1)
	image := []float32{10, 20, 30, 40}

	backend.Col2im([]float32{1, 2, 3, 4}, image, g, tensor.NCHW)

	expected := []float32{11, 22, 33, 44}
	if !float32SliceEqual(image, expected, 0) {
		t.Errorf("Col2im = %v, want %v", image, expected)
	}
}
