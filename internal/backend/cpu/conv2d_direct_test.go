package cpu

import (
	"fmt"
	"testing"

	"github.com/born-ml/blitz/internal/tensor"
)

// Reference loops in the batch-innermost layouts the direct kernels use:
// input [C,H,W,N], output [K,P,Q,N], filter [K,C,R,S].
func forEachTap(g tensor.Conv2DGeometry, fn func(n, k, p, q, c, r, s, h, w int)) {
	for n := 0; n < g.N; n++ {
		for k := 0; k < g.K; k++ {
			for p := 0; p < g.P; p++ {
				for q := 0; q < g.Q; q++ {
					for c := 0; c < g.C; c++ {
						for r := 0; r < g.R; r++ {
							for s := 0; s < g.S; s++ {
								h := p*g.StrH - g.PadH + r
								w := q*g.StrW - g.PadW + s
								if h < 0 || h >= g.H || w < 0 || w >= g.W {
									continue
								}
								fn(n, k, p, q, c, r, s, h, w)
							}
						}
					}
				}
			}
		}
	}
}

func kcrsToCRSK(filter []float32, g tensor.Conv2DGeometry) []float32 {
	out := make([]float32, len(filter))
	New().Transpose(filter, out, g.K, g.CRS())
	return out
}

var directGeometries = []tensor.Conv2DGeometry{
	geometry(3, 2, 5, 5, 4, 3, 3, 1, 1),
	geometry(2, 3, 7, 6, 2, 3, 2, 0, 2),
	geometry(1, 1, 2, 2, 1, 3, 3, 2, 1),
}

func TestConv2DDirectForward(t *testing.T) {
	for name, backend := range testBackends() {
		for i, g := range directGeometries {
			input := randomSlice(10, g.InputSize())
			filter := randomSlice(11, g.FilterSize())

			want := make([]float64, g.OutputSize())
			forEachTap(g, func(n, k, p, q, c, r, s, h, w int) {
				want[((k*g.P+p)*g.Q+q)*g.N+n] += float64(input[((c*g.H+h)*g.W+w)*g.N+n]) * float64(filter[((k*g.C+c)*g.R+r)*g.S+s])
			})

			output := make([]float32, g.OutputSize())
			for j := range output {
				output[j] = 99 // overwritten, not accumulated
			}
			backend.Conv2DDirectForward(input, output, kcrsToCRSK(filter, g), g)
			assertCloseTo(t, fmt.Sprintf("%s geometry %d", name, i), want, output)
		}
	}
}

// Both filter layouts of the backward kernel must give the same gradient.
func TestConv2DDirectBackward(t *testing.T) {
	for _, channels := range []int{63, 64} {
		g := geometry(2, channels, 4, 4, 3, 3, 3, 1, 1)
		outputGrad := randomSlice(12, g.OutputSize())
		filter := randomSlice(13, g.FilterSize())

		want := make([]float64, g.InputSize())
		forEachTap(g, func(n, k, p, q, c, r, s, h, w int) {
			want[((c*g.H+h)*g.W+w)*g.N+n] += float64(outputGrad[((k*g.P+p)*g.Q+q)*g.N+n]) * float64(filter[((k*g.C+c)*g.R+r)*g.S+s])
		})

		for name, backend := range testBackends() {
			kernelFilter := filter
			if tensor.UsesShuffledFilter(g) {
				kernelFilter = make([]float32, g.FilterSize())
				backend.FilterShuffle(filter, kernelFilter, g)
			}

			inputGrad := make([]float32, g.InputSize())
			backend.Conv2DDirectBackward(inputGrad, outputGrad, kernelFilter, g)
			assertCloseTo(t, fmt.Sprintf("%s C=%d", name, channels), want, inputGrad)
		}
	}
}

func TestConv2DDirectUpdate(t *testing.T) {
	for name, backend := range testBackends() {
		for i, g := range directGeometries {
			input := randomSlice(14, g.InputSize())
			outputGrad := randomSlice(15, g.OutputSize())

			// Reference in CRSK order, matching the kernel's output.
			want := make([]float64, g.FilterSize())
			forEachTap(g, func(n, k, p, q, c, r, s, h, w int) {
				want[((c*g.R+r)*g.S+s)*g.K+k] += float64(input[((c*g.H+h)*g.W+w)*g.N+n]) * float64(outputGrad[((k*g.P+p)*g.Q+q)*g.N+n])
			})

			update := make([]float32, g.FilterSize())
			backend.Conv2DDirectUpdate(input, outputGrad, update, g)
			assertCloseTo(t, fmt.Sprintf("%s geometry %d", name, i), want, update)
		}
	}
}

func TestFilterShuffle(t *testing.T) {
	g := geometry(1, 2, 3, 3, 3, 2, 3, 0, 1)
	filter := make([]float32, g.FilterSize())
	for i := range filter {
		filter[i] = float32(i)
	}
	shuffled := make([]float32, g.FilterSize())

	New().FilterShuffle(filter, shuffled, g)

	for c := 0; c < g.C; c++ {
		for r := 0; r < g.R; r++ {
			for s := 0; s < g.S; s++ {
				for k := 0; k < g.K; k++ {
					got := shuffled[((c*g.R+r)*g.S+s)*g.K+k]
					want := filter[((k*g.C+c)*g.R+(g.R-1-r))*g.S+(g.S-1-s)]
					if got != want {
						t.Fatalf("shuffled[%d][%d][%d][%d] = %v, want %v", c, r, s, k, got, want)
					}
				}
			}
		}
	}
}

func TestSourcePosition(t *testing.T) {
	tests := []struct {
		offset, stride, extent int
		pos                    int
		ok                     bool
	}{
		{0, 1, 3, 0, true},
		{2, 1, 3, 2, true},
		{3, 1, 3, 0, false},
		{-1, 1, 3, 0, false},
		{4, 2, 3, 2, true},
		{3, 2, 3, 0, false},
	}
	for _, tt := range tests {
		pos, ok := sourcePosition(tt.offset, tt.stride, tt.extent)
		if ok != tt.ok || (ok && pos != tt.pos) {
			t.Errorf("sourcePosition(%d, %d, %d) = (%d, %v), want (%d, %v)",
				tt.offset, tt.stride, tt.extent, pos, ok, tt.pos, tt.ok)
		}
	}
}

func assertCloseTo(t *testing.T, label string, want []float64, got []float32) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("%s: length %d, want %d", label, len(got), len(want))
	}
	for i := range want {
		d := want[i] - float64(got[i])
		if d > 1e-4 || d < -1e-4 {
			t.Fatalf("%s: element %d = %v, want %v", label, i, got[i], want[i])
		}
	}
}
