package cpu

import (
	"fmt"
	"testing"
)

// naiveGemm is the textbook triple loop over row-major operands.
func naiveGemm(a, b, c []float32, transA, transB bool, alpha, beta float32, m, n, k int) []float32 {
	out := make([]float32, m*n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float64
			for p := 0; p < k; p++ {
				av := a[i*k+p]
				if transA {
					av = a[p*m+i]
				}
				bv := b[p*n+j]
				if transB {
					bv = b[j*k+p]
				}
				sum += float64(av) * float64(bv)
			}
			out[i*n+j] = alpha*float32(sum) + beta*c[i*n+j]
		}
	}
	return out
}

// TestGemm checks both implementations against the naive product for every
// transpose combination and the two beta values the convolution core uses.
func TestGemm(t *testing.T) {
	dims := [][3]int{{1, 1, 1}, {3, 4, 5}, {17, 9, 33}, {8, 64, 2}}

	for name, backend := range testBackends() {
		impls := map[string]func(a, b, c []float32, transA, transB bool, alpha, beta float32, m, n, k int){
			"blas":  backend.Gemm,
			"fused": backend.FusedGemm,
		}
		for implName, gemm := range impls {
			for _, d := range dims {
				m, n, k := d[0], d[1], d[2]
				for _, transA := range []bool{false, true} {
					for _, transB := range []bool{false, true} {
						for _, beta := range []float32{0, 1} {
							label := fmt.Sprintf("%s/%s m=%d n=%d k=%d tA=%v tB=%v beta=%v", name, implName, m, n, k, transA, transB, beta)

							a := randomSlice(1, m*k)
							b := randomSlice(2, k*n)
							c := randomSlice(3, m*n)
							want := naiveGemm(a, b, c, transA, transB, 0.5, beta, m, n, k)

							gemm(a, b, c, transA, transB, 0.5, beta, m, n, k)
							if !float32SliceEqual(c, want, 1e-4) {
								t.Errorf("%s: result differs from naive gemm", label)
							}
						}
					}
				}
			}
		}
	}
}

// With beta = 0 the previous contents of C must not leak into the result, even
// when they are NaN.
func TestFusedGemm_BetaZeroIgnoresC(t *testing.T) {
	a := []float32{1, 2, 3, 4}
	b := []float32{5, 6, 7, 8}
	nan := float32(0)
	nan /= nan
	c := []float32{nan, nan, nan, nan}

	New().FusedGemm(a, b, c, false, false, 1, 0, 2, 2, 2)

	expected := []float32{19, 22, 43, 50}
	if !float32SliceEqual(c, expected, 0) {
		t.Errorf("FusedGemm = %v, want %v", c, expected)
	}
}

func TestGemm_PanicsOnShortOperands(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for short operand")
		}
	}()
	New().Gemm(make([]float32, 3), make([]float32, 4), make([]float32, 4), false, false, 1, 0, 2, 2, 2)
}
