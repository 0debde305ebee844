package cpu

import (
	"fmt"

	"github.com/born-ml/blitz/internal/parallel"
	"github.com/born-ml/blitz/internal/tensor"
)

// Conv2DDirectForward computes a convolution without materializing patches.
//
// Input: [C, H, W, N] (batch innermost)
// Filter: [C, R, S, K] (transposed filter bank)
// Output: [K, P, Q, N] (written, not accumulated)
//
// Keeping the batch innermost turns the inner loop into an axpy over N images
// that share one filter tap, which is the access pattern the direct strategy is
// built around. Output channels are distributed across workers.
func (cpu *CPUBackend) Conv2DDirectForward(input, output, filter []float32, g tensor.Conv2DGeometry) {
	checkDirectBuffers("conv2d direct forward", input, output, filter, g)

	n := g.N
	parallel.ForRange(g.K, func(ks, ke int) {
		acc := make([]float32, n)
		for k := ks; k < ke; k++ {
			for p := 0; p < g.P; p++ {
				hStart := p*g.StrH - g.PadH
				for q := 0; q < g.Q; q++ {
					wStart := q*g.StrW - g.PadW
					clear(acc)

					for c := 0; c < g.C; c++ {
						for r := 0; r < g.R; r++ {
							h := hStart + r
							if h < 0 || h >= g.H {
								continue
							}
							for s := 0; s < g.S; s++ {
								w := wStart + s
								if w < 0 || w >= g.W {
									continue
								}
								fv := filter[((c*g.R+r)*g.S+s)*g.K+k]
								if fv == 0 {
									continue
								}
								in := input[((c*g.H+h)*g.W+w)*n:][:n]
								for i, v := range in {
									acc[i] += fv * v
								}
							}
						}
					}

					copy(output[((k*g.P+p)*g.Q+q)*n:][:n], acc)
				}
			}
		}
	}, cpu.parallel)
}

func checkDirectBuffers(op string, input, output, filter []float32, g tensor.Conv2DGeometry) {
	if len(input) < g.InputSize() || len(output) < g.OutputSize() || len(filter) < g.FilterSize() {
		panic(fmt.Sprintf("%s: buffers too short: len(input)=%d/%d len(output)=%d/%d len(filter)=%d/%d",
			op, len(input), g.InputSize(), len(output), g.OutputSize(), len(filter), g.FilterSize()))
	}
}
