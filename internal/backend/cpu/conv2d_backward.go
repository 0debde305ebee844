package cpu

import (
	"github.com/born-ml/blitz/internal/parallel"
	"github.com/born-ml/blitz/internal/tensor"
)

// Conv2DDirectBackward computes the input gradient with a transposed (full)
// convolution.
//
// Output gradient: [K, P, Q, N]
// Input gradient: [C, H, W, N] (written, not accumulated)
// Filter: [K, C, R, S] when C % 64 != 0, the FilterShuffle layout otherwise.
//
// For each input position (c, h, w), sum the contributions of every output
// position whose receptive field covered it:
//
//	dx[c,h,w,n] = sum over k, r, s of dy[k,p,q,n] * W[k,c,r,s]
//	where h = p*strH - padH + r and w = q*strW - padW + s.
//
// References:
//   - "A guide to convolution arithmetic for deep learning" (Dumoulin & Visin, 2016)
func (cpu *CPUBackend) Conv2DDirectBackward(inputGrad, outputGrad, filter []float32, g tensor.Conv2DGeometry) {
	checkDirectBuffers("conv2d direct backward", inputGrad, outputGrad, filter, g)

	weight := kcrsWeight(filter, g)
	if tensor.UsesShuffledFilter(g) {
		weight = shuffledWeight(filter, g)
	}

	n := g.N
	parallel.ForRange(g.C, func(cs, ce int) {
		acc := make([]float32, n)
		for c := cs; c < ce; c++ {
			for h := 0; h < g.H; h++ {
				for w := 0; w < g.W; w++ {
					clear(acc)

					for r := 0; r < g.R; r++ {
						p, ok := sourcePosition(h+g.PadH-r, g.StrH, g.P)
						if !ok {
							continue
						}
						for s := 0; s < g.S; s++ {
							q, ok := sourcePosition(w+g.PadW-s, g.StrW, g.Q)
							if !ok {
								continue
							}
							for k := 0; k < g.K; k++ {
								wv := weight(k, c, r, s)
								if wv == 0 {
									continue
								}
								dy := outputGrad[((k*g.P+p)*g.Q+q)*n:][:n]
								for i, v := range dy {
									acc[i] += wv * v
								}
							}
						}
					}

					copy(inputGrad[((c*g.H+h)*g.W+w)*n:][:n], acc)
				}
			}
		}
	}, cpu.parallel)
}

// FilterShuffle rotates every kernel by 180 degrees and moves output channels
// innermost: shuffled[c][r][s][k] = filter[k][c][R-1-r][S-1-s].
func (cpu *CPUBackend) FilterShuffle(filter, shuffled []float32, g tensor.Conv2DGeometry) {
	if len(filter) < g.FilterSize() || len(shuffled) < g.FilterSize() {
		panic("filter shuffle: buffers too short")
	}

	parallel.ForRange(g.C, func(cs, ce int) {
		for c := cs; c < ce; c++ {
			for r := 0; r < g.R; r++ {
				for s := 0; s < g.S; s++ {
					dst := shuffled[((c*g.R+r)*g.S+s)*g.K:][:g.K]
					for k := range dst {
						dst[k] = filter[((k*g.C+c)*g.R+(g.R-1-r))*g.S+(g.S-1-s)]
					}
				}
			}
		}
	}, cpu.parallel)
}

// Conv2DDirectUpdate computes the filter gradient by correlating the input with
// the output gradient over the batch and all output positions.
//
// Input: [C, H, W, N]
// Output gradient: [K, P, Q, N]
// Update: [C, R, S, K] (written, not accumulated)
//
//nolint:gocognit // high complexity inherent to convolution backprop
func (cpu *CPUBackend) Conv2DDirectUpdate(input, outputGrad, update []float32, g tensor.Conv2DGeometry) {
	checkDirectBuffers("conv2d direct update", input, outputGrad, update, g)

	n := g.N
	parallel.ForRange(g.C, func(cs, ce int) {
		for c := cs; c < ce; c++ {
			for r := 0; r < g.R; r++ {
				for s := 0; s < g.S; s++ {
					dst := update[((c*g.R+r)*g.S+s)*g.K:][:g.K]
					for k := range dst {
						var sum float32
						for p := 0; p < g.P; p++ {
							h := p*g.StrH - g.PadH + r
							if h < 0 || h >= g.H {
								continue
							}
							for q := 0; q < g.Q; q++ {
								w := q*g.StrW - g.PadW + s
								if w < 0 || w >= g.W {
									continue
								}
								in := input[((c*g.H+h)*g.W+w)*n:][:n]
								dy := outputGrad[((k*g.P+p)*g.Q+q)*n:][:n]
								for i, v := range in {
									sum += v * dy[i]
								}
							}
						}
						dst[k] = sum
					}
				}
			}
		}
	}, cpu.parallel)
}

// sourcePosition maps an input offset back to the output position whose receptive
// field starts there, reporting false when no output position does.
func sourcePosition(offset, stride, extent int) (int, bool) {
	if offset < 0 || offset%stride != 0 {
		return 0, false
	}
	pos := offset / stride
	return pos, pos < extent
}

func kcrsWeight(filter []float32, g tensor.Conv2DGeometry) func(k, c, r, s int) float32 {
	return func(k, c, r, s int) float32 {
		return filter[((k*g.C+c)*g.R+r)*g.S+s]
	}
}

func shuffledWeight(shuffled []float32, g tensor.Conv2DGeometry) func(k, c, r, s int) float32 {
	return func(k, c, r, s int) float32 {
		return shuffled[((c*g.R+(g.R-1-r))*g.S+(g.S-1-s))*g.K+k]
	}
}
