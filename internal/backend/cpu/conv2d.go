package cpu

import (
	"fmt"

	"github.com/born-ml/blitz/internal/parallel"
	"github.com/born-ml/blitz/internal/tensor"
)

// Im2col transforms one input image into its patch matrix.
//
// Image: [C, H, W] (NCHW) or [H, W, C] (NHWC)
// Patches: [P * Q, C * R * S]
//
// Each row of the patch matrix corresponds to one output position (p, q).
// Each column corresponds to one kernel weight (c, r, s).
//
// For each output position:
//   - Locate the top-left corner of the receptive field in input space
//   - Copy the field into the row, writing zero for positions in the padding
//
// Reference: "High Performance Convolutional Neural Networks for Document Processing"
// (Chellapilla et al., 2006).
func (cpu *CPUBackend) Im2col(image, patches []float32, g tensor.Conv2DGeometry, layout tensor.Layout) {
	checkPatchBuffers("im2col", image, patches, g)

	crs := g.CRS()
	parallel.ForRange(g.P, func(ps, pe int) {
		for p := ps; p < pe; p++ {
			hStart := p*g.StrH - g.PadH
			for q := 0; q < g.Q; q++ {
				wStart := q*g.StrW - g.PadW
				row := patches[(p*g.Q+q)*crs : (p*g.Q+q+1)*crs]

				col := 0
				for c := 0; c < g.C; c++ {
					for r := 0; r < g.R; r++ {
						h := hStart + r
						for s := 0; s < g.S; s++ {
							w := wStart + s
							if h >= 0 && h < g.H && w >= 0 && w < g.W {
								row[col] = image[imageIndex(layout, g, c, h, w)]
							} else {
								row[col] = 0
							}
							col++
						}
					}
				}
			}
		}
	}, cpu.parallel)
}

// Col2im scatter-adds a patch matrix back into one image.
//
// It is the adjoint of Im2col: every patch element is added to the input pixel it
// was gathered from, so pixels covered by several receptive fields receive the
// sum of all their contributions. Padding positions are dropped. The image is not
// cleared first.
//
// Work is split by channel: a channel's pixels are only reachable from its own
// patch columns, so workers never write the same pixel.
func (cpu *CPUBackend) Col2im(patches, image []float32, g tensor.Conv2DGeometry, layout tensor.Layout) {
	checkPatchBuffers("col2im", image, patches, g)

	crs := g.CRS()
	parallel.ForRange(g.C, func(cs, ce int) {
		for c := cs; c < ce; c++ {
			for p := 0; p < g.P; p++ {
				hStart := p*g.StrH - g.PadH
				for q := 0; q < g.Q; q++ {
					wStart := q*g.StrW - g.PadW
					row := patches[(p*g.Q+q)*crs:]
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
							image[imageIndex(layout, g, c, h, w)] += row[(c*g.R+r)*g.S+s]
						}
					}
				}
			}
		}
	}, cpu.parallel)
}

// imageIndex returns the offset of pixel (c, h, w) within one image.
func imageIndex(layout tensor.Layout, g tensor.Conv2DGeometry, c, h, w int) int {
	if layout == tensor.NHWC {
		return (h*g.W+w)*g.C + c
	}
	return (c*g.H+h)*g.W + w
}

func checkPatchBuffers(op string, image, patches []float32, g tensor.Conv2DGeometry) {
	if len(image) < g.CHW() {
		panic(fmt.Sprintf("%s: image buffer has %d elements, need %d", op, len(image), g.CHW()))
	}
	if len(patches) < g.PatchSize() {
		panic(fmt.Sprintf("%s: patch buffer has %d elements, need %d", op, len(patches), g.PatchSize()))
	}
}
