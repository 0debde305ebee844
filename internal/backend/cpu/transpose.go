package cpu

import (
	"fmt"

	"github.com/born-ml/blitz/internal/parallel"
)

// transposeBlock is the edge of the square tiles Transpose copies at once.
const transposeBlock = 32

// Transpose writes the cols x rows transpose of the rows x cols matrix src into dst.
//
// The copy walks square tiles so that both the reads and the strided writes stay
// within a few cache lines; row bands of tiles are distributed across workers.
func (cpu *CPUBackend) Transpose(src, dst []float32, rows, cols int) {
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

	bands := (rows + transposeBlock - 1) / transposeBlock
	parallel.ForRange(bands, func(bs, be int) {
		for band := bs; band < be; band++ {
			r0 := band * transposeBlock
			r1 := min(r0+transposeBlock, rows)
			for c0 := 0; c0 < cols; c0 += transposeBlock {
				c1 := min(c0+transposeBlock, cols)
				for r := r0; r < r1; r++ {
					srow := src[r*cols : (r+1)*cols]
					for c := c0; c < c1; c++ {
						dst[c*rows+r] = srow[c]
					}
				}
			}
		}
	}, cpu.parallel)
}
