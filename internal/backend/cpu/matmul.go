package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"

	"github.com/born-ml/blitz/internal/parallel"
)

// Gemm computes C = alpha*op(A)*op(B) + beta*C through gonum's Sgemm.
//
// All matrices are row-major. op(A) is MxK and op(B) is KxN, so a transposed A
// is stored KxM and a transposed B is stored NxK.
func (cpu *CPUBackend) Gemm(a, b, c []float32, transA, transB bool, alpha, beta float32, m, n, k int) {
	checkGemmOperands("gemm", a, b, c, m, n, k)
	if m == 0 || n == 0 {
		return
	}

	tA, lda := blas.NoTrans, k
	if transA {
		tA, lda = blas.Trans, m
	}
	tB, ldb := blas.NoTrans, n
	if transB {
		tB, ldb = blas.Trans, k
	}

	cpu.blas.Sgemm(tA, tB, m, n, k, alpha, a, max(lda, 1), b, max(ldb, 1), beta, c, n)
}

// FusedGemm computes C = alpha*op(A)*op(B) + beta*C with the hand-written kernel.
//
// Each worker owns a contiguous band of C rows and accumulates one row at a time
// in a scratch vector, so the alpha/beta epilogue is fused into the single store
// of every C element. With beta = 0 the previous contents of C are never read.
func (cpu *CPUBackend) FusedGemm(a, b, c []float32, transA, transB bool, alpha, beta float32, m, n, k int) {
	checkGemmOperands("fused gemm", a, b, c, m, n, k)
	if m == 0 || n == 0 {
		return
	}

	parallel.ForRange(m, func(rs, re int) {
		acc := make([]float32, n)
		for i := rs; i < re; i++ {
			clear(acc)
			if transB {
				gemmRowDot(acc, a, b, transA, i, m, n, k)
			} else {
				gemmRowAxpy(acc, a, b, transA, i, m, n, k)
			}

			row := c[i*n : (i+1)*n]
			if beta == 0 {
				for j, v := range acc {
					row[j] = alpha * v
				}
				continue
			}
			for j, v := range acc {
				row[j] = alpha*v + beta*row[j]
			}
		}
	}, cpu.parallel)
}

// gemmRowAxpy accumulates row i of op(A)*B into acc, streaming B rows.
func gemmRowAxpy(acc, a, b []float32, transA bool, i, m, n, k int) {
	for p := 0; p < k; p++ {
		av := elemA(a, transA, i, p, m, k)
		if av == 0 {
			continue
		}
		brow := b[p*n : (p+1)*n]
		for j, bv := range brow {
			acc[j] += av * bv
		}
	}
}

// gemmRowDot accumulates row i of op(A)*B^T into acc as dot products, since
// every B^T column is a contiguous row of the stored B.
func gemmRowDot(acc, a, b []float32, transA bool, i, m, n, k int) {
	if !transA {
		arow := a[i*k : (i+1)*k]
		for j := 0; j < n; j++ {
			brow := b[j*k : (j+1)*k]
			var sum float32
			for p, av := range arow {
				sum += av * brow[p]
			}
			acc[j] = sum
		}
		return
	}
	for j := 0; j < n; j++ {
		brow := b[j*k : (j+1)*k]
		var sum float32
		for p, bv := range brow {
			sum += a[p*m+i] * bv
		}
		acc[j] = sum
	}
}

func elemA(a []float32, transA bool, i, p, m, k int) float32 {
	if transA {
		return a[p*m+i]
	}
	return a[i*k+p]
}

func checkGemmOperands(op string, a, b, c []float32, m, n, k int) {
	if m < 0 || n < 0 || k < 0 {
		panic(fmt.Sprintf("%s: negative dimension m=%d n=%d k=%d", op, m, n, k))
	}
	if len(a) < m*k || len(b) < k*n || len(c) < m*n {
		panic(fmt.Sprintf("%s: operands too short for [%d,%d] x [%d,%d]: len(a)=%d len(b)=%d len(c)=%d",
			op, m, k, k, n, len(a), len(b), len(c)))
	}
}
