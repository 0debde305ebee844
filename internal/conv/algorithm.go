package conv

import (
	"fmt"
	"strings"
)

// Algorithm identifies the execution strategy of a convolution.
//
// The set is closed. Selection is the caller's job (tuned offline); an operation
// never falls back to another strategy, because that would silently change the
// numerical path.
type Algorithm int

// Supported algorithms.
const (
	// Direct runs one fused direct-convolution kernel over the whole batch on
	// channel-major copies of the operands.
	Direct Algorithm = iota
	// GemmWithBLAS unfolds each image into a patch matrix and multiplies it with
	// the backend's BLAS Gemm.
	GemmWithBLAS
	// GemmWithFused uses the same operands and flags as GemmWithBLAS but the
	// backend's hand-written FusedGemm.
	GemmWithFused
)

// Algorithms lists every supported algorithm.
func Algorithms() []Algorithm {
	return []Algorithm{Direct, GemmWithBLAS, GemmWithFused}
}

// String returns the algorithm name.
func (a Algorithm) String() string {
	switch a {
	case Direct:
		return "direct"
	case GemmWithBLAS:
		return "gemm_blas"
	case GemmWithFused:
		return "gemm_fused"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

// IsGemm reports whether a belongs to the im2col/col2im family.
func (a Algorithm) IsGemm() bool {
	return a == GemmWithBLAS || a == GemmWithFused
}

// ParseAlgorithm converts a name into an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "direct":
		return Direct, nil
	case "gemm_blas", "gemm-blas", "blas":
		return GemmWithBLAS, nil
	case "gemm_fused", "gemm-fused", "fused":
		return GemmWithFused, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
	}
}

// Operation names one of the three convolution directions.
type Operation int

// Convolution directions.
const (
	OpForward Operation = iota
	OpBackwardData
	OpBackwardFilter
)

// String returns the operation name.
func (op Operation) String() string {
	switch op {
	case OpForward:
		return "forward"
	case OpBackwardData:
		return "backward_data"
	case OpBackwardFilter:
		return "backward_filter"
	default:
		return fmt.Sprintf("Operation(%d)", int(op))
	}
}
