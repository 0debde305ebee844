// Package tensor provides the buffer, shape and backend contracts shared by the
// convolution core and its device backends.
package tensor

import "fmt"

// DataType is the element type of a RawTensor. Convolution runs on Float32
// only; Float64 exists so callers can hold reference results.
type DataType int

// Supported element types.
const (
	Float32 DataType = iota
	Float64
)

// Size returns the element width in bytes.
func (dt DataType) Size() int {
	switch dt {
	case Float32:
		return 4
	case Float64:
		return 8
	default:
		panic(fmt.Sprintf("tensor: unknown data type %d", int(dt)))
	}
}

func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("DataType(%d)", int(dt))
	}
}
