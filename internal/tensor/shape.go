package tensor

import "fmt"

// Shape lists the dimensions of a tensor, outermost first.
type Shape []int

// NumElements returns the product of the dimensions. A rank-0 shape holds one
// element.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate rejects zero and negative dimensions.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("dimension %d is %d, must be positive", i, dim)
		}
	}
	return nil
}

// Clone returns a copy that does not alias s.
func (s Shape) Clone() Shape {
	return append(Shape(nil), s...)
}

// ActivationShape builds the 4-D shape of an activation buffer with N images of
// C channels and HxW pixels, ordered according to layout.
func ActivationShape(layout Layout, n, c, h, w int) Shape {
	if layout == NHWC {
		return Shape{n, h, w, c}
	}
	return Shape{n, c, h, w}
}

// FilterShape builds the KCRS shape of a filter bank.
func FilterShape(k, c, r, s int) Shape {
	return Shape{k, c, r, s}
}
