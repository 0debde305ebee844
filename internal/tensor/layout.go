package tensor

import (
	"fmt"
	"strings"
)

// Layout is the declared memory order of a 4-D activation buffer.
// Filters are always stored KCRS and ignore the tag.
type Layout int

// Supported activation layouts.
const (
	// NCHW stores batch, channels, height, width from outermost to innermost.
	NCHW Layout = iota
	// NHWC stores batch, height, width, channels from outermost to innermost.
	NHWC
)

// Valid reports whether l is a known layout.
func (l Layout) Valid() bool {
	return l == NCHW || l == NHWC
}

// String returns the layout name.
func (l Layout) String() string {
	switch l {
	case NCHW:
		return "NCHW"
	case NHWC:
		return "NHWC"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// ParseLayout converts a case-insensitive layout name into a Layout.
func ParseLayout(name string) (Layout, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "NCHW":
		return NCHW, nil
	case "NHWC":
		return NHWC, nil
	default:
		return NCHW, fmt.Errorf("unknown layout %q (expected NCHW or NHWC)", name)
	}
}
