package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RawTensor Tests

func TestRawTensorAsFloat32(t *testing.T) {
	raw, err := NewRaw(Shape{3, 2}, Float32, CPU)
	require.NoError(t, err)

	data := raw.AsFloat32()
	require.Len(t, data, 6)

	// Modify and verify zero-copy
	data[0] = 42
	assert.Equal(t, float32(42), raw.AsFloat32()[0])
	assert.Equal(t, 24, raw.ByteSize())
	assert.Equal(t, NCHW, raw.Layout())
}

func TestRawTensorAsFloat32WrongDType(t *testing.T) {
	raw, err := NewRaw(Shape{2}, Float64, CPU)
	require.NoError(t, err)

	assert.Panics(t, func() { raw.AsFloat32() })
}

func TestNewRawInvalidShape(t *testing.T) {
	_, err := NewRaw(Shape{2, 0, 3}, Float32, CPU)
	assert.Error(t, err)

	_, err = NewRawWithLayout(Shape{2}, Float32, CPU, Layout(9))
	assert.Error(t, err)
}

func TestRawTensorSliceAliases(t *testing.T) {
	raw, err := FromFloat32([]float32{0, 1, 2, 3, 4, 5}, Shape{6}, CPU, NCHW)
	require.NoError(t, err)

	view := raw.Slice(2, 3)
	assert.Equal(t, []float32{2, 3, 4}, view)
	assert.Equal(t, 3, cap(view), "view must not expose elements past its length")

	view[0] = 20
	assert.Equal(t, float32(20), raw.AsFloat32()[2])

	assert.Panics(t, func() { raw.Slice(4, 3) })
	assert.Panics(t, func() { raw.Slice(-1, 1) })
}

func TestRawTensorFill(t *testing.T) {
	raw, err := FromFloat32([]float32{1, 2, 3, 4}, Shape{2, 2}, CPU, NCHW)
	require.NoError(t, err)

	raw.Fill(0)
	assert.Equal(t, []float32{0, 0, 0, 0}, raw.AsFloat32())

	raw.Fill(1.5)
	assert.Equal(t, []float32{1.5, 1.5, 1.5, 1.5}, raw.AsFloat32())

	f64, err := NewRaw(Shape{3}, Float64, CPU)
	require.NoError(t, err)
	f64.Fill(2)
	assert.Equal(t, []float64{2, 2, 2}, f64.AsFloat64())
}

func TestRawTensorCopyFrom(t *testing.T) {
	src, err := FromFloat32([]float32{1, 2, 3, 4}, Shape{2, 2}, CPU, NCHW)
	require.NoError(t, err)
	dst, err := NewRaw(Shape{4}, Float32, CPU)
	require.NoError(t, err)

	require.NoError(t, dst.CopyFrom(src))
	assert.Equal(t, []float32{1, 2, 3, 4}, dst.AsFloat32())

	small, err := NewRaw(Shape{3}, Float32, CPU)
	require.NoError(t, err)
	assert.Error(t, small.CopyFrom(src))
}

func TestFromFloat32SizeMismatch(t *testing.T) {
	_, err := FromFloat32([]float32{1, 2, 3}, Shape{2, 2}, CPU, NCHW)
	assert.Error(t, err)
}

func TestActivationShape(t *testing.T) {
	assert.Equal(t, Shape{2, 3, 4, 5}, ActivationShape(NCHW, 2, 3, 4, 5))
	assert.Equal(t, Shape{2, 4, 5, 3}, ActivationShape(NHWC, 2, 3, 4, 5))
}

func TestParseLayout(t *testing.T) {
	tests := []struct {
		in   string
		want Layout
		err  bool
	}{
		{"nchw", NCHW, false},
		{"NHWC", NHWC, false},
		{"", NCHW, false},
		{"chwn", NCHW, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLayout(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOutputExtent(t *testing.T) {
	tests := []struct {
		name                    string
		in, kernel, pad, stride int
		want                    int
	}{
		{"valid", 5, 3, 0, 1, 3},
		{"same", 5, 3, 1, 1, 5},
		{"strided", 7, 3, 1, 2, 4},
		{"kernel too large", 2, 5, 0, 1, 0},
		{"zero stride", 5, 3, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputExtent(tt.in, tt.kernel, tt.pad, tt.stride))
		})
	}
}

func TestConv2DGeometryVolumes(t *testing.T) {
	g := Conv2DGeometry{N: 2, C: 3, H: 5, W: 5, K: 4, R: 3, S: 3, P: 3, Q: 3, StrH: 1, StrW: 1}

	assert.Equal(t, 75, g.CHW())
	assert.Equal(t, 9, g.PQ())
	assert.Equal(t, 36, g.KPQ())
	assert.Equal(t, 27, g.CRS())
	assert.Equal(t, 150, g.InputSize())
	assert.Equal(t, 72, g.OutputSize())
	assert.Equal(t, 108, g.FilterSize())
	assert.Equal(t, 243, g.PatchSize())
	assert.InDelta(t, 36.0*27.0*4.0, g.FLOPs(), 1e-9)
}

func TestUsesShuffledFilter(t *testing.T) {
	assert.True(t, UsesShuffledFilter(Conv2DGeometry{C: 64}))
	assert.True(t, UsesShuffledFilter(Conv2DGeometry{C: 128}))
	assert.False(t, UsesShuffledFilter(Conv2DGeometry{C: 63}))
	assert.False(t, UsesShuffledFilter(Conv2DGeometry{C: 1}))
}
