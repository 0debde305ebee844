package tensor

import (
	"fmt"
	"unsafe"
)

// Device represents the compute device that owns a tensor's kernels.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// RawTensor is the low-level tensor representation consumed by the convolution core.
//
// The shape is fixed at creation. Convolution operations decode it, fill it and
// write into it, but never resize or reallocate it.
type RawTensor struct {
	data   []byte
	shape  Shape
	dtype  DataType
	device Device
	layout Layout
}

// NewRaw creates a new zero-initialized RawTensor with the default NCHW layout tag.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return NewRawWithLayout(shape, dtype, device, NCHW)
}

// NewRawWithLayout creates a new zero-initialized RawTensor with an explicit layout tag.
func NewRawWithLayout(shape Shape, dtype DataType, device Device, layout Layout) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if !layout.Valid() {
		return nil, fmt.Errorf("invalid layout: %d", int(layout))
	}

	return &RawTensor{
		data:   make([]byte, shape.NumElements()*dtype.Size()),
		shape:  shape.Clone(),
		dtype:  dtype,
		device: device,
		layout: layout,
	}, nil
}

// FromFloat32 creates a float32 tensor holding a copy of data.
func FromFloat32(data []float32, shape Shape, device Device, layout Layout) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	raw, err := NewRawWithLayout(shape, Float32, device, layout)
	if err != nil {
		return nil, err
	}
	copy(raw.AsFloat32(), data)
	return raw, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the tensor's compute device.
func (r *RawTensor) Device() Device {
	return r.device
}

// Layout returns the declared data layout tag.
func (r *RawTensor) Layout() Layout {
	return r.layout
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return len(r.data)
}

// Data returns the raw byte slice.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []byte {
	return r.data
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsFloat64 interprets the data as []float64.
// Panics if the tensor's dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 {
	if r.dtype != Float64 {
		panic(fmt.Sprintf("tensor dtype is %s, not float64", r.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by NumElements()
	return unsafe.Slice((*float64)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// Slice returns a float32 view of length elements starting offset elements into
// the tensor. The view aliases the tensor memory.
func (r *RawTensor) Slice(offset, length int) []float32 {
	data := r.AsFloat32()
	if offset < 0 || length < 0 || offset+length > len(data) {
		panic(fmt.Sprintf("tensor: slice [%d:%d] out of range for %d elements", offset, offset+length, len(data)))
	}
	return data[offset : offset+length : offset+length]
}

// Fill sets every element to value.
func (r *RawTensor) Fill(value float64) {
	switch r.dtype {
	case Float32:
		data := r.AsFloat32()
		v := float32(value)
		if v == 0 {
			clear(data)
			return
		}
		for i := range data {
			data[i] = v
		}
	case Float64:
		data := r.AsFloat64()
		if value == 0 {
			clear(data)
			return
		}
		for i := range data {
			data[i] = value
		}
	default:
		panic(fmt.Sprintf("tensor: fill unsupported for dtype %s", r.dtype))
	}
}

// CopyFrom copies the contents of src into r. Shapes must hold the same
// number of elements and the dtypes must match.
func (r *RawTensor) CopyFrom(src *RawTensor) error {
	if src.dtype != r.dtype {
		return fmt.Errorf("tensor: copy dtype mismatch: %s vs %s", src.dtype, r.dtype)
	}
	if src.NumElements() != r.NumElements() {
		return fmt.Errorf("tensor: copy size mismatch: %d vs %d elements", src.NumElements(), r.NumElements())
	}
	copy(r.data, src.data)
	return nil
}
