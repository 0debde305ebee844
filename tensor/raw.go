// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/blitz/internal/tensor"
)

// RawTensor is the host-addressable buffer the convolution operations read and
// write.
//
// RawTensor provides:
//   - Shape, data type, device and layout tag via Shape(), DType(), Device(), Layout()
//   - Typed float32 access via AsFloat32() and element-offset views via Slice()
//   - Zero-fill and copy via Fill() and CopyFrom()
//
// The shape is fixed at creation; operations never resize a tensor.
//
// Example:
//
//	x, _ := tensor.NewRawWithLayout(tensor.ActivationShape(tensor.NCHW, 8, 3, 32, 32),
//	    tensor.Float32, tensor.CPU, tensor.NCHW)
//	data := x.AsFloat32()
type RawTensor = tensor.RawTensor

// Shape is the extent of each tensor dimension, outermost first.
type Shape = tensor.Shape

// DataType represents runtime type information for tensors.
type DataType = tensor.DataType

// Device identifies the device whose kernels operate on a tensor.
type Device = tensor.Device

// Layout is the declared memory order of a 4-D activation buffer.
type Layout = tensor.Layout

// Data types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
)

// Devices.
const (
	CPU    = tensor.CPU
	WebGPU = tensor.WebGPU
)

// Activation layouts.
const (
	NCHW = tensor.NCHW
	NHWC = tensor.NHWC
)

// NewRaw allocates a zeroed NCHW-tagged tensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// NewRawWithLayout allocates a zeroed tensor with an explicit layout tag.
func NewRawWithLayout(shape Shape, dtype DataType, device Device, layout Layout) (*RawTensor, error) {
	return tensor.NewRawWithLayout(shape, dtype, device, layout)
}

// FromFloat32 copies data into a new float32 tensor.
func FromFloat32(data []float32, shape Shape, device Device, layout Layout) (*RawTensor, error) {
	return tensor.FromFloat32(data, shape, device, layout)
}

// ActivationShape builds the 4-D shape of N images of C channels at HxW in the
// given layout.
func ActivationShape(layout Layout, n, c, h, w int) Shape {
	return tensor.ActivationShape(layout, n, c, h, w)
}

// FilterShape builds the KCRS shape of a filter bank.
func FilterShape(k, c, r, s int) Shape {
	return tensor.FilterShape(k, c, r, s)
}

// ParseLayout converts "NCHW" or "NHWC" (any case) into a Layout.
func ParseLayout(name string) (Layout, error) {
	return tensor.ParseLayout(name)
}
