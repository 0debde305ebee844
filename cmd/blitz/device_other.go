//go:build !windows

package main

import (
	"errors"

	"github.com/born-ml/blitz/tensor"
)

var errWebGPUUnsupported = errors.New("webgpu backend is only built on windows")

func openWebGPU() (tensor.Backend, func(), error) {
	return nil, nil, errWebGPUUnsupported
}
