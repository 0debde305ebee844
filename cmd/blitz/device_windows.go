//go:build windows

package main

import (
	"github.com/born-ml/blitz/backend/webgpu"
	"github.com/born-ml/blitz/tensor"
)

func openWebGPU() (tensor.Backend, func(), error) {
	gpu, err := webgpu.New()
	if err != nil {
		return nil, nil, err
	}
	return gpu, gpu.Release, nil
}
