package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/blitz/conv"
	"github.com/born-ml/blitz/internal/config"
	"github.com/born-ml/blitz/tensor"
)

var operations = []conv.Operation{conv.OpForward, conv.OpBackwardData, conv.OpBackwardFilter}

// problem holds every tensor the three operations of one layer read or write.
type problem struct {
	layer  config.Layer
	g      tensor.Conv2DGeometry
	layout tensor.Layout

	input, filter, output *tensor.RawTensor
	outputGrad            *tensor.RawTensor
	inputGrad, filterGrad *tensor.RawTensor
	workspace             *tensor.RawTensor
}

// newProblem allocates random operands and a workspace sized for algos.
func newProblem(l config.Layer, layout tensor.Layout, algos []conv.Algorithm, seed int64) (*problem, error) {
	g := l.Geometry()
	//nolint:gosec // G115: seeds are reinterpreted, not range-checked
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x5bd1e995))

	activation := func(c, h, w int, random bool) (*tensor.RawTensor, error) {
		t, err := tensor.NewRawWithLayout(tensor.ActivationShape(layout, g.N, c, h, w), tensor.Float32, tensor.CPU, layout)
		if err != nil {
			return nil, err
		}
		if random {
			fillRandom(rng, t.AsFloat32())
		}
		return t, nil
	}

	p := &problem{layer: l, g: g, layout: layout}
	var err error
	if p.input, err = activation(g.C, g.H, g.W, true); err != nil {
		return nil, fmt.Errorf("layer %s: input: %w", l.Name, err)
	}
	if p.inputGrad, err = activation(g.C, g.H, g.W, false); err != nil {
		return nil, fmt.Errorf("layer %s: input gradient: %w", l.Name, err)
	}
	if p.output, err = activation(g.K, g.P, g.Q, false); err != nil {
		return nil, fmt.Errorf("layer %s: output: %w", l.Name, err)
	}
	if p.outputGrad, err = activation(g.K, g.P, g.Q, true); err != nil {
		return nil, fmt.Errorf("layer %s: output gradient: %w", l.Name, err)
	}
	if p.filter, err = tensor.NewRaw(tensor.FilterShape(g.K, g.C, g.R, g.S), tensor.Float32, tensor.CPU); err != nil {
		return nil, fmt.Errorf("layer %s: filter: %w", l.Name, err)
	}
	fillRandom(rng, p.filter.AsFloat32())
	if p.filterGrad, err = tensor.NewRaw(tensor.FilterShape(g.K, g.C, g.R, g.S), tensor.Float32, tensor.CPU); err != nil {
		return nil, fmt.Errorf("layer %s: filter gradient: %w", l.Name, err)
	}

	size, err := conv.WorkspaceSize(g, algos...)
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", l.Name, err)
	}
	if p.workspace, err = tensor.NewRaw(tensor.Shape{max(size, 1)}, tensor.Float32, tensor.CPU); err != nil {
		return nil, fmt.Errorf("layer %s: workspace: %w", l.Name, err)
	}
	return p, nil
}

func fillRandom(rng *rand.Rand, data []float32) {
	for i := range data {
		data[i] = rng.Float32()*2 - 1
	}
}

// context creates a Context for algo over the problem's shared workspace.
func (p *problem) context(algo conv.Algorithm, opts ...conv.Option) (*conv.Context, error) {
	return conv.NewContext(p.layer.Conv(algo), p.workspace, opts...)
}

// run executes one operation.
func (p *problem) run(op conv.Operation, ctx *conv.Context) error {
	switch op {
	case conv.OpForward:
		return conv.Forward(p.input, p.filter, p.output, ctx)
	case conv.OpBackwardData:
		return conv.BackwardData(p.outputGrad, p.filter, p.inputGrad, ctx)
	case conv.OpBackwardFilter:
		return conv.BackwardFilter(p.input, p.outputGrad, p.filterGrad, ctx)
	default:
		return fmt.Errorf("unknown operation %s", op)
	}
}

// result returns the tensor op writes.
func (p *problem) result(op conv.Operation) *tensor.RawTensor {
	switch op {
	case conv.OpForward:
		return p.output
	case conv.OpBackwardData:
		return p.inputGrad
	default:
		return p.filterGrad
	}
}

// supports reports whether algo can run on the problem's layout.
func (p *problem) supports(algo conv.Algorithm) bool {
	return algo != conv.Direct || p.layout == tensor.NCHW
}
