package conv

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/blitz/internal/backend/cpu"
	"github.com/born-ml/blitz/internal/parallel"
	"github.com/born-ml/blitz/internal/tensor"
)

// geom builds a complete geometry with P and Q derived from the other fields.
func geom(n, c, h, w, k, r, s, pad, stride int) tensor.Conv2DGeometry {
	return tensor.Conv2DGeometry{
		N: n, C: c, H: h, W: w,
		K: k, R: r, S: s,
		P:    tensor.OutputExtent(h, r, pad, stride),
		Q:    tensor.OutputExtent(w, s, pad, stride),
		PadH: pad, PadW: pad,
		StrH: stride, StrW: stride,
	}
}

func randomData(rng *rand.Rand, n int) []float32 {
	data := make([]float32, n)
	for i := range data {
		data[i] = rng.Float32()*2 - 1
	}
	return data
}

func newTensor(t *testing.T, shape tensor.Shape, layout tensor.Layout, data []float32) *tensor.RawTensor {
	t.Helper()
	if data == nil {
		data = make([]float32, shape.NumElements())
	}
	raw, err := tensor.FromFloat32(data, shape, tensor.CPU, layout)
	require.NoError(t, err)
	return raw
}

// problem holds random operands for one geometry, all in NCHW.
type problem struct {
	g      tensor.Conv2DGeometry
	input  []float32
	filter []float32
	dy     []float32
}

func newProblem(g tensor.Conv2DGeometry, seed uint64) problem {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return problem{
		g:      g,
		input:  randomData(rng, g.InputSize()),
		filter: randomData(rng, g.FilterSize()),
		dy:     randomData(rng, g.OutputSize()),
	}
}

func (p problem) inputTensor(t *testing.T, layout tensor.Layout) *tensor.RawTensor {
	data := p.input
	if layout == tensor.NHWC {
		data = toNHWC(data, p.g.N, p.g.C, p.g.H, p.g.W)
	}
	return newTensor(t, tensor.ActivationShape(layout, p.g.N, p.g.C, p.g.H, p.g.W), layout, data)
}

func (p problem) outputTensor(t *testing.T, layout tensor.Layout, data []float32) *tensor.RawTensor {
	if data != nil && layout == tensor.NHWC {
		data = toNHWC(data, p.g.N, p.g.K, p.g.P, p.g.Q)
	}
	return newTensor(t, tensor.ActivationShape(layout, p.g.N, p.g.K, p.g.P, p.g.Q), layout, data)
}

func (p problem) filterTensor(t *testing.T, data []float32) *tensor.RawTensor {
	return newTensor(t, tensor.FilterShape(p.g.K, p.g.C, p.g.R, p.g.S), tensor.NCHW, data)
}

func (p problem) gradInputTensor(t *testing.T, layout tensor.Layout) *tensor.RawTensor {
	return newTensor(t, tensor.ActivationShape(layout, p.g.N, p.g.C, p.g.H, p.g.W), layout, nil)
}

func toNHWC(data []float32, n, c, h, w int) []float32 {
	out := make([]float32, len(data))
	for b := range n {
		for ch := range c {
			for y := range h {
				for x := range w {
					out[((b*h+y)*w+x)*c+ch] = data[((b*c+ch)*h+y)*w+x]
				}
			}
		}
	}
	return out
}

func fromNHWC(data []float32, n, c, h, w int) []float32 {
	out := make([]float32, len(data))
	for b := range n {
		for ch := range c {
			for y := range h {
				for x := range w {
					out[((b*c+ch)*h+y)*w+x] = data[((b*h+y)*w+x)*c+ch]
				}
			}
		}
	}
	return out
}

// Reference implementations: naive loops over NCHW/KCRS with float64 accumulation.

func refForward(x, f []float32, g tensor.Conv2DGeometry) []float64 {
	y := make([]float64, g.OutputSize())
	for n := range g.N {
		for k := range g.K {
			for p := range g.P {
				for q := range g.Q {
					var sum float64
					for c := range g.C {
						for r := range g.R {
							for s := range g.S {
								h := p*g.StrH - g.PadH + r
								w := q*g.StrW - g.PadW + s
								if h < 0 || h >= g.H || w < 0 || w >= g.W {
									continue
								}
								sum += float64(x[((n*g.C+c)*g.H+h)*g.W+w]) * float64(f[((k*g.C+c)*g.R+r)*g.S+s])
							}
						}
					}
					y[((n*g.K+k)*g.P+p)*g.Q+q] = sum
				}
			}
		}
	}
	return y
}

func refBackwardData(dy, f []float32, g tensor.Conv2DGeometry) []float64 {
	dx := make([]float64, g.InputSize())
	for n := range g.N {
		for k := range g.K {
			for p := range g.P {
				for q := range g.Q {
					d := float64(dy[((n*g.K+k)*g.P+p)*g.Q+q])
					for c := range g.C {
						for r := range g.R {
							for s := range g.S {
								h := p*g.StrH - g.PadH + r
								w := q*g.StrW - g.PadW + s
								if h < 0 || h >= g.H || w < 0 || w >= g.W {
									continue
								}
								dx[((n*g.C+c)*g.H+h)*g.W+w] += d * float64(f[((k*g.C+c)*g.R+r)*g.S+s])
							}
						}
					}
				}
			}
		}
	}
	return dx
}

func refBackwardFilter(x, dy []float32, g tensor.Conv2DGeometry) []float64 {
	df := make([]float64, g.FilterSize())
	for n := range g.N {
		for k := range g.K {
			for p := range g.P {
				for q := range g.Q {
					d := float64(dy[((n*g.K+k)*g.P+p)*g.Q+q])
					for c := range g.C {
						for r := range g.R {
							for s := range g.S {
								h := p*g.StrH - g.PadH + r
								w := q*g.StrW - g.PadW + s
								if h < 0 || h >= g.H || w < 0 || w >= g.W {
									continue
								}
								df[((k*g.C+c)*g.R+r)*g.S+s] += d * float64(x[((n*g.C+c)*g.H+h)*g.W+w])
							}
						}
					}
				}
			}
		}
	}
	return df
}

// requireClose fails when any element differs by more than tol*(1+|want|).
func requireClose(t *testing.T, want []float64, got []float32, tol float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		diff := math.Abs(want[i] - float64(got[i]))
		if diff > tol*(1+math.Abs(want[i])) {
			require.Failf(t, "values differ", "index %d: want %g, got %g (diff %g)", i, want[i], got[i], diff)
		}
	}
}

func newWorkspace(t *testing.T, g tensor.Conv2DGeometry) *tensor.RawTensor {
	t.Helper()
	size, err := WorkspaceSize(g)
	require.NoError(t, err)
	return newTensor(t, tensor.Shape{size}, tensor.NCHW, nil)
}

func newTestContext(t *testing.T, g tensor.Conv2DGeometry, algo Algorithm, opts ...Option) *Context {
	t.Helper()
	cfg := Config{PadH: g.PadH, PadW: g.PadW, StrH: g.StrH, StrW: g.StrW, Algorithm: algo}
	ctx, err := NewContext(cfg, newWorkspace(t, g), opts...)
	require.NoError(t, err)
	return ctx
}

// recordingBackend wraps the CPU backend and records the primitive sequence.
type recordingBackend struct {
	*cpu.CPUBackend

	mu      sync.Mutex
	calls   []string
	syncErr error
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{CPUBackend: cpu.NewWithConfig(parallel.Sequential())}
}

func (b *recordingBackend) record(name string) {
	b.mu.Lock()
	b.calls = append(b.calls, name)
	b.mu.Unlock()
}

func (b *recordingBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *recordingBackend) Gemm(a, bm, c []float32, transA, transB bool, alpha, beta float32, m, n, k int) {
	b.record("gemm")
	b.CPUBackend.Gemm(a, bm, c, transA, transB, alpha, beta, m, n, k)
}

func (b *recordingBackend) FusedGemm(a, bm, c []float32, transA, transB bool, alpha, beta float32, m, n, k int) {
	b.record("fused_gemm")
	b.CPUBackend.FusedGemm(a, bm, c, transA, transB, alpha, beta, m, n, k)
}

func (b *recordingBackend) Transpose(src, dst []float32, rows, cols int) {
	b.record("transpose")
	b.CPUBackend.Transpose(src, dst, rows, cols)
}

func (b *recordingBackend) Im2col(image, patches []float32, g tensor.Conv2DGeometry, layout tensor.Layout) {
	b.record("im2col")
	b.CPUBackend.Im2col(image, patches, g, layout)
}

func (b *recordingBackend) Col2im(patches, image []float32, g tensor.Conv2DGeometry, layout tensor.Layout) {
	b.record("col2im")
	b.CPUBackend.Col2im(patches, image, g, layout)
}

func (b *recordingBackend) Conv2DDirectForward(input, output, filter []float32, g tensor.Conv2DGeometry) {
	b.record("direct_forward")
	b.CPUBackend.Conv2DDirectForward(input, output, filter, g)
}

func (b *recordingBackend) Conv2DDirectBackward(inputGrad, outputGrad, filter []float32, g tensor.Conv2DGeometry) {
	b.record("direct_backward")
	b.CPUBackend.Conv2DDirectBackward(inputGrad, outputGrad, filter, g)
}

func (b *recordingBackend) Conv2DDirectUpdate(input, outputGrad, update []float32, g tensor.Conv2DGeometry) {
	b.record("direct_update")
	b.CPUBackend.Conv2DDirectUpdate(input, outputGrad, update, g)
}

func (b *recordingBackend) FilterShuffle(filter, shuffled []float32, g tensor.Conv2DGeometry) {
	b.record("filter_shuffle")
	b.CPUBackend.FilterShuffle(filter, shuffled, g)
}

func (b *recordingBackend) Synchronize() error {
	b.record("synchronize")
	return b.syncErr
}

// recordingSink collects fatal reports.
type recordingSink struct {
	mu     sync.Mutex
	errors []error
}

func (s *recordingSink) Fatal(_ Operation, _ Algorithm, err error) {
	s.mu.Lock()
	s.errors = append(s.errors, err)
	s.mu.Unlock()
}

func (s *recordingSink) last() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.errors) == 0 {
		return nil
	}
	return s.errors[len(s.errors)-1]
}

var errDeviceLost = errors.New("device lost")
