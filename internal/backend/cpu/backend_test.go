package cpu

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/born-ml/blitz/internal/parallel"
	"github.com/born-ml/blitz/internal/tensor"
)

// Helper to create test backends: one with fan-out forced on, one sequential.
func testBackends() map[string]*CPUBackend {
	return map[string]*CPUBackend{
		"parallel":   NewWithConfig(parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}),
		"sequential": NewWithConfig(parallel.Sequential()),
	}
}

// Helper to check float32 slices are equal within epsilon.
func float32SliceEqual(a, b []float32, epsilon float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > epsilon {
			return false
		}
	}
	return true
}

func randomSlice(seed uint64, n int) []float32 {
	rng := rand.New(rand.NewPCG(seed, 7))
	out := make([]float32, n)
	for i := range out {
		out[i] = rng.Float32()*2 - 1
	}
	return out
}

// TestCPUBackend_New tests backend creation.
func TestCPUBackend_New(t *testing.T) {
	backend := New()
	if backend == nil {
		t.Fatal("New() returned nil")
	}
	if backend.Name() != "CPU" {
		t.Errorf("Expected name 'CPU', got '%s'", backend.Name())
	}
	if backend.Device() != tensor.CPU {
		t.Errorf("Expected device CPU, got %v", backend.Device())
	}
	if err := backend.Synchronize(); err != nil {
		t.Errorf("Synchronize() = %v", err)
	}
}

func TestCPUBackend_ParallelConfig(t *testing.T) {
	cfg := parallel.Config{Enabled: true, NumWorkers: 3, MinChunkSize: 8}
	if got := NewWithConfig(cfg).ParallelConfig(); got != cfg {
		t.Errorf("ParallelConfig() = %+v, want %+v", got, cfg)
	}
}

// TestTranspose covers square, tall, wide and tile-crossing shapes.
func TestTranspose(t *testing.T) {
	shapes := [][2]int{{1, 1}, {3, 3}, {1, 7}, {7, 1}, {33, 65}, {64, 32}}

	for name, backend := range testBackends() {
		for _, shape := range shapes {
			rows, cols := shape[0], shape[1]
			src := randomSlice(1, rows*cols)
			dst := make([]float32, rows*cols)

			backend.Transpose(src, dst, rows, cols)

			for r := 0; r < rows; r++ {
				for c := 0; c < cols; c++ {
					if dst[c*rows+r] != src[r*cols+c] {
						t.Fatalf("%s %dx%d: dst[%d][%d] = %v, want %v", name, rows, cols, c, r, dst[c*rows+r], src[r*cols+c])
					}
				}
			}
		}
	}
}

func TestTranspose_PanicsOnAlias(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for aliased buffers")
		}
	}()
	buf := make([]float32, 4)
	New().Transpose(buf, buf, 2, 2)
}
