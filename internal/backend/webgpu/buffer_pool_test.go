//go:build windows

package webgpu

import (
	"testing"

	"github.com/go-webgpu/webgpu/wgpu"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		size, want uint64
	}{
		{0, 256},
		{4, 256},
		{256, 256},
		{257, 512},
		{1000, 1024},
		{1024, 1024},
		{1 << 20, 1 << 20},
		{1<<20 + 4, 1 << 21},
	}
	for _, tt := range tests {
		if got := sizeClass(tt.size); got != tt.want {
			t.Errorf("sizeClass(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}
}

func TestBufferPoolAcquireRelease(t *testing.T) {
	backend := newTestBackend(t)
	pool := backend.bufferPool

	size := uint64(1024)
	buffer1 := pool.Acquire(size, stagingUsage)

	stats := pool.Stats()
	if stats.Allocated != 1 || stats.Misses != 1 || stats.Hits != 0 {
		t.Errorf("after first acquire: %+v", stats)
	}

	pool.Release(buffer1, size, stagingUsage)
	stats = pool.Stats()
	if stats.Released != 1 || stats.Pooled != 1 || stats.PooledBytes != 1024 {
		t.Errorf("after release: %+v", stats)
	}

	// Same size class.
	buffer2 := pool.Acquire(900, stagingUsage)
	stats = pool.Stats()
	if stats.Hits != 1 || stats.Pooled != 0 || stats.PooledBytes != 0 {
		t.Errorf("after second acquire: %+v", stats)
	}
	pool.Release(buffer2, 900, stagingUsage)

	buffer3 := pool.Acquire(2000, stagingUsage)
	defer buffer3.Release()
	if stats := pool.Stats(); stats.Misses != 2 {
		t.Errorf("larger class must allocate: %+v", stats)
	}
}

func TestBufferPoolUsageMismatch(t *testing.T) {
	backend := newTestBackend(t)
	pool := backend.bufferPool

	size := uint64(256)
	buffer := pool.Acquire(size, stagingUsage)
	pool.Release(buffer, size, stagingUsage)

	other := pool.Acquire(size, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
	defer other.Release()

	if stats := pool.Stats(); stats.Hits != 0 || stats.Misses != 2 {
		t.Errorf("usage mismatch must not hit the pool: %+v", stats)
	}
}

func TestBufferPoolCapsEachClass(t *testing.T) {
	backend := newTestBackend(t)
	pool := backend.bufferPool

	buffers := make([]*wgpu.Buffer, maxPooledPerClass+2)
	for i := range buffers {
		buffers[i] = pool.Acquire(512, stagingUsage)
	}
	for _, b := range buffers {
		pool.Release(b, 512, stagingUsage)
	}
	if stats := pool.Stats(); stats.Pooled != maxPooledPerClass {
		t.Errorf("pooled = %d, want %d", stats.Pooled, maxPooledPerClass)
	}

	pool.Clear()
	if stats := pool.Stats(); stats.Pooled != 0 || stats.PooledBytes != 0 {
		t.Errorf("after Clear: %+v", stats)
	}
}

// Readbacks reuse their staging buffers across kernels.
func TestBufferPoolReusedByReadback(t *testing.T) {
	backend := newTestBackend(t)

	src := []float32{1, 2, 3, 4, 5, 6}
	dst := make([]float32, 6)
	backend.Transpose(src, dst, 2, 3)
	backend.Transpose(src, dst, 2, 3)
	if err := backend.Synchronize(); err != nil {
		t.Fatalf("Synchronize: %v", err)
	}

	if stats := backend.MemoryStats().Pool; stats.Hits == 0 {
		t.Errorf("expected staging buffer reuse, got %+v", stats)
	}
}
