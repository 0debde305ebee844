//go:build windows

package webgpu

import (
	"math/bits"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

const (
	// Smallest pooled buffer. Requests are rounded up to a power of two so
	// readbacks of neighbouring operand sizes share buffers.
	minPooledSize = 256
	// Free buffers kept per (usage, size class).
	maxPooledPerClass = 8
)

type poolKey struct {
	usage wgpu.BufferUsage
	size  uint64
}

// PoolStats reports buffer pool activity.
type PoolStats struct {
	Allocated   uint64
	Released    uint64
	Hits        uint64
	Misses      uint64
	Pooled      int
	PooledBytes uint64
}

// BufferPool recycles buffers that are created and dropped once per kernel,
// mainly the MAP_READ staging buffers used to read results back. Buffers are
// grouped by usage flags and power-of-two size class; a buffer is only handed
// out for an exact usage match.
type BufferPool struct {
	device *wgpu.Device

	mu    sync.Mutex
	free  map[poolKey][]*wgpu.Buffer
	stats PoolStats
}

// NewBufferPool creates an empty pool on device.
func NewBufferPool(device *wgpu.Device) *BufferPool {
	return &BufferPool{
		device: device,
		free:   make(map[poolKey][]*wgpu.Buffer),
	}
}

// sizeClass rounds size up to the pooled allocation size.
func sizeClass(size uint64) uint64 {
	if size <= minPooledSize {
		return minPooledSize
	}
	return 1 << bits.Len64(size-1)
}

// Acquire returns a buffer of at least size bytes with exactly the given usage.
func (p *BufferPool) Acquire(size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	key := poolKey{usage: usage, size: sizeClass(size)}

	p.mu.Lock()
	defer p.mu.Unlock()

	if list := p.free[key]; len(list) > 0 {
		buffer := list[len(list)-1]
		p.free[key] = list[:len(list)-1]
		p.stats.Hits++
		p.stats.Pooled--
		p.stats.PooledBytes -= key.size
		return buffer
	}

	p.stats.Misses++
	p.stats.Allocated++
	return p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: usage,
		Size:  key.size,
	})
}

// Release hands a buffer obtained from Acquire back to the pool. size and
// usage must be the values it was acquired with. A full size class releases
// the buffer to the device instead.
func (p *BufferPool) Release(buffer *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	key := poolKey{usage: usage, size: sizeClass(size)}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Released++
	if len(p.free[key]) >= maxPooledPerClass {
		buffer.Release()
		return
	}
	p.free[key] = append(p.free[key], buffer)
	p.stats.Pooled++
	p.stats.PooledBytes += key.size
}

// Clear releases every pooled buffer. Called from Backend.Release.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, list := range p.free {
		for _, buffer := range list {
			buffer.Release()
		}
		delete(p.free, key)
	}
	p.stats.Pooled = 0
	p.stats.PooledBytes = 0
}

// Stats returns a snapshot of the pool counters.
func (p *BufferPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
