//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/blitz/internal/tensor"
)

// storageUsage is the usage of every buffer bound as a kernel operand.
const storageUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

// stagingUsage is the usage of readback buffers.
const stagingUsage = wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst

// compileShader compiles WGSL shader code into a ShaderModule.
// Results are cached in the Backend's shaders map.
func (b *Backend) compileShader(name, code string) *wgpu.ShaderModule {
	b.mu.RLock()
	if shader, exists := b.shaders[name]; exists {
		b.mu.RUnlock()
		return shader
	}
	b.mu.RUnlock()

	// Compile shader
	shader := b.device.CreateShaderModuleWGSL(code)

	// Cache it
	b.mu.Lock()
	b.shaders[name] = shader
	b.mu.Unlock()

	return shader
}

// getOrCreatePipeline returns a cached ComputePipeline or creates a new one.
func (b *Backend) getOrCreatePipeline(name string, shader *wgpu.ShaderModule) *wgpu.ComputePipeline {
	b.mu.RLock()
	if pipeline, exists := b.pipelines[name]; exists {
		b.mu.RUnlock()
		return pipeline
	}
	b.mu.RUnlock()

	// Create compute pipeline with auto layout (nil layout)
	pipeline := b.device.CreateComputePipelineSimple(nil, shader, "main")

	// Cache it
	b.mu.Lock()
	b.pipelines[name] = pipeline
	b.mu.Unlock()

	return pipeline
}

// createBuffer creates a GPU buffer and uploads initial data.
func (b *Backend) createBuffer(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))

	// Create buffer with MappedAtCreation for initial data upload
	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})

	// Copy data to mapped buffer
	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	copy(mappedSlice, data)
	buffer.Unmap()

	b.trackBufferAllocation(size)
	return buffer
}

// releaseBuffer frees a buffer created by createBuffer.
func (b *Backend) releaseBuffer(buffer *wgpu.Buffer, size uint64) {
	buffer.Release()
	b.trackBufferRelease(size)
}

// createUniformBuffer creates a uniform buffer with proper alignment.
// Uniform buffers require 16-byte alignment for struct fields.
func (b *Backend) createUniformBuffer(data []byte) *wgpu.Buffer {
	// Ensure 16-byte alignment
	size := uint64(len(data))
	alignedSize := (size + 15) &^ 15 // Round up to 16-byte boundary

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             alignedSize,
		MappedAtCreation: wgpu.True,
	})

	// Copy data (padding is handled by aligned size)
	mappedPtr := buffer.GetMappedRange(0, alignedSize)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), alignedSize)
	copy(mappedSlice, data)
	buffer.Unmap()

	return buffer
}

// readBuffer reads data back from a GPU buffer into dst.
// Uses a pooled staging buffer since storage buffers can't be mapped directly.
func (b *Backend) readBuffer(srcBuffer *wgpu.Buffer, dst []byte) error {
	size := uint64(len(dst))

	// Staging buffer for reading (MAP_READ | COPY_DST)
	stagingBuffer := b.bufferPool.Acquire(size, stagingUsage)
	defer b.bufferPool.Release(stagingBuffer, size, stagingUsage)

	// Copy from GPU buffer to staging buffer
	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(srcBuffer, 0, stagingBuffer, 0, size)
	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)

	// Map staging buffer for reading; this waits for the queue.
	err := stagingBuffer.MapAsync(b.device, wgpu.MapModeRead, 0, size)
	if err != nil {
		return fmt.Errorf("failed to map staging buffer: %w", err)
	}

	mappedPtr := stagingBuffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	copy(dst, mappedSlice)

	stagingBuffer.Unmap()
	return nil
}

// operand is one storage buffer bound to a kernel, in binding order.
type operand struct {
	data []float32
	// readback copies the buffer contents back into data after the dispatch.
	readback bool
}

// dispatch uploads the operands, runs one kernel and reads the written
// operands back. Parameters are bound after the operands.
func (b *Backend) dispatch(name, code string, operands []operand, params []byte, groups [3]uint32) error {
	shader := b.compileShader(name, code)
	pipeline := b.getOrCreatePipeline(name, shader)

	buffers := make([]*wgpu.Buffer, len(operands))
	entries := make([]wgpu.BindGroupEntry, 0, len(operands)+1)
	for i, op := range operands {
		raw := float32Bytes(op.data)
		buffers[i] = b.createBuffer(raw, storageUsage)
		defer b.releaseBuffer(buffers[i], uint64(len(raw)))
		//nolint:gosec // G115: binding indices are small
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i), buffers[i], 0, uint64(len(raw))))
	}

	bufferParams := b.createUniformBuffer(params)
	defer bufferParams.Release()
	//nolint:gosec // G115: binding indices are small
	entries = append(entries, wgpu.BufferBindingEntry(uint32(len(operands)), bufferParams, 0, uint64(len(params))))

	// Get bind group layout and create bind group
	bindGroupLayout := pipeline.GetBindGroupLayout(0)
	bindGroup := b.device.CreateBindGroupSimple(bindGroupLayout, entries)
	defer bindGroup.Release()

	// Execute compute pass
	encoder := b.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)

	computePass.SetPipeline(pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	computePass.DispatchWorkgroups(groups[0], groups[1], groups[2])
	computePass.End()

	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)

	// Read results back from GPU
	for i, op := range operands {
		if !op.readback {
			continue
		}
		if err := b.readBuffer(buffers[i], float32Bytes(op.data)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// float32Bytes views a float32 slice as bytes without copying.
func float32Bytes(data []float32) []byte {
	if len(data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy reinterpretation of float32 data
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)
}

// linearGroups returns a 2D dispatch of 256-wide workgroups covering total threads.
// Kernels rebuild the linear index from the workgroup count.
func linearGroups(total int) [3]uint32 {
	groups := (total + workgroupSize - 1) / workgroupSize
	x := min(groups, maxWorkgroupsPerDim)
	y := (groups + x - 1) / x
	//nolint:gosec // G115: bounded by maxWorkgroupsPerDim
	return [3]uint32{uint32(x), uint32(y), 1}
}

// tiledGroups returns the 16x16 workgroup grid covering a rows x cols matrix.
func tiledGroups(rows, cols int) [3]uint32 {
	//nolint:gosec // G115: matrix dimensions are non-negative
	return [3]uint32{
		uint32(math.Ceil(float64(cols) / 16.0)),
		uint32(math.Ceil(float64(rows) / 16.0)),
		1,
	}
}

// packConvParams encodes the convParams uniform block.
func packConvParams(g tensor.Conv2DGeometry, flag uint32, total int) []byte {
	fields := []int{g.N, g.C, g.H, g.W, g.K, g.R, g.S, g.P, g.Q, g.PadH, g.PadW, g.StrH, g.StrW}
	params := make([]byte, 64)
	for i, v := range fields {
		//nolint:gosec // G115: geometry fields are validated non-negative
		binary.LittleEndian.PutUint32(params[i*4:], uint32(v))
	}
	binary.LittleEndian.PutUint32(params[52:56], flag)
	//nolint:gosec // G115: total is non-negative
	binary.LittleEndian.PutUint32(params[56:60], uint32(total))
	return params
}

// packGemmParams encodes the gemm uniform block.
func packGemmParams(transA, transB bool, alpha, beta float32, m, n, k int) []byte {
	params := make([]byte, 32)
	//nolint:gosec // G115: matrix dimensions are non-negative
	binary.LittleEndian.PutUint32(params[0:4], uint32(m))
	//nolint:gosec // G115: matrix dimensions are non-negative
	binary.LittleEndian.PutUint32(params[4:8], uint32(n))
	//nolint:gosec // G115: matrix dimensions are non-negative
	binary.LittleEndian.PutUint32(params[8:12], uint32(k))
	binary.LittleEndian.PutUint32(params[12:16], boolU32(transA))
	binary.LittleEndian.PutUint32(params[16:20], boolU32(transB))
	binary.LittleEndian.PutUint32(params[20:24], math.Float32bits(alpha))
	binary.LittleEndian.PutUint32(params[24:28], math.Float32bits(beta))
	return params
}

func boolU32(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}
