//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/lywa1998/rotary/internal/rope"
)

// Apply runs the rotary kernel on the GPU for float32 elements,
// dispatching one workgroup per token. query and key are uploaded,
// rotated on device, and read back into the caller's slices, preserving
// the in-place contract at the API level. positions must fit in int32
// on this path.
func (b *Backend) Apply(p rope.Params, positions []int64, query, key, cache []float32) error {
	numTokens := len(positions)
	if numTokens == 0 {
		return nil
	}

	if err := rope.CheckParams(p, positions, len(query), len(key), len(cache)); err != nil {
		return err
	}

	pos32 := make([]byte, 4*numTokens)
	for i, pos := range positions {
		if pos > 1<<31-1 {
			return fmt.Errorf("webgpu: position %d exceeds int32 range", pos)
		}
		binary.LittleEndian.PutUint32(pos32[4*i:], uint32(pos)) //nolint:gosec // G115: bounds checked above
	}

	shader := b.compileShader("rope", ropeShader)
	pipeline := b.getOrCreatePipeline("rope", shader)

	bufferPositions := b.createBuffer(pos32, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	defer bufferPositions.Release()

	querySize := uint64(4 * len(query))
	bufferQuery := b.createBuffer(f32Bytes(query), wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst)
	defer bufferQuery.Release()

	keySize := uint64(4 * len(key))
	bufferKey := b.createBuffer(f32Bytes(key), wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst)
	defer bufferKey.Release()

	bufferCache := b.createBuffer(f32Bytes(cache), wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	defer bufferCache.Release()

	// Uniform params, 16-byte aligned (8 x u32).
	params := make([]byte, 32)
	gptj := uint32(0)
	if p.Style == rope.StyleGPTJ {
		gptj = 1
	}
	//nolint:gosec // G115: kernel dimensions are small positive ints
	for i, v := range []uint32{
		uint32(numTokens),
		uint32(p.RotDim),
		uint32(p.HeadSize),
		uint32(p.NumHeads),
		uint32(p.NumKVHeads),
		uint32(p.QueryStride),
		uint32(p.KeyStride),
		gptj,
	} {
		binary.LittleEndian.PutUint32(params[4*i:], v)
	}
	bufferParams := b.createUniformBuffer(params)
	defer bufferParams.Release()

	bindGroupLayout := pipeline.GetBindGroupLayout(0)
	bindGroup := b.device.CreateBindGroupSimple(bindGroupLayout, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufferPositions, 0, uint64(len(pos32))),
		wgpu.BufferBindingEntry(1, bufferQuery, 0, querySize),
		wgpu.BufferBindingEntry(2, bufferKey, 0, keySize),
		wgpu.BufferBindingEntry(3, bufferCache, 0, uint64(4*len(cache))),
		wgpu.BufferBindingEntry(4, bufferParams, 0, 32),
	})
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)

	computePass.SetPipeline(pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)

	// Outer parallel dimension: one workgroup per token.
	computePass.DispatchWorkgroups(uint32(numTokens), 1, 1) //nolint:gosec // G115: token count is a small positive int
	computePass.End()

	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)

	queryOut, err := b.readBuffer(bufferQuery, querySize)
	if err != nil {
		return err
	}
	keyOut, err := b.readBuffer(bufferKey, keySize)
	if err != nil {
		return err
	}

	copy(f32Bytes(query), queryOut)
	copy(f32Bytes(key), keyOut)
	return nil
}

// f32Bytes reinterprets a float32 slice as its backing bytes.
func f32Bytes(s []float32) []byte {
	if len(s) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy reinterpretation
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), 4*len(s))
}
