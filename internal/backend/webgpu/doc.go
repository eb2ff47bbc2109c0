// Package webgpu implements the GPU execution path for the rotary
// kernel using go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO
// WebGPU bindings.
//
// The dispatch mirrors the kernel's natural accelerator shape: one
// workgroup per token, with the head×pair work items of the token
// spread across the workgroup by strided assignment. Only float32
// elements are supported on this path.
package webgpu
