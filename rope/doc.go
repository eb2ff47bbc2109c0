// Copyright 2025 The Rotary Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package rope provides the public API for the in-place rotary
// positional encoding (RoPE) kernel.
//
// The kernel rotates the leading RotDim coordinates of every attention
// head in the query and key projections by a position-dependent angle
// taken from a precomputed cosine/sine cache, leaving the remaining
// coordinates untouched. It supports the contiguous-half (GPT-NeoX) and
// interleaved-pair (GPT-J) conventions, grouped/multi-query head
// counts, and caller-chosen per-token strides.
//
// # Basic Usage
//
//	import "github.com/lywa1998/rotary/rope"
//
//	p := rope.Params{
//	    RotDim:      128,
//	    HeadSize:    128,
//	    NumHeads:    32,
//	    NumKVHeads:  8,
//	    QueryStride: 32 * 128,
//	    KeyStride:   8 * 128,
//	    Style:       rope.StyleNeoX,
//	}
//	rope.Apply(p, positions, query, key, cache)
//
// query and key are mutated in place; positions and cache are read
// only. The cache is supplied by the caller: one row per position, each
// row RotDim wide with cosine values in the first half and sine values
// in the second.
//
// # Element Types
//
// Apply is generic over the native numeric types (signed and unsigned
// 8/32/64-bit integers, float32, float64). The 16-bit reduced-precision
// encodings travel through uint16 containers with their own entry
// points:
//
//	rope.ApplyFloat16(p, positions, q16, k16, cache16)   // IEEE binary16
//	rope.ApplyBFloat16(p, positions, qbf, kbf, cachebf)  // bfloat16
//
// # Preconditions
//
// The kernel performs no validation: violating a precondition corrupts
// the output rather than returning an error. CheckParams verifies the
// full precondition set for callers that want a loud failure at the
// boundary.
package rope
