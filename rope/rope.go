// Copyright 2025 The Rotary Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package rope

import (
	internalrope "github.com/lywa1998/rotary/internal/rope"
)

// Type aliases for the public API.

// Style selects the coordinate pairing convention.
type Style = internalrope.Style

// Supported pairing conventions.
const (
	// StyleNeoX pairs coordinate i with coordinate embedDim+i within a
	// head (contiguous halves).
	StyleNeoX Style = internalrope.StyleNeoX
	// StyleGPTJ pairs coordinate 2i with coordinate 2i+1 within a head
	// (interleaved).
	StyleGPTJ Style = internalrope.StyleGPTJ
)

// Native is the constraint for element types rotated with Go's own
// arithmetic. The 16-bit floating encodings are not Native; see
// ApplyFloat16 and ApplyBFloat16.
type Native = internalrope.Native

// Params describes one kernel invocation.
type Params = internalrope.Params

// Config controls the parallel decomposition of an invocation.
type Config = internalrope.Config

// DefaultConfig returns the decomposition used when none is given:
// token-level parallelism across all CPUs for large enough batches.
func DefaultConfig() Config {
	return internalrope.DefaultConfig()
}

// Apply rotates query and key in place for the Native element type T.
// Preconditions are caller-guaranteed, not checked; see CheckParams.
func Apply[T Native](p Params, positions []int64, query, key, cache []T) {
	internalrope.Apply(p, positions, query, key, cache)
}

// ApplyWithConfig is Apply with explicit control over the parallel
// decomposition. Output is identical for any configuration.
func ApplyWithConfig[T Native](p Params, cfg Config, positions []int64, query, key, cache []T) {
	internalrope.ApplyWithConfig(p, cfg, positions, query, key, cache)
}

// ApplyFloat16 rotates query and key holding IEEE binary16 elements in
// uint16 containers. The containers are storage only; arithmetic runs
// in half-precision semantics.
func ApplyFloat16(p Params, positions []int64, query, key, cache []uint16) {
	internalrope.ApplyFloat16(p, positions, query, key, cache)
}

// ApplyFloat16WithConfig is ApplyFloat16 with explicit control over the
// parallel decomposition.
func ApplyFloat16WithConfig(p Params, cfg Config, positions []int64, query, key, cache []uint16) {
	internalrope.ApplyFloat16WithConfig(p, cfg, positions, query, key, cache)
}

// ApplyBFloat16 rotates query and key holding bfloat16 elements in
// uint16 containers.
func ApplyBFloat16(p Params, positions []int64, query, key, cache []uint16) {
	internalrope.ApplyBFloat16(p, positions, query, key, cache)
}

// ApplyBFloat16WithConfig is ApplyBFloat16 with explicit control over
// the parallel decomposition.
func ApplyBFloat16WithConfig(p Params, cfg Config, positions []int64, query, key, cache []uint16) {
	internalrope.ApplyBFloat16WithConfig(p, cfg, positions, query, key, cache)
}

// CheckParams verifies the preconditions Apply assumes but never
// checks. Intended for tools, tests, and debug paths.
func CheckParams(p Params, positions []int64, queryLen, keyLen, cacheLen int) error {
	return internalrope.CheckParams(p, positions, queryLen, keyLen, cacheLen)
}
