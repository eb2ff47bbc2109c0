// Package rope implements the in-place rotary positional encoding (RoPE)
// kernel applied to query and key projections before attention.
//
// The kernel rotates the leading RotDim coordinates of every attention
// head pairwise by a position-dependent angle looked up in a precomputed
// cosine/sine cache. Coordinates at offsets [RotDim, HeadSize) are left
// untouched (partial rotary embedding). Query and key are processed
// independently, which supports grouped and multi-query attention where
// the key carries fewer heads than the query.
//
// Mathematical formulation, for one coordinate pair (x, y) and angle
// values c = cos(m·θ_i), s = sin(m·θ_i) at position m:
//
//	x' = x*c - y*s
//	y' = y*c + x*s
//
// Two pairing conventions are supported:
//   - StyleNeoX pairs coordinate i with coordinate embedDim+i
//     (contiguous halves, used by GPT-NeoX, LLaMA, Mistral).
//   - StyleGPTJ pairs coordinate 2i with coordinate 2i+1
//     (interleaved, used by GPT-J).
//
// All buffers are owned by the caller. The kernel allocates nothing,
// mutates query and key in place, and reads positions and the angle
// cache without modifying them. No validation happens on the hot path:
// out-of-range positions or inconsistent strides corrupt the output
// instead of failing. Callers that want precondition checking run
// CheckParams first.
package rope

import (
	"github.com/lywa1998/rotary/internal/parallel"
)

// Style selects the coordinate pairing convention, fixed per invocation.
type Style int

// Supported pairing conventions.
const (
	// StyleNeoX pairs coordinate i with coordinate embedDim+i within a head.
	StyleNeoX Style = iota
	// StyleGPTJ pairs coordinate 2i with coordinate 2i+1 within a head.
	StyleGPTJ
)

// String returns a human-readable style name.
func (s Style) String() string {
	switch s {
	case StyleNeoX:
		return "neox"
	case StyleGPTJ:
		return "gptj"
	default:
		return "unknown"
	}
}

// Native is the constraint for element types whose Go arithmetic matches
// the buffer encoding. The integer types act as bit-compatible stand-ins
// for quantized or exotic encodings and rotate with wrapping integer
// arithmetic; the 16-bit floating encodings are not Native because their
// uint16 container is storage only (see ApplyFloat16 and ApplyBFloat16).
type Native interface {
	~int8 | ~uint8 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

// Params describes one kernel invocation. The angle cache is a table of
// MaxPosition rows, each RotDim wide, holding cosine values in the first
// half of the row and sine values in the second half. Query and key are
// addressed with a caller-chosen per-token stride (flat token-indexed
// and batch×sequence layouts both collapse to one) and a fixed per-head
// stride equal to HeadSize.
type Params struct {
	RotDim      int   // Rotated coordinates per head; even, <= HeadSize.
	HeadSize    int   // Coordinates per head.
	NumHeads    int   // Query heads per token.
	NumKVHeads  int   // Key heads per token; may be smaller than NumHeads.
	QueryStride int   // Elements between consecutive tokens in the query buffer.
	KeyStride   int   // Elements between consecutive tokens in the key buffer.
	Style       Style // Coordinate pairing convention.
}

// Config controls the parallel decomposition of one invocation.
type Config = parallel.Config

// DefaultConfig returns the decomposition used when none is given.
func DefaultConfig() Config {
	return parallel.DefaultConfig()
}

// Apply rotates query and key in place for the Native element type T.
//
// positions holds one cache row index per token; query and key hold
// len(positions) tokens at their respective strides; cache holds at
// least max(positions)+1 rows of RotDim values each. Preconditions are
// caller-guaranteed, not checked; see CheckParams.
func Apply[T Native](p Params, positions []int64, query, key, cache []T) {
	ApplyWithConfig[T](p, DefaultConfig(), positions, query, key, cache)
}

// ApplyWithConfig is Apply with explicit control over the parallel
// decomposition. The result is identical for any configuration: every
// work item reads and writes a disjoint coordinate pair, so execution
// order does not matter.
func ApplyWithConfig[T Native](p Params, cfg Config, positions []int64, query, key, cache []T) {
	apply[T, nativeArith[T]](nativeArith[T]{}, p, cfg, positions, query, key, cache)
}

// apply is the single generic kernel behind every typed entry point.
// Tokens form the outer parallel dimension; the head×pair work items
// within a token form the inner one, optionally spread across a strided
// worker group (cfg.GroupSize).
func apply[T any, A arith[T]](a A, p Params, cfg parallel.Config, positions []int64, query, key, cache []T) {
	embedDim := p.RotDim / 2

	parallel.For(len(positions), func(token int) {
		row := int(positions[token]) * p.RotDim
		cos := cache[row : row+embedDim]
		sin := cache[row+embedDim : row+p.RotDim]

		rotateToken(a, p.Style, query[token*p.QueryStride:], p.NumHeads, p.HeadSize, embedDim, cos, sin, cfg.GroupSize)
		rotateToken(a, p.Style, key[token*p.KeyStride:], p.NumKVHeads, p.HeadSize, embedDim, cos, sin, cfg.GroupSize)
	}, cfg)
}

// rotateToken applies the rotation to every (head, pair) work item of one
// token in one buffer. Work items are independent; with group > 1 they
// are spread across a strided worker group, matching the accelerator
// execution shape this kernel was designed for.
func rotateToken[T any, A arith[T]](a A, style Style, buf []T, numHeads, headSize, embedDim int, cos, sin []T, group int) {
	n := numHeads * embedDim
	if group > 1 {
		parallel.Strided(n, group, func(k int) {
			rotatePair(a, style, buf[(k/embedDim)*headSize:], k%embedDim, embedDim, cos, sin)
		})
		return
	}
	for k := 0; k < n; k++ {
		rotatePair(a, style, buf[(k/embedDim)*headSize:], k%embedDim, embedDim, cos, sin)
	}
}

// rotatePair rotates the coordinate pair at sub-index off within one
// head. Both reads complete before either write; the two indices are
// always distinct, so there is no aliasing hazard.
func rotatePair[T any, A arith[T]](a A, style Style, head []T, off, embedDim int, cos, sin []T) {
	var xi, yi int
	if style == StyleGPTJ {
		xi, yi = 2*off, 2*off+1
	} else {
		xi, yi = off, embedDim+off
	}

	x, y := head[xi], head[yi]
	head[xi], head[yi] = a.rotate(x, y, cos[off], sin[off])
}
