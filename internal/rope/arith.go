package rope

import (
	"math"

	"github.com/x448/float16"
)

// arith supplies the rotation arithmetic for one element encoding. The
// storage type and the arithmetic domain are deliberately separate: the
// 16-bit floating encodings travel through uint16 containers but must
// not be rotated with raw integer arithmetic. Implementations are
// zero-size structs so the generic kernel devirtualizes them.
type arith[T any] interface {
	// rotate returns (x*c - y*s, y*c + x*s) with the semantics of the
	// element encoding.
	rotate(x, y, c, s T) (T, T)
}

// nativeArith rotates with Go's own arithmetic for T. Integer types wrap.
type nativeArith[T Native] struct{}

func (nativeArith[T]) rotate(x, y, c, s T) (T, T) {
	return x*c - y*s, y*c + x*s
}

// halfArith rotates IEEE binary16 values carried in uint16 containers.
// Operands widen to float32, the rotation is computed there, and each
// result rounds once on the way back to half precision.
type halfArith struct{}

func (halfArith) rotate(x, y, c, s uint16) (uint16, uint16) {
	xf := float16.Frombits(x).Float32()
	yf := float16.Frombits(y).Float32()
	cf := float16.Frombits(c).Float32()
	sf := float16.Frombits(s).Float32()
	return float16.Fromfloat32(xf*cf - yf*sf).Bits(),
		float16.Fromfloat32(yf*cf + xf*sf).Bits()
}

// bfloatArith rotates bfloat16 values carried in uint16 containers.
// Widening is exact (bfloat16 is the high half of a float32); narrowing
// rounds to nearest even.
type bfloatArith struct{}

func (bfloatArith) rotate(x, y, c, s uint16) (uint16, uint16) {
	xf, yf := bf16ToFloat32(x), bf16ToFloat32(y)
	cf, sf := bf16ToFloat32(c), bf16ToFloat32(s)
	return bf16FromFloat32(xf*cf - yf*sf), bf16FromFloat32(yf*cf + xf*sf)
}

func bf16ToFloat32(b uint16) float32 {
	return math.Float32frombits(uint32(b) << 16)
}

// bf16FromFloat32 narrows with round-to-nearest-even on the truncated
// 16 bits.
func bf16FromFloat32(v float32) uint16 {
	u := math.Float32bits(v)
	rnd := uint32(0x7FFF + ((u >> 16) & 1))
	return uint16((u + rnd) >> 16)
}

// ApplyFloat16 rotates query and key holding IEEE binary16 elements in
// uint16 containers; the angle cache uses the same encoding. Semantics
// otherwise match Apply.
func ApplyFloat16(p Params, positions []int64, query, key, cache []uint16) {
	ApplyFloat16WithConfig(p, DefaultConfig(), positions, query, key, cache)
}

// ApplyFloat16WithConfig is ApplyFloat16 with explicit parallelism control.
func ApplyFloat16WithConfig(p Params, cfg Config, positions []int64, query, key, cache []uint16) {
	apply[uint16, halfArith](halfArith{}, p, cfg, positions, query, key, cache)
}

// ApplyBFloat16 rotates query and key holding bfloat16 elements in
// uint16 containers; the angle cache uses the same encoding. Semantics
// otherwise match Apply.
func ApplyBFloat16(p Params, positions []int64, query, key, cache []uint16) {
	ApplyBFloat16WithConfig(p, DefaultConfig(), positions, query, key, cache)
}

// ApplyBFloat16WithConfig is ApplyBFloat16 with explicit parallelism control.
func ApplyBFloat16WithConfig(p Params, cfg Config, positions []int64, query, key, cache []uint16) {
	apply[uint16, bfloatArith](bfloatArith{}, p, cfg, positions, query, key, cache)
}
