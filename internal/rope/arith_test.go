package rope

import (
	"encoding/binary"
	"math"
	"math/rand"
	"testing"

	"github.com/d4l3k/go-bfloat16"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func toFloat16Bits(xs []float32) []uint16 {
	out := make([]uint16, len(xs))
	for i, x := range xs {
		out[i] = float16.Fromfloat32(x).Bits()
	}
	return out
}

func fromFloat16Bits(xs []uint16) []float32 {
	out := make([]float32, len(xs))
	for i, x := range xs {
		out[i] = float16.Frombits(x).Float32()
	}
	return out
}

// toBFloat16Bits and fromBFloat16Bits round-trip through the bulk
// encoder the model loaders use.
func toBFloat16Bits(xs []float32) []uint16 {
	raw := bfloat16.EncodeFloat32(xs)
	out := make([]uint16, len(xs))
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(raw[2*i:])
	}
	return out
}

func fromBFloat16Bits(xs []uint16) []float32 {
	raw := make([]byte, 2*len(xs))
	for i, x := range xs {
		binary.LittleEndian.PutUint16(raw[2*i:], x)
	}
	return bfloat16.DecodeFloat32(raw)
}

func TestApplyFloat16_MatchesFloat32(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	for _, style := range []Style{StyleNeoX, StyleGPTJ} {
		p := Params{
			RotDim:      16,
			HeadSize:    16,
			NumHeads:    2,
			NumKVHeads:  1,
			QueryStride: 32,
			KeyStride:   16,
			Style:       style,
		}
		numTokens := 6
		cache32 := buildCache(numTokens, p.RotDim, 10000)
		positions := []int64{0, 1, 2, 3, 4, 5}
		query32 := randSlice(rng, numTokens*p.QueryStride)
		key32 := randSlice(rng, numTokens*p.KeyStride)

		// Half-precision run on the rounded copies of the same inputs.
		query16 := toFloat16Bits(query32)
		key16 := toFloat16Bits(key32)
		cache16 := toFloat16Bits(cache32)
		ApplyFloat16(p, positions, query16, key16, cache16)

		// Float32 reference on the same rounded values.
		refQ := fromFloat16Bits(toFloat16Bits(query32))
		refK := fromFloat16Bits(toFloat16Bits(key32))
		refCache := fromFloat16Bits(cache16)
		Apply(p, positions, refQ, refK, refCache)

		gotQ := fromFloat16Bits(query16)
		gotK := fromFloat16Bits(key16)
		for i := range refQ {
			assert.InDeltaf(t, refQ[i], gotQ[i], 2e-3, "style %v query[%d]", style, i)
		}
		for i := range refK {
			assert.InDeltaf(t, refK[i], gotK[i], 2e-3, "style %v key[%d]", style, i)
		}
	}
}

func TestApplyFloat16_PassthroughBitwise(t *testing.T) {
	p := Params{
		RotDim:      4,
		HeadSize:    8,
		NumHeads:    1,
		NumKVHeads:  1,
		QueryStride: 8,
		KeyStride:   8,
		Style:       StyleNeoX,
	}
	// Identity row in half precision: cos=1.0 (0x3C00), sin=0.
	cache := []uint16{0x3C00, 0x3C00, 0, 0}

	// Arbitrary bit patterns past RotDim must survive untouched,
	// including ones that are not canonical float16 values.
	query := []uint16{0x3C00, 0x4000, 0x4200, 0x4400, 0xDEAD, 0xBEEF, 0x7FFF, 0x0001}
	key := append([]uint16(nil), query...)
	want := append([]uint16(nil), query...)

	ApplyFloat16(p, []int64{0}, query, key, cache)

	assert.Equal(t, want, query, "identity rotation plus passthrough must be bit-exact")
	assert.Equal(t, want, key)
}

func TestApplyBFloat16_MatchesFloat32(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	p := Params{
		RotDim:      16,
		HeadSize:    16,
		NumHeads:    2,
		NumKVHeads:  2,
		QueryStride: 32,
		KeyStride:   32,
		Style:       StyleNeoX,
	}
	numTokens := 6
	cache32 := buildCache(numTokens, p.RotDim, 10000)
	positions := []int64{0, 1, 2, 3, 4, 5}
	query32 := randSlice(rng, numTokens*p.QueryStride)
	key32 := randSlice(rng, numTokens*p.KeyStride)

	queryBF := toBFloat16Bits(query32)
	keyBF := toBFloat16Bits(key32)
	cacheBF := toBFloat16Bits(cache32)
	require.Len(t, cacheBF, len(cache32))

	ApplyBFloat16(p, positions, queryBF, keyBF, cacheBF)

	// Reference run in float32 on the bfloat16-rounded inputs. bfloat16
	// keeps only 8 mantissa bits, so the tolerance is coarse.
	refQ := fromBFloat16Bits(toBFloat16Bits(query32))
	refK := fromBFloat16Bits(toBFloat16Bits(key32))
	refCache := fromBFloat16Bits(cacheBF)
	Apply(p, positions, refQ, refK, refCache)

	gotQ := fromBFloat16Bits(queryBF)
	gotK := fromBFloat16Bits(keyBF)
	for i := range refQ {
		assert.InDeltaf(t, refQ[i], gotQ[i], 2e-2, "query[%d]", i)
	}
	for i := range refK {
		assert.InDeltaf(t, refK[i], gotK[i], 2e-2, "key[%d]", i)
	}
}

func TestBFloat16Conversion(t *testing.T) {
	// Widening is exact; narrowing of exactly representable values must
	// restore the original bits.
	for _, bits := range []uint16{0x0000, 0x3F80, 0xBF80, 0x4049, 0x7F80, 0x0080} {
		f := bf16ToFloat32(bits)
		assert.Equalf(t, bits, bf16FromFloat32(f), "round trip of 0x%04X", bits)
	}

	// Round to nearest even on ties.
	assert.Equal(t, float32(1.0), bf16ToFloat32(bf16FromFloat32(1.001953125))) // halfway, rounds to even
	assert.Equal(t, uint16(0x3F81), bf16FromFloat32(1.0078125))                // exactly one ulp above 1.0
}

func TestFloat16Arith_EnergyPreservation(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	for i := 0; i < 200; i++ {
		angle := rng.Float64() * 2 * math.Pi
		c := float16.Fromfloat32(float32(math.Cos(angle))).Bits()
		s := float16.Fromfloat32(float32(math.Sin(angle))).Bits()
		x := float16.Fromfloat32(rng.Float32()*2 - 1).Bits()
		y := float16.Fromfloat32(rng.Float32()*2 - 1).Bits()

		x2, y2 := halfArith{}.rotate(x, y, c, s)

		before := sq(float16.Frombits(x).Float32()) + sq(float16.Frombits(y).Float32())
		after := sq(float16.Frombits(x2).Float32()) + sq(float16.Frombits(y2).Float32())
		assert.InDelta(t, before, after, 2e-2)
	}
}

func sq(x float32) float64 {
	return float64(x) * float64(x)
}
