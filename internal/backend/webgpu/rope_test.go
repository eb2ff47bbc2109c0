//go:build windows

package webgpu

import (
	"math"
	"math/rand"
	"testing"

	"github.com/lywa1998/rotary/internal/rope"
)

func TestNew(t *testing.T) {
	backend, err := New()
	if err != nil {
		t.Logf("WebGPU not available: %v", err)
		t.Skip("WebGPU not available on this system")
	}
	defer backend.Release()
}

func TestApply_MatchesCPU(t *testing.T) {
	backend, err := New()
	if err != nil {
		t.Skip("WebGPU not available on this system")
	}
	defer backend.Release()

	rng := rand.New(rand.NewSource(20))
	for _, style := range []rope.Style{rope.StyleNeoX, rope.StyleGPTJ} {
		p := rope.Params{
			RotDim:      64,
			HeadSize:    80, // partial rotary
			NumHeads:    4,
			NumKVHeads:  2,
			QueryStride: 4 * 80,
			KeyStride:   2 * 80,
			Style:       style,
		}
		numTokens := 17
		positions := make([]int64, numTokens)
		for i := range positions {
			positions[i] = int64(rng.Intn(numTokens))
		}
		cache := buildCache(numTokens, p.RotDim)
		query := randSlice(rng, numTokens*p.QueryStride)
		key := randSlice(rng, numTokens*p.KeyStride)

		cpuQ := append([]float32(nil), query...)
		cpuK := append([]float32(nil), key...)
		rope.Apply(p, positions, cpuQ, cpuK, cache)

		if err := backend.Apply(p, positions, query, key, cache); err != nil {
			t.Fatalf("style %v: gpu apply: %v", style, err)
		}

		// GPU f32 arithmetic must agree with the CPU kernel to 1 ulp.
		for i := range cpuQ {
			if ulpDiff(cpuQ[i], query[i]) > 1 {
				t.Errorf("style %v: query[%d] = %v, cpu %v", style, i, query[i], cpuQ[i])
			}
		}
		for i := range cpuK {
			if ulpDiff(cpuK[i], key[i]) > 1 {
				t.Errorf("style %v: key[%d] = %v, cpu %v", style, i, key[i], cpuK[i])
			}
		}
	}
}

func TestApply_RejectsBadParams(t *testing.T) {
	backend, err := New()
	if err != nil {
		t.Skip("WebGPU not available on this system")
	}
	defer backend.Release()

	p := rope.Params{RotDim: 7, HeadSize: 8, NumHeads: 1, NumKVHeads: 1, QueryStride: 8, KeyStride: 8}
	err = backend.Apply(p, []int64{0}, make([]float32, 8), make([]float32, 8), make([]float32, 8))
	if err == nil {
		t.Error("expected error for odd RotDim")
	}
}

func buildCache(maxPos, rotDim int) []float32 {
	embedDim := rotDim / 2
	cache := make([]float32, maxPos*rotDim)
	for pos := 0; pos < maxPos; pos++ {
		row := pos * rotDim
		for i := 0; i < embedDim; i++ {
			angle := float64(pos) * math.Pow(10000, -2.0*float64(i)/float64(rotDim))
			cache[row+i] = float32(math.Cos(angle))
			cache[row+embedDim+i] = float32(math.Sin(angle))
		}
	}
	return cache
}

func randSlice(rng *rand.Rand, n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = rng.Float32()*2 - 1
	}
	return s
}

func ulpDiff(a, b float32) uint32 {
	ua, ub := math.Float32bits(a), math.Float32bits(b)
	if ua == ub {
		return 0
	}
	if (ua^ub)&0x80000000 != 0 {
		// Opposite signs: only equal-magnitude zeros are close.
		return math.MaxUint32
	}
	if ua > ub {
		return ua - ub
	}
	return ub - ua
}
