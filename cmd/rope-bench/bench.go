package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/d4l3k/go-bfloat16"
	"github.com/spf13/cobra"
	"github.com/x448/float16"

	"github.com/lywa1998/rotary/rope"
)

type benchOptions struct {
	tokens   int
	heads    int
	kvHeads  int
	headSize int
	rotDim   int
	style    string
	dtype    string
	iters    int
	parallel bool
}

func newBenchCommand() *cobra.Command {
	opts := benchOptions{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark the rotation kernel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(opts)
		},
	}
	cmd.Flags().IntVar(&opts.tokens, "tokens", 4096, "number of tokens per batch")
	cmd.Flags().IntVar(&opts.heads, "heads", 32, "number of query heads")
	cmd.Flags().IntVar(&opts.kvHeads, "kv-heads", 8, "number of key/value heads")
	cmd.Flags().IntVar(&opts.headSize, "head-size", 128, "elements per head")
	cmd.Flags().IntVar(&opts.rotDim, "rot-dim", 128, "rotated dimensions per head")
	cmd.Flags().StringVar(&opts.style, "style", "neox", "rotation layout: neox or gptj")
	cmd.Flags().StringVar(&opts.dtype, "dtype", "f32", "element type: f32, f64, f16, bf16")
	cmd.Flags().IntVar(&opts.iters, "iters", 50, "benchmark iterations")
	cmd.Flags().BoolVar(&opts.parallel, "parallel", true, "dispatch tokens across workers")
	return cmd
}

func runBench(opts benchOptions) error {
	style, err := parseStyle(opts.style)
	if err != nil {
		return err
	}
	p := rope.Params{
		RotDim:      opts.rotDim,
		HeadSize:    opts.headSize,
		NumHeads:    opts.heads,
		NumKVHeads:  opts.kvHeads,
		QueryStride: opts.heads * opts.headSize,
		KeyStride:   opts.kvHeads * opts.headSize,
		Style:       style,
	}

	positions := make([]int64, opts.tokens)
	for i := range positions {
		positions[i] = int64(i)
	}
	cache := buildCosSinCache(opts.tokens, opts.rotDim, 10000)

	cfg := rope.DefaultConfig()
	cfg.Enabled = opts.parallel

	var run func() error
	switch opts.dtype {
	case "f32":
		query := randFloats(opts.tokens * p.QueryStride)
		key := randFloats(opts.tokens * p.KeyStride)
		if err := rope.CheckParams(p, positions, len(query), len(key), len(cache)); err != nil {
			return err
		}
		run = func() error {
			rope.ApplyWithConfig(p, cfg, positions, query, key, cache)
			return nil
		}
	case "f64":
		query := widen(randFloats(opts.tokens * p.QueryStride))
		key := widen(randFloats(opts.tokens * p.KeyStride))
		cache64 := widen(cache)
		if err := rope.CheckParams(p, positions, len(query), len(key), len(cache64)); err != nil {
			return err
		}
		run = func() error {
			rope.ApplyWithConfig(p, cfg, positions, query, key, cache64)
			return nil
		}
	case "f16":
		query := toFloat16(randFloats(opts.tokens * p.QueryStride))
		key := toFloat16(randFloats(opts.tokens * p.KeyStride))
		cache16 := toFloat16(cache)
		if err := rope.CheckParams(p, positions, len(query), len(key), len(cache16)); err != nil {
			return err
		}
		run = func() error {
			rope.ApplyFloat16WithConfig(p, cfg, positions, query, key, cache16)
			return nil
		}
	case "bf16":
		query := toBFloat16(randFloats(opts.tokens * p.QueryStride))
		key := toBFloat16(randFloats(opts.tokens * p.KeyStride))
		cache16 := toBFloat16(cache)
		if err := rope.CheckParams(p, positions, len(query), len(key), len(cache16)); err != nil {
			return err
		}
		run = func() error {
			rope.ApplyBFloat16WithConfig(p, cfg, positions, query, key, cache16)
			return nil
		}
	default:
		return fmt.Errorf("unknown dtype %q (want f32, f64, f16, bf16)", opts.dtype)
	}

	// Warmup pass before timing.
	if err := run(); err != nil {
		return err
	}

	start := time.Now()
	for i := 0; i < opts.iters; i++ {
		if err := run(); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	perIter := elapsed / time.Duration(opts.iters)
	tokensPerSec := float64(opts.tokens) / perIter.Seconds()
	fmt.Printf("dtype=%s style=%s tokens=%d heads=%d/%d head_size=%d rot_dim=%d parallel=%v\n",
		opts.dtype, style, opts.tokens, opts.heads, opts.kvHeads, opts.headSize, opts.rotDim, opts.parallel)
	fmt.Printf("  %v/iter over %d iters, %.0f tokens/sec\n", perIter, opts.iters, tokensPerSec)
	return nil
}

func parseStyle(s string) (rope.Style, error) {
	switch s {
	case "neox":
		return rope.StyleNeoX, nil
	case "gptj":
		return rope.StyleGPTJ, nil
	}
	return 0, fmt.Errorf("unknown style %q (want neox or gptj)", s)
}

// buildCosSinCache precomputes cos/sin rows for positions [0, maxPos).
// Each row holds rotDim values: cos in the first half, sin in the second,
// using inverse frequencies theta^(-2i/rotDim).
func buildCosSinCache(maxPos, rotDim int, theta float64) []float32 {
	embedDim := rotDim / 2
	cache := make([]float32, maxPos*rotDim)
	for pos := 0; pos < maxPos; pos++ {
		row := pos * rotDim
		for i := 0; i < embedDim; i++ {
			angle := float64(pos) * math.Pow(theta, -2.0*float64(i)/float64(rotDim))
			cache[row+i] = float32(math.Cos(angle))
			cache[row+embedDim+i] = float32(math.Sin(angle))
		}
	}
	return cache
}

func randFloats(n int) []float32 {
	rng := rand.New(rand.NewSource(42))
	s := make([]float32, n)
	for i := range s {
		s[i] = rng.Float32()*2 - 1
	}
	return s
}

func widen(xs []float32) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}

func toFloat16(xs []float32) []uint16 {
	out := make([]uint16, len(xs))
	for i, x := range xs {
		out[i] = float16.Fromfloat32(x).Bits()
	}
	return out
}

func toBFloat16(xs []float32) []uint16 {
	raw := bfloat16.EncodeFloat32(xs)
	out := make([]uint16, len(xs))
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(raw[2*i:])
	}
	return out
}
