package main

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	"github.com/spf13/cobra"

	"github.com/lywa1998/rotary/rope"
)

type demoOptions struct {
	prompt   string
	encoding string
	style    string
	headSize int
}

func newDemoCommand() *cobra.Command {
	opts := demoOptions{}
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Tokenize a prompt and rotate a toy query/key batch",
		Long: `Tokenizes the prompt with an OpenAI tiktoken encoding, then runs the
rotation kernel over one head per token so the position-dependent
transform is visible token by token.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(opts)
		},
	}
	cmd.Flags().StringVar(&opts.prompt, "prompt", "rotary position embeddings", "text to tokenize")
	cmd.Flags().StringVar(&opts.encoding, "encoding", "cl100k_base", "tiktoken encoding name")
	cmd.Flags().StringVar(&opts.style, "style", "neox", "rotation layout: neox or gptj")
	cmd.Flags().IntVar(&opts.headSize, "head-size", 8, "elements per head")
	return cmd
}

func runDemo(opts demoOptions) error {
	style, err := parseStyle(opts.style)
	if err != nil {
		return err
	}

	enc, err := tiktoken.GetEncoding(opts.encoding)
	if err != nil {
		return fmt.Errorf("load encoding %q: %w", opts.encoding, err)
	}
	ids := enc.Encode(opts.prompt, nil, nil)
	if len(ids) == 0 {
		return fmt.Errorf("prompt produced no tokens")
	}

	p := rope.Params{
		RotDim:      opts.headSize,
		HeadSize:    opts.headSize,
		NumHeads:    1,
		NumKVHeads:  1,
		QueryStride: opts.headSize,
		KeyStride:   opts.headSize,
		Style:       style,
	}

	positions := make([]int64, len(ids))
	for i := range positions {
		positions[i] = int64(i)
	}
	cache := buildCosSinCache(len(ids), p.RotDim, 10000)

	// Every token starts from the same vector so the rotation alone
	// accounts for the differences in the output.
	query := make([]float32, len(ids)*p.QueryStride)
	key := make([]float32, len(ids)*p.KeyStride)
	for t := range ids {
		for d := 0; d < opts.headSize; d++ {
			query[t*p.QueryStride+d] = 1
			key[t*p.KeyStride+d] = 1
		}
	}

	if err := rope.CheckParams(p, positions, len(query), len(key), len(cache)); err != nil {
		return err
	}
	rope.Apply(p, positions, query, key, cache)

	fmt.Printf("prompt: %q\n", opts.prompt)
	fmt.Printf("encoding: %s, %d tokens, style: %s\n\n", opts.encoding, len(ids), style)
	for t, id := range ids {
		row := query[t*p.QueryStride : t*p.QueryStride+opts.headSize]
		fmt.Printf("pos %3d  token %6d  q' = %v\n", t, id, truncFloats(row, 4))
	}
	return nil
}

func truncFloats(xs []float32, n int) []float32 {
	if len(xs) > n {
		xs = xs[:n]
	}
	out := make([]float32, len(xs))
	for i, x := range xs {
		out[i] = float32(int(x*1000)) / 1000
	}
	return out
}
