// Package main provides the rope-bench CLI for benchmarking and
// demonstrating rotary position embedding kernels.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "v0.1.0-dev"

func main() {
	root := &cobra.Command{
		Use:     "rope-bench",
		Short:   "Benchmark and demo rotary position embedding kernels",
		Version: version,
	}
	root.AddCommand(newBenchCommand())
	root.AddCommand(newDemoCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
