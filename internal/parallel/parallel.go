// Package parallel provides the data-parallel execution utilities used by
// the rotary kernel dispatch.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled    bool // Whether parallel execution is enabled.
	NumWorkers int  // Number of worker goroutines for the outer (token) loop.
	MinTokens  int  // Minimum tokens per invocation before goroutines are spawned.
	GroupSize  int  // Workers per token group; 0 or 1 keeps a token's work on one worker.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:    n > 1,
		NumWorkers: n,
		MinTokens:  16,
		GroupSize:  1,
	}
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is
// too small to amortize goroutine overhead. Every index is handled by
// exactly one worker; For returns only after all workers complete.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || n < cfg.MinTokens || cfg.NumWorkers < 2 {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := (n + cfg.NumWorkers - 1) / cfg.NumWorkers

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// Strided executes f(k) for k in [0, n) across a fixed-size worker group
// using strided assignment: worker w handles k = w, w+workers, w+2*workers,
// and so on. Work items must touch disjoint memory; Strided provides the
// completion barrier and nothing else. workers <= 1 runs sequentially.
func Strided(n, workers int, f func(k int)) {
	if workers <= 1 || n <= 1 {
		for k := 0; k < n; k++ {
			f(k)
		}
		return
	}
	if workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for k := w; k < n; k += workers {
				f(k)
			}
		}(w)
	}
	wg.Wait()
}
