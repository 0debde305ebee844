// Package parallel provides the goroutine fan-out used by the CPU kernels.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 4,
	}
}

// Sequential returns a Config that runs everything on the calling goroutine.
func Sequential() Config {
	return Config{NumWorkers: 1, MinChunkSize: 1}
}

// ForRange splits [0, n) into contiguous chunks and calls f(start, end) for each,
// concurrently when cfg allows it. It returns once every chunk has finished.
// Chunks never overlap, so f may write to disjoint per-index outputs without locks.
func ForRange(n int, f func(start, end int), cfg Config) {
	if n <= 0 {
		return
	}
	workers := max(cfg.NumWorkers, 1)
	minChunk := max(cfg.MinChunkSize, 1)
	if !cfg.Enabled || workers == 1 || n < 2*minChunk {
		f(0, n)
		return
	}

	chunkSize := max((n+workers-1)/workers, minChunk)

	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		g.Go(func() error {
			f(start, end)
			return nil
		})
	}
	_ = g.Wait() // workers never fail
}

// For executes f(i) for i in [0, n) with optional parallelism.
func For(n int, f func(i int), cfg Config) {
	ForRange(n, func(start, end int) {
		for i := start; i < end; i++ {
			f(i)
		}
	}, cfg)
}
