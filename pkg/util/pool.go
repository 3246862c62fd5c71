package util

import "runtime"

// OptimalPoolSize returns the pool size used for CPU-bound parallel work.
//
// Formula: min(max(runtime.NumCPU() * 2, 4), 32). Tree-sitter parsing is
// CGO-heavy, so 2x cores keeps goroutines runnable while CGO calls block.
// The worker pool and the parser pools must use the same size, otherwise
// workers stall waiting for parsers.
func OptimalPoolSize() int {
	size := runtime.NumCPU() * 2
	if size < 4 {
		size = 4
	}
	if size > 32 {
		size = 32
	}
	return size
}

// PoolSizeWithOverride returns override when positive, otherwise the
// CPU-derived default. Used by tests and tuning flags.
func PoolSizeWithOverride(override int) int {
	if override > 0 {
		return override
	}
	return OptimalPoolSize()
}
