package util

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptimalPoolSizeBounds(t *testing.T) {
	size := OptimalPoolSize()
	assert.GreaterOrEqual(t, size, 4)
	assert.LessOrEqual(t, size, 32)

	if cores := runtime.NumCPU(); cores*2 >= 4 && cores*2 <= 32 {
		assert.Equal(t, cores*2, size)
	}
}

func TestPoolSizeWithOverride(t *testing.T) {
	assert.Equal(t, 7, PoolSizeWithOverride(7))
	assert.Equal(t, OptimalPoolSize(), PoolSizeWithOverride(0))
	assert.Equal(t, OptimalPoolSize(), PoolSizeWithOverride(-1))
}
