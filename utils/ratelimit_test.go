package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterIsPerKey(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiterBurstFloor(t *testing.T) {
	rl := NewRateLimiter(0.001, 0)
	assert.True(t, rl.Allow("k"))
	assert.False(t, rl.Allow("k"))
}
