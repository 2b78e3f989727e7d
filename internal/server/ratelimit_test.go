package server

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(3, 0)
	for i := 0; i < 3; i++ {
		assert.NoError(t, rl.Check("client", 0))
	}
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	rl := NewRateLimiter(2, 0)
	require.NoError(t, rl.Check("client", 0))
	require.NoError(t, rl.Check("client", 0))

	err := rl.Check("client", 0)
	require.Error(t, err)

	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, "minute", rle.Type)
	assert.Equal(t, 2, rle.Limit)
	assert.Greater(t, rle.RetryAfter.Seconds(), 0.0)
}

func TestRateLimiterDataQuota(t *testing.T) {
	rl := NewRateLimiter(0, 100)
	require.NoError(t, rl.Check("client", 60))
	require.NoError(t, rl.Check("client", 40))

	err := rl.Check("client", 1)
	require.Error(t, err)

	var qee *QuotaExceededError
	require.ErrorAs(t, err, &qee)
	assert.Equal(t, "data", qee.Type)
	assert.Equal(t, int64(100), qee.Limit)
	assert.Equal(t, int64(100), qee.Used)
}

func TestRateLimiterRejectedRequestsNotCounted(t *testing.T) {
	rl := NewRateLimiter(0, 100)
	require.NoError(t, rl.Check("client", 100))
	require.Error(t, rl.Check("client", 50))

	// quota usage stays at 100; a zero-size request is still fine
	assert.Error(t, rl.Check("client", 1))
	assert.NoError(t, rl.Check("client", 0))
}

func TestRateLimiterSeparatesClients(t *testing.T) {
	rl := NewRateLimiter(1, 0)
	require.NoError(t, rl.Check("a", 0))
	assert.Error(t, rl.Check("a", 0))
	assert.NoError(t, rl.Check("b", 0))
}

func TestRateLimiterZeroLimitsDisableChecks(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, rl.Check("client", 1<<20))
	}
}

func TestRateLimiterConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(1000, 0)
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				err := rl.Check("shared", 0)
				if err != nil {
					var rle *RateLimitError
					if !errors.As(err, &rle) {
						t.Error("unexpected error type")
					}
				}
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
