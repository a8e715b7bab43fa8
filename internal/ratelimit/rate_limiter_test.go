package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsBurst(t *testing.T) {
	rl := NewRateLimiter(3, time.Hour)

	start := time.Now()
	for i := 0; i < 3; i++ {
		rl.Wait()
	}
	require.Less(t, time.Since(start), 100*time.Millisecond, "tokens within the burst must not block")
	require.Zero(t, rl.tokens)
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(1, 50*time.Millisecond)

	start := time.Now()
	rl.Wait()
	rl.Wait()
	// The second token only exists after one refill interval.
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestRateLimiterCapsAtMax(t *testing.T) {
	rl := NewRateLimiter(2, time.Nanosecond)
	time.Sleep(time.Millisecond)

	rl.mu.Lock()
	rl.refill()
	tokens := rl.tokens
	rl.mu.Unlock()
	require.Equal(t, 2, tokens)
}
