package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func succeed() ([]byte, error) { return []byte("ok"), nil }

func fail() ([]byte, error) { return nil, errors.New("server down") }

func TestCircuitBreakerClosed(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{})

	data, err := cb.Execute(context.Background(), succeed)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, "closed", cb.State())
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(ctx, fail)
		require.Error(t, err, "attempt %d", i+1)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}
	assert.Equal(t, "open", cb.State())

	called := false
	_, err := cb.Execute(ctx, func() ([]byte, error) {
		called = true
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called, "open circuit must not call through")
}

func TestCircuitBreakerHalfOpenRecovers(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{
		MaxFailures:          2,
		Timeout:              100 * time.Millisecond,
		HalfOpenMaxSuccesses: 2,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = cb.Execute(ctx, fail)
	}
	require.Equal(t, "open", cb.State())

	assert.Eventually(t, func() bool { return cb.State() == "half-open" },
		2*time.Second, 25*time.Millisecond)

	_, err := cb.Execute(ctx, succeed)
	require.NoError(t, err)
	_, err = cb.Execute(ctx, succeed)
	require.NoError(t, err)
	assert.Equal(t, "closed", cb.State())
}

func TestCircuitBreakerStats(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{MaxFailures: 10})
	ctx := context.Background()

	_, _ = cb.Execute(ctx, succeed)
	_, _ = cb.Execute(ctx, fail)
	_, _ = cb.Execute(ctx, fail)

	stats := cb.Stats()
	assert.Equal(t, uint64(3), stats.TotalRequests)
	assert.Equal(t, uint64(1), stats.TotalSuccesses)
	assert.Equal(t, uint64(2), stats.TotalFailures)
	assert.Equal(t, uint32(2), stats.ConsecutiveFailures)
}
