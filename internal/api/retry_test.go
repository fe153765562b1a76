package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerOpensAtThreshold(t *testing.T) {
	cb := &circuitBreaker{threshold: 2}

	assert.False(t, cb.recordFailure())
	assert.False(t, cb.isOpen())
	assert.True(t, cb.recordFailure(), "opening failure reports the transition")
	assert.True(t, cb.isOpen())

	// Further failures while open are not new transitions.
	assert.False(t, cb.recordFailure())
}

func TestCircuitBreakerSuccessCloses(t *testing.T) {
	cb := &circuitBreaker{threshold: 3}
	cb.recordFailure()
	cb.recordFailure()
	cb.recordSuccess()

	assert.False(t, cb.isOpen())
	cb.mu.Lock()
	defer cb.mu.Unlock()
	assert.Equal(t, 0, cb.failures)
}

func TestCircuitBreakerHalfOpenTrialSucceeds(t *testing.T) {
	cb := &circuitBreaker{threshold: 1, resetTime: 15 * time.Millisecond}
	cb.recordFailure()
	require.True(t, cb.isOpen())

	time.Sleep(20 * time.Millisecond)

	// After the reset window one trial request goes through.
	assert.False(t, cb.isOpen())
	cb.mu.Lock()
	halfOpen := cb.halfOpen
	cb.mu.Unlock()
	require.True(t, halfOpen)

	cb.recordSuccess()
	assert.False(t, cb.isOpen())
	cb.mu.Lock()
	defer cb.mu.Unlock()
	assert.False(t, cb.open)
	assert.False(t, cb.halfOpen)
	assert.Equal(t, 0, cb.failures)
}

func TestCircuitBreakerHalfOpenTrialFailureReopens(t *testing.T) {
	cb := &circuitBreaker{threshold: 1, resetTime: 15 * time.Millisecond}
	cb.recordFailure()
	time.Sleep(20 * time.Millisecond)
	require.False(t, cb.isOpen(), "a trial request is allowed after the reset window")

	assert.True(t, cb.recordFailure(), "failed trial reopens the circuit")
	assert.True(t, cb.isOpen())
}

func TestCircuitBreakerReset(t *testing.T) {
	cb := &circuitBreaker{threshold: 1, resetTime: time.Hour}
	cb.recordFailure()
	require.True(t, cb.isOpen())

	cb.reset()

	assert.False(t, cb.isOpen())
	cb.mu.Lock()
	defer cb.mu.Unlock()
	assert.Equal(t, 0, cb.failures)
	assert.True(t, cb.lastFailure.IsZero())
}

func TestCircuitBreakerZeroValuesUseDefaults(t *testing.T) {
	cb := &circuitBreaker{}

	for i := 0; i < DefaultCircuitBreakerThreshold-1; i++ {
		cb.recordFailure()
	}
	assert.False(t, cb.isOpen())

	cb.recordFailure()
	assert.True(t, cb.isOpen())
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.Equal(t, DefaultMaxRateLimitRetries, cfg.MaxRateLimitRetries)
	assert.Equal(t, DefaultMax5xxRetries, cfg.Max5xxRetries)
	assert.Equal(t, DefaultRateLimitBaseDelay, cfg.RateLimitBaseDelay)
	assert.Equal(t, DefaultServerErrorRetryDelay, cfg.ServerErrorRetryDelay)
	assert.Equal(t, DefaultCircuitBreakerThreshold, cfg.CircuitBreakerThreshold)
	assert.Equal(t, DefaultCircuitBreakerResetTime, cfg.CircuitBreakerResetTime)
}

func TestDefaultRetryConfigFromEnv(t *testing.T) {
	t.Setenv("GDCHAT_MAX_RATE_LIMIT_RETRIES", "10")
	t.Setenv("GDCHAT_MAX_5XX_RETRIES", "5")
	t.Setenv("GDCHAT_RATE_LIMIT_DELAY", "2s")
	t.Setenv("GDCHAT_SERVER_ERROR_DELAY", "500ms")
	t.Setenv("GDCHAT_CIRCUIT_BREAKER_THRESHOLD", "3")
	t.Setenv("GDCHAT_CIRCUIT_BREAKER_RESET_TIME", "1m")

	cfg := DefaultRetryConfig()

	assert.Equal(t, 10, cfg.MaxRateLimitRetries)
	assert.Equal(t, 5, cfg.Max5xxRetries)
	assert.Equal(t, 2*time.Second, cfg.RateLimitBaseDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.ServerErrorRetryDelay)
	assert.Equal(t, 3, cfg.CircuitBreakerThreshold)
	assert.Equal(t, time.Minute, cfg.CircuitBreakerResetTime)
}

func TestDefaultRetryConfigIgnoresInvalidEnv(t *testing.T) {
	t.Setenv("GDCHAT_MAX_RATE_LIMIT_RETRIES", "not-a-number")
	t.Setenv("GDCHAT_RATE_LIMIT_DELAY", "invalid-duration")

	cfg := DefaultRetryConfig()

	assert.Equal(t, DefaultMaxRateLimitRetries, cfg.MaxRateLimitRetries)
	assert.Equal(t, DefaultRateLimitBaseDelay, cfg.RateLimitBaseDelay)
}
