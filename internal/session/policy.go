package session

import "time"

// ReconnectPolicy controls retry pacing when the realtime channel drops.
type ReconnectPolicy struct {
	// MaxAttempts is the number of backoff retries before the session
	// gives up and enters fallback.
	MaxAttempts int

	// InitialDelay is the backoff before the first retry.
	InitialDelay time.Duration

	// Factor multiplies the delay after each failed retry.
	Factor float64

	// MaxDelay caps the backoff. Zero means uncapped.
	MaxDelay time.Duration

	// ShowIndicators controls whether connection churn is surfaced to
	// the user. The customer widget runs with this off.
	ShowIndicators bool
}

// DefaultReconnectPolicy returns the widget defaults: five retries at
// 1s/2s/4s/8s/16s, fallback afterwards.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		MaxAttempts:  5,
		InitialDelay: time.Second,
		Factor:       2,
		MaxDelay:     30 * time.Second,
	}
}

// Delay returns the backoff before retry n (zero-based):
// InitialDelay * Factor^n, capped at MaxDelay.
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	factor := p.Factor
	if factor <= 0 {
		factor = 1
	}
	d := float64(p.InitialDelay)
	limit := float64(p.MaxDelay)
	for i := 0; i < attempt; i++ {
		d *= factor
		if p.MaxDelay > 0 && d >= limit {
			return p.MaxDelay
		}
	}
	out := time.Duration(d)
	if p.MaxDelay > 0 && out > p.MaxDelay {
		return p.MaxDelay
	}
	return out
}
