// Package retry holds the delivery retry policy: bounded exponential backoff
// with a fixed attempt budget.
package retry

import "time"

const (
	DefaultMaxAttempts = 5
	DefaultBaseBackoff = 30 * time.Second
	DefaultMaxBackoff  = 3600 * time.Second
)

// Policy computes the wait before a failed delivery becomes claimable again.
type Policy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseBackoff: DefaultBaseBackoff,
		MaxBackoff:  DefaultMaxBackoff,
	}
}

// Normalize fills zero or negative fields with defaults.
func (p Policy) Normalize() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseBackoff <= 0 {
		p.BaseBackoff = DefaultBaseBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = DefaultMaxBackoff
	}
	return p
}

// Backoff returns min(2^attempt * base, max) for attempt >= 1. It is pure and
// monotonically non-decreasing in attempt, constant once the cap is reached.
func (p Policy) Backoff(attempt int) time.Duration {
	p = p.Normalize()
	if attempt < 1 {
		attempt = 1
	}

	delay := p.BaseBackoff
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return delay
}

// Exhausted reports whether a job that has already used attemptCount claims
// has no retry budget left.
func (p Policy) Exhausted(attemptCount int) bool {
	return attemptCount >= p.Normalize().MaxAttempts
}
