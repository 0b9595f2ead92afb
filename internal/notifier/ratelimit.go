package notifier

import (
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds notification rate limit settings.
type RateLimitConfig struct {
	// PerMinute is the sustained notification rate (default: 10).
	PerMinute int
	// Burst is the short-term burst allowance (default: PerMinute).
	Burst int
	// Enabled toggles limiting; disabled means every send is allowed.
	Enabled bool
}

// DefaultRateLimitConfig returns the default rate limit settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		PerMinute: 10,
		Enabled:   true,
	}
}

// RateLimiter is a token bucket over notification sends.
type RateLimiter struct {
	limiter *rate.Limiter
	enabled bool
}

// NewRateLimiter creates a rate limiter from the configuration.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.PerMinute
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.PerMinute)), cfg.Burst),
		enabled: cfg.Enabled,
	}
}

// Allow reports whether one more notification may be sent now.
func (r *RateLimiter) Allow() bool {
	if !r.enabled {
		return true
	}
	return r.limiter.Allow()
}
