package config

import "time"

// SourceConfig holds settings shared by the connectors to P6 and EBS
type SourceConfig struct {
	Retry    RetryConfig
	Breaker  BreakerConfig
	CacheTTL time.Duration
}

// RetryConfig holds backoff configuration for gateway writes
type RetryConfig struct {
	MaxRetries      int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	RetryMultiplier float64
}

// BreakerConfig holds circuit breaker configuration
type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// DefaultSourceConfig returns the default connector configuration
func DefaultSourceConfig() *SourceConfig {
	return &SourceConfig{
		Retry: RetryConfig{
			MaxRetries:      3,
			InitialBackoff:  time.Second,
			MaxBackoff:      time.Minute,
			RetryMultiplier: 2.0,
		},
		Breaker: BreakerConfig{
			MaxRequests:         1,
			Interval:            time.Minute,
			Timeout:             30 * time.Second,
			ConsecutiveFailures: 5,
		},
		CacheTTL: 30 * time.Minute,
	}
}
