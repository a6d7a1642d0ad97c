package config

import "time"

// SyncConfig holds synchronization configuration
type SyncConfig struct {
	FetchTimeout   time.Duration
	SessionTimeout time.Duration
	LockTTL        time.Duration
	BatchConfig    BatchConfig
}

// BatchConfig holds write-back batch processing configuration
type BatchConfig struct {
	Size       int
	Workers    int
	MaxRetries int
	BatchDelay time.Duration
}

// DefaultSyncConfig returns the default sync configuration.
// Write-back is not retried inside a session; the next scheduled run is the retry.
func DefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		FetchTimeout:   2 * time.Minute,
		SessionTimeout: 30 * time.Minute,
		LockTTL:        time.Hour,
		BatchConfig: BatchConfig{
			Size:       100,
			Workers:    4,
			MaxRetries: 0,
			BatchDelay: 0,
		},
	}
}
