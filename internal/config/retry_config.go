package config

import "time"

// DLQConfig holds dead-letter-queue housekeeping configuration. The retry
// delay schedule itself is fixed (domain.RetryDelaySchedule); this only
// tunes how long DLQ entries are kept and how often they are swept.
type DLQConfig struct {
	MaxAge          time.Duration
	CleanupInterval time.Duration
}

// GetDLQConfig returns the DLQ housekeeping configuration.
func (c Config) GetDLQConfig() DLQConfig {
	return DLQConfig{
		MaxAge:          c.DLQMaxAge,
		CleanupInterval: c.DLQCleanupInterval,
	}
}
