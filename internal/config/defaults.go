package config

import "time"

// Default values for configuration options. These represent the baseline
// the optional TOML config file and CLI flags layer on top of.
const (
	defaultChunkSizeMiB     = 50
	defaultMaxRetryAttempts = 3
	defaultRetryBaseDelayMS = 1000
	defaultRetryMaxDelayMS  = 10000
	defaultMinCores         = 1
	defaultMaxCores         = 64
	defaultMinChunkMiB      = 1
	defaultMaxChunkMiB      = 1024
)

// DefaultRetryBaseDelay and DefaultRetryMaxDelay are exposed as durations
// for components that want them pre-converted.
const (
	DefaultRetryBaseDelay = defaultRetryBaseDelayMS * time.Millisecond
	DefaultRetryMaxDelay  = defaultRetryMaxDelayMS * time.Millisecond
)

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		ChunkSizeMiB:   defaultChunkSizeMiB,
		MaxRetries:     defaultMaxRetryAttempts,
		RetryBaseDelay: DefaultRetryBaseDelay,
		RetryMaxDelay:  DefaultRetryMaxDelay,
	}
}
