// Package config resolves the backup engine's settings from three layers,
// lowest priority first: built-in defaults, an optional TOML file, and CLI
// flags. CLI flags always win over the file, which always wins over
// defaults.
package config

import "time"

// Config holds fully resolved settings for a single run. Resolve starts from
// DefaultConfig, so ChunkSizeMiB, MaxRetries and the retry delays always hold
// a value afterwards; Cores, Target and Schedule stay zero unless a layer
// sets them.
type Config struct {
	// Cores is the transfer concurrency. Zero means "derive from CPU count".
	Cores int

	// ChunkSizeMiB is the resumable-upload chunk size in mebibytes.
	ChunkSizeMiB int

	// MaxRetries is ResumableUploader's retry ceiling.
	MaxRetries int

	// RetryBaseDelay and RetryMaxDelay parameterize the exponential backoff
	// min(base*2^attempt, max).
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// Resume enables the ResumableUploader path for large files.
	Resume bool

	// Force ignores change detection and re-uploads everything.
	Force bool

	// Quiet and Verbose control log verbosity; Quiet always wins when both
	// are set.
	Quiet   bool
	Verbose bool

	// Schedule is a cron expression; non-empty enables daemon mode together
	// with Daemon.
	Schedule string
	Daemon   bool

	// Target is the remote folder for backup, or local folder for restore.
	Target string

	// ScanConcurrency bounds parallel hashing during FileScanner's walk.
	// Zero means serial.
	ScanConcurrency int
}

// ChunkSizeBytes returns ChunkSizeMiB converted to bytes.
func (c *Config) ChunkSizeBytes() int64 {
	return int64(c.ChunkSizeMiB) * 1024 * 1024
}
