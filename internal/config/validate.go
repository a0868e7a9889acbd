package config

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/tonimelisma/internxt-backup/internal/engineerr"
)

// Validate checks every field of cfg and accumulates every violation found
// rather than stopping at the first. Any violation is surfaced as a single
// engineerr.ValidationError wrapping the combined message.
func Validate(cfg *Config) error {
	var errs error

	if cfg.Cores != 0 && (cfg.Cores < defaultMinCores || cfg.Cores > defaultMaxCores) {
		errs = multierr.Append(errs, fmt.Errorf("cores: must be between %d and %d, got %d",
			defaultMinCores, defaultMaxCores, cfg.Cores))
	}

	if cfg.ChunkSizeMiB < defaultMinChunkMiB || cfg.ChunkSizeMiB > defaultMaxChunkMiB {
		errs = multierr.Append(errs, fmt.Errorf("chunk-size: must be between %d and %d MiB, got %d",
			defaultMinChunkMiB, defaultMaxChunkMiB, cfg.ChunkSizeMiB))
	}

	if cfg.Daemon && cfg.Schedule == "" {
		errs = multierr.Append(errs, fmt.Errorf("daemon mode requires --schedule"))
	}

	if errs != nil {
		return &engineerr.ValidationError{Message: errs.Error()}
	}

	return nil
}
