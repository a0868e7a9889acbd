package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig is the shape of the optional on-disk TOML config file. Every
// field is a pointer so the loader can distinguish "absent" (fall through to
// the next layer) from "explicitly set to the zero value".
type FileConfig struct {
	Cores           *int    `toml:"cores"`
	ChunkSizeMiB    *int    `toml:"chunk_size_mib"`
	MaxRetries      *int    `toml:"max_retries"`
	RetryBaseDelay  *string `toml:"retry_base_delay"`
	RetryMaxDelay   *string `toml:"retry_max_delay"`
	Resume          *bool   `toml:"resume"`
	Schedule        *string `toml:"schedule"`
	ScanConcurrency *int    `toml:"scan_concurrency"`
}

// DefaultPath returns the conventional config file location, honoring
// XDG_CONFIG_HOME when set.
func DefaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}

		base = filepath.Join(home, ".config")
	}

	return filepath.Join(base, "internxt-backup", "config.toml")
}

// LoadFile reads and parses the TOML config file at path. A missing file is
// not an error — it simply yields a zero-valued FileConfig so every field
// falls through to the next layer.
func LoadFile(path string) (*FileConfig, error) {
	fc := &FileConfig{}

	if path == "" {
		return fc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fc, nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if _, err := toml.Decode(string(data), fc); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return fc, nil
}

// Merge layers fc on top of the defaults in cfg, then CLI-originated
// overrides in override on top of that. override fields are only applied
// when the corresponding "set" flag is true, so only the values the user
// actually typed take effect.
func Merge(cfg *Config, fc *FileConfig, override CLIOverrides) error {
	if fc.Cores != nil {
		cfg.Cores = *fc.Cores
	}

	if fc.ChunkSizeMiB != nil {
		cfg.ChunkSizeMiB = *fc.ChunkSizeMiB
	}

	if fc.MaxRetries != nil {
		cfg.MaxRetries = *fc.MaxRetries
	}

	if fc.RetryBaseDelay != nil {
		d, err := time.ParseDuration(*fc.RetryBaseDelay)
		if err != nil {
			return fmt.Errorf("retry_base_delay: %w", err)
		}

		cfg.RetryBaseDelay = d
	}

	if fc.RetryMaxDelay != nil {
		d, err := time.ParseDuration(*fc.RetryMaxDelay)
		if err != nil {
			return fmt.Errorf("retry_max_delay: %w", err)
		}

		cfg.RetryMaxDelay = d
	}

	if fc.Resume != nil {
		cfg.Resume = *fc.Resume
	}

	if fc.Schedule != nil {
		cfg.Schedule = *fc.Schedule
	}

	if fc.ScanConcurrency != nil {
		cfg.ScanConcurrency = *fc.ScanConcurrency
	}

	override.apply(cfg)

	return nil
}
