package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfigFile(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestDefaultConfigValidates(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Validate(DefaultConfig()))
}

func TestValidateCoresBounds(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Cores = 0
	assert.NoError(t, Validate(cfg), "zero means derive from CPU count, not a violation")

	cfg.Cores = -1
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cores")

	cfg.Cores = defaultMaxCores + 1
	err = Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cores")
}

func TestValidateChunkSizeBounds(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.ChunkSizeMiB = defaultMinChunkMiB - 1
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk-size")

	cfg = DefaultConfig()
	cfg.ChunkSizeMiB = defaultMaxChunkMiB + 1
	err = Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk-size")
}

func TestValidateDaemonRequiresSchedule(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Daemon = true
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daemon")

	cfg.Schedule = "@daily"
	assert.NoError(t, Validate(cfg))
}

// Every simultaneous violation must surface in the combined message, not just
// the first one hit, since Validate accumulates with multierr rather than
// stopping early.
func TestValidateAccumulatesEveryViolation(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Cores = defaultMaxCores + 1
	cfg.ChunkSizeMiB = defaultMaxChunkMiB + 1
	cfg.Daemon = true

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cores")
	assert.Contains(t, err.Error(), "chunk-size")
	assert.Contains(t, err.Error(), "daemon")
}

// Quiet/verbose precedence is enforced by Resolve, not Validate: both being
// set is a valid combination with defined precedence, never a validation
// error.
func TestValidateAllowsQuietAndVerboseTogether(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Quiet = true
	cfg.Verbose = true

	assert.NoError(t, Validate(cfg))
}

func TestMergeLayersFileThenCLIOverDefaults(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	fc := &FileConfig{
		Cores:        intPtr(8),
		ChunkSizeMiB: intPtr(64),
		Schedule:     strPtr("@hourly"),
	}
	override := CLIOverrides{
		Cores:    16,
		CoresSet: true,
	}

	require.NoError(t, Merge(cfg, fc, override))

	assert.Equal(t, 16, cfg.Cores, "CLI override wins over the file value")
	assert.Equal(t, 64, cfg.ChunkSizeMiB, "file value applies when CLI didn't set it")
	assert.Equal(t, "@hourly", cfg.Schedule)
}

func TestMergeLeavesUnsetFieldsAtDefault(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, Merge(cfg, &FileConfig{}, CLIOverrides{}))

	assert.Equal(t, DefaultConfig(), cfg)
}

func TestMergeParsesDurationFields(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	fc := &FileConfig{
		RetryBaseDelay: strPtr("2s"),
		RetryMaxDelay:  strPtr("30s"),
	}

	require.NoError(t, Merge(cfg, fc, CLIOverrides{}))

	assert.Equal(t, 2*time.Second, cfg.RetryBaseDelay)
	assert.Equal(t, 30*time.Second, cfg.RetryMaxDelay)
}

func TestMergeRejectsUnparseableDuration(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	fc := &FileConfig{RetryBaseDelay: strPtr("not-a-duration")}

	err := Merge(cfg, fc, CLIOverrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry_base_delay")
}

func TestLoadFileMissingFileYieldsZeroValue(t *testing.T) {
	t.Parallel()

	fc, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, &FileConfig{}, fc)
}

func TestLoadFileEmptyPathYieldsZeroValue(t *testing.T) {
	t.Parallel()

	fc, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, &FileConfig{}, fc)
}

func TestLoadFileParsesValidTOML(t *testing.T) {
	t.Parallel()

	path := writeTestConfigFile(t, `
cores = 4
chunk_size_mib = 100
resume = true
schedule = "@daily"
`)

	fc, err := LoadFile(path)
	require.NoError(t, err)
	require.NotNil(t, fc.Cores)
	assert.Equal(t, 4, *fc.Cores)
	require.NotNil(t, fc.ChunkSizeMiB)
	assert.Equal(t, 100, *fc.ChunkSizeMiB)
	require.NotNil(t, fc.Resume)
	assert.True(t, *fc.Resume)
	require.NotNil(t, fc.Schedule)
	assert.Equal(t, "@daily", *fc.Schedule)
}

func TestLoadFileRejectsMalformedTOML(t *testing.T) {
	t.Parallel()

	path := writeTestConfigFile(t, `cores = [this is not valid toml`)

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestResolveAppliesQuietWinsPrecedence(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "absent.toml")
	cfg, err := Resolve(path, CLIOverrides{
		Quiet: true, QuietSet: true,
		Verbose: true, VerboseSet: true,
	})
	require.NoError(t, err)

	assert.True(t, cfg.Quiet)
	assert.False(t, cfg.Verbose, "quiet zeroes verbose regardless of override order")
}

func TestResolvePropagatesValidationErrors(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "absent.toml")
	_, err := Resolve(path, CLIOverrides{Cores: defaultMaxCores + 1, CoresSet: true})
	require.Error(t, err)
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
