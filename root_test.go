package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/internxt-backup/internal/config"
)

func resetGlobalFlags(t *testing.T) {
	t.Helper()

	flagConfigPath, flagTarget, flagSchedule = "", "", ""
	flagCores, flagChunkSize, flagScanConc = 0, 0, 0
	flagDaemon, flagForce, flagResume, flagQuiet, flagVerbose, flagShowVer = false, false, false, false, false, false

	t.Cleanup(func() {
		flagConfigPath, flagTarget, flagSchedule = "", "", ""
		flagCores, flagChunkSize, flagScanConc = 0, 0, 0
		flagDaemon, flagForce, flagResume, flagQuiet, flagVerbose, flagShowVer = false, false, false, false, false, false
	})
}

func TestBuildLoggerDefaultLevelIsWarn(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	logger := buildLogger(cfg)

	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
}

func TestBuildLoggerVerboseEnablesInfo(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Verbose = true
	logger := buildLogger(cfg)

	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
}

func TestBuildLoggerQuietOverridesVerbose(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Verbose = true
	cfg.Quiet = true
	logger := buildLogger(cfg)

	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
}

func TestRootCmdVersionFlagPrintsVersion(t *testing.T) {
	resetGlobalFlags(t)

	cmd := newRootCmd()

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.NotEmpty(t, buf.String())
}

func TestRootCmdNoArgsPrintsHelp(t *testing.T) {
	resetGlobalFlags(t)

	cmd := newRootCmd()

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Incremental backup agent")
}

func TestRootCmdRegistersSubcommands(t *testing.T) {
	resetGlobalFlags(t)

	cmd := newRootCmd()

	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["backup"])
	assert.True(t, names["restore"])
	assert.True(t, names["config"])
}

func TestLoadedConfigAppliesFlagOverrides(t *testing.T) {
	resetGlobalFlags(t)

	cmd := newBackupCmd()
	bindEngineFlags(cmd)
	cmd.Flags().StringVar(&flagConfigPath, "config", "", "")

	configPath := t.TempDir() + "/absent.toml"
	require.NoError(t, cmd.ParseFlags([]string{"--config", configPath, "--cores", "4", "--force", "--target", "/Backups/X"}))

	cfg, err := loadedConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Cores)
	assert.True(t, cfg.Force)
	assert.Equal(t, "/Backups/X", cfg.Target)
}

func TestLoadedConfigRejectsInvalidCores(t *testing.T) {
	resetGlobalFlags(t)

	cmd := newBackupCmd()
	bindEngineFlags(cmd)
	cmd.Flags().StringVar(&flagConfigPath, "config", "", "")

	configPath := t.TempDir() + "/absent.toml"
	require.NoError(t, cmd.ParseFlags([]string{"--config", configPath, "--cores", "999"}))

	_, err := loadedConfig(cmd)
	require.Error(t, err)
}

// Both flags are accepted together through the real cobra parse path (no
// mutual-exclusivity group), and loadedConfig resolves them with quiet
// winning, matching config.Resolve's documented precedence.
func TestLoadedConfigQuietAndVerboseBothSetQuietWins(t *testing.T) {
	resetGlobalFlags(t)

	cmd := newBackupCmd()
	bindEngineFlags(cmd)
	cmd.Flags().StringVar(&flagConfigPath, "config", "", "")

	configPath := t.TempDir() + "/absent.toml"
	require.NoError(t, cmd.ParseFlags([]string{"--config", configPath, "--quiet", "--verbose"}))

	cfg, err := loadedConfig(cmd)
	require.NoError(t, err)
	assert.True(t, cfg.Quiet)
	assert.False(t, cfg.Verbose)
}

func TestRootCmdAcceptsQuietAndVerboseTogether(t *testing.T) {
	resetGlobalFlags(t)

	cmd := newRootCmd()

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--quiet", "--verbose"})

	require.NoError(t, cmd.Execute())
}
