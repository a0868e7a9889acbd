package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/internxt-backup/internal/config"
)

// Global persistent flags, bound in newRootCmd.
var (
	flagConfigPath string
	flagTarget     string
	flagCores      int
	flagSchedule   string
	flagDaemon     bool
	flagForce      bool
	flagResume     bool
	flagChunkSize  int
	flagQuiet      bool
	flagVerbose    bool
	flagShowVer    bool
	flagScanConc   int
)

// loadedConfig resolves the effective Config from the flags the user
// actually set on this invocation, leaving everything else to the config
// file and built-in defaults.
func loadedConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	override := config.CLIOverrides{
		Target:          flagTarget,
		TargetSet:       flags.Changed("target"),
		Cores:           flagCores,
		CoresSet:        flags.Changed("cores"),
		Schedule:        flagSchedule,
		ScheduleSet:     flags.Changed("schedule"),
		Daemon:          flagDaemon,
		DaemonSet:       flags.Changed("daemon"),
		Force:           flagForce,
		ForceSet:        flags.Changed("force"),
		Resume:          flagResume,
		ResumeSet:       flags.Changed("resume"),
		ChunkSizeMiB:    flagChunkSize,
		ChunkSizeSet:    flags.Changed("chunk-size"),
		Quiet:           flagQuiet,
		QuietSet:        flags.Changed("quiet"),
		Verbose:         flagVerbose,
		VerboseSet:      flags.Changed("verbose"),
		ScanConcurrency: flagScanConc,
		ScanConcSet:     flags.Changed("scan-concurrency"),
	}

	path := flagConfigPath
	if path == "" {
		path = config.DefaultPath()
	}

	return config.Resolve(path, override)
}

// buildLogger returns the run logger for cfg:
// quiet forces slog.LevelWarn, verbose forces slog.LevelInfo, quiet always
// wins when both are set (config.Resolve already enforces the latter).
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn

	if cfg.Verbose {
		level = slog.LevelInfo
	}

	if cfg.Quiet {
		level = slog.LevelWarn
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newRootCmd builds the fully-assembled root command. The bare positional form
// `internxt-backup <source-dir>` is a synonym for `backup <source-dir>`.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "internxt-backup [source-dir]",
		Short:         "Incremental backup agent for the internxt remote CLI",
		Long:          "A resumable, incremental backup and restore agent that mirrors a local directory tree to a remote internxt store.",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagShowVer {
				fmt.Fprintln(cmd.OutOrStdout(), buildVersion())

				return nil
			}

			if len(args) == 0 {
				return cmd.Help()
			}

			return runBackup(cmd, args[0])
		},
	}

	bindEngineFlags(cmd)
	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.Flags().BoolVarP(&flagShowVer, "version", "v", false, "print version and exit")

	cmd.AddCommand(newBackupCmd())
	cmd.AddCommand(newRestoreCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// bindEngineFlags registers the flags shared by the root command and its
// backup/restore subcommands.
func bindEngineFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&flagTarget, "target", "", "remote folder for backup, local folder for restore")
	cmd.PersistentFlags().IntVar(&flagCores, "cores", 0, "concurrency override (1-64)")
	cmd.PersistentFlags().StringVar(&flagSchedule, "schedule", "", "cron expression for daemon mode")
	cmd.PersistentFlags().BoolVar(&flagDaemon, "daemon", false, "enable long-running cron loop")
	cmd.PersistentFlags().BoolVar(&flagForce, "force", false, "ignore change detection, re-upload everything")
	cmd.PersistentFlags().BoolVar(&flagResume, "resume", false, "enable resumable uploads for large files")
	cmd.PersistentFlags().IntVar(&flagChunkSize, "chunk-size", 0, "resumable-upload chunk size override, in MiB (1-1024)")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "minimal output")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "per-file output")
	cmd.PersistentFlags().IntVar(&flagScanConc, "scan-concurrency", 0,
		"parallel hashing workers during the scan (0 = serial, deterministic ordering)")
}

// exitOnError prints a user-facing error line and exits 1.
func exitOnError(err error) {
	red := errorColor()
	fmt.Fprintln(os.Stderr, red(fmt.Sprintf("Error: %v", err)))
	os.Exit(1)
}

