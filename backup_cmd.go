package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/internxt-backup/internal/orchestrator"
	"github.com/tonimelisma/internxt-backup/internal/remoteclient"
)

// newBackupCmd builds the "backup" subcommand.
func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup <source-dir>",
		Short: "Mirror a local directory tree to the remote store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(cmd, args[0])
		},
	}

	return cmd
}

// runBackup resolves configuration, builds the engine's components, and
// runs either a single backup pass or the cron daemon loop depending on
// cfg.Daemon.
func runBackup(cmd *cobra.Command, sourceDir string) error {
	cfg, err := loadedConfig(cmd)
	if err != nil {
		return err
	}

	logger := buildLogger(cfg)
	client := remoteclient.New("", logger)
	o := orchestrator.New(client, cfg, logger)

	target := cfg.Target
	if target == "" {
		target = "/"
	}

	ctx := shutdownContext(cmd.Context(), logger)

	if !cfg.Daemon {
		result, err := o.SyncOnce(ctx, sourceDir, target)
		if err != nil {
			return err
		}

		printRunSummary(cmd.OutOrStdout(), result, "backup")

		return nil
	}

	return runBackupDaemon(ctx, cmd, logger, o, sourceDir, target, cfg.Schedule)
}

// runBackupDaemon wraps SyncOnce in the daemon's cron loop, guarded by a
// single-instance PID lock.
func runBackupDaemon(
	ctx context.Context, cmd *cobra.Command, logger *slog.Logger,
	o *orchestrator.Orchestrator, sourceDir, target, schedule string,
) error {
	cleanup, err := writePIDFile(daemonPIDPath())
	if err != nil {
		return err
	}

	defer cleanup()

	scheduler := orchestrator.NewScheduler(logger)

	return scheduler.RunDaemon(ctx, schedule, func(runCtx context.Context) error {
		result, err := o.SyncOnce(runCtx, sourceDir, target)
		if err != nil {
			return fmt.Errorf("backup: %w", err)
		}

		printRunSummary(cmd.OutOrStdout(), result, "backup")

		return nil
	})
}
