package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/internxt-backup/internal/orchestrator"
	"github.com/tonimelisma/internxt-backup/internal/remoteclient"
)

// errRestoreFailures signals a restore that completed with per-file
// failures, distinguished from an engine error so main() can map it to
// exit code 1.
var errRestoreFailures = errors.New("restore completed with failures")

// newRestoreCmd builds the "restore" subcommand.
func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <remote-path> [destination]",
		Short: "Mirror a remote folder back onto the local filesystem",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			remotePath := args[0]

			dest := "."
			if len(args) == 2 {
				dest = args[1]
			} else if flagTarget != "" {
				dest = flagTarget
			}

			return runRestore(cmd, remotePath, dest)
		},
	}

	return cmd
}

func runRestore(cmd *cobra.Command, remotePath, dest string) error {
	cfg, err := loadedConfig(cmd)
	if err != nil {
		return err
	}

	logger := buildLogger(cfg)
	client := remoteclient.New("", logger)
	o := orchestrator.New(client, cfg, logger)

	ctx := shutdownContext(cmd.Context(), logger)

	result, err := o.RestoreOnce(ctx, remotePath, dest)
	if err != nil {
		return err
	}

	printRunSummary(cmd.OutOrStdout(), result, "restore")

	if result.Failed > 0 {
		return errRestoreFailures
	}

	return nil
}
