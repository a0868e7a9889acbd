package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/internxt-backup/internal/config"
)

// newConfigCmd builds the "config" command group. "config show" prints the
// fully resolved configuration (defaults + file + flags) for diagnosability.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the resolved configuration",
	}

	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the fully resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadedConfig(cmd)
			if err != nil {
				return err
			}

			printResolvedConfig(cmd, cfg)

			return nil
		},
	}
}

func printResolvedConfig(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()

	rows := [][]string{
		{"target", cfg.Target},
		{"cores", fmt.Sprintf("%d", cfg.Cores)},
		{"chunk-size-mib", fmt.Sprintf("%d", cfg.ChunkSizeMiB)},
		{"max-retries", fmt.Sprintf("%d", cfg.MaxRetries)},
		{"retry-base-delay", cfg.RetryBaseDelay.String()},
		{"retry-max-delay", cfg.RetryMaxDelay.String()},
		{"resume", fmt.Sprintf("%t", cfg.Resume)},
		{"force", fmt.Sprintf("%t", cfg.Force)},
		{"quiet", fmt.Sprintf("%t", cfg.Quiet)},
		{"verbose", fmt.Sprintf("%t", cfg.Verbose)},
		{"schedule", cfg.Schedule},
		{"daemon", fmt.Sprintf("%t", cfg.Daemon)},
		{"scan-concurrency", fmt.Sprintf("%d", cfg.ScanConcurrency)},
	}

	printTable(out, []string{"setting", "value"}, rows)
}
