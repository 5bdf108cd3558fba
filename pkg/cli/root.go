// Package cli builds the modelserve command tree.
package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/modelserve-dev/modelserve/internal/api"
	"github.com/modelserve-dev/modelserve/internal/config"
	"github.com/modelserve-dev/modelserve/internal/logging"
	"github.com/modelserve-dev/modelserve/internal/version"
)

// Root returns the root command of the modelserve CLI.
func Root() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "modelserve",
		Short:        "Inference deployment orchestrator",
		Long:         `Deploys registered ML models as inference services on the compute platform and tracks the resulting server fleet.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the orchestrator API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if err := config.Validate(cfg); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger := logging.NewLogger("modelserve")
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return api.NewServer(cfg, logger).Run(ctx)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("modelserve %s (commit %s, built %s)\n",
				version.Version, version.GitCommit, version.BuildDate)
		},
	}
}
