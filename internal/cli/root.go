package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/systemshift/crmgraph/internal/server/app"
	"github.com/systemshift/crmgraph/internal/server/config"
	"github.com/systemshift/crmgraph/internal/server/logger"
)

var (
	envFile string
	debug   bool
)

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "crmgraph",
		Short: "Operate the CRM graph projection",
		Long: `Command-line tools for the CRM graph projection.

Connection settings come from the same environment variables (and .env file)
as crmgraph-server.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newReplayCommand())
	root.AddCommand(newRegistryCommand())
	root.AddCommand(newConstraintsCommand())

	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	log, err := logger.New(cfg.IsProduction(), level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func openApp(ctx context.Context) (*app.App, *zap.Logger, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a, log, nil
}
