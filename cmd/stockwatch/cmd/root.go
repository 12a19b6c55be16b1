// Package cmd - stockwatch CLI commands
package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/wonny/stockwatch/internal/pkg/config"
	"github.com/wonny/stockwatch/internal/pkg/logger"
)

const (
	serviceName    = "stockwatch"
	serviceVersion = "1.0.0"
)

var (
	envFile  string
	logLevel string
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "stockwatch",
	Short: "Stock watchlist server and tools",
	Long: `Stock watchlist server and tools

Usage:
    go run ./cmd/stockwatch [command]

Commands:
    serve       HTTP API with live watchlist updates (Port 8090)
    search      look up ticker symbols
    quote       fetch the latest quote for symbols
    migrate     create the PostgreSQL watchlist schema
    token       issue a session token for a user
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
		}
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "extra env file loaded before .env")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tokenCmd)
}

// loadConfig reads configuration and initializes the global logger
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := logger.Init(logger.Config{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		FileEnabled:    cfg.Logging.FileEnabled,
		FilePath:       cfg.Logging.FilePath,
		RotationSize:   cfg.Logging.RotationSize,
		RetentionDays:  cfg.Logging.RetentionDays,
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
	}); err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	return cfg, nil
}
