package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wonny/stockwatch/internal/infra/database/postgres"
)

// migrateCmd applies the embedded schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the PostgreSQL watchlist schema",
	Long:  `Creates the watchlist schema, table and change trigger. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		pool, err := postgres.NewPool(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		return pool.Migrate(cmd.Context())
	},
}
