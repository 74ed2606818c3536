package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"inspectbot/internal/config"
	"inspectbot/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		store, err := db.Open(cmd.Context(), cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()

		logger.Info("migrations completed successfully", zap.String("driver", cfg.DatabaseDriver))
		return nil
	},
}
