package main

import (
	"github.com/spf13/cobra"

	"github.com/georgemunganga/crafty-backend/internal/platform/database"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.Open(cmd.Context(), cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()
			return database.Migrate(db, cfg.Database.MigrationsPath)
		},
	}
}
