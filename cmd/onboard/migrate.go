package main

import (
	"github.com/bitfantasy/onboard/internal/database"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, zapLogger, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer zapLogger.Sync()
		defer closeDB(db)

		if err := database.Migrate(db); err != nil {
			return err
		}
		zapLogger.Info("Database migrated", zap.String("driver", db.Dialector.Name()))
		return nil
	},
}
