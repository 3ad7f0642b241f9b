package main

import (
	"fmt"
	"os"

	"github.com/bitfantasy/onboard/internal/config"
	"github.com/bitfantasy/onboard/internal/database"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:           "onboard",
	Short:         "Employee onboarding templates, cases and tasks",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("onboard %s\nbuilt: %s\n", Version, BuildTime)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd, serveCmd, migrateCmd, importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, builds the logger and opens the database.
func bootstrap() (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.Open(cfg.Database, zapLogger, database.LogLevel(cfg.Log.Level))
	if err != nil {
		zapLogger.Sync()
		return nil, nil, nil, err
	}
	return cfg, zapLogger, db, nil
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
