package main

import (
	"fmt"
	"os"

	"github.com/bitfantasy/onboard/internal/onboarding/repository"
	"github.com/bitfantasy/onboard/internal/onboarding/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importCmd = &cobra.Command{
	Use:   "import <file.yaml>...",
	Short: "Import onboarding templates from YAML files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, zapLogger, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer zapLogger.Sync()
		defer closeDB(db)

		svc := service.NewTemplateService(repository.NewRepositories(db), zapLogger.Named("import"))
		for _, path := range args {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			templates, err := svc.ImportTemplates(cmd.Context(), f)
			f.Close()
			for _, t := range templates {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tv%d\t%s\n", t.ID, t.Status, t.LatestVersionNumber, t.Name)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			zapLogger.Info("Imported templates", zap.String("file", path), zap.Int("count", len(templates)))
		}
		return nil
	},
}
