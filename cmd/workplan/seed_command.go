package main

import (
	"fmt"

	"github.com/Conceptual-Machines/workplan-api/internal/database"
	"github.com/Conceptual-Machines/workplan-api/pkg/embedded"
	"github.com/spf13/cobra"
)

func newSeedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Migrate the database and load the bundled reference data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			seed, err := database.ParseSeed(embedded.ReferenceDataYAML)
			if err != nil {
				return err
			}

			db, err := database.Connect(ctx.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			result, err := database.Seed(cmd.Context(), db, seed)
			if err != nil {
				return err
			}

			printf(cmd.OutOrStdout(), "seeded %d modules, %d sections, %d curriculum codes, %d examples\n",
				result.Modules, result.Sections, result.Curriculum, result.Examples)
			return nil
		},
	}
}
