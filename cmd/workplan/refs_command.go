package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/Conceptual-Machines/workplan-api/internal/database"
	"github.com/Conceptual-Machines/workplan-api/internal/services"
	"github.com/Conceptual-Machines/workplan-api/internal/workplan"
	"github.com/spf13/cobra"
)

func newRefsCommand(ctx *commandContext) *cobra.Command {
	var modulesOnly, codesOnly bool

	cmd := &cobra.Command{
		Use:   "refs",
		Short: "Print the reference vocabulary used for generation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if modulesOnly && codesOnly {
				return errors.New("--modules and --codes are mutually exclusive")
			}

			db, err := database.Connect(ctx.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			refs := services.NewReferenceService(services.NewGormStore(db), nil, 0, ctx.cfg.PromptExamplesLimit)
			snapshot, err := refs.LoadSnapshot(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load reference data: %w", err)
			}

			printSnapshot(cmd.OutOrStdout(), snapshot, modulesOnly, codesOnly)
			return nil
		},
	}

	cmd.Flags().BoolVar(&modulesOnly, "modules", false, "Print module names only")
	cmd.Flags().BoolVar(&codesOnly, "codes", false, "Print curriculum codes only")

	return cmd
}

func printSnapshot(w io.Writer, snapshot *workplan.ReferenceSnapshot, modulesOnly, codesOnly bool) {
	switch {
	case modulesOnly:
		for _, m := range snapshot.Modules() {
			printf(w, "%s\n", m)
		}
	case codesOnly:
		for _, c := range snapshot.CurriculumCodes() {
			printf(w, "%s\n", c)
		}
	default:
		moduleRows := make([][]string, 0, len(snapshot.Modules()))
		for i, m := range snapshot.Modules() {
			moduleRows = append(moduleRows, []string{strconv.Itoa(i + 1), m})
		}
		printf(w, "%s\n\n", renderTable([]string{"#", "Module"}, moduleRows, []columnAlignment{alignRight, alignLeft}))

		curriculumRows := make([][]string, 0, len(snapshot.Curriculum()))
		for _, e := range snapshot.Curriculum() {
			curriculumRows = append(curriculumRows, []string{e.Code, e.Text})
		}
		printf(w, "%s\n", renderTable([]string{"Code", "Text"}, curriculumRows, nil))
		printf(w, "%d modules, %d curriculum codes, %d examples\n",
			len(snapshot.Modules()), len(snapshot.CurriculumCodes()), len(snapshot.Examples()))
	}
}
