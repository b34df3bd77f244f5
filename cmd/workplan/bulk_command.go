package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/workplan-api/internal/app"
	"github.com/Conceptual-Machines/workplan-api/internal/services"
	"github.com/Conceptual-Machines/workplan-api/internal/workplan"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
)

const (
	lockFileName     = "workplan-bulk.lock"
	reportFileMode   = 0o644
	tableSnippetSize = 40
)

var errBulkRunning = errors.New("another bulk run is in progress on this host")

// bulkItem is one input entry. Plain strings are accepted as well.
type bulkItem struct {
	ID       string `json:"id"`
	Activity string `json:"activity"`
}

func newBulkCommand(ctx *commandContext) *cobra.Command {
	var inputPath, theme, outputPath, lockPath string

	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Fill work plan metadata for a list of activities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			requests, err := parseActivities(data, theme)
			if err != nil {
				return err
			}

			lock := flock.New(lockPath)
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("failed to acquire lock %s: %w", lockPath, err)
			}
			if !ok {
				return errBulkRunning
			}
			defer func() { _ = lock.Unlock() }()

			application, err := app.New(cmd.Context(), ctx.cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			errOut := cmd.ErrOrStderr()
			result, err := application.WorkPlans.FillBulk(cmd.Context(), requests, 0, progressPrinter(errOut, isTerminal(errOut)))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printf(out, "%s\n", renderBulkReport(result))
			printf(out, "run %s: %d succeeded, %d failed of %d\n",
				result.RunID, len(result.Succeeded), len(result.Failed), result.Total)

			if outputPath != "" {
				if err := writeReport(outputPath, result); err != nil {
					return err
				}
				printf(out, "report written to %s\n", outputPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "JSON file with activities (strings or {id, activity} objects)")
	cmd.Flags().StringVarP(&theme, "theme", "t", "", "Weekly theme shared by all activities")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the full JSON report to this file")
	cmd.Flags().StringVar(&lockPath, "lock", filepath.Join(os.TempDir(), lockFileName), "Lock file that keeps bulk runs exclusive")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// parseActivities accepts a JSON array of strings or of {id, activity}
// objects. Missing ids default to the item index.
func parseActivities(data []byte, theme string) ([]workplan.GenerationRequest, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("input must be a JSON array: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("input contains no activities")
	}

	requests := make([]workplan.GenerationRequest, 0, len(raw))
	for i, msg := range raw {
		var item bulkItem
		var text string
		if err := json.Unmarshal(msg, &text); err == nil {
			item.Activity = text
		} else if err := json.Unmarshal(msg, &item); err != nil {
			return nil, fmt.Errorf("item %d: expected a string or an object: %w", i, err)
		}
		if item.ID == "" {
			item.ID = strconv.Itoa(i)
		}
		requests = append(requests, workplan.GenerationRequest{
			ID:           item.ID,
			ActivityText: item.Activity,
			Theme:        theme,
		})
	}
	return requests, nil
}

func renderBulkReport(result *services.BulkResult) string {
	rows := make([][]string, result.Total)
	for _, s := range result.Succeeded {
		if s.Index < 0 || s.Index >= len(rows) {
			continue
		}
		rows[s.Index] = []string{
			strconv.Itoa(s.Index),
			s.ID,
			"ok",
			s.Metadata.Module,
			strings.Join(s.Metadata.CurriculumRefs, ", "),
		}
	}
	for _, f := range result.Failed {
		if f.Index < 0 || f.Index >= len(rows) {
			continue
		}
		rows[f.Index] = []string{
			strconv.Itoa(f.Index),
			f.ID,
			f.Code,
			snippet(f.ActivitySnippet, tableSnippetSize),
			f.Error,
		}
	}

	return renderTable(
		[]string{"#", "ID", "Status", "Module / Activity", "Curriculum / Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}

func writeReport(path string, result *services.BulkResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), reportFileMode); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// snippet shortens s for table cells, marking the cut with "..."
func snippet(s string, n int) string {
	if short := workplan.Snippet(s, n); short != s {
		return short + "..."
	}
	return s
}
