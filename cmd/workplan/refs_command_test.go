package main

import (
	"bytes"
	"testing"

	"github.com/Conceptual-Machines/workplan-api/internal/workplan"
	"github.com/stretchr/testify/assert"
)

func testSnapshot() *workplan.ReferenceSnapshot {
	return workplan.NewReferenceSnapshot(workplan.SnapshotData{
		Modules: []string{"MATEMATYKA", "PRZYRODA"},
		Curriculum: []workplan.CurriculumEntry{
			{Code: "4.15", Text: "przelicza elementy zbiorów;", Section: "4"},
			{Code: "1.1", Text: "zgłasza potrzeby;", Section: "1"},
		},
	})
}

func TestPrintSnapshot(t *testing.T) {
	tests := []struct {
		name        string
		modulesOnly bool
		codesOnly   bool
		contains    []string
		absent      []string
	}{
		{name: "modules", modulesOnly: true, contains: []string{"MATEMATYKA\n", "PRZYRODA\n"}, absent: []string{"4.15"}},
		{name: "codes", codesOnly: true, contains: []string{"4.15\n", "1.1\n"}, absent: []string{"MATEMATYKA"}},
		{name: "tables", contains: []string{"MATEMATYKA", "przelicza elementy zbiorów;", "2 modules, 2 curriculum codes, 0 examples"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printSnapshot(&buf, testSnapshot(), tt.modulesOnly, tt.codesOnly)
			for _, s := range tt.contains {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	progress := progressPrinter(&buf, false)
	progress(1, 2)
	progress(2, 2)
	assert.Equal(t, "processed 1/2\nprocessed 2/2\n", buf.String())

	buf.Reset()
	progress = progressPrinter(&buf, true)
	progress(2, 2)
	assert.Equal(t, "\r["+progressBar(2, 2)+"] 2/2\n", buf.String())
	assert.NotContains(t, progressBar(2, 2), ".")
	assert.Equal(t, progressBarWidth, len(progressBar(1, 3)))
	assert.False(t, isTerminal(&buf))
}
