package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkPlanEntry_ObjectiveList(t *testing.T) {
	tests := []struct {
		name       string
		objectives string
		want       []string
	}{
		{"empty", "", nil},
		{"single", "Dziecko liczy do pięciu", []string{"Dziecko liczy do pięciu"}},
		{"blank lines and padding", "  Dziecko liczy\n\n Dziecko rysuje \n", []string{"Dziecko liczy", "Dziecko rysuje"}},
		{"windows line endings", "Dziecko liczy\r\nDziecko rysuje", []string{"Dziecko liczy", "Dziecko rysuje"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := WorkPlanEntry{Objectives: tt.objectives}
			assert.Equal(t, tt.want, entry.ObjectiveList())
		})
	}
}

func TestJoinObjectives(t *testing.T) {
	joined := JoinObjectives([]string{"Dziecko liczy", "Dziecko rysuje"})
	entry := WorkPlanEntry{Objectives: joined}

	assert.Equal(t, "Dziecko liczy\nDziecko rysuje", joined)
	assert.Equal(t, []string{"Dziecko liczy", "Dziecko rysuje"}, entry.ObjectiveList())
}
