package prompt

import (
	"strings"

	"github.com/Conceptual-Machines/workplan-api/pkg/embedded"
)

type Loader struct{}

func NewPromptLoader() *Loader {
	return &Loader{}
}

// GetSystemPrompt loads the main system prompt
func (l *Loader) GetSystemPrompt() (string, error) {
	return strings.TrimSpace(string(embedded.SystemPromptTxt)), nil
}

// GetFillWorkPlanTemplate loads the user prompt template
func (l *Loader) GetFillWorkPlanTemplate() (string, error) {
	return strings.TrimSpace(string(embedded.FillWorkPlanTmpl)), nil
}
