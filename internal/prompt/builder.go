package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/Conceptual-Machines/workplan-api/internal/workplan"
)

// NoTheme is substituted when a request carries no weekly theme
const NoTheme = "(brak tematu)"

// DefaultExamplesLimit caps the few-shot examples included in a prompt
const DefaultExamplesLimit = 3

// Builder builds work plan generation prompts from the embedded template
// and a reference snapshot. It implements workplan.PromptBuilder.
type Builder struct {
	loader        *Loader
	system        string
	user          *template.Template
	examplesLimit int
}

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithExamplesLimit sets how many snapshot examples are rendered. Negative values are ignored.
func WithExamplesLimit(n int) BuilderOption {
	return func(b *Builder) {
		if n >= 0 {
			b.examplesLimit = n
		}
	}
}

// NewPromptBuilder loads and parses the embedded prompts
func NewPromptBuilder(opts ...BuilderOption) (*Builder, error) {
	b := &Builder{
		loader:        NewPromptLoader(),
		examplesLimit: DefaultExamplesLimit,
	}
	for _, opt := range opts {
		opt(b)
	}

	system, err := b.loader.GetSystemPrompt()
	if err != nil {
		return nil, fmt.Errorf("failed to load system prompt: %w", err)
	}
	text, err := b.loader.GetFillWorkPlanTemplate()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt template: %w", err)
	}
	tmpl, err := template.New("fill_work_plan").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}

	b.system = system
	b.user = tmpl
	return b, nil
}

type templateData struct {
	Activity       string
	Theme          string
	Modules        string
	CurriculumRefs string
	Examples       string
}

// BuildGenerationPrompt renders the prompt for a single activity. The full
// module and curriculum vocabularies of refs are always included.
func (b *Builder) BuildGenerationPrompt(req workplan.GenerationRequest, refs *workplan.ReferenceSnapshot) (workplan.Prompt, error) {
	theme := strings.TrimSpace(req.Theme)
	if theme == "" {
		theme = NoTheme
	}

	examples, err := FormatExamples(limitExamples(refs.Examples(), b.examplesLimit))
	if err != nil {
		return workplan.Prompt{}, err
	}

	var buf bytes.Buffer
	err = b.user.Execute(&buf, templateData{
		Activity:       strings.TrimSpace(req.ActivityText),
		Theme:          theme,
		Modules:        FormatModules(refs.Modules()),
		CurriculumRefs: FormatCurriculum(refs.Curriculum()),
		Examples:       examples,
	})
	if err != nil {
		return workplan.Prompt{}, fmt.Errorf("failed to render prompt template: %w", err)
	}

	return workplan.Prompt{System: b.system, User: buf.String()}, nil
}

// FormatModules joins module names, sorted, with commas
func FormatModules(modules []string) string {
	return strings.Join(modules, ", ")
}

// FormatCurriculum renders curriculum entries grouped under their section
// heading, "code - text" per line, with a blank line between sections.
// Sections keep the order of their first entry.
func FormatCurriculum(entries []workplan.CurriculumEntry) string {
	var (
		order  []string
		groups = map[string][]workplan.CurriculumEntry{}
	)
	for _, e := range entries {
		if _, seen := groups[e.Section]; !seen {
			order = append(order, e.Section)
		}
		groups[e.Section] = append(groups[e.Section], e)
	}

	blocks := make([]string, 0, len(order))
	for _, section := range order {
		var lines []string
		if section != "" {
			lines = append(lines, section)
		}
		for _, e := range groups[section] {
			if e.Text == "" {
				lines = append(lines, e.Code)
				continue
			}
			lines = append(lines, e.Code+" - "+e.Text)
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

type exampleAnswer struct {
	Module         string   `json:"module"`
	CurriculumRefs []string `json:"curriculum_refs"`
	Objectives     []string `json:"objectives"`
}

// FormatExamples renders numbered few-shot examples with the expected JSON answer
func FormatExamples(examples []workplan.Example) (string, error) {
	blocks := make([]string, 0, len(examples))
	for i, ex := range examples {
		answer, err := json.MarshalIndent(exampleAnswer{
			Module:         ex.Module,
			CurriculumRefs: ex.CurriculumRefs,
			Objectives:     ex.Objectives,
		}, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode example %d: %w", i+1, err)
		}

		theme := ex.Theme
		if theme == "" {
			theme = NoTheme
		}
		blocks = append(blocks, strings.Join([]string{
			fmt.Sprintf("Przykład %d:", i+1),
			"Temat: " + theme,
			"Aktywność: " + ex.Activity,
			"",
			"Odpowiedź:",
			string(answer),
		}, "\n"))
	}
	return strings.Join(blocks, "\n\n"), nil
}

func limitExamples(examples []workplan.Example, limit int) []workplan.Example {
	if len(examples) > limit {
		return examples[:limit]
	}
	return examples
}
