package embedded

import (
	_ "embed"
)

// Prompt files
//
//go:embed data/prompts/system_prompt.txt
var SystemPromptTxt []byte

//go:embed data/prompts/fill_work_plan.tmpl
var FillWorkPlanTmpl []byte

// Reference data used by `workplan seed` and the database seeder
//
//go:embed data/seed/reference_data.yaml
var ReferenceDataYAML []byte
