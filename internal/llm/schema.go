package llm

const (
	educationalMetadataSchemaName = "educational_metadata"

	maxCurriculumRefs = 10
	maxObjectives     = 5
)

// EducationalMetadataSchema returns the JSON schema for work plan metadata.
// OpenAI strict mode requires additionalProperties: false and every property in 'required'
func EducationalMetadataSchema() *OutputSchema {
	return &OutputSchema{
		Name:        educationalMetadataSchemaName,
		Description: "Educational metadata for a kindergarten work plan activity",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"module": map[string]any{
					"type":        "string",
					"description": "Educational module name, preferably one of the listed modules",
				},
				"curriculum_refs": map[string]any{
					"type":        "array",
					"description": "Core curriculum reference codes, e.g. 4.15",
					"items":       map[string]any{"type": "string"},
					"minItems":    1,
					"maxItems":    maxCurriculumRefs,
				},
				"objectives": map[string]any{
					"type":        "array",
					"description": "Learning objectives in Polish",
					"items":       map[string]any{"type": "string"},
					"minItems":    1,
					"maxItems":    maxObjectives,
				},
			},
			"required":             []string{"module", "curriculum_refs", "objectives"},
			"additionalProperties": false,
		},
	}
}
