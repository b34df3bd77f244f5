package workplan

// Limits applied to requests and validated metadata
const (
	MaxActivityLength     = 500
	MaxThemeLength        = 200
	MaxCurriculumRefs     = 10
	MaxObjectives         = 5
	MinObjectiveLength    = 10
	ActivitySnippetLength = 50
)

// GenerationRequest is one teacher-entered activity to fill in.
type GenerationRequest struct {
	ID           string `json:"id"`
	ActivityText string `json:"activity"`
	Theme        string `json:"theme,omitempty"`
}

// RawModelOutput is the parsed model response before validation.
// Any field may be empty, duplicated or reference unknown values.
type RawModelOutput struct {
	ModuleCandidate      string
	CurriculumCandidates []string
	ObjectiveCandidates  []string
}

// GeneratedMetadata is the validated result handed back to callers.
type GeneratedMetadata struct {
	Module         string   `json:"module"`
	CurriculumRefs []string `json:"curriculum_refs"`
	Objectives     []string `json:"objectives"`

	// ModuleSuggested is set when Module is not part of the reference vocabulary.
	ModuleSuggested bool `json:"-"`
}

// OutcomeStatus tags a ValidationOutcome.
type OutcomeStatus int

const (
	StatusAccepted OutcomeStatus = iota
	StatusRepaired
	StatusRejected
)

func (s OutcomeStatus) String() string {
	switch s {
	case StatusAccepted:
		return "accepted"
	case StatusRepaired:
		return "repaired"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// FailureReason explains a rejected outcome.
type FailureReason string

const (
	NoValidCurriculumRefs FailureReason = "no_valid_curriculum_refs"
	NoUsableObjectives    FailureReason = "no_usable_objectives"
	NoModule              FailureReason = "no_module"
)

// Repair note reasons
const (
	ReasonUnknownModule = "unknown_module"
	ReasonUnknownCode   = "unknown_code"
	ReasonDuplicate     = "duplicate"
	ReasonEmpty         = "empty"
	ReasonTooShort      = "too_short"
	ReasonOverLimit     = "over_limit"
)

// Field names used in repair notes
const (
	FieldModule         = "module"
	FieldCurriculumRefs = "curriculum_refs"
	FieldObjectives     = "objectives"
)

// DroppedItem records one value removed or altered during validation.
type DroppedItem struct {
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (d DroppedItem) String() string {
	return d.Field + ": " + d.Reason + " " + quote(d.Value)
}

// ValidationOutcome is the tagged result of Validate. Metadata is nil
// exactly when Status is StatusRejected.
type ValidationOutcome struct {
	Status   OutcomeStatus
	Metadata *GeneratedMetadata
	Dropped  []DroppedItem
	Failure  FailureReason
}

// Notes returns the dropped items as log-friendly strings.
func (o ValidationOutcome) Notes() []string {
	notes := make([]string, 0, len(o.Dropped))
	for _, d := range o.Dropped {
		notes = append(notes, d.String())
	}
	return notes
}

func quote(s string) string {
	return "\"" + s + "\""
}
