package workplan

import (
	"strings"
	"unicode/utf8"
)

// Validate checks raw model output against the reference snapshot and decides
// whether it is accepted as-is, repaired by dropping items, or rejected.
//
// Curriculum codes are a hard gate with lenient repair: unknown codes and
// duplicates are dropped as long as at least one known code remains.
// Objectives shorter than MinObjectiveLength are dropped and the rest capped at
// MaxObjectives. The module is a soft field: an unknown but non-empty name is
// kept and the outcome marked repaired.
//
// Validate never mutates refs and has no side effects.
func Validate(raw RawModelOutput, refs *ReferenceSnapshot) ValidationOutcome {
	var dropped []DroppedItem

	codes, codeNotes := reconcileCurriculum(raw.CurriculumCandidates, refs)
	dropped = append(dropped, codeNotes...)
	if len(codes) == 0 {
		return rejected(NoValidCurriculumRefs, dropped)
	}

	objectives, objectiveNotes := filterObjectives(raw.ObjectiveCandidates)
	dropped = append(dropped, objectiveNotes...)
	if len(objectives) == 0 {
		return rejected(NoUsableObjectives, dropped)
	}

	module := strings.TrimSpace(raw.ModuleCandidate)
	if module == "" {
		return rejected(NoModule, dropped)
	}

	suggested := false
	if canonical, ok := refs.LookupModule(module); ok {
		module = canonical
	} else {
		suggested = true
		dropped = append(dropped, DroppedItem{Field: FieldModule, Value: module, Reason: ReasonUnknownModule})
	}

	status := StatusAccepted
	if len(dropped) > 0 {
		status = StatusRepaired
	}

	return ValidationOutcome{
		Status: status,
		Metadata: &GeneratedMetadata{
			Module:          module,
			CurriculumRefs:  codes,
			Objectives:      objectives,
			ModuleSuggested: suggested,
		},
		Dropped: dropped,
	}
}

func rejected(reason FailureReason, dropped []DroppedItem) ValidationOutcome {
	return ValidationOutcome{
		Status:  StatusRejected,
		Failure: reason,
		Dropped: dropped,
	}
}

// reconcileCurriculum dedupes candidates in first-seen order, drops unknown
// codes and caps the result at MaxCurriculumRefs.
func reconcileCurriculum(candidates []string, refs *ReferenceSnapshot) ([]string, []DroppedItem) {
	var (
		known   []string
		dropped []DroppedItem
	)
	seen := make(map[string]struct{}, len(candidates))

	for _, candidate := range candidates {
		code := strings.TrimSpace(candidate)
		if code == "" {
			dropped = append(dropped, DroppedItem{Field: FieldCurriculumRefs, Value: candidate, Reason: ReasonEmpty})
			continue
		}
		if _, dup := seen[code]; dup {
			dropped = append(dropped, DroppedItem{Field: FieldCurriculumRefs, Value: code, Reason: ReasonDuplicate})
			continue
		}
		seen[code] = struct{}{}

		if !refs.HasCurriculumCode(code) {
			dropped = append(dropped, DroppedItem{Field: FieldCurriculumRefs, Value: code, Reason: ReasonUnknownCode})
			continue
		}
		known = append(known, code)
	}

	if len(known) > MaxCurriculumRefs {
		for _, code := range known[MaxCurriculumRefs:] {
			dropped = append(dropped, DroppedItem{Field: FieldCurriculumRefs, Value: code, Reason: ReasonOverLimit})
		}
		known = known[:MaxCurriculumRefs]
	}

	return known, dropped
}

func filterObjectives(candidates []string) ([]string, []DroppedItem) {
	var (
		kept    []string
		dropped []DroppedItem
	)

	for _, candidate := range candidates {
		objective := strings.TrimSpace(candidate)
		switch {
		case objective == "":
			dropped = append(dropped, DroppedItem{Field: FieldObjectives, Value: candidate, Reason: ReasonEmpty})
		case utf8.RuneCountInString(objective) < MinObjectiveLength:
			dropped = append(dropped, DroppedItem{Field: FieldObjectives, Value: objective, Reason: ReasonTooShort})
		default:
			kept = append(kept, objective)
		}
	}

	if len(kept) > MaxObjectives {
		for _, objective := range kept[MaxObjectives:] {
			dropped = append(dropped, DroppedItem{Field: FieldObjectives, Value: objective, Reason: ReasonOverLimit})
		}
		kept = kept[:MaxObjectives]
	}

	return kept, dropped
}
