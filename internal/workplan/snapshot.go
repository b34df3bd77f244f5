package workplan

import (
	"sort"
	"strings"
)

// CurriculumEntry is one paragraph of the core curriculum.
type CurriculumEntry struct {
	Code    string `json:"code" yaml:"code"`
	Text    string `json:"text" yaml:"text"`
	Section string `json:"section,omitempty" yaml:"section,omitempty"`
}

// Example is a stored activity used as a few-shot prompt example.
type Example struct {
	Theme          string   `json:"theme" yaml:"theme"`
	Activity       string   `json:"activity" yaml:"activity"`
	Module         string   `json:"module" yaml:"module"`
	CurriculumRefs []string `json:"curriculum_refs" yaml:"curriculum_refs"`
	Objectives     []string `json:"objectives" yaml:"objectives"`
}

// SnapshotData is the serializable form of a ReferenceSnapshot.
type SnapshotData struct {
	Modules    []string          `json:"modules"`
	Curriculum []CurriculumEntry `json:"curriculum"`
	Examples   []Example         `json:"examples,omitempty"`
}

// ReferenceSnapshot is an immutable view of the reference vocabulary used
// for a single request or bulk run.
type ReferenceSnapshot struct {
	modules    map[string]string // normalized -> canonical name
	codes      map[string]struct{}
	moduleList []string
	curriculum []CurriculumEntry
	examples   []Example
}

// NewReferenceSnapshot copies data into a new snapshot. Blank entries are skipped.
func NewReferenceSnapshot(data SnapshotData) *ReferenceSnapshot {
	s := &ReferenceSnapshot{
		modules: make(map[string]string, len(data.Modules)),
		codes:   make(map[string]struct{}, len(data.Curriculum)),
	}

	for _, m := range data.Modules {
		name := strings.TrimSpace(m)
		if name == "" {
			continue
		}
		key := normalizeModule(name)
		if _, exists := s.modules[key]; exists {
			continue
		}
		s.modules[key] = name
		s.moduleList = append(s.moduleList, name)
	}
	sort.Strings(s.moduleList)

	for _, entry := range data.Curriculum {
		code := strings.TrimSpace(entry.Code)
		if code == "" {
			continue
		}
		if _, exists := s.codes[code]; exists {
			continue
		}
		s.codes[code] = struct{}{}
		entry.Code = code
		s.curriculum = append(s.curriculum, entry)
	}

	s.examples = append(s.examples, data.Examples...)
	return s
}

// NewSnapshotFromSets builds a snapshot from bare vocabularies.
func NewSnapshotFromSets(modules, codes []string) *ReferenceSnapshot {
	data := SnapshotData{Modules: modules}
	for _, c := range codes {
		data.Curriculum = append(data.Curriculum, CurriculumEntry{Code: c})
	}
	return NewReferenceSnapshot(data)
}

// LookupModule returns the canonical module name matching candidate, ignoring case.
func (s *ReferenceSnapshot) LookupModule(candidate string) (string, bool) {
	if s == nil {
		return "", false
	}
	name, ok := s.modules[normalizeModule(candidate)]
	return name, ok
}

// HasModule reports whether candidate names a known module.
func (s *ReferenceSnapshot) HasModule(candidate string) bool {
	_, ok := s.LookupModule(candidate)
	return ok
}

// HasCurriculumCode reports whether code is a known curriculum reference.
func (s *ReferenceSnapshot) HasCurriculumCode(code string) bool {
	if s == nil {
		return false
	}
	_, ok := s.codes[code]
	return ok
}

// Modules returns the module names in sorted order.
func (s *ReferenceSnapshot) Modules() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.moduleList...)
}

// Curriculum returns the curriculum entries in load order.
func (s *ReferenceSnapshot) Curriculum() []CurriculumEntry {
	if s == nil {
		return nil
	}
	return append([]CurriculumEntry(nil), s.curriculum...)
}

// CurriculumCodes returns the known codes in load order.
func (s *ReferenceSnapshot) CurriculumCodes() []string {
	if s == nil {
		return nil
	}
	codes := make([]string, 0, len(s.curriculum))
	for _, e := range s.curriculum {
		codes = append(codes, e.Code)
	}
	return codes
}

func (s *ReferenceSnapshot) Examples() []Example {
	if s == nil {
		return nil
	}
	return append([]Example(nil), s.examples...)
}

// Data returns a serializable copy of the snapshot.
func (s *ReferenceSnapshot) Data() SnapshotData {
	return SnapshotData{
		Modules:    s.Modules(),
		Curriculum: s.Curriculum(),
		Examples:   s.Examples(),
	}
}

func normalizeModule(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
