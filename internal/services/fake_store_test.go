package services

import (
	"context"
	"sync"
	"time"

	"github.com/Conceptual-Machines/workplan-api/internal/models"
)

// fakeStore is an in-memory Store. Err fields force the matching call to fail.
type fakeStore struct {
	mu sync.Mutex

	modules  []models.EducationalModule
	refs     []models.CurriculumReference
	sections []models.MajorCurriculumReference
	examples []models.WorkPlanEntry
	logs     []*models.GenerationLog

	listErr   error
	createErr error
	logErr    error

	calls map[string]int
}

func uintPtr(v uint) *uint { return &v }

func newFakeStore() *fakeStore {
	sections := []models.MajorCurriculumReference{
		{ID: 1, ReferenceCode: "1", FullText: "Fizyczny obszar rozwoju dziecka"},
		{ID: 4, ReferenceCode: "4", FullText: "Poznawczy obszar rozwoju dziecka"},
	}
	return &fakeStore{
		modules: []models.EducationalModule{
			{ID: 1, ModuleName: "MATEMATYKA"},
			{ID: 2, ModuleName: "JĘZYK"},
		},
		refs: []models.CurriculumReference{
			{ID: 1, ReferenceCode: "4.15", FullText: "przelicza elementy zbiorów;", MajorReferenceID: uintPtr(4)},
			{ID: 2, ReferenceCode: "4.2", FullText: "wyraża swoje rozumienie świata;", MajorReferenceID: uintPtr(4)},
			{ID: 3, ReferenceCode: "1.1", FullText: "zgłasza potrzeby fizjologiczne;", MajorReferenceID: uintPtr(1)},
		},
		sections: sections,
		examples: []models.WorkPlanEntry{
			{
				Activity:   "Liczenie kasztanów",
				Objectives: "Dziecko przelicza kasztany\nDziecko porównuje liczebność zbiorów",
				WorkPlan:   &models.WorkPlan{Theme: "Jesień"},
				Modules:    []models.EducationalModule{{ModuleName: "MATEMATYKA"}},
				CurriculumReferences: []models.CurriculumReference{
					{ReferenceCode: "4.15"},
					{ReferenceCode: "4.2"},
				},
			},
		},
		calls: map[string]int{},
	}
}

func (f *fakeStore) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeStore) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeStore) ListModules(_ context.Context, aiSuggested *bool) ([]models.EducationalModule, error) {
	f.record("ListModules")
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.EducationalModule
	for _, m := range f.modules {
		if aiSuggested == nil || m.IsAISuggested == *aiSuggested {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) ListCurriculum(context.Context) ([]models.CurriculumReference, error) {
	f.record("ListCurriculum")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.refs, nil
}

func (f *fakeStore) ListSections(context.Context) ([]models.MajorCurriculumReference, error) {
	f.record("ListSections")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.sections, nil
}

func (f *fakeStore) ListExamples(_ context.Context, limit int) ([]models.WorkPlanEntry, error) {
	f.record("ListExamples")
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit > 0 && limit < len(f.examples) {
		return f.examples[:limit], nil
	}
	return f.examples, nil
}

func (f *fakeStore) FindCurriculumRef(_ context.Context, code string) (*models.CurriculumReference, error) {
	f.record("FindCurriculumRef")
	for _, ref := range f.refs {
		if ref.ReferenceCode == code {
			found := ref
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStore) CreateSuggestedModules(_ context.Context, names []string) (int, error) {
	f.record("CreateSuggestedModules")
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	created := 0
	for _, name := range names {
		exists := false
		for _, m := range f.modules {
			if m.ModuleName == name {
				exists = true
				break
			}
		}
		if !exists {
			f.modules = append(f.modules, models.EducationalModule{ModuleName: name, IsAISuggested: true})
			created++
		}
	}
	return created, nil
}

func (f *fakeStore) CreateGenerationLog(_ context.Context, log *models.GenerationLog) error {
	f.record("CreateGenerationLog")
	if f.logErr != nil {
		return f.logErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeStore) UsageStats(_ context.Context, from, to time.Time) (*UsageStats, error) {
	f.record("UsageStats")
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &UsageStats{From: from, To: to, ByStatus: map[string]int{}}
	for _, l := range f.logs {
		stats.Requests++
		stats.TotalTokens += int64(l.TotalTokens)
		stats.CostUSD += l.CostUSD
		stats.ByStatus[l.Status]++
	}
	return stats, nil
}

func (f *fakeStore) storedLogs() []*models.GenerationLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.GenerationLog(nil), f.logs...)
}
