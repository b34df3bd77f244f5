package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Conceptual-Machines/workplan-api/internal/cache"
	"github.com/Conceptual-Machines/workplan-api/internal/logger"
	"github.com/Conceptual-Machines/workplan-api/internal/models"
	"github.com/Conceptual-Machines/workplan-api/internal/workplan"
	"golang.org/x/sync/errgroup"
)

const (
	snapshotCacheKey       = "reference:snapshot"
	curriculumCacheKeyBase = "reference:curriculum:"
)

// ReferenceService serves the reference vocabulary: snapshots for generation
// runs and curriculum lookups for tooltips, both through the TTL cache.
type ReferenceService struct {
	store         Store
	cache         cache.Cache
	ttl           time.Duration
	examplesLimit int
}

// NewReferenceService creates a reference service. A nil cache disables caching.
func NewReferenceService(store Store, c cache.Cache, ttl time.Duration, examplesLimit int) *ReferenceService {
	return &ReferenceService{
		store:         store,
		cache:         c,
		ttl:           ttl,
		examplesLimit: examplesLimit,
	}
}

// LoadSnapshot returns the current reference snapshot. Modules, curriculum,
// sections and examples are loaded concurrently on a cache miss.
func (s *ReferenceService) LoadSnapshot(ctx context.Context) (*workplan.ReferenceSnapshot, error) {
	var data workplan.SnapshotData
	if s.cacheGet(ctx, snapshotCacheKey, &data) {
		return workplan.NewReferenceSnapshot(data), nil
	}

	var (
		modules  []models.EducationalModule
		refs     []models.CurriculumReference
		sections []models.MajorCurriculumReference
		entries  []models.WorkPlanEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		modules, err = s.store.ListModules(gctx, nil)
		return err
	})
	g.Go(func() error {
		var err error
		refs, err = s.store.ListCurriculum(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		sections, err = s.store.ListSections(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = s.store.ListExamples(gctx, s.examplesLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load reference data: %w", err)
	}

	data = buildSnapshotData(modules, refs, sections, entries)
	s.cacheSet(ctx, snapshotCacheKey, data)

	logger.Debug("Reference snapshot loaded", logger.Fields{
		"modules":    len(data.Modules),
		"curriculum": len(data.Curriculum),
		"examples":   len(data.Examples),
	})
	return workplan.NewReferenceSnapshot(data), nil
}

func buildSnapshotData(
	modules []models.EducationalModule,
	refs []models.CurriculumReference,
	sections []models.MajorCurriculumReference,
	entries []models.WorkPlanEntry,
) workplan.SnapshotData {
	data := workplan.SnapshotData{
		Modules:    make([]string, 0, len(modules)),
		Curriculum: make([]workplan.CurriculumEntry, 0, len(refs)),
		Examples:   make([]workplan.Example, 0, len(entries)),
	}

	for _, m := range modules {
		data.Modules = append(data.Modules, m.ModuleName)
	}

	sectionText := make(map[uint]string, len(sections))
	for _, sec := range sections {
		sectionText[sec.ID] = sec.FullText
	}
	for _, ref := range refs {
		entry := workplan.CurriculumEntry{Code: ref.ReferenceCode, Text: ref.FullText}
		switch {
		case ref.MajorReference != nil:
			entry.Section = ref.MajorReference.FullText
		case ref.MajorReferenceID != nil:
			entry.Section = sectionText[*ref.MajorReferenceID]
		}
		data.Curriculum = append(data.Curriculum, entry)
	}
	slices.SortFunc(data.Curriculum, func(a, b workplan.CurriculumEntry) int {
		return CompareCodes(a.Code, b.Code)
	})

	for _, e := range entries {
		example := workplan.Example{
			Activity:   e.Activity,
			Objectives: e.ObjectiveList(),
		}
		if e.WorkPlan != nil {
			example.Theme = e.WorkPlan.Theme
		}
		if len(e.Modules) > 0 {
			example.Module = e.Modules[0].ModuleName
		}
		for _, ref := range e.CurriculumReferences {
			example.CurriculumRefs = append(example.CurriculumRefs, ref.ReferenceCode)
		}
		slices.SortFunc(example.CurriculumRefs, CompareCodes)
		data.Examples = append(data.Examples, example)
	}

	return data
}

// CompareCodes orders curriculum codes numerically by their dot-separated
// parts ("4.2" < "4.15"). Non-numeric parts compare as strings.
func CompareCodes(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		na, errA := strconv.Atoi(pa[i])
		nb, errB := strconv.Atoi(pb[i])
		if errA == nil && errB == nil {
			if na != nb {
				return na - nb
			}
			continue
		}
		if c := strings.Compare(pa[i], pb[i]); c != 0 {
			return c
		}
	}
	return len(pa) - len(pb)
}

// Invalidate drops the cached snapshot so the next run reloads it
func (s *ReferenceService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, snapshotCacheKey); err != nil {
		logger.Warn("Failed to invalidate reference snapshot", logger.Fields{"error": err.Error()})
	}
}

// GetCurriculumRef returns one curriculum paragraph. Missing codes return ErrNotFound.
func (s *ReferenceService) GetCurriculumRef(ctx context.Context, code string) (*models.CurriculumReference, error) {
	key := curriculumCacheKeyBase + code

	var ref models.CurriculumReference
	if s.cacheGet(ctx, key, &ref) {
		return &ref, nil
	}

	found, err := s.store.FindCurriculumRef(ctx, code)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, found)
	return found, nil
}

// ListCurriculumRefs returns every curriculum code with its text
func (s *ReferenceService) ListCurriculumRefs(ctx context.Context) (map[string]string, error) {
	snapshot, err := s.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	curriculum := snapshot.Curriculum()
	refs := make(map[string]string, len(curriculum))
	for _, entry := range curriculum {
		refs[entry.Code] = entry.Text
	}
	return refs, nil
}

// ListModules returns modules, optionally filtered by the AI-suggested flag
func (s *ReferenceService) ListModules(ctx context.Context, aiSuggested *bool) ([]models.EducationalModule, error) {
	return s.store.ListModules(ctx, aiSuggested)
}

// RegisterSuggestedModules stores module names proposed by the model that are
// not in the vocabulary. The cached snapshot is dropped when anything new was
// stored; snapshots already handed out are not affected.
func (s *ReferenceService) RegisterSuggestedModules(ctx context.Context, names []string) (int, error) {
	seen := make(map[string]struct{}, len(names))
	var unique []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToUpper(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, name)
	}
	if len(unique) == 0 {
		return 0, nil
	}

	created, err := s.store.CreateSuggestedModules(ctx, unique)
	if err != nil {
		return 0, err
	}
	if created > 0 {
		s.Invalidate(ctx)
		logger.Info("AI-suggested modules registered", logger.Fields{
			"modules": unique,
			"created": created,
		})
	}
	return created, nil
}

func (s *ReferenceService) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := cache.GetJSON(ctx, s.cache, key, dst)
	if err != nil {
		logger.Warn("Reference cache read failed", logger.Fields{"key": key, "error": err.Error()})
		return false
	}
	return ok
}

func (s *ReferenceService) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, key, value, s.ttl); err != nil {
		logger.Warn("Reference cache write failed", logger.Fields{"key": key, "error": err.Error()})
	}
}

// IsNotFound reports whether err is a missing-record error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
