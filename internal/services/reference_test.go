package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Conceptual-Machines/workplan-api/internal/cache"
	"github.com/Conceptual-Machines/workplan-api/internal/workplan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSnapshot_BuildsVocabulary(t *testing.T) {
	store := newFakeStore()
	refs := NewReferenceService(store, nil, time.Minute, 3)

	snapshot, err := refs.LoadSnapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"JĘZYK", "MATEMATYKA"}, snapshot.Modules())
	assert.Equal(t, []string{"1.1", "4.2", "4.15"}, snapshot.CurriculumCodes())

	curriculum := snapshot.Curriculum()
	require.Len(t, curriculum, 3)
	assert.Equal(t, "Fizyczny obszar rozwoju dziecka", curriculum[0].Section)
	assert.Equal(t, "Poznawczy obszar rozwoju dziecka", curriculum[2].Section)

	examples := snapshot.Examples()
	require.Len(t, examples, 1)
	assert.Equal(t, workplan.Example{
		Theme:          "Jesień",
		Activity:       "Liczenie kasztanów",
		Module:         "MATEMATYKA",
		CurriculumRefs: []string{"4.2", "4.15"},
		Objectives:     []string{"Dziecko przelicza kasztany", "Dziecko porównuje liczebność zbiorów"},
	}, examples[0])
}

func TestLoadSnapshot_CachedUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	refs := NewReferenceService(store, cache.NewMemoryCache(), time.Minute, 3)

	first, err := refs.LoadSnapshot(ctx)
	require.NoError(t, err)
	second, err := refs.LoadSnapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, store.count("ListCurriculum"))
	assert.Equal(t, first.CurriculumCodes(), second.CurriculumCodes())
	assert.Equal(t, first.Modules(), second.Modules())
	assert.Equal(t, first.Examples(), second.Examples())

	refs.Invalidate(ctx)
	_, err = refs.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, store.count("ListCurriculum"))
}

func TestLoadSnapshot_StoreError(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("connection refused")
	refs := NewReferenceService(store, cache.NewMemoryCache(), time.Minute, 3)

	snapshot, err := refs.LoadSnapshot(context.Background())

	assert.Nil(t, snapshot)
	assert.ErrorIs(t, err, store.listErr)
}

func TestGetCurriculumRef(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	refs := NewReferenceService(store, cache.NewMemoryCache(), time.Minute, 3)

	ref, err := refs.GetCurriculumRef(ctx, "4.15")
	require.NoError(t, err)
	assert.Equal(t, "przelicza elementy zbiorów;", ref.FullText)

	_, err = refs.GetCurriculumRef(ctx, "4.15")
	require.NoError(t, err)
	assert.Equal(t, 1, store.count("FindCurriculumRef"))

	_, err = refs.GetCurriculumRef(ctx, "9.99")
	assert.True(t, IsNotFound(err))
}

func TestListCurriculumRefs(t *testing.T) {
	refs := NewReferenceService(newFakeStore(), nil, time.Minute, 3)

	got, err := refs.ListCurriculumRefs(context.Background())

	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, "zgłasza potrzeby fizjologiczne;", got["1.1"])
}

func TestRegisterSuggestedModules(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	refs := NewReferenceService(store, cache.NewMemoryCache(), time.Minute, 3)

	_, err := refs.LoadSnapshot(ctx)
	require.NoError(t, err)

	created, err := refs.RegisterSuggestedModules(ctx, []string{" EKOLOGIA ", "ekologia", "", "TEATR"})
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	suggested := true
	modules, err := refs.ListModules(ctx, &suggested)
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, "EKOLOGIA", modules[0].ModuleName)

	snapshot, err := refs.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, snapshot.HasModule("teatr"))
	assert.Equal(t, 2, store.count("ListCurriculum"))
}

func TestRegisterSuggestedModules_NothingNewKeepsCache(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	refs := NewReferenceService(store, cache.NewMemoryCache(), time.Minute, 3)

	_, err := refs.LoadSnapshot(ctx)
	require.NoError(t, err)

	created, err := refs.RegisterSuggestedModules(ctx, []string{"MATEMATYKA"})
	require.NoError(t, err)
	assert.Zero(t, created)

	_, err = refs.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.count("ListCurriculum"))

	created, err = refs.RegisterSuggestedModules(ctx, []string{"  "})
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Equal(t, 1, store.count("CreateSuggestedModules"))
}

func TestCompareCodes(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"4.2", "4.15", -1},
		{"4.15", "4.2", 1},
		{"10.1", "9.9", 1},
		{"4.15", "4.15", 0},
		{"4", "4.1", -1},
		{"a.1", "b.1", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			got := CompareCodes(tt.a, tt.b)
			switch {
			case tt.want < 0:
				assert.Negative(t, got)
			case tt.want > 0:
				assert.Positive(t, got)
			default:
				assert.Zero(t, got)
			}
		})
	}
}
