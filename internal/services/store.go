package services

import (
	"context"
	"errors"
	"time"

	"github.com/Conceptual-Machines/workplan-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a looked-up record does not exist
var ErrNotFound = errors.New("record not found")

// UsageStats aggregates generation logs over a time window
type UsageStats struct {
	From         time.Time      `json:"from"`
	To           time.Time      `json:"to"`
	Requests     int64          `json:"requests"`
	InputTokens  int64          `json:"input_tokens"`
	OutputTokens int64          `json:"output_tokens"`
	TotalTokens  int64          `json:"total_tokens"`
	CostUSD      float64        `json:"cost_usd"`
	AvgDuration  float64        `json:"avg_duration_ms"`
	ByStatus     map[string]int `json:"by_status"`
	ByModel      []ModelUsage   `json:"by_model"`
}

// ModelUsage is the per-model share of UsageStats
type ModelUsage struct {
	Model       string  `json:"model"`
	Requests    int64   `json:"requests"`
	TotalTokens int64   `json:"total_tokens"`
	CostUSD     float64 `json:"cost_usd"`
}

// Store is the persistence the services need
type Store interface {
	ListModules(ctx context.Context, aiSuggested *bool) ([]models.EducationalModule, error)
	ListCurriculum(ctx context.Context) ([]models.CurriculumReference, error)
	ListSections(ctx context.Context) ([]models.MajorCurriculumReference, error)
	ListExamples(ctx context.Context, limit int) ([]models.WorkPlanEntry, error)
	FindCurriculumRef(ctx context.Context, code string) (*models.CurriculumReference, error)
	CreateSuggestedModules(ctx context.Context, names []string) (int, error)
	CreateGenerationLog(ctx context.Context, log *models.GenerationLog) error
	UsageStats(ctx context.Context, from, to time.Time) (*UsageStats, error)
}

// GormStore implements Store on postgres through gorm
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) ListModules(ctx context.Context, aiSuggested *bool) ([]models.EducationalModule, error) {
	var modules []models.EducationalModule
	query := s.db.WithContext(ctx).Order("module_name")
	if aiSuggested != nil {
		query = query.Where("is_ai_suggested = ?", *aiSuggested)
	}
	if err := query.Find(&modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}

func (s *GormStore) ListCurriculum(ctx context.Context) ([]models.CurriculumReference, error) {
	var refs []models.CurriculumReference
	if err := s.db.WithContext(ctx).Preload("MajorReference").Find(&refs).Error; err != nil {
		return nil, err
	}
	return refs, nil
}

func (s *GormStore) ListSections(ctx context.Context) ([]models.MajorCurriculumReference, error) {
	var sections []models.MajorCurriculumReference
	if err := s.db.WithContext(ctx).Order("reference_code").Find(&sections).Error; err != nil {
		return nil, err
	}
	return sections, nil
}

// ListExamples returns the few-shot example entries, newest first
func (s *GormStore) ListExamples(ctx context.Context, limit int) ([]models.WorkPlanEntry, error) {
	var entries []models.WorkPlanEntry
	query := s.db.WithContext(ctx).
		Preload("WorkPlan").
		Preload("Modules").
		Preload("CurriculumReferences").
		Where("is_example = ?", true).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *GormStore) FindCurriculumRef(ctx context.Context, code string) (*models.CurriculumReference, error) {
	var ref models.CurriculumReference
	err := s.db.WithContext(ctx).Where("reference_code = ?", code).First(&ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// CreateSuggestedModules inserts AI-suggested modules, skipping names that
// already exist. It returns the number of new rows.
func (s *GormStore) CreateSuggestedModules(ctx context.Context, names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	modules := make([]models.EducationalModule, 0, len(names))
	for _, name := range names {
		modules = append(modules, models.EducationalModule{ModuleName: name, IsAISuggested: true})
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "module_name"}}, DoNothing: true}).
		Create(&modules)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

func (s *GormStore) CreateGenerationLog(ctx context.Context, log *models.GenerationLog) error {
	return s.db.WithContext(ctx).Create(log).Error
}

func (s *GormStore) UsageStats(ctx context.Context, from, to time.Time) (*UsageStats, error) {
	stats := &UsageStats{From: from, To: to, ByStatus: map[string]int{}}
	window := s.db.WithContext(ctx).Model(&models.GenerationLog{}).
		Where("created_at >= ? AND created_at < ?", from, to)

	var totals struct {
		Requests     int64
		InputTokens  int64
		OutputTokens int64
		TotalTokens  int64
		CostUSD      float64
		AvgDuration  float64
	}
	err := window.Session(&gorm.Session{}).Select(
		"COUNT(*) AS requests, " +
			"COALESCE(SUM(input_tokens), 0) AS input_tokens, " +
			"COALESCE(SUM(output_tokens), 0) AS output_tokens, " +
			"COALESCE(SUM(total_tokens), 0) AS total_tokens, " +
			"COALESCE(SUM(cost_usd), 0) AS cost_usd, " +
			"COALESCE(AVG(duration_ms), 0) AS avg_duration",
	).Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	stats.Requests = totals.Requests
	stats.InputTokens = totals.InputTokens
	stats.OutputTokens = totals.OutputTokens
	stats.TotalTokens = totals.TotalTokens
	stats.CostUSD = totals.CostUSD
	stats.AvgDuration = totals.AvgDuration

	var byStatus []struct {
		Status string
		Count  int
	}
	err = window.Session(&gorm.Session{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&byStatus).Error
	if err != nil {
		return nil, err
	}
	for _, row := range byStatus {
		stats.ByStatus[row.Status] = row.Count
	}

	err = window.Session(&gorm.Session{}).
		Select("model, COUNT(*) AS requests, COALESCE(SUM(total_tokens), 0) AS total_tokens, COALESCE(SUM(cost_usd), 0) AS cost_usd").
		Group("model").
		Order("requests DESC").
		Scan(&stats.ByModel).Error
	if err != nil {
		return nil, err
	}

	return stats, nil
}
