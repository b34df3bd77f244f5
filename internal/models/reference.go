package models

import (
	"strings"
	"time"
)

// EducationalModule is a thematic module an activity can belong to.
// AI-suggested modules come from generations that proposed a name outside the vocabulary.
type EducationalModule struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	ModuleName    string    `gorm:"uniqueIndex;not null;size:200" json:"name"`
	IsAISuggested bool      `gorm:"default:false;index" json:"is_ai_suggested"`
}

// MajorCurriculumReference is a top-level section of the core curriculum ("1", "2", ...)
type MajorCurriculumReference struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	ReferenceCode string    `gorm:"uniqueIndex;not null;size:20" json:"reference_code"`
	FullText      string    `gorm:"type:text;not null" json:"full_text"`
}

// CurriculumReference is a numbered paragraph of the core curriculum ("4.15")
type CurriculumReference struct {
	ID               uint                      `gorm:"primarykey" json:"id"`
	CreatedAt        time.Time                 `json:"created_at"`
	ReferenceCode    string                    `gorm:"uniqueIndex;not null;size:20" json:"reference_code"`
	FullText         string                    `gorm:"type:text;not null" json:"full_text"`
	MajorReferenceID *uint                     `gorm:"index" json:"major_reference_id,omitempty"`
	MajorReference   *MajorCurriculumReference `gorm:"foreignKey:MajorReferenceID" json:"-"`
}

// WorkPlan groups the entries of one weekly theme
type WorkPlan struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Theme     string          `gorm:"size:200" json:"theme"`
	Entries   []WorkPlanEntry `gorm:"foreignKey:WorkPlanID" json:"entries,omitempty"`
}

// WorkPlanEntry is one activity of a work plan. Entries flagged IsExample are
// used as few-shot examples in generation prompts.
type WorkPlanEntry struct {
	ID                   uint                  `gorm:"primarykey" json:"id"`
	CreatedAt            time.Time             `json:"created_at"`
	WorkPlanID           uint                  `gorm:"not null;index" json:"work_plan_id"`
	WorkPlan             *WorkPlan             `gorm:"foreignKey:WorkPlanID" json:"-"`
	Activity             string                `gorm:"type:text;not null" json:"activity"`
	Objectives           string                `gorm:"type:text" json:"objectives"` // newline-separated
	IsExample            bool                  `gorm:"default:false;index" json:"is_example"`
	Modules              []EducationalModule   `gorm:"many2many:work_plan_entry_modules" json:"modules,omitempty"`
	CurriculumReferences []CurriculumReference `gorm:"many2many:work_plan_entry_curriculum_references" json:"curriculum_references,omitempty"`
}

// ObjectiveList splits the stored objectives into non-empty lines
func (e *WorkPlanEntry) ObjectiveList() []string {
	var out []string
	for _, line := range strings.Split(e.Objectives, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// JoinObjectives is the inverse of ObjectiveList
func JoinObjectives(objectives []string) string {
	return strings.Join(objectives, "\n")
}
