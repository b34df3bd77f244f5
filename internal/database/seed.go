package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/workplan-api/internal/logger"
	"github.com/Conceptual-Machines/workplan-api/internal/models"
	"github.com/Conceptual-Machines/workplan-api/internal/workplan"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedSection is a major curriculum section in the seed file
type SeedSection struct {
	Code string `yaml:"code"`
	Text string `yaml:"text"`
}

// SeedData is the reference vocabulary shipped with the service
type SeedData struct {
	Modules    []string                   `yaml:"modules"`
	Sections   []SeedSection              `yaml:"sections"`
	Curriculum []workplan.CurriculumEntry `yaml:"curriculum"`
	Examples   []workplan.Example         `yaml:"examples"`
}

// SeedResult counts rows inserted by Seed. Existing rows are left untouched.
type SeedResult struct {
	Modules    int
	Sections   int
	Curriculum int
	Examples   int
}

// ParseSeed decodes and checks seed YAML. Curriculum codes must belong to a
// declared section and examples may only use declared modules and codes.
func ParseSeed(data []byte) (*SeedData, error) {
	var seed SeedData
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to decode seed data: %w", err)
	}

	var errs []error
	sections := make(map[string]bool, len(seed.Sections))
	for _, s := range seed.Sections {
		sections[s.Code] = true
	}

	codes := make(map[string]bool, len(seed.Curriculum))
	for _, c := range seed.Curriculum {
		if codes[c.Code] {
			errs = append(errs, fmt.Errorf("duplicate curriculum code %q", c.Code))
		}
		codes[c.Code] = true
		if !sections[SectionCode(c.Code)] {
			errs = append(errs, fmt.Errorf("curriculum code %q has no section %q", c.Code, SectionCode(c.Code)))
		}
	}

	refs := workplan.NewSnapshotFromSets(seed.Modules, nil)
	for i, ex := range seed.Examples {
		if !refs.HasModule(ex.Module) {
			errs = append(errs, fmt.Errorf("example %d uses unknown module %q", i+1, ex.Module))
		}
		for _, code := range ex.CurriculumRefs {
			if !codes[code] {
				errs = append(errs, fmt.Errorf("example %d uses unknown curriculum code %q", i+1, code))
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &seed, nil
}

// SectionCode returns the major section of a curriculum code ("4.15" -> "4")
func SectionCode(code string) string {
	major, _, _ := strings.Cut(code, ".")
	return major
}

// Seed inserts the reference vocabulary and example entries in one transaction
func Seed(ctx context.Context, db *gorm.DB, seed *SeedData) (*SeedResult, error) {
	result := &SeedResult{}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range seed.Modules {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.EducationalModule{ModuleName: name})
			if res.Error != nil {
				return fmt.Errorf("failed to seed module %q: %w", name, res.Error)
			}
			result.Modules += int(res.RowsAffected)
		}

		sectionIDs := make(map[string]uint, len(seed.Sections))
		for _, s := range seed.Sections {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.MajorCurriculumReference{ReferenceCode: s.Code, FullText: s.Text})
			if res.Error != nil {
				return fmt.Errorf("failed to seed section %q: %w", s.Code, res.Error)
			}
			result.Sections += int(res.RowsAffected)

			var section models.MajorCurriculumReference
			if err := tx.Where("reference_code = ?", s.Code).First(&section).Error; err != nil {
				return fmt.Errorf("failed to load section %q: %w", s.Code, err)
			}
			sectionIDs[s.Code] = section.ID
		}

		for _, c := range seed.Curriculum {
			ref := models.CurriculumReference{ReferenceCode: c.Code, FullText: c.Text}
			if id, ok := sectionIDs[SectionCode(c.Code)]; ok {
				ref.MajorReferenceID = &id
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ref)
			if res.Error != nil {
				return fmt.Errorf("failed to seed curriculum code %q: %w", c.Code, res.Error)
			}
			result.Curriculum += int(res.RowsAffected)
		}

		n, err := seedExamples(tx, seed.Examples)
		result.Examples = n
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Reference data seeded", logger.Fields{
		"modules":    result.Modules,
		"sections":   result.Sections,
		"curriculum": result.Curriculum,
		"examples":   result.Examples,
	})
	return result, nil
}

func seedExamples(tx *gorm.DB, examples []workplan.Example) (int, error) {
	inserted := 0
	plans := map[string]*models.WorkPlan{}

	for _, ex := range examples {
		var existing int64
		if err := tx.Model(&models.WorkPlanEntry{}).
			Where("is_example = ? AND activity = ?", true, ex.Activity).
			Count(&existing).Error; err != nil {
			return inserted, fmt.Errorf("failed to check example: %w", err)
		}
		if existing > 0 {
			continue
		}

		plan, ok := plans[ex.Theme]
		if !ok {
			plan = &models.WorkPlan{Theme: ex.Theme}
			if err := tx.Where(models.WorkPlan{Theme: ex.Theme}).FirstOrCreate(plan).Error; err != nil {
				return inserted, fmt.Errorf("failed to seed work plan %q: %w", ex.Theme, err)
			}
			plans[ex.Theme] = plan
		}

		var modules []models.EducationalModule
		if err := tx.Where("UPPER(module_name) = UPPER(?)", ex.Module).Find(&modules).Error; err != nil {
			return inserted, fmt.Errorf("failed to load example module: %w", err)
		}
		var refs []models.CurriculumReference
		if err := tx.Where("reference_code IN ?", ex.CurriculumRefs).Find(&refs).Error; err != nil {
			return inserted, fmt.Errorf("failed to load example curriculum refs: %w", err)
		}

		entry := models.WorkPlanEntry{
			WorkPlanID:           plan.ID,
			Activity:             ex.Activity,
			Objectives:           models.JoinObjectives(ex.Objectives),
			IsExample:            true,
			Modules:              modules,
			CurriculumReferences: refs,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return inserted, fmt.Errorf("failed to seed example: %w", err)
		}
		inserted++
	}

	return inserted, nil
}
