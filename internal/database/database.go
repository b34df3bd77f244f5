package database

import (
	"fmt"
	"time"

	"github.com/Conceptual-Machines/workplan-api/internal/logger"
	"github.com/Conceptual-Machines/workplan-api/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
	slowQuery       = 500 * time.Millisecond
)

// Connect opens a postgres connection pool
func Connect(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormlogger.New(gormWriter{}, gormlogger.Config{
			SlowThreshold:             slowQuery,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	logger.Info("Database connected", logger.Fields{"max_open_conns": maxOpenConns})
	return db, nil
}

// Migrate creates or updates the schema
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.EducationalModule{},
		&models.MajorCurriculumReference{},
		&models.CurriculumReference{},
		&models.WorkPlan{},
		&models.WorkPlanEntry{},
		&models.GenerationLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database migrations applied", nil)
	return nil
}

// gormWriter routes gorm's slow query and error output through the service logger
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	logger.Warn(fmt.Sprintf(format, args...), logger.Fields{"component": "gorm"})
}
