package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"reelcomposer/models"
)

// jobRecord is the composition_jobs row
type jobRecord struct {
	ID             string `gorm:"primaryKey;size:36"`
	State          string `gorm:"size:16;index;not null"`
	ResultLocation string
	ErrorDetail    string
	Warnings       string // newline separated
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (jobRecord) TableName() string {
	return "composition_jobs"
}

func toRecord(job models.Job) jobRecord {
	return jobRecord{
		ID:             job.ID,
		State:          string(job.State),
		ResultLocation: job.ResultLocation,
		ErrorDetail:    job.ErrorDetail,
		Warnings:       strings.Join(job.Warnings, "\n"),
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
	}
}

func (r jobRecord) toModel() models.Job {
	var warnings []string
	if r.Warnings != "" {
		warnings = strings.Split(r.Warnings, "\n")
	}
	return models.Job{
		ID:             r.ID,
		State:          models.JobState(r.State),
		ResultLocation: r.ResultLocation,
		ErrorDetail:    r.ErrorDetail,
		Warnings:       warnings,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// GormJobRepository persists jobs in PostgreSQL so they survive restarts
type GormJobRepository struct {
	db *gorm.DB
}

// NewGormJobRepository connects to dsn and migrates the jobs table
func NewGormJobRepository(dsn string) (*GormJobRepository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return NewGormJobRepositoryWithDB(db)
}

// NewGormJobRepositoryWithDB uses an existing connection
func NewGormJobRepositoryWithDB(db *gorm.DB) (*GormJobRepository, error) {
	if err := db.AutoMigrate(&jobRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate composition_jobs: %w", err)
	}
	return &GormJobRepository{db: db}, nil
}

func (r *GormJobRepository) Create(ctx context.Context, job models.Job) error {
	rec := toRecord(job)
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *GormJobRepository) Get(ctx context.Context, id string) (models.Job, error) {
	var rec jobRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Job{}, models.ErrJobNotFound
	}
	if err != nil {
		return models.Job{}, err
	}
	return rec.toModel(), nil
}

// Update locks the row for the duration of the transaction
func (r *GormJobRepository) Update(ctx context.Context, id string, fn func(job *models.Job) error) (models.Job, error) {
	var updated models.Job
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec jobRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rec, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ErrJobNotFound
		}
		if err != nil {
			return err
		}

		job := rec.toModel()
		if err := fn(&job); err != nil {
			return err
		}
		next := toRecord(job)
		if err := tx.Save(&next).Error; err != nil {
			return err
		}
		updated = job
		return nil
	})
	return updated, err
}
