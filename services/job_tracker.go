package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"reelcomposer/models"
	"reelcomposer/repository"
)

// CancelledDetail is the error detail of a job stopped by its client
const CancelledDetail = "cancelled"

// JobTracker owns the lifecycle of composition jobs. All state changes go
// through its transition methods.
type JobTracker struct {
	repo   repository.JobRepository
	now    func() time.Time
	logger zerolog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewJobTracker creates a tracker backed by repo
func NewJobTracker(repo repository.JobRepository, logger zerolog.Logger) *JobTracker {
	return &JobTracker{
		repo:    repo,
		now:     time.Now,
		logger:  logger.With().Str("component", "job_tracker").Logger(),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Submit registers a new job in the queued state
func (t *JobTracker) Submit(ctx context.Context) (string, error) {
	now := t.now()
	job := models.Job{
		ID:        uuid.New().String(),
		State:     models.JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.repo.Create(ctx, job); err != nil {
		return "", fmt.Errorf("failed to register job: %w", err)
	}
	t.logger.Info().Str("job_id", job.ID).Msg("Job queued")
	return job.ID, nil
}

// Attach registers the function that stops the job's work on Cancel
func (t *JobTracker) Attach(id string, cancel context.CancelFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancels[id] = cancel
}

func (t *JobTracker) detach(id string) context.CancelFunc {
	t.mu.Lock()
	defer t.mu.Unlock()
	cancel := t.cancels[id]
	delete(t.cancels, id)
	return cancel
}

// Start moves a queued job to processing
func (t *JobTracker) Start(ctx context.Context, id string) error {
	_, err := t.transition(ctx, id, models.JobProcessing, func(job *models.Job) {})
	return err
}

// Complete marks the job done with its result location
func (t *JobTracker) Complete(ctx context.Context, id, location string, warnings []string) error {
	defer t.detach(id)
	_, err := t.transition(ctx, id, models.JobDone, func(job *models.Job) {
		job.ResultLocation = location
		job.Warnings = append([]string(nil), warnings...)
	})
	return err
}

// Fail marks the job as errored with a human readable cause
func (t *JobTracker) Fail(ctx context.Context, id, detail string) error {
	defer t.detach(id)
	_, err := t.transition(ctx, id, models.JobError, func(job *models.Job) {
		job.ErrorDetail = detail
	})
	return err
}

// Cancel marks a job that has not finished as cancelled and stops its work.
// Renders already handed to ffmpeg are killed with their context.
func (t *JobTracker) Cancel(ctx context.Context, id string) (models.Job, error) {
	job, err := t.transition(ctx, id, models.JobError, func(job *models.Job) {
		job.ErrorDetail = CancelledDetail
	})
	if err != nil {
		return job, err
	}
	if cancel := t.detach(id); cancel != nil {
		cancel()
	}
	t.logger.Info().Str("job_id", id).Msg("Job cancelled")
	return job, nil
}

// Status returns a snapshot of the job
func (t *JobTracker) Status(ctx context.Context, id string) (models.Job, error) {
	return t.repo.Get(ctx, id)
}

func (t *JobTracker) transition(ctx context.Context, id string, to models.JobState, apply func(job *models.Job)) (models.Job, error) {
	job, err := t.repo.Update(ctx, id, func(job *models.Job) error {
		if !isValidTransition(job.State, to) {
			return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, job.State, to)
		}
		job.State = to
		job.UpdatedAt = t.now()
		apply(job)
		return nil
	})
	if err != nil {
		return models.Job{}, err
	}
	t.logger.Debug().Str("job_id", id).Str("state", string(to)).Msg("Job transition")
	return job, nil
}

// isValidTransition enforces queued -> processing -> done|error; any
// non-terminal job may also move to error.
func isValidTransition(from, to models.JobState) bool {
	switch from {
	case models.JobQueued:
		return to == models.JobProcessing || to == models.JobError
	case models.JobProcessing:
		return to == models.JobDone || to == models.JobError
	default:
		return false
	}
}
