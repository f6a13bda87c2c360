package repository

import (
	"context"
	"fmt"
	"sync"

	"reelcomposer/models"
)

// JobRepository stores composition jobs. Update applies fn atomically: no
// other writer observes or changes the job between the read and the write.
type JobRepository interface {
	Create(ctx context.Context, job models.Job) error
	Get(ctx context.Context, id string) (models.Job, error)
	Update(ctx context.Context, id string, fn func(job *models.Job) error) (models.Job, error)
}

// MemoryJobRepository keeps jobs for the lifetime of the process
type MemoryJobRepository struct {
	jobs map[string]models.Job
	mu   sync.RWMutex
}

// NewMemoryJobRepository creates an empty in-memory repository
func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{jobs: make(map[string]models.Job)}
}

func (r *MemoryJobRepository) Create(ctx context.Context, job models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	r.jobs[job.ID] = job.Clone()
	return nil
}

func (r *MemoryJobRepository) Get(ctx context.Context, id string) (models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, exists := r.jobs[id]
	if !exists {
		return models.Job{}, models.ErrJobNotFound
	}
	return job.Clone(), nil
}

func (r *MemoryJobRepository) Update(ctx context.Context, id string, fn func(job *models.Job) error) (models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, exists := r.jobs[id]
	if !exists {
		return models.Job{}, models.ErrJobNotFound
	}
	job = job.Clone()
	if err := fn(&job); err != nil {
		return models.Job{}, err
	}
	r.jobs[id] = job
	return job.Clone(), nil
}
