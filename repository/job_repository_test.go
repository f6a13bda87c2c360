package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelcomposer/models"
)

func TestMemoryJobRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryJobRepository()

	require.NoError(t, repo.Create(ctx, models.Job{ID: "a", State: models.JobQueued}))
	assert.Error(t, repo.Create(ctx, models.Job{ID: "a"}))

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrJobNotFound)

	job, err := repo.Update(ctx, "a", func(j *models.Job) error {
		j.State = models.JobProcessing
		j.Warnings = append(j.Warnings, "w1")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.JobProcessing, job.State)

	// snapshots do not alias stored state
	job.Warnings[0] = "mutated"
	stored, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"w1"}, stored.Warnings)

	boom := errors.New("rejected")
	_, err = repo.Update(ctx, "a", func(j *models.Job) error {
		j.State = models.JobDone
		return boom
	})
	assert.ErrorIs(t, err, boom)
	stored, _ = repo.Get(ctx, "a")
	assert.Equal(t, models.JobProcessing, stored.State, "failed update leaves job untouched")

	_, err = repo.Update(ctx, "missing", func(j *models.Job) error { return nil })
	assert.ErrorIs(t, err, models.ErrJobNotFound)
}

func TestMemoryJobRepositoryConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryJobRepository()
	require.NoError(t, repo.Create(ctx, models.Job{ID: "a"}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = repo.Update(ctx, "a", func(j *models.Job) error {
				j.Warnings = append(j.Warnings, "x")
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			_, _ = repo.Get(ctx, "a")
		}()
	}
	wg.Wait()

	job, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, job.Warnings, 50)
}

func TestJobRecordConversion(t *testing.T) {
	now := time.Now().UTC()
	job := models.Job{
		ID: "a", State: models.JobDone, ResultLocation: "/videos/a.mp4",
		Warnings: []string{"one", "two"}, CreatedAt: now, UpdatedAt: now,
	}
	assert.Equal(t, job, toRecord(job).toModel())

	empty := toRecord(models.Job{ID: "b", State: models.JobQueued}).toModel()
	assert.Nil(t, empty.Warnings)
	assert.Equal(t, "composition_jobs", jobRecord{}.TableName())
}
