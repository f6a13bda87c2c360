package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelcomposer/models"
)

type fixedDuration int

func (f fixedDuration) TotalFrames() int { return int(f) }

func TestDeclaredDuration(t *testing.T) {
	segs := []models.ResolvedSegment{{DurationFrames: 90}, {DurationFrames: 150}, {DurationFrames: 30}}
	assert.Equal(t, 270, DeclaredEstimator(segs).TotalFrames())
	assert.Equal(t, 0, DeclaredDuration{}.TotalFrames())
}

func TestAccumulatedDurationConcurrent(t *testing.T) {
	var acc AccumulatedDuration
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acc.Add(3)
		}()
	}
	wg.Wait()
	assert.Equal(t, 300, acc.TotalFrames())
}

func TestReconcile(t *testing.T) {
	total, warn := Reconcile(fixedDuration(270), fixedDuration(270))
	assert.Equal(t, 270, total)
	assert.Nil(t, warn)

	total, warn = Reconcile(fixedDuration(280), fixedDuration(270))
	assert.Equal(t, 270, total, "rendered total is the source of truth")
	require.NotNil(t, warn)
	assert.Equal(t, models.WarnDurationMismatch, warn.Kind)
	assert.Equal(t, -1, warn.Segment)
	assert.Contains(t, warn.Message, "declared 280")
}
