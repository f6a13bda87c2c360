package services

import (
	"fmt"
	"sync"

	"reelcomposer/models"
)

// DurationModel reports the total length of a composition in frames.
// DeclaredDuration is computed ahead of rendering from the resolved segments,
// AccumulatedDuration adds up what the renderer actually produced.
type DurationModel interface {
	TotalFrames() int
}

// DeclaredDuration is the metadata estimate: the sum of resolved durations
type DeclaredDuration struct {
	Segments []models.ResolvedSegment
}

func (d DeclaredDuration) TotalFrames() int {
	total := 0
	for _, seg := range d.Segments {
		total += seg.DurationFrames
	}
	return total
}

// EstimatorFunc builds the declarative model for a composition
type EstimatorFunc func(segments []models.ResolvedSegment) DurationModel

// DeclaredEstimator is the default EstimatorFunc
func DeclaredEstimator(segments []models.ResolvedSegment) DurationModel {
	return DeclaredDuration{Segments: segments}
}

// AccumulatedDuration sums rendered frames; safe for concurrent Add
type AccumulatedDuration struct {
	mu     sync.Mutex
	frames int
}

// Add records the frames of one rendered segment
func (a *AccumulatedDuration) Add(frames int) {
	a.mu.Lock()
	a.frames += frames
	a.mu.Unlock()
}

func (a *AccumulatedDuration) TotalFrames() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frames
}

// Reconcile compares the declared and accumulated totals. The accumulated
// total always wins because it reflects the rendered content; a disagreement
// yields a duration_mismatch warning and nothing is truncated.
func Reconcile(declared, accumulated DurationModel) (int, *models.Warning) {
	want := declared.TotalFrames()
	got := accumulated.TotalFrames()
	if want == got {
		return got, nil
	}
	return got, &models.Warning{
		Kind:    models.WarnDurationMismatch,
		Segment: -1,
		Message: fmt.Sprintf("declared %d frames, rendered %d frames; using rendered total", want, got),
	}
}
