package services

import (
	"fmt"

	"reelcomposer/models"
)

// Ken Burns zoom range
const (
	KenBurnsStartScale = 1.0
	KenBurnsEndScale   = 1.2
)

// TransformPlanner computes the slow zoom applied to each still image
type TransformPlanner struct {
	StartScale float64
	EndScale   float64
}

// NewTransformPlanner returns a planner for the 1.0 -> 1.2 zoom
func NewTransformPlanner() *TransformPlanner {
	return &TransformPlanner{StartScale: KenBurnsStartScale, EndScale: KenBurnsEndScale}
}

// Plan returns the zoom curve for a segment. The translation keeps the zoom
// centered: it ends at -(dimension * (endScale - startScale) / 2).
func (tp *TransformPlanner) Plan(durationFrames, width, height int) models.TransformPlan {
	growth := tp.EndScale - tp.StartScale
	return models.TransformPlan{
		DurationFrames: durationFrames,
		StartScale:     tp.StartScale,
		EndScale:       tp.EndScale,
		StartX:         0,
		EndX:           -(float64(width) * growth) / 2,
		StartY:         0,
		EndY:           -(float64(height) * growth) / 2,
	}
}

// progress maps a frame to [0, 1], clamped on both ends
func progress(plan models.TransformPlan, frame float64) float64 {
	if plan.DurationFrames <= 0 || frame >= float64(plan.DurationFrames) {
		return 1
	}
	if frame <= 0 {
		return 0
	}
	return frame / float64(plan.DurationFrames)
}

func lerp(from, to, t float64) float64 {
	return from + (to-from)*t
}

// ScaleAt returns the zoom factor at a frame
func ScaleAt(plan models.TransformPlan, frame float64) float64 {
	return lerp(plan.StartScale, plan.EndScale, progress(plan, frame))
}

// TranslateAt returns the x/y offset in output pixels at a frame
func TranslateAt(plan models.TransformPlan, frame float64) (float64, float64) {
	t := progress(plan, frame)
	return lerp(plan.StartX, plan.EndX, t), lerp(plan.StartY, plan.EndY, t)
}

// ZoompanFilter renders the plan as an ffmpeg zoompan filter over a single
// still image. Output frame n is `on`; the zoom expression is the same clamped
// linear curve as ScaleAt, and x/y keep the visible window centered, which is
// the translation curve expressed in input coordinates.
func ZoompanFilter(plan models.TransformPlan, width, height, fps int) string {
	d := plan.DurationFrames
	if d < 1 {
		d = 1
	}
	zoom := fmt.Sprintf("%.6f+(%.6f)*min(max(on/%d,0),1)", plan.StartScale, plan.EndScale-plan.StartScale, d)
	return fmt.Sprintf("zoompan=z='%s':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%d:s=%dx%d:fps=%d",
		zoom, d, width, height, fps)
}
