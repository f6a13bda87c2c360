package models

import "fmt"

// Segment is one image, one narration clip and one caption
type Segment struct {
	ImageRef    string
	AudioRef    string
	CaptionText string
}

// SegmentInput is either a RawSegment, whose duration is derived from its audio,
// or a TimedSegment carrying a precomputed duration.
type SegmentInput interface {
	Base() Segment
	isSegmentInput()
}

// RawSegment needs its duration resolved from the audio track
type RawSegment struct {
	Segment
}

func (r RawSegment) Base() Segment { return r.Segment }
func (RawSegment) isSegmentInput() {}

// TimedSegment bypasses duration resolution
type TimedSegment struct {
	Segment
	DurationFrames int
}

func (t TimedSegment) Base() Segment { return t.Segment }
func (TimedSegment) isSegmentInput() {}

// StagedSegment points at local copies of a segment's resources
type StagedSegment struct {
	Index     int
	Input     SegmentInput
	ImagePath string
	AudioPath string
}

// TransformPlan is a Ken Burns curve: scale and translation interpolate linearly
// from start to end over [0, DurationFrames] and are clamped outside that range.
type TransformPlan struct {
	DurationFrames int
	StartScale     float64
	EndScale       float64
	StartX         float64
	EndX           float64
	StartY         float64
	EndY           float64
}

// ResolvedSegment is a staged segment with a derived duration and transform
type ResolvedSegment struct {
	StagedSegment
	DurationFrames  int
	DurationSeconds float64
	Wrapped         string
	Plan            TransformPlan
}

// CompositionResult is returned by a successful composition
type CompositionResult struct {
	OutputPath   string
	SubtitlePath string
	TotalFrames  int
	FPS          int
	Width        int
	Height       int
	Warnings     []Warning
}

// WarningKind classifies non-fatal conditions recorded during a composition
type WarningKind string

const (
	WarnProbeFallback    WarningKind = "probe_fallback"
	WarnSegmentDropped   WarningKind = "segment_dropped"
	WarnDurationMismatch WarningKind = "duration_mismatch"
)

// Warning is a recoverable condition; it never fails a composition
type Warning struct {
	Kind    WarningKind
	Segment int // -1 when not tied to a segment
	Message string
}

func (w Warning) String() string {
	if w.Segment < 0 {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("%s (segment %d): %s", w.Kind, w.Segment, w.Message)
}
