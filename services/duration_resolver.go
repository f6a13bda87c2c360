package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"reelcomposer/models"
	"reelcomposer/utils"
)

// DefaultFallbackSeconds is used when an audio clip cannot be probed
const DefaultFallbackSeconds = 2.0

// AudioProber measures the duration of an audio file in seconds
type AudioProber interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// FFprobeProber measures durations with ffprobe
type FFprobeProber struct{}

func (FFprobeProber) ProbeDuration(ctx context.Context, path string) (float64, error) {
	return utils.GetMediaDuration(ctx, path)
}

// Resolution is the outcome of resolving one audio clip
type Resolution struct {
	Frames   int
	Seconds  float64
	Fallback bool
}

// DurationResolver turns audio clips into frame counts
type DurationResolver struct {
	prober          AudioProber
	fps             int
	fallbackSeconds float64
	timeout         time.Duration
	concurrency     int
	logger          zerolog.Logger
}

// NewDurationResolver creates a resolver
func NewDurationResolver(prober AudioProber, fps int, fallbackSeconds float64, timeout time.Duration, concurrency int, logger zerolog.Logger) *DurationResolver {
	if fallbackSeconds <= 0 {
		fallbackSeconds = DefaultFallbackSeconds
	}
	return &DurationResolver{
		prober:          prober,
		fps:             fps,
		fallbackSeconds: fallbackSeconds,
		timeout:         timeout,
		concurrency:     concurrency,
		logger:          logger.With().Str("component", "duration_resolver").Logger(),
	}
}

// Resolve probes an audio file and converts its length to round(seconds*fps)
// frames. A failed or unusable probe is not an error: the fallback length is used.
func (dr *DurationResolver) Resolve(ctx context.Context, audioPath string) Resolution {
	probeCtx := ctx
	if dr.timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, dr.timeout)
		defer cancel()
	}

	seconds, err := dr.prober.ProbeDuration(probeCtx, audioPath)
	if err == nil && seconds < 0 {
		err = fmt.Errorf("negative duration %f", seconds)
	}
	if err != nil {
		dr.logger.Warn().Err(err).Str("audio", audioPath).
			Float64("fallback_seconds", dr.fallbackSeconds).
			Msg("Audio probe failed, using fallback duration")
		return Resolution{
			Frames:   utils.FramesFromSeconds(dr.fallbackSeconds, dr.fps),
			Seconds:  dr.fallbackSeconds,
			Fallback: true,
		}
	}

	return Resolution{
		Frames:  utils.FramesFromSeconds(seconds, dr.fps),
		Seconds: seconds,
	}
}

// ResolveSegments gives every staged segment a frame count. Timed segments keep
// their precomputed duration. Raw segments are probed in parallel; those that
// round to zero frames are dropped with a warning. The returned segments keep
// input order and have no plan or caption yet.
func (dr *DurationResolver) ResolveSegments(ctx context.Context, staged []models.StagedSegment) ([]models.ResolvedSegment, []models.Warning, error) {
	tasks := make([]utils.Task[Resolution], len(staged))
	for i, seg := range staged {
		switch in := seg.Input.(type) {
		case models.TimedSegment:
			frames := in.DurationFrames
			tasks[i] = func(context.Context) (Resolution, error) {
				if frames < 1 {
					return Resolution{}, fmt.Errorf("%w: segment %d duration %d frames", models.ErrInvalidInput, seg.Index, frames)
				}
				return Resolution{Frames: frames, Seconds: utils.SecondsFromFrames(frames, dr.fps)}, nil
			}
		default:
			path := seg.AudioPath
			tasks[i] = func(ctx context.Context) (Resolution, error) {
				return dr.Resolve(ctx, path), nil
			}
		}
	}

	results := utils.RunBounded(ctx, tasks, dr.concurrency)
	if err := utils.FirstError(results); err != nil {
		return nil, nil, err
	}

	var warnings []models.Warning
	resolved := make([]models.ResolvedSegment, 0, len(staged))
	for i, r := range results {
		seg := staged[i]
		res := r.Value
		if res.Fallback {
			warnings = append(warnings, models.Warning{
				Kind:    models.WarnProbeFallback,
				Segment: seg.Index,
				Message: fmt.Sprintf("audio probe failed, assumed %.1fs", res.Seconds),
			})
		}
		if res.Frames <= 0 {
			dr.logger.Warn().Int("segment", seg.Index).Float64("seconds", res.Seconds).
				Msg("Segment resolves to zero frames, dropping it")
			warnings = append(warnings, models.Warning{
				Kind:    models.WarnSegmentDropped,
				Segment: seg.Index,
				Message: fmt.Sprintf("audio duration %.3fs is shorter than one frame", res.Seconds),
			})
			continue
		}
		resolved = append(resolved, models.ResolvedSegment{
			StagedSegment:   seg,
			DurationFrames:  res.Frames,
			DurationSeconds: res.Seconds,
		})
	}

	if len(resolved) == 0 {
		return nil, warnings, models.ErrNoValidSegments
	}
	return resolved, warnings, nil
}
