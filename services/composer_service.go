package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"reelcomposer/models"
	"reelcomposer/utils"
)

// ComposerOptions configures output format, limits and timeouts of a composition
type ComposerOptions struct {
	FPS               int
	Width             int
	Height            int
	TempDir           string
	OutputDir         string // final videos go to OutputDir/videos
	RenderConcurrency int
	StageConcurrency  int
	RenderTimeout     time.Duration
	ConcatTimeout     time.Duration
}

// ComposerService assembles segments into one continuous video
type ComposerService struct {
	opts     ComposerOptions
	stager   AssetStager
	resolver *DurationResolver
	planner  *TransformPlanner
	captions *CaptionLayout
	renderer Renderer
	logger   zerolog.Logger

	// Estimator builds the declarative duration model; DeclaredEstimator by default
	Estimator EstimatorFunc
}

// NewComposerService creates a new composer service
func NewComposerService(opts ComposerOptions, stager AssetStager, resolver *DurationResolver, planner *TransformPlanner,
	captions *CaptionLayout, renderer Renderer, logger zerolog.Logger) *ComposerService {
	return &ComposerService{
		opts:      opts,
		stager:    stager,
		resolver:  resolver,
		planner:   planner,
		captions:  captions,
		renderer:  renderer,
		logger:    logger.With().Str("component", "composer").Logger(),
		Estimator: DeclaredEstimator,
	}
}

// VideoPath is where the final video of a job is published
func (cs *ComposerService) VideoPath(jobID string) string {
	return filepath.Join(cs.opts.OutputDir, "videos", jobID+".mp4")
}

// SubtitlePath is where the subtitle sidecar of a job is published
func (cs *ComposerService) SubtitlePath(jobID string) string {
	return filepath.Join(cs.opts.OutputDir, "videos", jobID+".srt")
}

// Compose stages, resolves, renders and concatenates the segments of one job.
// Any segment failure aborts the whole composition; nothing partial is published.
func (cs *ComposerService) Compose(ctx context.Context, jobID string, inputs []models.SegmentInput) (*models.CompositionResult, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidInput, models.ErrNoValidSegments)
	}
	log := cs.logger.With().Str("job_id", jobID).Logger()

	jobDir, err := utils.CreateTempDir(cs.opts.TempDir, jobID)
	if err != nil {
		return nil, err
	}

	log.Info().Int("segments", len(inputs)).Msg("Staging segment resources")
	staged, err := StageSegments(ctx, cs.stager, inputs, filepath.Join(jobDir, utils.AssetsDir), cs.opts.StageConcurrency)
	if err != nil {
		return nil, err
	}

	resolved, warnings, err := cs.resolver.ResolveSegments(ctx, staged)
	for _, w := range warnings {
		log.Warn().Str("kind", string(w.Kind)).Int("segment", w.Segment).Msg(w.Message)
	}
	if err != nil {
		return nil, err
	}

	for i := range resolved {
		seg := &resolved[i]
		seg.Plan = cs.planner.Plan(seg.DurationFrames, cs.opts.Width, cs.opts.Height)
		seg.Wrapped = cs.captions.Wrap(seg.Input.Base().CaptionText)
	}

	declared := cs.Estimator(resolved)
	log.Info().Int("segments", len(resolved)).Int("declared_frames", declared.TotalFrames()).Msg("Rendering segments")

	artifacts, accumulated, err := cs.renderAll(ctx, jobDir, resolved)
	if err != nil {
		return nil, err
	}

	totalFrames, mismatch := Reconcile(declared, accumulated)
	if mismatch != nil {
		log.Warn().Str("kind", string(mismatch.Kind)).Msg(mismatch.Message)
		warnings = append(warnings, *mismatch)
	}

	if err := CheckUniform(artifacts); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRenderFailed, err)
	}

	log.Info().Int("frames", totalFrames).Msg("Concatenating segments")
	concatPath := filepath.Join(jobDir, utils.OutputDir, "final_video.mp4")
	concatCtx, cancel := withTimeout(ctx, cs.opts.ConcatTimeout)
	err = cs.renderer.Concat(concatCtx, artifacts, concatPath)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: concatenation: %w", models.ErrRenderFailed, err)
	}

	outputPath := cs.VideoPath(jobID)
	if err := publish(concatPath, outputPath); err != nil {
		return nil, err
	}

	subtitlePath := cs.SubtitlePath(jobID)
	if err := utils.WriteFile(subtitlePath, []byte(BuildSRT(resolved, artifacts, cs.opts.FPS))); err != nil {
		log.Warn().Err(err).Msg("Failed to write subtitles")
		subtitlePath = ""
	}

	log.Info().Str("output", outputPath).Int("frames", totalFrames).Msg("Composition complete")
	return &models.CompositionResult{
		OutputPath:   outputPath,
		SubtitlePath: subtitlePath,
		TotalFrames:  totalFrames,
		FPS:          cs.opts.FPS,
		Width:        cs.opts.Width,
		Height:       cs.opts.Height,
		Warnings:     warnings,
	}, nil
}

// renderAll renders every segment through the bounded pool. After the first
// failure the remaining segments are not started.
func (cs *ComposerService) renderAll(ctx context.Context, jobDir string, resolved []models.ResolvedSegment) ([]SegmentArtifact, *AccumulatedDuration, error) {
	renderCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	accumulated := &AccumulatedDuration{}
	tasks := make([]utils.Task[SegmentArtifact], len(resolved))
	for i, seg := range resolved {
		tasks[i] = func(ctx context.Context) (SegmentArtifact, error) {
			if err := ctx.Err(); err != nil {
				return SegmentArtifact{}, err
			}

			req := RenderRequest{
				Index:          seg.Index,
				ImagePath:      seg.ImagePath,
				AudioPath:      seg.AudioPath,
				Caption:        cs.captions.Escape(seg.Wrapped),
				Plan:           seg.Plan,
				DurationFrames: seg.DurationFrames,
				Width:          cs.opts.Width,
				Height:         cs.opts.Height,
				FPS:            cs.opts.FPS,
				OutputPath:     filepath.Join(jobDir, utils.SegmentsDir, fmt.Sprintf("segment_%03d.mp4", seg.Index)),
			}

			callCtx, callCancel := withTimeout(ctx, cs.opts.RenderTimeout)
			artifact, err := cs.renderer.RenderSegment(callCtx, req)
			callCancel()
			if err != nil {
				cancel()
				return SegmentArtifact{}, &models.SegmentError{
					Index: seg.Index, Stage: "render",
					Err: fmt.Errorf("%w: %w", models.ErrRenderFailed, err),
				}
			}
			accumulated.Add(artifact.Frames)
			return artifact, nil
		}
	}

	results := utils.RunBounded(renderCtx, tasks, cs.opts.RenderConcurrency)

	// report the failure that caused the abort, not the cancellations it triggered
	var firstErr error
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		if firstErr == nil || (errors.Is(firstErr, context.Canceled) && !errors.Is(r.Err, context.Canceled)) {
			firstErr = r.Err
		}
	}
	if firstErr != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, firstErr
	}

	artifacts := make([]SegmentArtifact, len(results))
	for i, r := range results {
		artifacts[i] = r.Value
	}
	return artifacts, accumulated, nil
}

// BuildSRT writes one cue per segment, timed by cumulative rendered frames
func BuildSRT(resolved []models.ResolvedSegment, artifacts []SegmentArtifact, fps int) string {
	var b strings.Builder
	frame := 0
	for i, seg := range resolved {
		frames := seg.DurationFrames
		if i < len(artifacts) && artifacts[i].Frames > 0 {
			frames = artifacts[i].Frames
		}
		start := utils.SecondsFromFrames(frame, fps)
		frame += frames
		end := utils.SecondsFromFrames(frame, fps)
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1,
			utils.FormatSRTTimestamp(start), utils.FormatSRTTimestamp(end), seg.Wrapped)
	}
	return b.String()
}

// publish moves the finished video to its public location
func publish(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	// rename fails across filesystems
	if err := utils.CopyFile(src, dest); err != nil {
		return fmt.Errorf("failed to publish video: %w", err)
	}
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
