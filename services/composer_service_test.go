package services

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelcomposer/models"
)

// passStager pretends every reference is already local
type passStager struct {
	fail  string
	calls atomic.Int64
}

func (s *passStager) Stage(ctx context.Context, ref, destDir, name string) (string, error) {
	s.calls.Add(1)
	if ref == s.fail {
		return "", errors.New("404")
	}
	return ref, nil
}

// fakeRenderer records requests and renders the requested frame count
type fakeRenderer struct {
	mu        sync.Mutex
	requests  []RenderRequest
	concat    []SegmentArtifact
	failIndex int
	frameRate map[int]string
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{failIndex: -1}
}

func (f *fakeRenderer) RenderSegment(ctx context.Context, req RenderRequest) (SegmentArtifact, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if req.Index == f.failIndex {
		return SegmentArtifact{}, errors.New("encoder exploded")
	}
	rate := "30/1"
	if r, ok := f.frameRate[req.Index]; ok {
		rate = r
	}
	return SegmentArtifact{
		Index: req.Index, Path: req.OutputPath, Frames: req.DurationFrames,
		Codec: "h264", Width: req.Width, Height: req.Height, FrameRate: rate,
	}, nil
}

func (f *fakeRenderer) Concat(ctx context.Context, artifacts []SegmentArtifact, outputPath string) error {
	f.mu.Lock()
	f.concat = append([]SegmentArtifact(nil), artifacts...)
	f.mu.Unlock()
	return os.WriteFile(outputPath, []byte("video"), 0644)
}

func newTestComposer(t *testing.T, r Renderer, stager AssetStager, prober AudioProber) *ComposerService {
	t.Helper()
	opts := ComposerOptions{
		FPS: 30, Width: 1080, Height: 1920,
		TempDir: t.TempDir(), OutputDir: t.TempDir(),
		RenderConcurrency: 2, StageConcurrency: 2,
	}
	return NewComposerService(opts, stager,
		NewDurationResolver(prober, 30, DefaultFallbackSeconds, 0, 2, zerolog.Nop()),
		NewTransformPlanner(), NewCaptionLayout(40), r, zerolog.Nop())
}

func timedInputs(frames ...int) []models.SegmentInput {
	inputs := make([]models.SegmentInput, len(frames))
	for i, f := range frames {
		inputs[i] = models.TimedSegment{
			Segment: models.Segment{
				ImageRef:    "img" + string(rune('a'+i)),
				AudioRef:    "audio" + string(rune('a'+i)),
				CaptionText: "It's 10:30 and this caption is long enough to wrap onto a second line",
			},
			DurationFrames: f,
		}
	}
	return inputs
}

func TestComposeSumsDurations(t *testing.T) {
	r := newFakeRenderer()
	cs := newTestComposer(t, r, &passStager{}, fakeProber{})

	result, err := cs.Compose(context.Background(), "job-1", timedInputs(90, 150, 30))
	require.NoError(t, err)

	assert.Equal(t, 270, result.TotalFrames)
	assert.Empty(t, result.Warnings)
	assert.FileExists(t, result.OutputPath)
	assert.Equal(t, cs.VideoPath("job-1"), result.OutputPath)

	require.Len(t, r.concat, 3)
	for i, a := range r.concat {
		assert.Equal(t, i, a.Index, "concatenation keeps segment order")
	}

	for _, req := range r.requests {
		assert.Equal(t, req.DurationFrames, req.Plan.DurationFrames)
		assert.Equal(t, 30, req.FPS)
		assert.Contains(t, req.Caption, `It\'s 10\:30`)
		assert.Contains(t, req.Caption, "\n")
	}

	srt, err := os.ReadFile(result.SubtitlePath)
	require.NoError(t, err)
	assert.Contains(t, string(srt), "00:00:03,000 --> 00:00:08,000")
	assert.Contains(t, string(srt), "00:00:08,000 --> 00:00:09,000")
}

func TestComposeReportsDurationMismatch(t *testing.T) {
	r := newFakeRenderer()
	cs := newTestComposer(t, r, &passStager{}, fakeProber{})
	cs.Estimator = func([]models.ResolvedSegment) DurationModel { return fixedDuration(280) }

	result, err := cs.Compose(context.Background(), "job-2", timedInputs(90, 150, 30))
	require.NoError(t, err)

	assert.Equal(t, 270, result.TotalFrames)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, models.WarnDurationMismatch, result.Warnings[0].Kind)
}

func TestComposeResolvesRawSegments(t *testing.T) {
	r := newFakeRenderer()
	prober := fakeProber{"audioa": 3.0, "audiob": 0.001}
	cs := newTestComposer(t, r, &passStager{}, prober)

	inputs := []models.SegmentInput{
		models.RawSegment{Segment: models.Segment{ImageRef: "imga", AudioRef: "audioa"}},
		models.RawSegment{Segment: models.Segment{ImageRef: "imgb", AudioRef: "audiob"}},
		models.RawSegment{Segment: models.Segment{ImageRef: "imgc", AudioRef: "audioc"}},
	}

	result, err := cs.Compose(context.Background(), "job-3", inputs)
	require.NoError(t, err)

	// segment 1 is dropped, segment 2 falls back to 2s
	assert.Equal(t, 90+60, result.TotalFrames)
	require.Len(t, r.concat, 2)
	assert.Equal(t, 0, r.concat[0].Index)
	assert.Equal(t, 2, r.concat[1].Index)
	assert.Len(t, result.Warnings, 2)
}

func TestComposeFailsFast(t *testing.T) {
	r := newFakeRenderer()
	r.failIndex = 1
	cs := newTestComposer(t, r, &passStager{}, fakeProber{})

	_, err := cs.Compose(context.Background(), "job-4", timedInputs(30, 30, 30, 30, 30))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrRenderFailed)

	var segErr *models.SegmentError
	require.ErrorAs(t, err, &segErr)
	assert.Equal(t, 1, segErr.Index)
	assert.Nil(t, r.concat, "partial artifacts are never concatenated")
	assert.NoFileExists(t, cs.VideoPath("job-4"))
}

func TestComposeRejectsMixedFormats(t *testing.T) {
	r := newFakeRenderer()
	r.frameRate = map[int]string{1: "25/1"}
	cs := newTestComposer(t, r, &passStager{}, fakeProber{})

	_, err := cs.Compose(context.Background(), "job-5", timedInputs(30, 30))
	assert.ErrorIs(t, err, models.ErrRenderFailed)
	assert.Nil(t, r.concat)
}

func TestComposeResourceUnavailable(t *testing.T) {
	r := newFakeRenderer()
	cs := newTestComposer(t, r, &passStager{fail: "audiob"}, fakeProber{})

	_, err := cs.Compose(context.Background(), "job-6", timedInputs(30, 30))
	assert.ErrorIs(t, err, models.ErrResourceUnavailable)

	var segErr *models.SegmentError
	require.ErrorAs(t, err, &segErr)
	assert.Equal(t, 1, segErr.Index)
	assert.Empty(t, r.requests, "nothing is rendered when a resource is missing")
}

func TestComposeEmptyMakesNoExternalCalls(t *testing.T) {
	r := newFakeRenderer()
	stager := &passStager{}
	cs := newTestComposer(t, r, stager, fakeProber{})

	_, err := cs.Compose(context.Background(), "job-7", nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.ErrorIs(t, err, models.ErrNoValidSegments)
	assert.Zero(t, stager.calls.Load())
	assert.Empty(t, r.requests)
}

func TestComposeCancelled(t *testing.T) {
	r := newFakeRenderer()
	cs := newTestComposer(t, r, &passStager{}, fakeProber{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cs.Compose(ctx, "job-8", timedInputs(30, 30))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, r.requests)
}
