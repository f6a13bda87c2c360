package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"reelcomposer/models"
	"reelcomposer/utils"
)

const (
	generationAttempts = 3
	keyCooldown        = 60 * time.Second
	maxNarrationRunes  = 4096
)

// ErrGenerationDisabled is returned when no provider keys are configured
var ErrGenerationDisabled = errors.New("generation is disabled: no API keys configured")

// MediaClient generates one image and one narration track
type MediaClient interface {
	GenerateImage(ctx context.Context, apiKey, prompt string) (string, error)
	SynthesizeSpeech(ctx context.Context, apiKey, text string) (io.ReadCloser, error)
}

// OpenAIMediaClient calls the OpenAI image and speech endpoints
type OpenAIMediaClient struct {
	BaseURL string
}

func (c OpenAIMediaClient) client(apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL
	}
	return openai.NewClientWithConfig(cfg)
}

func (c OpenAIMediaClient) GenerateImage(ctx context.Context, apiKey, prompt string) (string, error) {
	resp, err := c.client(apiKey).CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          openai.CreateImageModelDallE3,
		Size:           openai.CreateImageSize1024x1792,
		ResponseFormat: openai.CreateImageResponseFormatURL,
		N:              1,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", errors.New("image response contained no URL")
	}
	return resp.Data[0].URL, nil
}

func (c OpenAIMediaClient) SynthesizeSpeech(ctx context.Context, apiKey, text string) (io.ReadCloser, error) {
	resp, err := c.client(apiKey).CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          openai.VoiceAlloy,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GenerationService produces segment resources for a composition request
type GenerationService struct {
	keys        *utils.KeyPool
	client      MediaClient
	outputDir   string
	concurrency int
	timeout     time.Duration
	logger      zerolog.Logger
	backoff     func(attempt int) time.Duration
}

// NewGenerationService creates a generation service. keys may be nil, in
// which case every request fails with ErrGenerationDisabled.
func NewGenerationService(keys *utils.KeyPool, client MediaClient, outputDir string, concurrency int, timeout time.Duration, logger zerolog.Logger) *GenerationService {
	return &GenerationService{
		keys:        keys,
		client:      client,
		outputDir:   outputDir,
		concurrency: concurrency,
		timeout:     timeout,
		logger:      logger.With().Str("component", "generation").Logger(),
		backoff:     func(attempt int) time.Duration { return time.Duration(attempt+1) * time.Second },
	}
}

// Enabled reports whether provider keys are configured
func (gs *GenerationService) Enabled() bool {
	return gs.keys != nil
}

// Generate creates an image and a narration track for every segment. Items
// fail independently; the response keeps request order.
func (gs *GenerationService) Generate(ctx context.Context, req models.GenerateRequest) (*models.GenerateResponse, error) {
	if !gs.Enabled() {
		return nil, ErrGenerationDisabled
	}
	if len(req.Segments) == 0 {
		return nil, fmt.Errorf("%w: segments must not be empty", models.ErrInvalidInput)
	}
	for i, seg := range req.Segments {
		if strings.TrimSpace(seg.ImagePrompt) == "" || strings.TrimSpace(seg.Narration) == "" {
			return nil, fmt.Errorf("%w: segment %d needs an imagePrompt and a narration", models.ErrInvalidInput, i)
		}
		if len([]rune(seg.Narration)) > maxNarrationRunes {
			return nil, fmt.Errorf("%w: segment %d narration exceeds %d characters", models.ErrInvalidInput, i, maxNarrationRunes)
		}
	}

	batchID := uuid.New().String()
	log := gs.logger.With().Str("batch_id", batchID).Logger()
	log.Info().Int("segments", len(req.Segments)).Msg("Generating segment resources")

	tasks := make([]utils.Task[models.GeneratedSegment], len(req.Segments))
	for i, seg := range req.Segments {
		tasks[i] = func(ctx context.Context) (models.GeneratedSegment, error) {
			return gs.generateOne(ctx, batchID, i, seg)
		}
	}

	results := utils.RunBounded(ctx, tasks, gs.concurrency)
	resp := &models.GenerateResponse{BatchID: batchID, Segments: make([]models.GeneratedSegment, len(results))}
	failed := 0
	for i, r := range results {
		item := r.Value
		if r.Err != nil {
			failed++
			item.Error = r.Err.Error()
			log.Warn().Err(r.Err).Int("segment", i).Msg("Segment generation failed")
		}
		resp.Segments[i] = item
	}

	log.Info().Int("failed", failed).Msg("Generation complete")
	return resp, nil
}

func (gs *GenerationService) generateOne(ctx context.Context, batchID string, index int, seg models.GenerateSegment) (models.GeneratedSegment, error) {
	out := models.GeneratedSegment{Caption: strings.TrimSpace(seg.Narration)}

	imageURL, err := withKeyRetry(ctx, gs, func(ctx context.Context, key string) (string, error) {
		return gs.client.GenerateImage(ctx, key, seg.ImagePrompt)
	})
	if err != nil {
		return out, fmt.Errorf("image generation: %w", err)
	}
	out.ImageURL = imageURL

	publicPath := path.Join("/generated", batchID, fmt.Sprintf("voiceover_%03d.mp3", index))
	dest := filepath.Join(gs.outputDir, filepath.FromSlash(publicPath))
	_, err = withKeyRetry(ctx, gs, func(ctx context.Context, key string) (struct{}, error) {
		audio, err := gs.client.SynthesizeSpeech(ctx, key, out.Caption)
		if err != nil {
			return struct{}{}, err
		}
		defer audio.Close()
		data, err := io.ReadAll(audio)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, utils.WriteFile(dest, data)
	})
	if err != nil {
		return out, fmt.Errorf("speech synthesis: %w", err)
	}
	out.VoiceoverURL = publicPath
	return out, nil
}

// withKeyRetry runs call with a key from the pool, rotating to another key
// after a failure. Keys rejected by the provider are blacklisted.
func withKeyRetry[R any](ctx context.Context, gs *GenerationService, call func(ctx context.Context, key string) (R, error)) (R, error) {
	var zero R
	var lastErr error
	for attempt := 0; attempt < generationAttempts; attempt++ {
		key, err := gs.keys.Acquire()
		if err != nil {
			if lastErr != nil {
				return zero, fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return zero, err
		}

		callCtx, cancel := withTimeout(ctx, gs.timeout)
		res, err := call(callCtx, key)
		cancel()
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !retryable(err) {
			return zero, err
		}
		if keyRejected(err) {
			gs.keys.MarkFailed(key, keyCooldown)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(gs.backoff(attempt)):
		}
	}
	return zero, fmt.Errorf("failed after %d attempts: %w", generationAttempts, lastErr)
}

func providerStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// keyRejected reports errors caused by the key itself (auth, quota)
func keyRejected(err error) bool {
	switch providerStatus(err) {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	return false
}

// retryable excludes request errors another key would not fix
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch providerStatus(err) {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return false
	}
	return true
}
