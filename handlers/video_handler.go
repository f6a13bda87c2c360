package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"reelcomposer/models"
	"reelcomposer/services"
	"reelcomposer/utils"
)

// Composer renders a composition for a job
type Composer interface {
	Compose(ctx context.Context, jobID string, inputs []models.SegmentInput) (*models.CompositionResult, error)
	VideoPath(jobID string) string
	SubtitlePath(jobID string) string
}

// VideoHandler serves composition requests and job polling
type VideoHandler struct {
	composer     Composer
	tracker      *services.JobTracker
	tempDir      string
	cleanupAfter time.Duration
	logger       zerolog.Logger

	baseCtx  context.Context
	stopJobs context.CancelFunc
	wg       sync.WaitGroup
}

// NewVideoHandler creates a new video handler
func NewVideoHandler(composer Composer, tracker *services.JobTracker, tempDir string, cleanupAfter time.Duration, logger zerolog.Logger) *VideoHandler {
	ctx, cancel := context.WithCancel(context.Background())
	return &VideoHandler{
		composer:     composer,
		tracker:      tracker,
		tempDir:      tempDir,
		cleanupAfter: cleanupAfter,
		logger:       logger.With().Str("component", "video_handler").Logger(),
		baseCtx:      ctx,
		stopJobs:     cancel,
	}
}

// Compose handles POST /api/compose
func (h *VideoHandler) Compose(c *gin.Context) {
	var req models.ComposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Details: err.Error()})
		return
	}

	inputs, err := services.ParseComposeRequest(req)
	if err != nil {
		writeError(c, err)
		return
	}

	jobID, err := h.tracker.Submit(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	h.wg.Add(1)
	go h.processComposition(jobID, inputs)

	c.JSON(http.StatusAccepted, models.ComposeResponse{
		JobID:  jobID,
		Status: string(models.JobQueued),
	})
}

// GetStatus handles GET /api/compose/status/:job_id
func (h *VideoHandler) GetStatus(c *gin.Context) {
	h.respondStatus(c, c.Param("job_id"))
}

// PostStatus handles POST /api/compose/status
func (h *VideoHandler) PostStatus(c *gin.Context) {
	var req models.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.JobID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "jobId is required"})
		return
	}
	h.respondStatus(c, req.JobID)
}

func (h *VideoHandler) respondStatus(c *gin.Context, jobID string) {
	job, err := h.tracker.Status(c.Request.Context(), jobID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, statusResponse(job))
}

// Cancel handles DELETE /api/compose/:job_id
func (h *VideoHandler) Cancel(c *gin.Context) {
	job, err := h.tracker.Cancel(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, statusResponse(job))
}

// Download handles GET /api/download/:job_id
func (h *VideoHandler) Download(c *gin.Context) {
	jobID := c.Param("job_id")
	path, ok := h.finishedFile(c, jobID, h.composer.VideoPath(jobID))
	if !ok {
		return
	}

	c.Header("Content-Type", "video/mp4")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=video_%s.mp4", jobID))
	c.File(path)
}

// DownloadSubtitle handles GET /api/download-subtitle/:job_id
func (h *VideoHandler) DownloadSubtitle(c *gin.Context) {
	jobID := c.Param("job_id")
	path, ok := h.finishedFile(c, jobID, h.composer.SubtitlePath(jobID))
	if !ok {
		return
	}

	c.Header("Content-Type", "application/x-subrip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=subtitles_%s.srt", jobID))
	c.File(path)
}

func (h *VideoHandler) finishedFile(c *gin.Context, jobID, path string) (string, bool) {
	job, err := h.tracker.Status(c.Request.Context(), jobID)
	if err != nil {
		writeError(c, err)
		return "", false
	}
	if job.State != models.JobDone {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Job not completed yet"})
		return "", false
	}
	if !utils.FileExists(path) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "File not found"})
		return "", false
	}
	return path, true
}

// Shutdown cancels running compositions and waits for them to record their
// final state
func (h *VideoHandler) Shutdown(ctx context.Context) error {
	h.stopJobs()
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// processComposition runs one job in the background. Every exit path leaves
// the job in a terminal state.
func (h *VideoHandler) processComposition(jobID string, inputs []models.SegmentInput) {
	defer h.wg.Done()
	log := h.logger.With().Str("job_id", jobID).Logger()

	ctx, cancel := context.WithCancel(h.baseCtx)
	defer cancel()
	// the tracker bookkeeping must still run after cancellation
	bookkeeping := context.WithoutCancel(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Composition panicked")
			_ = h.tracker.Fail(bookkeeping, jobID, fmt.Sprintf("internal error: %v", r))
		}
		utils.ScheduleCleanup(h.tempDir, jobID, h.cleanupAfter)
	}()

	if err := h.tracker.Start(bookkeeping, jobID); err != nil {
		log.Info().Err(err).Msg("Job not started")
		return
	}
	h.tracker.Attach(jobID, cancel)
	if job, err := h.tracker.Status(bookkeeping, jobID); err == nil && job.State.Terminal() {
		cancel()
	}

	result, err := h.composer.Compose(ctx, jobID, inputs)
	if err != nil {
		detail := err.Error()
		if errors.Is(err, context.Canceled) {
			detail = services.CancelledDetail
		}
		if ferr := h.tracker.Fail(bookkeeping, jobID, detail); ferr != nil {
			log.Debug().Err(ferr).Msg("Job already finished")
		}
		log.Error().Err(err).Msg("Composition failed")
		return
	}

	warnings := make([]string, len(result.Warnings))
	for i, w := range result.Warnings {
		warnings[i] = w.String()
	}
	location := "/videos/" + jobID + ".mp4"
	if err := h.tracker.Complete(bookkeeping, jobID, location, warnings); err != nil {
		log.Warn().Err(err).Msg("Composition finished after the job was closed")
		return
	}
	log.Info().Int("frames", result.TotalFrames).Int("warnings", len(warnings)).Msg("Job done")
}

func statusResponse(job models.Job) models.StatusResponse {
	resp := models.StatusResponse{
		Status:   string(job.State),
		Warnings: job.Warnings,
	}
	if job.State == models.JobDone && job.ResultLocation != "" {
		location := job.ResultLocation
		resp.VideoURL = &location
	}
	if job.State == models.JobError {
		detail := job.ErrorDetail
		resp.Error = &detail
	}
	return resp
}

// writeError maps service errors to HTTP statuses
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "Internal error"
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		status, msg = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, models.ErrJobNotFound):
		status, msg = http.StatusNotFound, "Job not found"
	case errors.Is(err, models.ErrInvalidTransition):
		status, msg = http.StatusConflict, "Job already finished"
	case errors.Is(err, services.ErrGenerationDisabled):
		status, msg = http.StatusServiceUnavailable, "Generation is disabled"
	}
	c.JSON(status, models.ErrorResponse{Error: msg, Details: err.Error()})
}
