package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"reelcomposer/config"
	"reelcomposer/handlers"
	"reelcomposer/repository"
	"reelcomposer/services"
	"reelcomposer/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.AppEnv, cfg.LogLevel)
	logger.Info().Msgf("Configuration loaded: %s", cfg)
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	repo, err := newJobRepository(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open job store")
	}

	renderer, err := services.NewFFmpegRenderer(cfg.CaptionFontFile, cfg.CaptionFontSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize renderer")
	}

	composer := services.NewComposerService(
		services.ComposerOptions{
			FPS:               cfg.VideoFPS,
			Width:             cfg.VideoWidth,
			Height:            cfg.VideoHeight,
			TempDir:           cfg.TempDir,
			OutputDir:         cfg.OutputDir,
			RenderConcurrency: cfg.RenderConcurrency,
			StageConcurrency:  cfg.ProbeConcurrency,
			RenderTimeout:     cfg.RenderTimeout,
			ConcatTimeout:     cfg.ConcatTimeout,
		},
		services.NewFileStager(cfg.OutputDir, cfg.FetchTimeout),
		services.NewDurationResolver(services.FFprobeProber{}, cfg.VideoFPS, cfg.ProbeFallbackSeconds,
			cfg.ProbeTimeout, cfg.ProbeConcurrency, logger),
		services.NewTransformPlanner(),
		services.NewCaptionLayout(cfg.CaptionMaxLineLength),
		renderer,
		logger,
	)

	generation := services.NewGenerationService(
		utils.NewKeyPool(cfg.OpenAIAPIKeys),
		services.OpenAIMediaClient{},
		cfg.OutputDir,
		cfg.GenerationConcurrency,
		cfg.FetchTimeout,
		logger,
	)
	if !generation.Enabled() {
		logger.Warn().Msg("OPENAI_API_KEYS not set, segment generation disabled")
	}

	tracker := services.NewJobTracker(repo, logger)
	videoHandler := handlers.NewVideoHandler(composer, tracker, cfg.TempDir, cfg.CleanupAfter, logger)
	router := handlers.NewRouter(handlers.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		JWTSecret:      cfg.JWTSecret,
		OutputDir:      cfg.OutputDir,
	}, videoHandler, handlers.NewGenerationHandler(generation), logger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Msgf("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to shutdown server")
	}
	if err := videoHandler.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Compositions still running at shutdown")
	}
	logger.Info().Msg("Server stopped")
}

// newJobRepository uses PostgreSQL when DATABASE_URL is set and keeps jobs in
// memory otherwise
func newJobRepository(cfg *config.Config, logger zerolog.Logger) (repository.JobRepository, error) {
	if cfg.DatabaseURL == "" {
		logger.Info().Msg("DATABASE_URL not set, jobs are kept in memory")
		return repository.NewMemoryJobRepository(), nil
	}
	return repository.NewGormJobRepository(cfg.DatabaseURL)
}
