package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port           string
	AppEnv         string
	LogLevel       string
	AllowedOrigins []string
	JWTSecret      string
	DatabaseURL    string

	// Storage
	TempDir      string
	OutputDir    string
	CleanupAfter time.Duration

	// Output format
	VideoFPS        int
	VideoResolution string
	VideoWidth      int
	VideoHeight     int

	// Captions
	CaptionMaxLineLength int
	CaptionFontFile      string
	CaptionFontSize      int

	// Duration resolution
	ProbeFallbackSeconds float64

	// Concurrency
	RenderConcurrency     int
	ProbeConcurrency      int
	GenerationConcurrency int

	// Timeouts for external calls
	FetchTimeout  time.Duration
	ProbeTimeout  time.Duration
	RenderTimeout time.Duration
	ConcatTimeout time.Duration

	// Generation
	OpenAIAPIKeys []string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		AppEnv:         getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: parseList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		TempDir:      getEnv("TEMP_DIR", "./temp"),
		OutputDir:    getEnv("OUTPUT_DIR", "./public"),
		CleanupAfter: getEnvAsDuration("CLEANUP_AFTER", time.Hour),

		VideoFPS:        getEnvAsInt("VIDEO_FPS", 30),
		VideoResolution: getEnv("VIDEO_RESOLUTION", "1080x1920"),

		CaptionMaxLineLength: getEnvAsInt("CAPTION_MAX_LINE_LENGTH", 40),
		CaptionFontFile:      getEnv("CAPTION_FONT_FILE", ""),
		CaptionFontSize:      getEnvAsInt("CAPTION_FONT_SIZE", 48),

		ProbeFallbackSeconds: getEnvAsFloat("PROBE_FALLBACK_SECONDS", 2.0),

		RenderConcurrency:     getEnvAsInt("RENDER_CONCURRENCY", 2),
		ProbeConcurrency:      getEnvAsInt("PROBE_CONCURRENCY", 5),
		GenerationConcurrency: getEnvAsInt("GENERATION_CONCURRENCY", 5),

		FetchTimeout:  getEnvAsDuration("FETCH_TIMEOUT", 2*time.Minute),
		ProbeTimeout:  getEnvAsDuration("PROBE_TIMEOUT", 30*time.Second),
		RenderTimeout: getEnvAsDuration("RENDER_TIMEOUT", 10*time.Minute),
		ConcatTimeout: getEnvAsDuration("CONCAT_TIMEOUT", 10*time.Minute),

		OpenAIAPIKeys: parseList(getEnv("OPENAI_API_KEYS", "")),
	}

	width, height, err := ParseResolution(cfg.VideoResolution)
	if err != nil {
		return nil, err
	}
	cfg.VideoWidth = width
	cfg.VideoHeight = height

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.VideoFPS <= 0 {
		return errors.New("VIDEO_FPS must be positive")
	}
	if c.VideoWidth <= 0 || c.VideoHeight <= 0 {
		return errors.New("VIDEO_RESOLUTION must be positive")
	}
	if c.VideoWidth%2 != 0 || c.VideoHeight%2 != 0 {
		return errors.New("VIDEO_RESOLUTION dimensions must be even for yuv420p output")
	}
	if c.CaptionMaxLineLength <= 0 {
		return errors.New("CAPTION_MAX_LINE_LENGTH must be positive")
	}
	if c.ProbeFallbackSeconds <= 0 {
		return errors.New("PROBE_FALLBACK_SECONDS must be positive")
	}
	if c.RenderConcurrency <= 0 || c.ProbeConcurrency <= 0 || c.GenerationConcurrency <= 0 {
		return errors.New("concurrency limits must be positive")
	}
	if c.TempDir == "" || c.OutputDir == "" {
		return errors.New("TEMP_DIR and OUTPUT_DIR are required")
	}
	return nil
}

// ParseResolution parses a WIDTHxHEIGHT string
func ParseResolution(value string) (int, int, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(value)), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid resolution %q, expected WIDTHxHEIGHT", value)
	}
	width, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution width %q: %w", parts[0], err)
	}
	height, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution height %q: %w", parts[1], err)
	}
	return width, height, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func parseList(value string) []string {
	if value == "" {
		return []string{}
	}
	items := strings.Split(value, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{Port: %s, Env: %s, Output: %dx%d@%dfps, Render: %d, Probe: %d, Generation keys: %d, Persistent jobs: %t}",
		c.Port, c.AppEnv, c.VideoWidth, c.VideoHeight, c.VideoFPS,
		c.RenderConcurrency, c.ProbeConcurrency, len(c.OpenAIAPIKeys), c.DatabaseURL != "")
}
