package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("VIDEO_RESOLUTION", "")
	t.Setenv("VIDEO_FPS", "")
	t.Setenv("OPENAI_API_KEYS", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.VideoFPS)
	assert.Equal(t, 1080, cfg.VideoWidth)
	assert.Equal(t, 1920, cfg.VideoHeight)
	assert.Equal(t, 40, cfg.CaptionMaxLineLength)
	assert.Equal(t, 2.0, cfg.ProbeFallbackSeconds)
	assert.Equal(t, 5, cfg.GenerationConcurrency)
	assert.Empty(t, cfg.OpenAIAPIKeys)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("VIDEO_RESOLUTION", "1920x1080")
	t.Setenv("VIDEO_FPS", "60")
	t.Setenv("RENDER_TIMEOUT", "90s")
	t.Setenv("OPENAI_API_KEYS", " key-a, ,key-b ")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 1920, cfg.VideoWidth)
	assert.Equal(t, 1080, cfg.VideoHeight)
	assert.Equal(t, 60, cfg.VideoFPS)
	assert.Equal(t, 90*time.Second, cfg.RenderTimeout)
	assert.Equal(t, []string{"key-a", "key-b"}, cfg.OpenAIAPIKeys)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"Malformed resolution", "VIDEO_RESOLUTION", "1080p"},
		{"Odd resolution", "VIDEO_RESOLUTION", "1081x1920"},
		{"Zero fps", "VIDEO_FPS", "0"},
		{"Negative fallback", "PROBE_FALLBACK_SECONDS", "-1"},
		{"Zero render concurrency", "RENDER_CONCURRENCY", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestParseResolution(t *testing.T) {
	w, h, err := ParseResolution("1024X1792")
	require.NoError(t, err)
	assert.Equal(t, 1024, w)
	assert.Equal(t, 1792, h)

	_, _, err = ParseResolution("wide")
	assert.Error(t, err)
}
