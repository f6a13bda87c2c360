package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFramesFromSeconds(t *testing.T) {
	tests := []struct {
		name     string
		seconds  float64
		fps      int
		expected int
	}{
		{"Exact", 3.0, 30, 90},
		{"Rounds down", 1.01, 30, 30},
		{"Rounds up", 1.02, 30, 31},
		{"Fallback length", 2.0, 30, 60},
		{"Sixty fps", 2.5, 60, 150},
		{"Tiny clip", 0.01, 30, 0},
		{"NaN", math.NaN(), 30, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FramesFromSeconds(tt.seconds, tt.fps))
		})
	}
}

func TestFramesRoundProperty(t *testing.T) {
	for _, fps := range []int{24, 25, 30, 60} {
		for ms := 1; ms < 10000; ms += 37 {
			seconds := float64(ms) / 1000
			assert.Equal(t, int(math.Round(seconds*float64(fps))), FramesFromSeconds(seconds, fps))
		}
	}
}

func TestFormatSRTTimestamp(t *testing.T) {
	tests := []struct {
		seconds  float64
		expected string
	}{
		{0, "00:00:00,000"},
		{3, "00:00:03,000"},
		{9.9996, "00:00:10,000"},
		{61.5, "00:01:01,500"},
		{3723.042, "01:02:03,042"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatSRTTimestamp(tt.seconds))
	}
	assert.Equal(t, 3.0, SecondsFromFrames(90, 30))
}
