package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelcomposer/models"
)

func TestParseComposeRequest(t *testing.T) {
	raw, err := ParseComposeRequest(models.ComposeRequest{
		Images:        []string{"https://img/0.png", "https://img/1.png"},
		Captions:      []string{"first", ""},
		VoiceoverURLs: []string{"/audio/0.mp3", " /audio/1.mp3 "},
	})
	require.NoError(t, err)
	require.Len(t, raw, 2)
	assert.IsType(t, models.RawSegment{}, raw[0])
	assert.Equal(t, "/audio/1.mp3", raw[1].Base().AudioRef)

	timed, err := ParseComposeRequest(models.ComposeRequest{
		Images:            []string{"a.png"},
		Captions:          []string{"a"},
		VoiceoverURLs:     []string{"a.mp3"},
		DurationsInFrames: []int{45},
	})
	require.NoError(t, err)
	require.IsType(t, models.TimedSegment{}, timed[0])
	assert.Equal(t, 45, timed[0].(models.TimedSegment).DurationFrames)
}

func TestParseComposeRequestRejects(t *testing.T) {
	tests := []struct {
		name string
		req  models.ComposeRequest
	}{
		{"Empty", models.ComposeRequest{}},
		{"Voiceover mismatch", models.ComposeRequest{
			Images: []string{"a", "b"}, Captions: []string{"a", "b"}, VoiceoverURLs: []string{"a"},
		}},
		{"Caption mismatch", models.ComposeRequest{
			Images: []string{"a"}, Captions: []string{"a", "b"}, VoiceoverURLs: []string{"a"},
		}},
		{"Duration mismatch", models.ComposeRequest{
			Images: []string{"a"}, Captions: []string{"a"}, VoiceoverURLs: []string{"a"}, DurationsInFrames: []int{},
		}},
		{"Zero duration", models.ComposeRequest{
			Images: []string{"a"}, Captions: []string{"a"}, VoiceoverURLs: []string{"a"}, DurationsInFrames: []int{0},
		}},
		{"Blank image", models.ComposeRequest{
			Images: []string{" "}, Captions: []string{"a"}, VoiceoverURLs: []string{"a"},
		}},
		{"Blank audio", models.ComposeRequest{
			Images: []string{"a"}, Captions: []string{"a"}, VoiceoverURLs: []string{""},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseComposeRequest(tt.req)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
		})
	}
}
