package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegmentArgs(t *testing.T) {
	r := &FFmpegRenderer{fontFile: "/fonts/Dejavu Sans.ttf", fontSize: 48}
	req := RenderRequest{
		Index:          2,
		ImagePath:      "/tmp/job/assets/img_002.png",
		AudioPath:      "/tmp/job/assets/voiceover_002.mp3",
		Plan:           NewTransformPlanner().Plan(90, 1080, 1920),
		DurationFrames: 90,
		Width:          1080,
		Height:         1920,
		FPS:            30,
		OutputPath:     "/tmp/job/segments/segment_002.mp4",
	}

	args := r.SegmentArgs(req, "/tmp/job/segments/segment_002_caption.txt")
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "-frames:v 90")
	assert.Contains(t, joined, "-t 3.000000")
	assert.Contains(t, joined, "-r 30")
	assert.Contains(t, joined, "-c:v libx264")
	assert.Contains(t, joined, "-pix_fmt yuv420p")
	assert.Contains(t, joined, "scale=2160:3840")
	assert.Contains(t, joined, "zoompan=")
	assert.Contains(t, joined, "textfile='/tmp/job/segments/segment_002_caption.txt'")
	assert.Equal(t, "/tmp/job/segments/segment_002.mp4", args[len(args)-1])
}

func TestFilterPath(t *testing.T) {
	assert.Equal(t, `C\:/fonts/it'\''s.ttf`, filterPath(`C:/fonts/it's.ttf`))
}

func TestCheckUniform(t *testing.T) {
	base := SegmentArtifact{Codec: "h264", Width: 1080, Height: 1920, FrameRate: "30/1"}
	a, b := base, base
	a.Index, b.Index = 0, 1

	assert.NoError(t, CheckUniform([]SegmentArtifact{a, b}))
	assert.Error(t, CheckUniform(nil))

	b.FrameRate = "60/1"
	assert.ErrorContains(t, CheckUniform([]SegmentArtifact{a, b}), "segment 1")
}
