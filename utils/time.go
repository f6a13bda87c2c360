package utils

import (
	"fmt"
	"math"
)

// FramesFromSeconds converts seconds to a frame count with round(seconds*fps).
// This is the only seconds->frames rule used on the render path, so a segment's
// zoompan length, frame cap and audio pad all agree.
func FramesFromSeconds(seconds float64, fps int) int {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0
	}
	return int(math.Round(seconds * float64(fps)))
}

// SecondsFromFrames converts a frame count back to seconds
func SecondsFromFrames(frames, fps int) float64 {
	if fps <= 0 {
		return 0
	}
	return float64(frames) / float64(fps)
}

// FormatSRTTimestamp formats seconds to SRT timestamp format (HH:MM:SS,mmm)
func FormatSRTTimestamp(seconds float64) string {
	totalMs := int64(math.Round(seconds * 1000))
	if totalMs < 0 {
		totalMs = 0
	}

	ms := totalMs % 1000
	d := totalMs / 1000
	h := d / 3600
	m := (d % 3600) / 60
	s := d % 60

	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
