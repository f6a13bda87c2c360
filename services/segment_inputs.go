package services

import (
	"fmt"
	"strings"

	"reelcomposer/models"
)

// ParseComposeRequest validates a compose body and turns it into segment inputs.
// Arrays of different lengths are rejected, never trimmed.
func ParseComposeRequest(req models.ComposeRequest) ([]models.SegmentInput, error) {
	n := len(req.Images)
	if n == 0 {
		return nil, fmt.Errorf("%w: no images provided", models.ErrInvalidInput)
	}
	if len(req.VoiceoverURLs) != n {
		return nil, fmt.Errorf("%w: %d images but %d voiceover URLs", models.ErrInvalidInput, n, len(req.VoiceoverURLs))
	}
	if len(req.Captions) != n {
		return nil, fmt.Errorf("%w: %d images but %d captions", models.ErrInvalidInput, n, len(req.Captions))
	}
	timed := req.DurationsInFrames != nil
	if timed && len(req.DurationsInFrames) != n {
		return nil, fmt.Errorf("%w: %d images but %d durations", models.ErrInvalidInput, n, len(req.DurationsInFrames))
	}

	inputs := make([]models.SegmentInput, n)
	for i := 0; i < n; i++ {
		seg := models.Segment{
			ImageRef:    strings.TrimSpace(req.Images[i]),
			AudioRef:    strings.TrimSpace(req.VoiceoverURLs[i]),
			CaptionText: req.Captions[i],
		}
		if seg.ImageRef == "" {
			return nil, fmt.Errorf("%w: segment %d has an empty image reference", models.ErrInvalidInput, i)
		}
		if seg.AudioRef == "" {
			return nil, fmt.Errorf("%w: segment %d has an empty voiceover reference", models.ErrInvalidInput, i)
		}

		if !timed {
			inputs[i] = models.RawSegment{Segment: seg}
			continue
		}
		if req.DurationsInFrames[i] < 1 {
			return nil, fmt.Errorf("%w: segment %d duration must be at least 1 frame, got %d",
				models.ErrInvalidInput, i, req.DurationsInFrames[i])
		}
		inputs[i] = models.TimedSegment{Segment: seg, DurationFrames: req.DurationsInFrames[i]}
	}

	return inputs, nil
}
