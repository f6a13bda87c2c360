package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"reelcomposer/models"
	"reelcomposer/utils"
)

// RenderRequest is everything the backend needs to render one segment
type RenderRequest struct {
	Index          int
	ImagePath      string
	AudioPath      string
	Caption        string // wrapped and escaped
	Plan           models.TransformPlan
	DurationFrames int
	Width          int
	Height         int
	FPS            int
	OutputPath     string
}

// SegmentArtifact is a rendered segment on disk
type SegmentArtifact struct {
	Index     int
	Path      string
	Frames    int
	Codec     string
	Width     int
	Height    int
	FrameRate string
}

// Renderer is the external rendering backend
type Renderer interface {
	RenderSegment(ctx context.Context, req RenderRequest) (SegmentArtifact, error)
	Concat(ctx context.Context, artifacts []SegmentArtifact, outputPath string) error
}

// Uniform encoding settings for every segment; concat with -c copy depends on them
const (
	segmentVideoCodec = "libx264"
	segmentPixFmt     = "yuv420p"
	segmentAudioRate  = "44100"
)

var fontCandidates = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/Library/Fonts/Arial.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
}

// FFmpegRenderer renders segments and concatenates them with ffmpeg
type FFmpegRenderer struct {
	fontFile string
	fontSize int
}

// NewFFmpegRenderer creates a renderer. An empty fontFile picks the first
// readable system font.
func NewFFmpegRenderer(fontFile string, fontSize int) (*FFmpegRenderer, error) {
	if fontFile == "" {
		for _, candidate := range fontCandidates {
			if utils.FileExists(candidate) {
				fontFile = candidate
				break
			}
		}
	}
	if fontFile == "" || !utils.FileExists(fontFile) {
		return nil, fmt.Errorf("no suitable font file found for caption overlay, tried %v", fontCandidates)
	}
	if fontSize <= 0 {
		fontSize = 48
	}
	return &FFmpegRenderer{fontFile: fontFile, fontSize: fontSize}, nil
}

// SegmentArgs builds the ffmpeg arguments for one segment. The caption is read
// from captionFile, which holds the escaped text.
func (r *FFmpegRenderer) SegmentArgs(req RenderRequest, captionFile string) []string {
	filters := []string{
		// upscale first so zoompan has pixels to work with and does not jitter
		fmt.Sprintf("[0:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1[scaled]",
			req.Width*2, req.Height*2, req.Width*2, req.Height*2),
		fmt.Sprintf("[scaled]%s[zoomed]", ZoompanFilter(req.Plan, req.Width, req.Height, req.FPS)),
		fmt.Sprintf("[zoomed]drawtext=fontfile='%s':textfile='%s':fontsize=%d:fontcolor=white:"+
			"x=(w-text_w)/2:y=h-text_h-250:box=1:boxcolor=black@0.5:boxborderw=10:line_spacing=8[drawn]",
			filterPath(r.fontFile), filterPath(captionFile), r.fontSize),
		fmt.Sprintf("[drawn]setpts=PTS-STARTPTS,format=%s[finalvideo]", segmentPixFmt),
		"[1:a]apad[finalaudio]",
	}

	seconds := utils.SecondsFromFrames(req.DurationFrames, req.FPS)
	return []string{
		"-i", req.ImagePath,
		"-i", req.AudioPath,
		"-filter_complex", strings.Join(filters, ";"),
		"-map", "[finalvideo]",
		"-map", "[finalaudio]",
		"-frames:v", strconv.Itoa(req.DurationFrames),
		"-t", strconv.FormatFloat(seconds, 'f', 6, 64),
		"-r", strconv.Itoa(req.FPS),
		"-c:v", segmentVideoCodec,
		"-preset", "medium",
		"-crf", "20",
		"-pix_fmt", segmentPixFmt,
		"-c:a", "aac",
		"-b:a", "192k",
		"-ar", segmentAudioRate,
		"-ac", "2",
		"-y", req.OutputPath,
	}
}

// RenderSegment renders one still image with zoom, narration and caption
func (r *FFmpegRenderer) RenderSegment(ctx context.Context, req RenderRequest) (SegmentArtifact, error) {
	captionFile := strings.TrimSuffix(req.OutputPath, filepath.Ext(req.OutputPath)) + "_caption.txt"
	if err := os.WriteFile(captionFile, []byte(req.Caption), 0644); err != nil {
		return SegmentArtifact{}, fmt.Errorf("failed to write caption file: %w", err)
	}

	if err := utils.RunFFmpegCommand(ctx, r.SegmentArgs(req, captionFile)); err != nil {
		return SegmentArtifact{}, err
	}

	info, err := utils.GetVideoStreamInfo(ctx, req.OutputPath)
	if err != nil {
		return SegmentArtifact{}, fmt.Errorf("failed to inspect rendered segment: %w", err)
	}

	frames := info.Frames
	if frames == 0 {
		frames = req.DurationFrames
	}
	return SegmentArtifact{
		Index:     req.Index,
		Path:      req.OutputPath,
		Frames:    frames,
		Codec:     info.Codec,
		Width:     info.Width,
		Height:    info.Height,
		FrameRate: info.FrameRate,
	}, nil
}

// Concat joins the artifacts in order without re-encoding
func (r *FFmpegRenderer) Concat(ctx context.Context, artifacts []SegmentArtifact, outputPath string) error {
	paths := make([]string, len(artifacts))
	for i, a := range artifacts {
		abs, err := filepath.Abs(a.Path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", a.Path, err)
		}
		paths[i] = abs
	}
	listPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + "_concat.txt"
	defer os.Remove(listPath)
	return utils.ConcatStreamCopy(ctx, paths, listPath, outputPath)
}

// filterPath escapes a file path used as a filter option value
func filterPath(p string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `'\''`, `:`, `\:`).Replace(filepath.ToSlash(p))
}

// CheckUniform verifies every artifact shares codec, resolution and frame rate
func CheckUniform(artifacts []SegmentArtifact) error {
	if len(artifacts) == 0 {
		return fmt.Errorf("no segments to concatenate")
	}
	first := artifacts[0]
	for _, a := range artifacts[1:] {
		if a.Codec != first.Codec || a.Width != first.Width || a.Height != first.Height || a.FrameRate != first.FrameRate {
			return fmt.Errorf("segment %d is %s %dx%d@%s, segment %d is %s %dx%d@%s",
				first.Index, first.Codec, first.Width, first.Height, first.FrameRate,
				a.Index, a.Codec, a.Width, a.Height, a.FrameRate)
		}
	}
	return nil
}
