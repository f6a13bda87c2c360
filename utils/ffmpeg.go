package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegError carries the backend's stderr as diagnostic text
type FFmpegError struct {
	Tool   string
	Err    error
	Stderr string
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("%s error: %v, stderr: %s", e.Tool, e.Err, lastLines(e.Stderr, 10))
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// RunFFmpegCommand executes an FFmpeg command
func RunFFmpegCommand(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		return &FFmpegError{Tool: "ffmpeg", Err: err, Stderr: stderr.String()}
	}

	return nil
}

func runFFprobe(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		return nil, &FFmpegError{Tool: "ffprobe", Err: err, Stderr: stderr.String()}
	}
	return output, nil
}

// GetMediaDuration returns the container duration of a media file in seconds
func GetMediaDuration(ctx context.Context, path string) (float64, error) {
	output, err := runFFprobe(ctx, []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	})
	if err != nil {
		return 0, err
	}

	durationStr := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", durationStr, err)
	}

	return duration, nil
}

// StreamInfo describes the first video stream of a file
type StreamInfo struct {
	Codec     string
	Width     int
	Height    int
	FrameRate string // e.g. "30/1"
	Frames    int    // 0 when the container does not report it
}

type ffprobeStreams struct {
	Streams []struct {
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
		NbFrames     string `json:"nb_frames"`
	} `json:"streams"`
}

// GetVideoStreamInfo probes codec, resolution and frame rate of a video file
func GetVideoStreamInfo(ctx context.Context, path string) (StreamInfo, error) {
	output, err := runFFprobe(ctx, []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_name,width,height,avg_frame_rate,r_frame_rate,nb_frames",
		"-of", "json",
		path,
	})
	if err != nil {
		return StreamInfo{}, err
	}

	var parsed ffprobeStreams
	if err := json.Unmarshal(output, &parsed); err != nil {
		return StreamInfo{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(parsed.Streams) == 0 {
		return StreamInfo{}, fmt.Errorf("no video stream in %s", path)
	}

	s := parsed.Streams[0]
	info := StreamInfo{
		Codec:     s.CodecName,
		Width:     s.Width,
		Height:    s.Height,
		FrameRate: s.RFrameRate,
	}
	if info.FrameRate == "" || info.FrameRate == "0/0" {
		info.FrameRate = s.AvgFrameRate
	}
	if n, err := strconv.Atoi(s.NbFrames); err == nil {
		info.Frames = n
	}
	return info, nil
}

// ConcatStreamCopy joins files with the concat demuxer without re-encoding.
// Inputs must share codec, resolution and frame rate.
func ConcatStreamCopy(ctx context.Context, inputFiles []string, listPath, outputPath string) error {
	if len(inputFiles) == 0 {
		return fmt.Errorf("no input files provided")
	}

	var list strings.Builder
	for _, file := range inputFiles {
		fmt.Fprintf(&list, "file '%s'\n", escapeConcatPath(file))
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0644); err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}

	return RunFFmpegCommand(ctx, []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-movflags", "+faststart",
		"-y", outputPath,
	})
}

// escapeConcatPath quotes a path for a concat list entry: ' becomes '\''
func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
