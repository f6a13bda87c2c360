package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"reelcomposer/models"
	"reelcomposer/utils"
)

// AssetStager copies a segment resource into the job's working directory and
// returns the local path
type AssetStager interface {
	Stage(ctx context.Context, ref, destDir, name string) (string, error)
}

// FileStager fetches http(s) URLs and public paths served from the output
// directory (e.g. /audio/x.mp3)
type FileStager struct {
	publicDir  string
	httpClient *http.Client
	timeout    time.Duration
}

// NewFileStager creates a stager rooted at the public output directory
func NewFileStager(publicDir string, timeout time.Duration) *FileStager {
	return &FileStager{
		publicDir:  publicDir,
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

func (fs *FileStager) Stage(ctx context.Context, ref, destDir, name string) (string, error) {
	if fs.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, fs.timeout)
		defer cancel()
	}

	if u, err := url.Parse(ref); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		dest := filepath.Join(destDir, name+extFor(u.Path))
		if err := utils.DownloadFile(ctx, fs.httpClient, ref, dest); err != nil {
			return "", err
		}
		return dest, nil
	}

	local := fs.localPath(ref)
	if local == "" || !utils.FileExists(local) {
		return "", fmt.Errorf("file %q not found", ref)
	}
	dest := filepath.Join(destDir, name+extFor(local))
	if err := utils.CopyFile(local, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// localPath maps a reference to a file on disk. Public paths are resolved
// inside publicDir and may not escape it.
func (fs *FileStager) localPath(ref string) string {
	if !strings.HasPrefix(ref, "/") {
		return ""
	}
	clean := path.Clean(ref)
	return filepath.Join(fs.publicDir, filepath.FromSlash(clean))
}

func extFor(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if len(ext) > 6 {
		return ""
	}
	return ext
}

// StageSegments stages image and audio of every input through the bounded
// pool. The first failure is returned as a SegmentError wrapping
// ErrResourceUnavailable.
func StageSegments(ctx context.Context, stager AssetStager, inputs []models.SegmentInput, destDir string, concurrency int) ([]models.StagedSegment, error) {
	tasks := make([]utils.Task[models.StagedSegment], len(inputs))
	for i, in := range inputs {
		tasks[i] = func(ctx context.Context) (models.StagedSegment, error) {
			seg := in.Base()
			imagePath, err := stager.Stage(ctx, seg.ImageRef, destDir, fmt.Sprintf("img_%03d", i))
			if err != nil {
				return models.StagedSegment{}, &models.SegmentError{
					Index: i, Stage: "image fetch",
					Err: fmt.Errorf("%w: %s: %v", models.ErrResourceUnavailable, seg.ImageRef, err),
				}
			}
			audioPath, err := stager.Stage(ctx, seg.AudioRef, destDir, fmt.Sprintf("voiceover_%03d", i))
			if err != nil {
				return models.StagedSegment{}, &models.SegmentError{
					Index: i, Stage: "audio fetch",
					Err: fmt.Errorf("%w: %s: %v", models.ErrResourceUnavailable, seg.AudioRef, err),
				}
			}
			return models.StagedSegment{Index: i, Input: in, ImagePath: imagePath, AudioPath: audioPath}, nil
		}
	}

	results := utils.RunBounded(ctx, tasks, concurrency)
	if err := utils.FirstError(results); err != nil {
		return nil, err
	}

	staged := make([]models.StagedSegment, len(results))
	for i, r := range results {
		staged[i] = r.Value
	}
	return staged, nil
}
