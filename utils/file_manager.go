package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Job working directory layout
const (
	AssetsDir   = "assets"
	SegmentsDir = "segments"
	OutputDir   = "output"
)

// CreateTempDir creates the working directories of a job. Every job gets its own
// tree under baseDir so intermediate file names never collide across jobs.
func CreateTempDir(baseDir, jobID string) (string, error) {
	jobDir := filepath.Join(baseDir, jobID)

	dirs := []string{
		jobDir,
		filepath.Join(jobDir, AssetsDir),
		filepath.Join(jobDir, SegmentsDir),
		filepath.Join(jobDir, OutputDir),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return jobDir, nil
}

// DownloadFile downloads a file from URL to destination path
func DownloadFile(ctx context.Context, client *http.Client, url, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	return writeStream(resp.Body, destPath)
}

// CopyFile copies a local file to destination path
func CopyFile(src, destPath string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return writeStream(in, destPath)
}

// WriteFile writes data to path, creating parent directories
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func writeStream(r io.Reader, destPath string) error {
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// CleanupJobFiles removes all temporary files for a job
func CleanupJobFiles(baseDir, jobID string) error {
	return os.RemoveAll(filepath.Join(baseDir, jobID))
}

// ScheduleCleanup removes the job's working directory after delay
func ScheduleCleanup(baseDir, jobID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		_ = CleanupJobFiles(baseDir, jobID)
	})
}

// FileExists checks if a regular file exists
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
