package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelcomposer/models"
)

func TestFileStagerPublicPath(t *testing.T) {
	public := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(public, "audio"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(public, "audio", "x.mp3"), []byte("mp3"), 0644))

	stager := NewFileStager(public, time.Second)
	dest := t.TempDir()

	got, err := stager.Stage(context.Background(), "/audio/x.mp3", dest, "voiceover_000")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "voiceover_000.mp3"), got)
	data, _ := os.ReadFile(got)
	assert.Equal(t, "mp3", string(data))

	for _, ref := range []string{"/../audio/x.mp3/../../secret", "relative/x.mp3", "/audio/missing.mp3"} {
		_, err := stager.Stage(context.Background(), ref, dest, "bad")
		assert.Error(t, err, ref)
	}
}

func TestFileStagerPublicPathCannotEscape(t *testing.T) {
	root := t.TempDir()
	public := filepath.Join(root, "public")
	require.NoError(t, os.MkdirAll(public, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.txt"), []byte("secret"), 0644))

	stager := NewFileStager(public, time.Second)
	_, err := stager.Stage(context.Background(), "/../secret.txt", t.TempDir(), "x")
	assert.Error(t, err)
}

func TestFileStagerHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/img.PNG" {
			_, _ = w.Write([]byte("png"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	stager := NewFileStager(t.TempDir(), time.Second)
	dest := t.TempDir()

	got, err := stager.Stage(context.Background(), srv.URL+"/img.PNG", dest, "img_000")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "img_000.png"), got)

	_, err = stager.Stage(context.Background(), srv.URL+"/gone.png", dest, "img_001")
	assert.Error(t, err)
}

func TestStageSegmentsReportsFailingSegment(t *testing.T) {
	inputs := []models.SegmentInput{
		models.RawSegment{Segment: models.Segment{ImageRef: "ok", AudioRef: "ok"}},
		models.RawSegment{Segment: models.Segment{ImageRef: "missing", AudioRef: "ok"}},
	}

	_, err := StageSegments(context.Background(), &passStager{fail: "missing"}, inputs, t.TempDir(), 2)
	require.ErrorIs(t, err, models.ErrResourceUnavailable)

	var segErr *models.SegmentError
	require.ErrorAs(t, err, &segErr)
	assert.Equal(t, 1, segErr.Index)
	assert.Equal(t, "image fetch", segErr.Stage)

	staged, err := StageSegments(context.Background(), &passStager{}, inputs, t.TempDir(), 2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, []int{staged[0].Index, staged[1].Index})
}
