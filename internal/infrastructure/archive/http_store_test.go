package archive

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"syncrun/pkg/config"
)

func writeTempArchive(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.mp4")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestHTTPStore_NotConfigured_SkipsUpload(t *testing.T) {
	cfg := config.DefaultConfig()
	store := NewHTTPStore(cfg, zap.NewNop().Sugar())

	assert.False(t, store.Configured())

	err := store.Upload(context.Background(), UploadRequest{
		ArchivePath:  writeTempArchive(t, "data"),
		ContainerExt: "mp4",
		AgentName:    "Foo",
		AgentID:      1,
	})
	assert.NoError(t, err)
}

func TestHTTPStore_Upload_FullSequence(t *testing.T) {
	var calls []string
	var srv *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/api/vod/upload-url", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "upload-url")
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(uploadURLResponse{UploadURL: srv.URL + "/upload-dest"})
	})
	mux.HandleFunc("/upload-dest", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "upload")
		assert.Equal(t, "video/mp4", r.Header.Get("Content-Type"))
		json.NewEncoder(w).Encode(uploadResponse{StorageID: "storage-123"})
	})
	mux.HandleFunc("/api/vod/save", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "save")
		var body saveRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "storage-123", body.StorageID)
		assert.Equal(t, "session-abc", body.SessionID)
		assert.Equal(t, "Foo", body.AgentName)
		assert.Equal(t, 1, body.AgentID)
		w.WriteHeader(http.StatusOK)
	})

	srv = httptest.NewServer(mux)
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.Archive.SiteURL = srv.URL
	cfg.Archive.BearerToken = "test-token"

	store := NewHTTPStore(cfg, zap.NewNop().Sugar())
	require.True(t, store.Configured())

	err := store.Upload(context.Background(), UploadRequest{
		SessionID:    "session-abc",
		ArchivePath:  writeTempArchive(t, "binary-container-bytes"),
		ContainerExt: "mp4",
		AgentName:    "Foo",
		AgentID:      1,
		Duration:     90 * time.Second,
		RecordedAt:   time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"upload-url", "upload", "save"}, calls)
}

func TestHTTPStore_UploadURLFailure_PropagatesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.Archive.SiteURL = srv.URL
	cfg.Archive.BearerToken = "test-token"

	store := NewHTTPStore(cfg, zap.NewNop().Sugar())

	err := store.Upload(context.Background(), UploadRequest{
		ArchivePath:  writeTempArchive(t, "data"),
		ContainerExt: "mp4",
		AgentName:    "Foo",
		AgentID:      1,
	})
	assert.Error(t, err)
}
