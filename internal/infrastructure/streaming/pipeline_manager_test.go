package streaming

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"syncrun/internal/core/domain"
	"syncrun/internal/infrastructure/archive"
	"syncrun/pkg/config"
)

// noopStore never contacts an external service; it records whether Upload
// was invoked so tests can assert on the stop-and-upload sequence.
type noopStore struct {
	uploaded bool
}

func (s *noopStore) Configured() bool { return true }

func (s *noopStore) Upload(ctx context.Context, req archive.UploadRequest) error {
	s.uploaded = true
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Streaming.LiveRoot = filepath.Join(t.TempDir(), "live")
	cfg.Streaming.RecordingRoot = filepath.Join(t.TempDir(), "recordings")
	// "cat" stands in for the transcoder binary: it accepts stdin and exits
	// cleanly on EOF, which is all these tests need from the child process.
	cfg.Streaming.TranscoderPath = "cat"
	cfg.Streaming.StopTimeout = 2 * time.Second
	return cfg
}

func TestManager_Start_RejectsWhenAlreadyStreaming(t *testing.T) {
	cfg := testConfig(t)
	store := &noopStore{}
	mgr := NewManager(cfg, zap.NewNop().Sugar(), store, nil)

	require.NoError(t, mgr.Start(context.Background(), domain.SlotID(1), "Runner"))
	err := mgr.Start(context.Background(), domain.SlotID(1), "Runner")
	assert.ErrorIs(t, err, domain.ErrAlreadyStreaming)

	mgr.Stop(domain.SlotID(1))
}

func TestManager_Write_DropsForInactiveSlot(t *testing.T) {
	cfg := testConfig(t)
	mgr := NewManager(cfg, zap.NewNop().Sugar(), &noopStore{}, nil)

	// No panic, no error return path: an inactive slot silently drops frames.
	mgr.Write(domain.SlotID(5), []byte("chunk"))
}

func TestManager_Snapshot_ReflectsActiveSessions(t *testing.T) {
	cfg := testConfig(t)
	mgr := NewManager(cfg, zap.NewNop().Sugar(), &noopStore{}, nil)

	require.NoError(t, mgr.Start(context.Background(), domain.SlotID(2), "Speedy"))
	mgr.Write(domain.SlotID(2), []byte("some-bytes"))

	snap := mgr.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, domain.SlotID(2), snap[0].AgentID)
	assert.Equal(t, "Speedy", snap[0].Name)
	assert.Equal(t, "/live/2/stream.m3u8", snap[0].HLSURL)
	assert.Equal(t, uint64(len("some-bytes")), snap[0].BytesWritten)

	mgr.Stop(domain.SlotID(2))
}

func TestManager_StopAll_WaitsForEverySessionToFinish(t *testing.T) {
	cfg := testConfig(t)
	store := &noopStore{}
	mgr := NewManager(cfg, zap.NewNop().Sugar(), store, nil)

	require.NoError(t, mgr.Start(context.Background(), domain.SlotID(1), "Runner1"))
	require.NoError(t, mgr.Start(context.Background(), domain.SlotID(2), "Runner2"))
	mgr.Write(domain.SlotID(1), []byte("some-bytes"))
	mgr.Write(domain.SlotID(2), []byte("some-bytes"))

	mgr.StopAll()

	assert.Empty(t, mgr.Snapshot())
	assert.True(t, store.uploaded)
}

func TestManager_Stop_NoActiveSession_IsNoOp(t *testing.T) {
	cfg := testConfig(t)
	mgr := NewManager(cfg, zap.NewNop().Sugar(), &noopStore{}, nil)

	mgr.Stop(domain.SlotID(3))
	assert.Empty(t, mgr.Snapshot())
}

func TestManager_Start_ClearsStaleLiveDirectory(t *testing.T) {
	cfg := testConfig(t)
	mgr := NewManager(cfg, zap.NewNop().Sugar(), &noopStore{}, nil)

	staleDir := filepath.Join(cfg.Streaming.LiveRoot, "4")
	require.NoError(t, os.MkdirAll(staleDir, 0o755))
	stalePath := filepath.Join(staleDir, "old_segment.ts")
	require.NoError(t, os.WriteFile(stalePath, []byte("stale"), 0o644))

	require.NoError(t, mgr.Start(context.Background(), domain.SlotID(4), "Runner"))

	_, err := os.Stat(stalePath)
	assert.True(t, os.IsNotExist(err))

	mgr.Stop(domain.SlotID(4))
}
