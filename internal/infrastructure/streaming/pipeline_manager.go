package streaming

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"syncrun/internal/core/domain"
	"syncrun/internal/core/ports"
	"syncrun/internal/infrastructure/archive"
	"syncrun/internal/infrastructure/monitoring"
	"syncrun/pkg/circuitbreaker"
	"syncrun/pkg/config"
	"syncrun/pkg/optimize"
	"syncrun/pkg/tracing"
	"syncrun/pkg/utils"
)

// session is the live, mutable state behind one domain.PipelineSession.
type session struct {
	info domain.PipelineSession

	transcoderStdin io.WriteCloser
	cmd             *exec.Cmd
	archiveFile     *os.File

	bytesWritten uint64 // atomic

	stopOnce sync.Once
}

// Manager runs one ingest-transcode-archive pipeline per streaming slot. It
// owns the per-slot circuit breaker guarding transcoder spawn, the shared
// frame buffer pool, and the archive upload client.
type Manager struct {
	cfg    *config.Config
	logger *zap.SugaredLogger
	store  archive.Store
	pool   *optimize.BytePool
	metric *monitoring.PrometheusCollector

	mu       sync.Mutex
	sessions map[domain.SlotID]*session
	breakers map[domain.SlotID]*circuitbreaker.CircuitBreaker
}

var _ ports.PipelineManager = (*Manager)(nil)

func NewManager(cfg *config.Config, logger *zap.SugaredLogger, store archive.Store, metric *monitoring.PrometheusCollector) *Manager {
	return &Manager{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		pool:     optimize.NewBytePool(int(cfg.WebSocket.MaxMessageBytes)),
		metric:   metric,
		sessions: make(map[domain.SlotID]*session),
		breakers: make(map[domain.SlotID]*circuitbreaker.CircuitBreaker),
	}
}

func (m *Manager) breakerFor(slot domain.SlotID) *circuitbreaker.CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	cb, ok := m.breakers[slot]
	if !ok {
		cb = circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold:    3,
			SuccessThreshold:    1,
			Timeout:             30 * time.Second,
			MaxRequestsHalfOpen: 1,
		})
		m.breakers[slot] = cb
	}
	return cb
}

// Start spawns the transcoder and archive sink for slot, guarded by that
// slot's circuit breaker.
func (m *Manager) Start(ctx context.Context, slot domain.SlotID, displayName string) error {
	m.mu.Lock()
	if _, exists := m.sessions[slot]; exists {
		m.mu.Unlock()
		return domain.ErrAlreadyStreaming
	}
	m.mu.Unlock()

	_, span := tracing.TracePipelineOperation(ctx, "start", int(slot))
	defer span.End()

	cb := m.breakerFor(slot)

	var sess *session
	err := cb.Execute(ctx, func() error {
		s, startErr := m.startSession(slot, displayName)
		if startErr != nil {
			return startErr
		}
		sess = s
		return nil
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return domain.ErrPipelineUnavailable
	}

	m.mu.Lock()
	m.sessions[slot] = sess
	m.mu.Unlock()

	if m.metric != nil {
		m.metric.RecordPipelineStarted()
	}

	go m.superviseTranscoder(slot, sess)

	return nil
}

func (m *Manager) startSession(slot domain.SlotID, displayName string) (*session, error) {
	liveDir := filepath.Join(m.cfg.Streaming.LiveRoot, fmt.Sprintf("%d", slot))
	if err := os.RemoveAll(liveDir); err != nil {
		return nil, fmt.Errorf("clear live dir: %w", err)
	}
	if err := os.MkdirAll(liveDir, 0o755); err != nil {
		return nil, fmt.Errorf("create live dir: %w", err)
	}

	sessionID := uuid.NewString()
	startedAt := time.Now()
	epochMs := startedAt.UnixMilli()

	safeName := utils.SafeFilenameComponent(displayName)
	if safeName == "" {
		safeName = fmt.Sprintf("agent_%d", slot)
	}

	archivePath := filepath.Join(m.cfg.Streaming.RecordingRoot,
		fmt.Sprintf("%s_%d.%s", safeName, epochMs, m.cfg.Streaming.ContainerExt))
	if err := os.MkdirAll(m.cfg.Streaming.RecordingRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create recording root: %w", err)
	}

	archiveFile, err := os.OpenFile(archivePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open archive file: %w", err)
	}

	cmd := m.buildTranscoderCmd(liveDir, epochMs)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		archiveFile.Close()
		return nil, fmt.Errorf("open transcoder stdin: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		archiveFile.Close()
		return nil, fmt.Errorf("spawn transcoder: %w", err)
	}

	m.logger.Infow("pipeline session starting", "slot", slot, "sessionId", sessionID, "displayName", displayName)

	return &session{
		info: domain.PipelineSession{
			SessionID:   sessionID,
			Slot:        slot,
			DisplayName: displayName,
			StartedAt:   startedAt,
			LiveDir:     liveDir,
			ArchivePath: archivePath,
		},
		transcoderStdin: stdin,
		cmd:             cmd,
		archiveFile:     archiveFile,
	}, nil
}

// buildTranscoderCmd constructs the remux-only ffmpeg-style invocation: stdin
// as source, video-only container remux (no re-encode), segmented playlist
// output at a 1s target duration with a 4-segment rolling window.
func (m *Manager) buildTranscoderCmd(liveDir string, epochMs int64) *exec.Cmd {
	playlistPath := filepath.Join(liveDir, "stream.m3u8")
	segmentPattern := filepath.Join(liveDir, fmt.Sprintf("s%d_%%03d.%s", epochMs, m.cfg.Streaming.SegmentExt))

	args := []string{
		"-fflags", "nobuffer",
		"-flags", "low_delay",
		"-i", "pipe:0",
		"-an",
		"-c:v", "copy",
		"-f", "hls",
		"-hls_time", fmt.Sprintf("%.0f", m.cfg.Streaming.SegmentDuration.Seconds()),
		"-hls_list_size", fmt.Sprintf("%d", m.cfg.Streaming.SegmentListSize),
		"-hls_flags", "delete_segments+independent_segments",
		"-hls_segment_filename", segmentPattern,
		playlistPath,
	}

	return exec.Command(m.cfg.Streaming.TranscoderPath, args...)
}

// superviseTranscoder waits for the child to exit and drives the standard
// stop path when it does, whether from a clean exit, a crash, or the
// process being killed by Stop. The Manager does not broadcast
// stream_status itself, so a stop that starts here is not announced to peers.
func (m *Manager) superviseTranscoder(slot domain.SlotID, sess *session) {
	err := sess.cmd.Wait()
	if err != nil {
		m.logger.Warnw("transcoder exited with error", "slot", slot, "error", err)
	}
	m.stopSession(slot, sess)
}

// Stop tears the pipeline for slot down asynchronously. Safe to call
// repeatedly or on a slot with no active session.
func (m *Manager) Stop(slot domain.SlotID) {
	m.mu.Lock()
	sess, exists := m.sessions[slot]
	if exists {
		delete(m.sessions, slot)
	}
	m.mu.Unlock()

	if !exists {
		return
	}

	go m.stopSession(slot, sess)
}

// StopAll tears down every active session concurrently and waits for all of
// them to finish, bounded by each session's own StopTimeout kill-guard. Used
// by process shutdown so the archive upload and cleanup steps actually run
// before the process exits.
func (m *Manager) StopAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[domain.SlotID]*session)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for slot, sess := range sessions {
		wg.Add(1)
		go func(slot domain.SlotID, sess *session) {
			defer wg.Done()
			m.stopSession(slot, sess)
		}(slot, sess)
	}
	wg.Wait()
}

// stopSession runs the finalize-and-upload sequence exactly once per
// session, safe against being invoked from both an explicit stop and the
// transcoder-exit supervisor racing each other.
func (m *Manager) stopSession(slot domain.SlotID, sess *session) {
	sess.stopOnce.Do(func() {
		m.mu.Lock()
		delete(m.sessions, slot)
		m.mu.Unlock()

		sess.archiveFile.Close()
		sess.transcoderStdin.Close()

		done := make(chan struct{})
		go func() {
			sess.cmd.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(m.cfg.Streaming.StopTimeout):
			m.logger.Warnw("transcoder did not exit in time, killing", "slot", slot)
			if sess.cmd.Process != nil {
				sess.cmd.Process.Kill()
			}
			<-done
		}

		duration := time.Since(sess.info.StartedAt)

		if info, err := os.Stat(sess.info.ArchivePath); err == nil && info.Size() > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Archive.HTTPTimeout)
			err := m.store.Upload(ctx, archive.UploadRequest{
				SessionID:    sess.info.SessionID,
				ArchivePath:  sess.info.ArchivePath,
				ContainerExt: m.cfg.Streaming.ContainerExt,
				AgentName:    sess.info.DisplayName,
				AgentID:      int(slot),
				Duration:     duration,
				RecordedAt:   sess.info.StartedAt,
			})
			cancel()
			if err != nil {
				m.logger.Errorw("archive upload failed", "slot", slot, "sessionId", sess.info.SessionID, "error", err)
			}
			if m.metric != nil {
				m.metric.RecordArchiveUpload(err == nil)
			}
		}

		os.RemoveAll(sess.info.LiveDir)
		os.Remove(sess.info.ArchivePath)

		if m.metric != nil {
			m.metric.RecordPipelineStopped(duration)
		}
	})
}

// Write routes one binary frame to slot's active pipeline, if any. Frames
// arriving for an inactive slot are dropped silently.
func (m *Manager) Write(slot domain.SlotID, chunk []byte) {
	m.mu.Lock()
	sess, exists := m.sessions[slot]
	m.mu.Unlock()
	if !exists {
		return
	}

	buf := m.pool.Get()
	n := copy(buf, chunk)
	defer m.pool.Put(buf)

	if _, err := sess.transcoderStdin.Write(buf[:n]); err != nil {
		m.logger.Debugw("transcoder stdin write failed", "slot", slot, "error", err)
	}
	if _, err := sess.archiveFile.Write(buf[:n]); err != nil {
		m.logger.Debugw("archive sink write failed", "slot", slot, "error", err)
	}

	atomic.AddUint64(&sess.bytesWritten, uint64(n))
	if m.metric != nil {
		m.metric.RecordBytesIngested(n)
	}
}

// Snapshot lists all currently active sessions for stream_status and /streams.
func (m *Manager) Snapshot() []domain.StreamInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.StreamInfo, 0, len(m.sessions))
	for slot, sess := range m.sessions {
		out = append(out, domain.StreamInfo{
			AgentID:         slot,
			Name:            sess.info.DisplayName,
			HLSURL:          fmt.Sprintf("/live/%d/stream.m3u8", slot),
			StartedAt:       sess.info.StartedAt.UnixMilli(),
			DurationSeconds: int64(time.Since(sess.info.StartedAt).Seconds()),
			BytesWritten:    atomic.LoadUint64(&sess.bytesWritten),
		})
	}
	return out
}
