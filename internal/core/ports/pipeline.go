package ports

import (
	"context"

	"syncrun/internal/core/domain"
)

// PipelineManager runs the per-slot ingest-transcode-archive pipeline.
type PipelineManager interface {
	// Start spawns a pipeline for the given slot. Returns domain.ErrAlreadyStreaming
	// if one already exists, or domain.ErrPipelineUnavailable if the session could
	// not be started or the breaker is open.
	Start(ctx context.Context, slot domain.SlotID, displayName string) error
	// Stop tears a pipeline down asynchronously. Safe to call on a slot with no
	// active session.
	Stop(slot domain.SlotID)
	// StopAll tears down every active pipeline and blocks until each has
	// finished its stop-and-upload sequence (or been force-killed by its
	// stop timeout). Used to bound process shutdown.
	StopAll()
	// Write routes one binary frame to the slot's active pipeline, if any.
	Write(slot domain.SlotID, chunk []byte)
	// Snapshot lists all currently active sessions.
	Snapshot() []domain.StreamInfo
}
