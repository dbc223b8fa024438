package domain

import "time"

// PipelineSession is the per-slot state that exists between stream_start and
// the completion of stop-and-upload.
type PipelineSession struct {
	SessionID    string
	Slot         SlotID
	DisplayName  string
	StartedAt    time.Time
	LiveDir      string
	ArchivePath  string
	BytesWritten uint64
}

// StreamInfo is the read-only projection of a PipelineSession exposed over
// the stream_status frame and the /streams HTTP endpoint. StartedAt is
// epoch milliseconds, matching every other timestamp on the wire protocol.
type StreamInfo struct {
	AgentID         SlotID `json:"agentId"`
	Name            string `json:"name"`
	HLSURL          string `json:"hlsUrl"`
	StartedAt       int64  `json:"startedAt"`
	DurationSeconds int64  `json:"durationSeconds"`
	BytesWritten    uint64 `json:"bytesWritten"`
}
