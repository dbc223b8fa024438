package domain

import "errors"

var (
	// ErrSlotsFull is returned by the registry when all MaxSlots identities are occupied.
	ErrSlotsFull = errors.New("all agent slots are occupied")

	// ErrSlotNotOccupied is returned when an operation targets a slot with no attached peer.
	ErrSlotNotOccupied = errors.New("slot is not occupied")

	// ErrNotAllReady is returned when a start_request arrives while the ready gate is not met.
	ErrNotAllReady = errors.New("All connected users must be Ready to start")

	// ErrNotInTravelMode is returned when execute_travel arrives outside travel mode.
	ErrNotInTravelMode = errors.New("Not in travel mode")

	// ErrAlreadyStreaming is returned when stream_start arrives for a slot with an active pipeline.
	ErrAlreadyStreaming = errors.New("Already streaming")

	// ErrPipelineUnavailable is returned when a pipeline fails to start or the
	// circuit breaker guarding transcoder spawn is open.
	ErrPipelineUnavailable = errors.New("Streaming temporarily unavailable")
)
