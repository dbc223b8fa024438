package services

import "syncrun/internal/core/domain"

// CountdownDurationMS is the fixed countdown length broadcast alongside every
// start. It is a protocol constant, not something a client can negotiate.
const CountdownDurationMS = 3000

// CountdownFrames is the stateless helper behind start_request: it never
// substitutes its own clock, only echoes the requester's timestamp back
// alongside the fixed duration and the starter's slot id.
type CountdownFrames struct {
	Timestamp      int64
	Duration       int64
	StarterAgentID domain.SlotID
}

// BuildCountdown returns the countdown+start frame pair for a start_request
// issued by starter at the given client-supplied timestamp.
func BuildCountdown(timestamp int64, starter domain.SlotID) CountdownFrames {
	return CountdownFrames{
		Timestamp:      timestamp,
		Duration:       CountdownDurationMS,
		StarterAgentID: starter,
	}
}
