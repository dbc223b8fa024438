package ports

import "syncrun/internal/core/domain"

// SessionState holds per-slot ready flag and display name plus the
// process-wide travel mode flag.
type SessionState interface {
	SetReady(id domain.SlotID, ready bool)
	SetName(id domain.SlotID, name string)
	ClearSlot(id domain.SlotID)

	ResetAllReady()
	AllReady() bool

	SetTravelMode(active bool)
	TravelMode() bool

	Snapshot() domain.Snapshot
}
