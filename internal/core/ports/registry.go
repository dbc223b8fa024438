package ports

import "syncrun/internal/core/domain"

// Registry manages the fixed pool of agent identity slots.
type Registry interface {
	// Acquire returns the lowest-numbered free slot, or domain.ErrSlotsFull.
	Acquire() (domain.SlotID, error)
	// Release frees a slot. Idempotent.
	Release(id domain.SlotID)
	// Occupied returns the currently occupied slots in ascending order.
	Occupied() []domain.SlotID
	// Count returns the number of currently occupied slots.
	Count() int
}
