package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncrun/internal/core/domain"
)

func TestRegistryService_Acquire_AssignsLowestFreeIDInOrder(t *testing.T) {
	r := NewRegistryService()

	for want := domain.SlotID(1); want <= domain.MaxSlots; want++ {
		got, err := r.Acquire()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestRegistryService_Acquire_FailsWhenAllSlotsOccupied(t *testing.T) {
	r := NewRegistryService()

	for i := 0; i < domain.MaxSlots; i++ {
		_, err := r.Acquire()
		require.NoError(t, err)
	}

	_, err := r.Acquire()
	assert.ErrorIs(t, err, domain.ErrSlotsFull)
}

func TestRegistryService_Release_ReusesLowestFreedID(t *testing.T) {
	r := NewRegistryService()

	for i := 0; i < 4; i++ {
		_, err := r.Acquire()
		require.NoError(t, err)
	}

	r.Release(domain.SlotID(2))

	got, err := r.Acquire()
	require.NoError(t, err)
	assert.Equal(t, domain.SlotID(2), got, "the lowest freed slot must be handed out before a fresh one")

	got, err = r.Acquire()
	require.NoError(t, err)
	assert.Equal(t, domain.SlotID(5), got, "once slot 2 is reused, the next free slot is the first never-occupied one")
}

func TestRegistryService_Release_UnoccupiedSlotIsNoOp(t *testing.T) {
	r := NewRegistryService()
	r.Release(domain.SlotID(3))
	assert.Equal(t, 0, r.Count())
}

func TestRegistryService_Occupied_ReturnsSortedIDs(t *testing.T) {
	r := NewRegistryService()

	first, err := r.Acquire()
	require.NoError(t, err)
	second, err := r.Acquire()
	require.NoError(t, err)
	third, err := r.Acquire()
	require.NoError(t, err)

	r.Release(second)

	assert.Equal(t, []domain.SlotID{first, third}, r.Occupied())
	assert.Equal(t, 2, r.Count())
}
