package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"syncrun/internal/core/domain"
)

func TestSessionService_SetName_TrimsSurroundingWhitespace(t *testing.T) {
	s := NewSessionService()
	s.SetName(domain.SlotID(1), "  Speedy Runner  ")

	assert.Equal(t, "Speedy Runner", s.Snapshot().Names[domain.SlotID(1)])
}

func TestSessionService_SetName_ShortNamePassesThroughUnchanged(t *testing.T) {
	s := NewSessionService()
	name := strings.Repeat("a", 32)
	s.SetName(domain.SlotID(1), name)

	assert.Equal(t, name, s.Snapshot().Names[domain.SlotID(1)])
}

func TestSessionService_SetName_TruncatesOverLongNameWithEllipsis(t *testing.T) {
	s := NewSessionService()
	name := strings.Repeat("a", 40)
	s.SetName(domain.SlotID(1), name)

	got := s.Snapshot().Names[domain.SlotID(1)]
	assert.Equal(t, strings.Repeat("a", 29)+"...", got)
	assert.Len(t, []rune(got), 32, "the truncated name including the ellipsis must not exceed the 32 code point ceiling")
}

func TestSessionService_SetName_TruncatesByCodePointsNotBytes(t *testing.T) {
	s := NewSessionService()
	name := strings.Repeat("日", 40)
	s.SetName(domain.SlotID(1), name)

	got := s.Snapshot().Names[domain.SlotID(1)]
	assert.Equal(t, strings.Repeat("日", 29)+"...", got)
}

func TestSessionService_ClearSlot_RemovesReadyAndName(t *testing.T) {
	s := NewSessionService()
	s.SetReady(domain.SlotID(1), true)
	s.SetName(domain.SlotID(1), "Runner")

	s.ClearSlot(domain.SlotID(1))

	snap := s.Snapshot()
	assert.False(t, snap.Ready[domain.SlotID(1)], "a cleared slot reports the default ready state")
	assert.Equal(t, "", snap.Names[domain.SlotID(1)], "a cleared slot reports the default empty name")
}

func TestSessionService_AllReady_RequiresAtLeastOnePeerAndAllTrue(t *testing.T) {
	s := NewSessionService()
	assert.False(t, s.AllReady(), "no connected peers means not all ready")

	s.SetReady(domain.SlotID(1), true)
	s.SetReady(domain.SlotID(2), false)
	assert.False(t, s.AllReady())

	s.SetReady(domain.SlotID(2), true)
	assert.True(t, s.AllReady())
}

func TestSessionService_ResetAllReady_ClearsEveryFlag(t *testing.T) {
	s := NewSessionService()
	s.SetReady(domain.SlotID(1), true)
	s.SetReady(domain.SlotID(2), true)

	s.ResetAllReady()

	assert.False(t, s.AllReady())
}
