package services

import (
	"strings"
	"sync"

	"syncrun/internal/core/domain"
	"syncrun/internal/core/ports"
	"syncrun/pkg/utils"
)

// maxDisplayNameCodePoints is the display-name length ceiling after trim.
const maxDisplayNameCodePoints = 32

// SessionService holds per-slot ready flags and display names plus the
// single process-wide travel-mode flag, all behind one lock so a snapshot
// is always internally consistent.
type SessionService struct {
	mu     sync.RWMutex
	ready  map[domain.SlotID]bool
	names  map[domain.SlotID]string
	travel bool
}

var _ ports.SessionState = (*SessionService)(nil)

func NewSessionService() *SessionService {
	return &SessionService{
		ready: make(map[domain.SlotID]bool, domain.MaxSlots),
		names: make(map[domain.SlotID]string, domain.MaxSlots),
	}
}

func (s *SessionService) SetReady(id domain.SlotID, ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready[id] = ready
}

func (s *SessionService) SetName(id domain.SlotID, name string) {
	name = utils.TruncateString(strings.TrimSpace(name), maxDisplayNameCodePoints)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[id] = name
}

func (s *SessionService) ClearSlot(id domain.SlotID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ready, id)
	delete(s.names, id)
}

func (s *SessionService) ResetAllReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.ready {
		s.ready[id] = false
	}
}

func (s *SessionService) AllReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.ready) == 0 {
		return false
	}
	for _, r := range s.ready {
		if !r {
			return false
		}
	}
	return true
}

func (s *SessionService) SetTravelMode(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.travel = active
}

func (s *SessionService) TravelMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.travel
}

func (s *SessionService) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := domain.NewSnapshot()
	for id, ready := range s.ready {
		snap.Ready[id] = ready
	}
	for id, name := range s.names {
		snap.Names[id] = name
	}
	return snap
}
