package signal

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"syncrun/internal/core/domain"
)

// peer is one attached WebSocket connection: its outbound sink is a bounded
// channel drained by its own write pump, so a slow peer can never stall a
// broadcast to the others.
type peer struct {
	slot domain.SlotID
	send chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newPeer(slot domain.SlotID, queueLen int) *peer {
	return &peer{
		slot:   slot,
		send:   make(chan []byte, queueLen),
		closed: make(chan struct{}),
	}
}

// deliver enqueues frame for this peer only. If the peer's queue is already
// full it is considered dead: its connection is closed rather than letting
// the queue grow unbounded.
func (p *peer) deliver(frame []byte) {
	select {
	case p.send <- frame:
	default:
		p.close()
	}
}

func (p *peer) close() {
	p.closeOnce.Do(func() {
		close(p.closed)
	})
}

// bus fans a serialized text frame out to every currently attached peer.
// Broadcasts are serialized once and never reordered relative to each
// other. Delivery to one peer never blocks or fails the others: a peer whose
// queue is full is closed (see deliver), and a failed socket write is logged
// by that peer's own write pump.
type bus struct {
	mu     sync.RWMutex
	peers  map[domain.SlotID]*peer
	logger *zap.SugaredLogger
}

func newBus(logger *zap.SugaredLogger) *bus {
	return &bus{
		peers:  make(map[domain.SlotID]*peer),
		logger: logger,
	}
}

func (b *bus) attach(p *peer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.peers[p.slot] = p
}

func (b *bus) detach(slot domain.SlotID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.peers, slot)
}

// broadcast serializes msg once and delivers it to every attached peer, in
// the order this call was made relative to other broadcast/unicast calls.
func (b *bus) broadcast(msg interface{}) {
	frame, err := json.Marshal(msg)
	if err != nil {
		b.logger.Errorw("failed to marshal broadcast frame", "error", err)
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, p := range b.peers {
		p.deliver(frame)
	}
}

// unicast delivers msg only to the peer holding slot, if attached.
func (b *bus) unicast(slot domain.SlotID, msg interface{}) {
	frame, err := json.Marshal(msg)
	if err != nil {
		b.logger.Errorw("failed to marshal unicast frame", "error", err, "slot", slot)
		return
	}

	b.mu.RLock()
	p, ok := b.peers[slot]
	b.mu.RUnlock()
	if !ok {
		return
	}
	p.deliver(frame)
}
