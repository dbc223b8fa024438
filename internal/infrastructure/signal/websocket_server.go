package signal

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"syncrun/internal/core/domain"
	"syncrun/internal/core/ports"
	"syncrun/internal/infrastructure/monitoring"
	"syncrun/pkg/config"
)

// Hub owns the process-wide coordination state and drives the WebSocket
// connection lifecycle: accept, slot-assign, dispatch, teardown.
type Hub struct {
	cfg    *config.Config
	logger *zap.SugaredLogger
	metric *monitoring.PrometheusCollector

	registry ports.Registry
	session  ports.SessionState
	pipeline ports.PipelineManager

	bus      *bus
	upgrader websocket.Upgrader
}

func NewHub(cfg *config.Config, logger *zap.SugaredLogger, metric *monitoring.PrometheusCollector,
	registry ports.Registry, session ports.SessionState, pipeline ports.PipelineManager) *Hub {
	return &Hub{
		cfg:      cfg,
		logger:   logger,
		metric:   metric,
		registry: registry,
		session:  session,
		pipeline: pipeline,
		bus:      newBus(logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// HandleWebSocket upgrades the request and runs the connection's lifecycle
// to completion. It returns once the peer has fully disconnected.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}

	slot, err := h.registry.Acquire()
	if err != nil {
		h.rejectAfterUpgrade(conn, "Server full (max 8 agents)")
		return
	}

	h.attachPeer(slot, conn)
}

// rejectAfterUpgrade is used for the pre-admission refusal case: the socket
// is already upgraded, so the single error frame must go out as a WS text
// frame, followed by a policy-violation close. The slot pool was already
// full when Acquire was attempted, so there is no slot to release.
func (h *Hub) rejectAfterUpgrade(conn *websocket.Conn, message string) {
	payload, _ := json.Marshal(errorFrame{Type: "error", Message: message})
	conn.WriteMessage(websocket.TextMessage, payload)
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message),
		time.Now().Add(time.Second))
	conn.Close()
}

func (h *Hub) attachPeer(slot domain.SlotID, conn *websocket.Conn) {
	if h.metric != nil {
		h.metric.RecordAgentConnected()
	}

	conn.SetReadLimit(h.cfg.WebSocket.MaxMessageBytes)

	p := newPeer(slot, h.cfg.WebSocket.OutboundQueueLen)
	h.bus.attach(p)

	h.session.SetReady(slot, false)
	h.session.SetName(slot, "")

	snap := h.session.Snapshot()
	h.bus.unicast(slot, agentAssignedFrame{
		Type:    "agent_assigned",
		AgentID: slot,
		Agents:  snap.Ready,
		Names:   snap.Names,
	})
	h.bus.broadcast(newReadyStateFrame(h.session.Snapshot()))

	go h.writePump(p, conn)
	h.readPump(p, conn)

	h.detachPeer(slot, p)
}

// readPump owns the connection's read side. It exits on any read error
// (including the peer closing the socket or exceeding the max message
// size) and drives connection teardown once it returns.
func (h *Hub) readPump(p *peer, conn *websocket.Conn) {
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.cfg.WebSocket.PongTimeout))
		return nil
	})
	conn.SetReadDeadline(time.Now().Add(h.cfg.WebSocket.PongTimeout))

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		switch msgType {
		case websocket.TextMessage:
			h.dispatchText(p.slot, data)
		case websocket.BinaryMessage:
			h.dispatchBinary(p.slot, data)
		}
	}

	p.close()
}

// writePump owns the connection's write side: it drains the peer's
// outbound queue and sends periodic pings, and is the only goroutine
// allowed to call conn.Write* per gorilla/websocket's concurrency contract.
func (h *Hub) writePump(p *peer, conn *websocket.Conn) {
	ticker := time.NewTicker(h.cfg.WebSocket.PingInterval)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case frame, ok := <-p.send:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(h.cfg.Server.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.logger.Warnw("failed to write frame to peer", "slot", p.slot, "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(h.cfg.Server.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-p.closed:
			return
		}
	}
}

// detachPeer runs the full teardown sequence: stop any pipeline this slot
// owned, clear its session state, release the slot, and tell everyone else.
func (h *Hub) detachPeer(slot domain.SlotID, p *peer) {
	h.bus.detach(slot)
	p.close()

	h.pipeline.Stop(slot)

	h.session.ClearSlot(slot)
	h.registry.Release(slot)

	if h.metric != nil {
		h.metric.RecordAgentDisconnected()
	}

	h.bus.broadcast(newReadyStateFrame(h.session.Snapshot()))
	h.broadcastStreamStatus()
}
