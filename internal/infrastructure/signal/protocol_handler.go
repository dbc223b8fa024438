package signal

import (
	"context"
	"encoding/json"
	"time"

	"syncrun/internal/core/domain"
	"syncrun/internal/core/services"
	"syncrun/pkg/tracing"
	"syncrun/pkg/validation"
)

// dispatchText decodes one inbound text frame and routes it to the handler
// for its "type" discriminator. Unknown types are logged and ignored. It does
// not check slot occupancy itself: frames only arrive from a peer's own read
// loop, which ends before that peer's slot is released.
func (h *Hub) dispatchText(slot domain.SlotID, raw []byte) {
	start := time.Now()

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.logger.Warnw("failed to decode inbound frame envelope", "slot", slot, "error", err)
		return
	}

	ctx, span := tracing.TraceProtocolMessage(context.Background(), env.Type, int(slot))
	defer span.End()

	switch env.Type {
	case "ready":
		h.handleReady(slot, raw)
	case "set_name":
		h.handleSetName(slot, raw)
	case "start_request":
		h.handleStartRequest(ctx, slot, raw)
	case "travel_request":
		h.handleTravelRequest(slot)
	case "execute_travel":
		h.handleExecuteTravel(slot)
	case "reset_raid":
		h.handleResetRaid(slot)
	case "stream_start":
		h.handleStreamStart(ctx, slot)
	case "stream_stop":
		h.handleStreamStop(slot)
	case "ping":
		h.handlePing(slot)
	default:
		h.logger.Warnw("ignoring unknown message type", "slot", slot, "type", env.Type)
	}

	if h.metric != nil {
		h.metric.RecordProtocolDispatch(time.Since(start))
	}
}

func (h *Hub) handleReady(slot domain.SlotID, raw []byte) {
	var payload readyPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Warnw("malformed ready payload", "slot", slot, "error", err)
		return
	}
	h.session.SetReady(slot, payload.Value)
	h.bus.broadcast(newReadyStateFrame(h.session.Snapshot()))
}

func (h *Hub) handleSetName(slot domain.SlotID, raw []byte) {
	var payload setNamePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Warnw("malformed set_name payload", "slot", slot, "error", err)
		return
	}
	if err := validation.ValidateDisplayName(payload.Name); err != nil {
		h.logger.Warnw("rejected set_name payload", "slot", slot, "error", err)
		h.bus.unicast(slot, errorFrame{Type: "error", Message: err.Error()})
		return
	}
	h.session.SetName(slot, payload.Name)
	h.bus.broadcast(newReadyStateFrame(h.session.Snapshot()))
}

// handleStartRequest implements the ready gate: unanimous readiness across
// occupied slots is required, and the client-supplied timestamp is echoed
// back unchanged rather than replaced by the server's own clock.
func (h *Hub) handleStartRequest(ctx context.Context, slot domain.SlotID, raw []byte) {
	if !h.session.AllReady() {
		h.bus.unicast(slot, errorFrame{Type: "error", Message: domain.ErrNotAllReady.Error()})
		return
	}

	var payload startRequestPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Warnw("malformed start_request payload", "slot", slot, "error", err)
		return
	}

	if h.metric != nil {
		h.metric.RecordCountdownStarted()
	}

	frames := services.BuildCountdown(payload.Timestamp, slot)
	h.bus.broadcast(countdownFrame{
		Type:      "countdown",
		Timestamp: frames.Timestamp,
		Duration:  frames.Duration,
	})
	h.bus.broadcast(startFrame{
		Type:           "start",
		Timestamp:      frames.Timestamp,
		StarterAgentID: frames.StarterAgentID,
	})
}

func (h *Hub) handleTravelRequest(slot domain.SlotID) {
	h.session.ResetAllReady()
	h.session.SetTravelMode(true)
	h.bus.broadcast(travelModeFrame{Type: "travel_mode", Active: true})
	h.bus.broadcast(newReadyStateFrame(h.session.Snapshot()))
}

func (h *Hub) handleExecuteTravel(slot domain.SlotID) {
	if !h.session.TravelMode() {
		h.bus.unicast(slot, errorFrame{Type: "error", Message: domain.ErrNotInTravelMode.Error()})
		return
	}

	h.bus.broadcast(simpleFrame{Type: "execute_travel"})
	h.session.SetTravelMode(false)
	h.session.ResetAllReady()
	h.bus.broadcast(travelModeFrame{Type: "travel_mode", Active: false})
	h.bus.broadcast(newReadyStateFrame(h.session.Snapshot()))
}

func (h *Hub) handleResetRaid(slot domain.SlotID) {
	h.session.SetTravelMode(false)
	h.session.ResetAllReady()
	h.bus.broadcast(travelModeFrame{Type: "travel_mode", Active: false})
	h.bus.broadcast(simpleFrame{Type: "reset"})
	h.bus.broadcast(newReadyStateFrame(h.session.Snapshot()))
}

func (h *Hub) handleStreamStart(ctx context.Context, slot domain.SlotID) {
	name := h.session.Snapshot().Names[slot]

	if err := h.pipeline.Start(ctx, slot, name); err != nil {
		h.bus.unicast(slot, errorFrame{Type: "error", Message: err.Error()})
		return
	}

	h.broadcastStreamStatus()
}

func (h *Hub) handleStreamStop(slot domain.SlotID) {
	h.pipeline.Stop(slot)
	h.broadcastStreamStatus()
}

func (h *Hub) handlePing(slot domain.SlotID) {
	h.bus.unicast(slot, pongFrame{Type: "pong", Timestamp: time.Now().UnixMilli()})
}

func (h *Hub) broadcastStreamStatus() {
	h.bus.broadcast(streamStatusFrame{Type: "stream_status", Streams: h.pipeline.Snapshot()})
}

// dispatchBinary routes an inbound binary frame to the slot's pipeline, if any.
func (h *Hub) dispatchBinary(slot domain.SlotID, chunk []byte) {
	h.pipeline.Write(slot, chunk)
}
