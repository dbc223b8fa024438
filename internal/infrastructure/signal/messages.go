package signal

import "syncrun/internal/core/domain"

// envelope is decoded first to read the discriminator before the full
// payload is parsed into its concrete type.
type envelope struct {
	Type string `json:"type"`
}

// Inbound payloads.

type readyPayload struct {
	Value bool `json:"value"`
}

type setNamePayload struct {
	Name string `json:"name"`
}

type startRequestPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// Outbound frames. Every frame carries its own "type" so the client can
// dispatch on one field regardless of transport framing.

type agentAssignedFrame struct {
	Type   string               `json:"type"`
	Agents map[domain.SlotID]bool   `json:"agents"`
	Names  map[domain.SlotID]string `json:"names"`
	AgentID domain.SlotID       `json:"agentId"`
}

type readyStateFrame struct {
	Type   string                   `json:"type"`
	Agents map[domain.SlotID]bool   `json:"agents"`
	Names  map[domain.SlotID]string `json:"names"`
}

func newReadyStateFrame(snap domain.Snapshot) readyStateFrame {
	return readyStateFrame{Type: "ready_state", Agents: snap.Ready, Names: snap.Names}
}

type countdownFrame struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Duration  int64  `json:"duration"`
}

type startFrame struct {
	Type           string        `json:"type"`
	Timestamp      int64         `json:"timestamp"`
	StarterAgentID domain.SlotID `json:"starterAgentId"`
}

type travelModeFrame struct {
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

type simpleFrame struct {
	Type string `json:"type"`
}

type streamStatusFrame struct {
	Type    string              `json:"type"`
	Streams []domain.StreamInfo `json:"streams"`
}

type pongFrame struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
