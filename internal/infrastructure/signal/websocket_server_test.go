package signal

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"syncrun/internal/core/domain"
	"syncrun/internal/core/services"
	"syncrun/pkg/config"
)

func newTestServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultConfig()
	h := NewHub(cfg, zap.NewNop().Sugar(), nil, services.NewRegistryService(), services.NewSessionService(), newFakePipeline())

	r := gin.New()
	r.GET("/ws", h.HandleWebSocket)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, h
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readJSONFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var out map[string]interface{}
	require.NoError(t, conn.ReadJSON(&out))
	return out
}

func TestWebSocket_LoneClientReceivesAssignmentThenReadyState(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)
	defer conn.Close()

	assigned := readJSONFrame(t, conn)
	require.Equal(t, "agent_assigned", assigned["type"])
	require.Equal(t, float64(1), assigned["agentId"])

	state := readJSONFrame(t, conn)
	require.Equal(t, "ready_state", state["type"])
}

func TestWebSocket_ServerFullRejectsWithErrorFrameAndClose(t *testing.T) {
	srv, _ := newTestServer(t)

	conns := make([]*websocket.Conn, 0, domain.MaxSlots)
	for i := 0; i < domain.MaxSlots; i++ {
		c := dial(t, srv)
		conns = append(conns, c)
		readJSONFrame(t, c) // agent_assigned
		readJSONFrame(t, c) // ready_state
	}
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()

	overflow := dial(t, srv)
	defer overflow.Close()

	frame := readJSONFrame(t, overflow)
	require.Equal(t, "error", frame["type"])

	overflow.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := overflow.ReadMessage()
	require.Error(t, err)
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok)
	require.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
}

func TestWebSocket_ReadyBroadcastReachesOtherPeer(t *testing.T) {
	srv, _ := newTestServer(t)

	connA := dial(t, srv)
	defer connA.Close()
	readJSONFrame(t, connA) // agent_assigned
	readJSONFrame(t, connA) // ready_state (slot 1 only)

	connB := dial(t, srv)
	defer connB.Close()
	readJSONFrame(t, connB) // agent_assigned for slot 2
	readJSONFrame(t, connA) // ready_state broadcast for B joining
	readJSONFrame(t, connB) // ready_state broadcast for B joining

	require.NoError(t, connA.WriteJSON(map[string]interface{}{"type": "ready", "value": true}))

	frame := readJSONFrame(t, connB)
	require.Equal(t, "ready_state", frame["type"])
	agents := frame["agents"].(map[string]interface{})
	require.Equal(t, true, agents["1"])
}

func TestWebSocket_DisconnectReleasesSlotAndBroadcastsState(t *testing.T) {
	srv, h := newTestServer(t)

	connA := dial(t, srv)
	readJSONFrame(t, connA)
	readJSONFrame(t, connA)

	connB := dial(t, srv)
	defer connB.Close()
	readJSONFrame(t, connB)
	readJSONFrame(t, connA)
	readJSONFrame(t, connB)

	connA.Close()

	frame := readJSONFrame(t, connB)
	require.Equal(t, "ready_state", frame["type"])

	statusFrame := readJSONFrame(t, connB)
	require.Equal(t, "stream_status", statusFrame["type"])

	require.Eventually(t, func() bool {
		return h.registry.Count() == 1
	}, time.Second, 10*time.Millisecond)
}
