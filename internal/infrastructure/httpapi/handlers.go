package httpapi

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"syncrun/internal/core/domain"
	"syncrun/internal/infrastructure/monitoring"
	"syncrun/pkg/validation"
)

func (h *Hub) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "syncrun-hub",
		"maxAgents": domain.MaxSlots,
	})
}

// handleHealth reports process status plus the operational context every
// health endpoint in the corpus surfaces beyond a bare status string:
// current client count, active stream count, and process uptime.
func (h *Hub) handleHealth(c *gin.Context, checker *monitoring.HealthChecker) {
	status := checker.CheckAll(c.Request.Context())

	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":         status.Status,
		"clients":        h.registry.Count(),
		"activeStreams":  len(h.pipeline.Snapshot()),
		"timestamp":      status.Timestamp,
		"uptimeSeconds":  int64(time.Since(h.startedAt).Seconds()),
	})
}

// handleStreams reports the same data as the stream_status frame, plus the
// per-entry duration and byte counters domain.StreamInfo already carries.
func (h *Hub) handleStreams(c *gin.Context) {
	c.JSON(http.StatusOK, h.pipeline.Snapshot())
}

// handleLiveFile serves the per-slot HLS playlist and segment files from
// disk. Content types and cache headers are fixed per the two file kinds
// this endpoint ever serves.
func (h *Hub) handleLiveFile(c *gin.Context) {
	agentIDStr := c.Param("agentId")
	file := c.Param("file")

	agentID, err := strconv.Atoi(agentIDStr)
	if err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if err := validation.ValidateAgentID(agentID, domain.MaxSlots); err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	if strings.Contains(file, "..") || strings.ContainsAny(file, "/\\") {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	path := filepath.Join(h.liveRoot, agentIDStr, file)

	c.Header("Cache-Control", "no-cache, no-store")
	c.Header("Access-Control-Allow-Origin", "*")

	switch {
	case strings.HasSuffix(file, ".m3u8"):
		c.Header("Content-Type", "application/vnd.apple.mpegurl")
	case strings.HasSuffix(file, ".ts"):
		c.Header("Content-Type", "video/mp2t")
	}

	c.File(path)
}
