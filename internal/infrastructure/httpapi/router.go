package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"syncrun/internal/core/ports"
	"syncrun/internal/infrastructure/middleware"
	"syncrun/internal/infrastructure/monitoring"
	"syncrun/internal/infrastructure/signal"
	"syncrun/pkg/config"
)

// NewRouter assembles the gin engine: middleware chain, the /ws upgrade
// route, and the plain HTTP surface (health, streams, live segments,
// metrics), matching the teacher's router composition style.
func NewRouter(cfg *config.Config, logger *zap.Logger, hub *Hub, checker *monitoring.HealthChecker) *gin.Engine {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RecoveryMiddleware(logger.Sugar()))
	r.Use(middleware.ErrorHandlerMiddleware(logger.Sugar()))
	r.Use(middleware.RequestLoggingMiddleware(logger))
	r.Use(middleware.TracingMiddleware())
	r.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	r.GET("/", hub.handleIndex)
	r.GET("/health", func(c *gin.Context) { hub.handleHealth(c, checker) })
	r.GET("/streams", hub.handleStreams)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/live/:agentId/:file", hub.handleLiveFile)

	wsGroup := r.Group("/")
	wsGroup.Use(middleware.NewConnectAttemptRateLimitMiddleware(cfg))
	wsGroup.GET("/ws", hub.wsHub.HandleWebSocket)

	return r
}

// Hub bundles the pieces the HTTP surface needs alongside the WebSocket hub:
// the pipeline manager for /streams and the live-directory root for
// serving segments.
type Hub struct {
	wsHub     *signal.Hub
	pipeline  ports.PipelineManager
	registry  ports.Registry
	liveRoot  string
	startedAt time.Time
}

func NewHub(wsHub *signal.Hub, pipeline ports.PipelineManager, registry ports.Registry, liveRoot string) *Hub {
	return &Hub{
		wsHub:     wsHub,
		pipeline:  pipeline,
		registry:  registry,
		liveRoot:  liveRoot,
		startedAt: time.Now(),
	}
}
