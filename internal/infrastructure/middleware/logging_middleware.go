package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"syncrun/pkg/logger"
)

// RequestLoggingMiddleware stamps every HTTP request with a request id and
// logs its outcome through a context-scoped logger, so the request id
// travels with any log line the handler itself emits via the same context.
func RequestLoggingMiddleware(zapLogger *zap.Logger) gin.HandlerFunc {
	ctxLogger := logger.NewContextLogger(zapLogger)

	return func(c *gin.Context) {
		requestID := uuid.NewString()
		ctx := context.WithValue(c.Request.Context(), "request_id", requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-Id", requestID)

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		ctxLogger.LogRequest(ctx, c.Request.Method, c.FullPath(), c.Writer.Status(), duration.Milliseconds())
	}
}
