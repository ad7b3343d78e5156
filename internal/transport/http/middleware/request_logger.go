package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestLogger logs every request with a correlation id. Credential-bearing
// headers are never logged.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Set("request_id", requestID)

		log.Debug("incoming request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("origin", scrubbed(c.GetHeader("Origin"))),
		)

		ts := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(ts)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		}

		if c.IsAborted() {
			log.Warn("request aborted", fields...)
			return
		}
		for _, e := range c.Errors {
			log.Error("handler error", append(fields, zap.Error(e))...)
		}
		log.Info("request completed", fields...)
	}
}

func scrubbed(value string) string {
	lower := strings.ToLower(value)
	if strings.Contains(lower, "authorization") || strings.Contains(lower, "cookie") {
		return "[redacted]"
	}
	return value
}
