package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/pkg/middleware/requestid"
)

// Audit writes an audit line for every successful mutation on the wrapped routes.
func Audit(l *zap.Logger, action string) gin.HandlerFunc {
	l = l.Named("audit")
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		fields := []zap.Field{
			zap.String("action", action),
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("ip", c.ClientIP()),
		}
		if claims, ok := Claims(c); ok {
			fields = append(fields, zap.String("actor", claims.UserID), zap.String("role", string(claims.Role)))
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, zap.String("resource_id", id))
		}
		if reqID := requestid.Value(c); reqID != "" {
			fields = append(fields, zap.String("request_id", reqID))
		}
		l.Info("audit", fields...)
	}
}
