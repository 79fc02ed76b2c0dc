package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fazpramim/portal/internal/logger"
)

// RequestLogger пишет одну запись на запрос.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"ip":       c.ClientIP(),
		}
		if sess, ok := CurrentSession(c); ok {
			fields["session_id"] = sess.ID
		}

		entry := logger.WithComponent("http").WithFields(fields)
		if c.Writer.Status() >= 500 {
			entry.Error("запрос")
			return
		}
		entry.Debug("запрос")
	}
}
