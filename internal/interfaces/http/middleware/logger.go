// internal/interfaces/http/middleware/logger.go
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neonarte/neon-backend/internal/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Logger logs every request on the http channel
func Logger() gin.HandlerFunc {
	log := logger.Channel(logger.ChannelHTTP)

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"request_id":    c.GetString(RequestIDKey),
			"method":        c.Request.Method,
			"path":          c.Request.URL.Path,
			"status_code":   c.Writer.Status(),
			"latency":       time.Since(start),
			"client_ip":     c.ClientIP(),
			"response_size": c.Writer.Size(),
		})
		if actor, ok := GetActorFromContext(c); ok {
			entry = entry.WithField("user_id", actor.ID)
		}
		if len(c.Errors) > 0 {
			entry = entry.WithField("error", c.Errors.Last().Error())
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("HTTP request completed with server error")
		case status >= 400:
			entry.Warn("HTTP request completed with client error")
		default:
			entry.Info("HTTP request completed")
		}
	}
}

// Recovery turns panics into a 500 without leaking the panic value
func Recovery() gin.HandlerFunc {
	log := logger.Channel(logger.ChannelHTTP)

	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					"request_id": c.GetString(RequestIDKey),
					"panic":      r,
				}).Error("panic recovered")
				c.AbortWithStatusJSON(500, gin.H{
					"error": gin.H{"code": "persistence_error", "message": "Error interno del servidor"},
				})
			}
		}()
		c.Next()
	}
}
