// File: internal/handler/http/middleware/middleware.go
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context keys set by RequireIdentity.
const (
	ContextUserID    = "auth_user_id"
	ContextSessionID = "auth_session_id"
)

// RecoveryMiddleware converts panics into opaque 500 responses.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic recovered",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
					"code":  "internal_server_error",
				})
			}
		}()
		c.Next()
	}
}

// LoggingMiddleware logs one line per request.
func LoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// RequireIdentity extracts the authenticated user and session from the
// headers set by the upstream CMS gateway. Session management itself is
// the gateway's concern; this service only needs to know who is calling.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.GetHeader("X-User-ID"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
				"code":  "unauthorized",
			})
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextSessionID, c.GetHeader("X-Session-ID"))
		c.Next()
	}
}

// UserID returns the authenticated user id set by RequireIdentity.
func UserID(c *gin.Context) uuid.UUID {
	if id, ok := c.Get(ContextUserID); ok {
		if userID, ok := id.(uuid.UUID); ok {
			return userID
		}
	}
	return uuid.Nil
}

// SessionID returns the session id set by RequireIdentity; may be empty.
func SessionID(c *gin.Context) string {
	if id, ok := c.Get(ContextSessionID); ok {
		if sessionID, ok := id.(string); ok {
			return sessionID
		}
	}
	return ""
}
