package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pulsedigest/core/internal/identity"
)

// AuthMiddleware parses a Bearer token and, when valid, attaches the
// caller's identity to the request context. Requests without a valid
// token proceed anonymously; create operations reject them downstream.
func AuthMiddleware(secret string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			c.Next()
			return
		}

		id, err := identity.ParseToken(token, secret)
		if err != nil {
			logger.Debug("rejecting bearer token", zap.Error(err))
			c.Next()
			return
		}
		ctx := identity.WithIdentity(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Set("user_id", id.ID)
		c.Next()
	}
}
