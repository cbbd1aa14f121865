package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/intercomkey/internal/common"
	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

// authMiddleware admits requests carrying a valid local bearer token and
// stores the token's user in the gin context.
func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(common.AuthorizationHeaderName)
		if authHeader == "" {
			newErrorResponse(c, http.StatusUnauthorized, "missing token")
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			newErrorResponse(c, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		userID, err := h.tokens.Verify(c.Request.Context(), token)
		if err != nil {
			newErrorResponse(c, http.StatusUnauthorized, "invalid token")
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// timingMiddleware logs every request once it has been served.
func (h *Handler) timingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		h.logger.Info(c.Request.Context(), "request served",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
