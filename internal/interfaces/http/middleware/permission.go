package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/schoolfund/backend/internal/infrastructure/logger"
	"github.com/schoolfund/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// RequirePermission admits users holding at least one of permissions, each
// written "<resource>:<action>". Grants may use "<resource>:*" or "*".
func RequirePermission(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authorize(c, permissions)
	}
}

// RequireResource derives the action from the method: GET, HEAD and OPTIONS
// need "<resource>:read", everything else "<resource>:write".
func RequireResource(resource string) gin.HandlerFunc {
	read, write := []string{resource + ":read"}, []string{resource + ":write"}
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			authorize(c, read)
		default:
			authorize(c, write)
		}
	}
}

func authorize(c *gin.Context, anyOf []string) {
	claims := GetJWTClaims(c)
	switch {
	case claims == nil:
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeUnauthorized, "Authentication required", getRequestIDFromContext(c)))
	case !claims.HasAnyPermission(anyOf...):
		logger.GetGinLogger(c).Warn("Permission denied",
			zap.String("user_id", claims.UserID),
			zap.Strings("required_any", anyOf),
			zap.String("route", c.FullPath()),
		)
		c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeForbidden, "Insufficient permissions", getRequestIDFromContext(c)))
	default:
		c.Next()
	}
}
