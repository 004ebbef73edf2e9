package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/schoolfund/backend/internal/interfaces/http/dto"
)

// BodyLimit caps request bodies at maxBytes. A declared Content-Length over
// the cap gets 413 before the handler runs; an undeclared body fails the
// handler's bind once it reads past the cap. A non-positive cap disables
// the check.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := c.Request.Body
		if maxBytes <= 0 || body == nil || body == http.NoBody {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			resp := dto.NewErrorResponseWithRequestID(dto.ErrCodePayloadTooLarge,
				"Request body exceeds maximum allowed size", getRequestIDFromContext(c))
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, resp)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, body, maxBytes)
		c.Next()
	}
}
