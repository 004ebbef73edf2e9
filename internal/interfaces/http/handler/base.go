package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/schoolfund/backend/internal/infrastructure/logger"
	"github.com/schoolfund/backend/internal/interfaces/http/dto"
	"github.com/schoolfund/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// responder writes the JSON envelope shared by every fund endpoint. Handlers
// embed it; helpers that can fail write the error themselves and return false.
type responder struct{}

func (responder) ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

func (responder) okPage(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

func (responder) created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

func (responder) noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func (responder) writeError(c *gin.Context, status int, code, message string) {
	requestID := c.GetString(middleware.RequestIDKey)
	if requestID == "" {
		requestID = c.GetHeader(middleware.RequestIDHeader)
	}
	c.JSON(status, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

func (h responder) badRequest(c *gin.Context, message string) {
	h.writeError(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

func (h responder) unauthorized(c *gin.Context, message string) {
	h.writeError(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// fail reports err. A DomainError keeps its code and message; anything else
// is logged and surfaces as a generic 500.
func (h responder) fail(c *gin.Context, err error) {
	if err == nil {
		return
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		code := dto.NormalizeErrorCode(de.Code)
		h.writeError(c, dto.GetHTTPStatus(code), code, de.Message)
		return
	}

	logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err), zap.String("route", c.FullPath()))
	_ = c.Error(err)
	h.writeError(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}

func (h responder) actorID(c *gin.Context) (uuid.UUID, bool) {
	id, found := middleware.ActorID(c)
	if !found {
		h.unauthorized(c, "Authentication required")
	}
	return id, found
}

func (h responder) parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		h.badRequest(c, "Invalid "+param+" format")
		return uuid.Nil, false
	}
	return id, true
}

func (responder) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

func (responder) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// queryID parses an optional uuid query parameter into dst. Form binding
// cannot decode uuid.UUID, so id filters are read here after bindQuery.
func (h responder) queryID(c *gin.Context, name string, dst **uuid.UUID) bool {
	raw := c.Query(name)
	if raw == "" {
		return true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		h.writeError(c, http.StatusBadRequest, dto.ErrCodeValidation, "Invalid "+name+" format")
		return false
	}
	*dst = &id
	return true
}
