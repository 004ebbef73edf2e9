package middleware

import (
	"bytes"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/schoolfund/backend/internal/infrastructure/cache"
	"github.com/schoolfund/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// Idempotency headers
const (
	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotencyReplayedHeader = "Idempotency-Replayed"
	maxIdempotencyKeyLength   = 255
)

// IdempotencyConfig holds configuration for the Idempotency-Key middleware
type IdempotencyConfig struct {
	Claims    shared.IdempotencyStore
	Responses cache.ResponseStore
	TTL       time.Duration
	// MaxCachedBody bounds the stored response; larger successes are not replayable
	MaxCachedBody int
	Logger        *zap.Logger
}

// Idempotency makes a money-moving POST safe to retry. The first request
// with a key runs and its 2xx response is stored; a retry with the same key
// and body gets the stored response without running again. Reusing a key
// with a different body is rejected, as is a retry while the first attempt
// is still running. Requests without the header pass through.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyTTL
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || cfg.Claims == nil || cfg.Responses == nil {
			c.Next()
			return
		}
		requestID := getRequestIDFromContext(c)
		if len(key) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, "Idempotency-Key is too long", requestID))
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodePayloadTooLarge, "Request body could not be read", requestID))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		ctx := c.Request.Context()
		scoped := GetJWTUserID(c) + "|" + c.FullPath() + "|" + key
		fingerprint := requestFingerprint(c.Request.Method, c.Request.URL.Path, body)
		reqLog := log.With(zap.String("idempotency_key", key), zap.String("request_id", requestID))

		if replayStored(c, cfg.Responses, scoped, fingerprint, reqLog) {
			return
		}

		claimed, err := cfg.Claims.MarkProcessed(ctx, scoped, ttl)
		if err != nil {
			// Without the store a retry could move money twice, so refuse.
			reqLog.Error("Idempotency store unavailable", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeInternal, "Idempotency store unavailable", requestID))
			return
		}
		if !claimed {
			if replayStored(c, cfg.Responses, scoped, fingerprint, reqLog) {
				return
			}
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeIdempotencyInFlight, "A request with this Idempotency-Key is still being processed", requestID))
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer, limit: cfg.MaxCachedBody}
		c.Writer = recorder
		c.Next()

		status := recorder.Status()
		if status < 200 || status >= 300 || recorder.overflow {
			if err := cfg.Claims.Release(ctx, scoped); err != nil {
				reqLog.Warn("Failed to release idempotency key", zap.Error(err))
			}
			return
		}
		stored := &cache.StoredResponse{
			Fingerprint: fingerprint,
			Status:      status,
			ContentType: recorder.Header().Get("Content-Type"),
			Body:        recorder.buf.Bytes(),
			StoredAt:    time.Now().UTC(),
		}
		if err := cfg.Responses.Put(ctx, scoped, stored, ttl); err != nil {
			reqLog.Error("Failed to store idempotent response", zap.Error(err))
		}
	}
}

// replayStored writes the stored response for key, or a mismatch error, and
// reports whether it wrote anything.
func replayStored(c *gin.Context, responses cache.ResponseStore, key, fingerprint string, log *zap.Logger) bool {
	stored, err := responses.Get(c.Request.Context(), key)
	if err != nil {
		log.Warn("Failed to read stored response", zap.Error(err))
		return false
	}
	if stored == nil {
		return false
	}
	if stored.Fingerprint != fingerprint {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeIdempotencyMismatch, "Idempotency-Key was already used with a different request", getRequestIDFromContext(c)))
		return true
	}
	log.Info("Replaying idempotent response", zap.Int("status", stored.Status))
	c.Header(IdempotencyReplayedHeader, "true")
	c.Data(stored.Status, stored.ContentType, stored.Body)
	c.Abort()
	return true
}

func requestFingerprint(method, path string, body []byte) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// bodyRecorder tees the response body up to limit bytes
type bodyRecorder struct {
	gin.ResponseWriter
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.capture(b)
	return r.ResponseWriter.Write(b)
}

func (r *bodyRecorder) WriteString(s string) (int, error) {
	r.capture([]byte(s))
	return r.ResponseWriter.WriteString(s)
}

func (r *bodyRecorder) capture(b []byte) {
	if r.overflow {
		return
	}
	if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
		r.overflow = true
		r.buf.Reset()
		return
	}
	r.buf.Write(b)
}
