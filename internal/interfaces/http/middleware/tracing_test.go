package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(t.Context())
	})
	return recorder
}

func spanAttr(attrs []attribute.KeyValue, key string) (string, bool) {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value.Emit(), true
		}
	}
	return "", false
}

func TestTracing(t *testing.T) {
	t.Run("disabled passes through without spans", func(t *testing.T) {
		recorder := setupTestTracer(t)
		r := gin.New()
		r.Use(Tracing("fund-test", false))
		r.GET("/vaults", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/vaults", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, recorder.Ended())
	})

	t.Run("enabled records request span with injected attributes", func(t *testing.T) {
		recorder := setupTestTracer(t)
		userID := uuid.New()
		r := gin.New()
		r.Use(RequestID())
		r.Use(Tracing("fund-test", true))
		r.Use(withClaims(userID))
		r.Use(AnnotateSpan())
		r.GET("/vaults/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/vaults/abc", nil)
		req.Header.Set(RequestIDHeader, "req-trace")
		r.ServeHTTP(httptest.NewRecorder(), req)

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Contains(t, spans[0].Name(), "/vaults/:id")
		got, ok := spanAttr(spans[0].Attributes(), "request_id")
		assert.True(t, ok)
		assert.Equal(t, "req-trace", got)
		got, _ = spanAttr(spans[0].Attributes(), "user_id")
		assert.Equal(t, userID.String(), got)
	})
}

func TestAnnotateSpan_MarksServerErrors(t *testing.T) {
	tests := []struct {
		status int
		want   codes.Code
	}{
		{http.StatusOK, codes.Unset},
		{http.StatusUnprocessableEntity, codes.Unset},
		{http.StatusInternalServerError, codes.Error},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			recorder := setupTestTracer(t)
			r := gin.New()
			r.Use(Tracing("fund-test", true))
			r.Use(AnnotateSpan())
			r.GET("/loans", func(c *gin.Context) {
				if tt.status >= http.StatusInternalServerError {
					_ = c.Error(errors.New("ledger unavailable"))
				}
				c.Status(tt.status)
			})

			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/loans", nil))

			spans := recorder.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.want, spans[0].Status().Code)
			_, hasErrors := spanAttr(spans[0].Attributes(), "gin.errors")
			assert.Equal(t, tt.want == codes.Error, hasErrors)
		})
	}
}
