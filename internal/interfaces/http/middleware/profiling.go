package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/schoolfund/backend/internal/infrastructure/telemetry"
)

// ProfilingConfig holds configuration for the profiling middleware
type ProfilingConfig struct {
	Enabled          bool
	SkipPaths        []string
	SkipPathPrefixes []string
}

// DefaultProfilingConfig skips health checks and API docs
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:          true,
		SkipPaths:        []string{"/health", "/api/v1/health"},
		SkipPathPrefixes: []string{"/swagger"},
	}
}

// ProfilingWithConfig attaches Pyroscope labels for the matched route, the
// HTTP method and the fund context the route belongs to.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	skip := JWTMiddlewareConfig{SkipPaths: cfg.SkipPaths, SkipPathPrefixes: cfg.SkipPathPrefixes}

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || skipAuth(skip, c.Request.URL.Path) {
			c.Next()
			return
		}

		labels := telemetry.HTTPRequestLabels(route, c.Request.Method)
		if fundContext := fundContextFromRoute(route); fundContext != "" {
			labels[telemetry.ProfilingLabelContext] = fundContext
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// fundContextFromRoute maps "/api/v1/loans/:id/approve" to "loans"
func fundContextFromRoute(route string) string {
	for _, part := range strings.Split(route, "/") {
		if part == "" || part == "api" || isVersionSegment(part) || strings.HasPrefix(part, ":") {
			continue
		}
		return part
	}
	return ""
}

func isVersionSegment(segment string) bool {
	if len(segment) < 2 || (segment[0] != 'v' && segment[0] != 'V') {
		return false
	}
	for i := 1; i < len(segment); i++ {
		if segment[i] < '0' || segment[i] > '9' {
			return false
		}
	}
	return true
}
