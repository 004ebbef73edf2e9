package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/infrastructure/auth"
	"github.com/schoolfund/backend/internal/infrastructure/config"
	"github.com/schoolfund/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "test-secret-key-that-is-at-least-32-chars"

func newTestValidator() *auth.TokenValidator {
	return auth.NewTokenValidator(config.JWTConfig{Secret: testSecret, Issuer: "schoolfund-test"})
}

func issueTestToken(t *testing.T, userID uuid.UUID, permissions ...string) string {
	t.Helper()
	token, err := newTestValidator().Issue(userID, "bendahara", permissions, time.Hour)
	require.NoError(t, err)
	return token
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// withClaims injects claims as JWTAuthMiddleware would
func withClaims(userID uuid.UUID, permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(JWTClaimsKey, &auth.Claims{UserID: userID.String(), Permissions: permissions})
		c.Set(JWTUserIDKey, userID.String())
		c.Next()
	}
}
