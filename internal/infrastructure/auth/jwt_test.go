package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-fund-ledger-tokens"

func newValidator() *TokenValidator {
	return NewTokenValidator(config.JWTConfig{Secret: testSecret, Issuer: "school-identity"})
}

func TestTokenValidator_RoundTrip(t *testing.T) {
	v := newValidator()
	userID := uuid.New()

	token, err := v.Issue(userID, "bendahara", []string{"vault:read", "loan:*"}, time.Hour)
	require.NoError(t, err)

	claims, err := v.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserUUID())
	assert.Equal(t, "bendahara", claims.Username)
	assert.True(t, claims.HasPermission("vault:read"))
	assert.False(t, claims.HasPermission("vault:write"))
	assert.True(t, claims.HasPermission("loan:approve"), "wildcard covers the resource")
	assert.True(t, claims.HasAnyPermission("ledger:read", "loan:write"))
}

func TestTokenValidator_Rejects(t *testing.T) {
	v := newValidator()
	userID := uuid.New()

	expired := newValidator()
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.Issue(userID, "u", nil, time.Hour)
	require.NoError(t, err)

	otherIssuer := NewTokenValidator(config.JWTConfig{Secret: testSecret, Issuer: "elsewhere"})
	foreignToken, err := otherIssuer.Issue(userID, "u", nil, time.Hour)
	require.NoError(t, err)

	otherSecret := NewTokenValidator(config.JWTConfig{Secret: "another-secret-entirely-0123456789", Issuer: "school-identity"})
	forgedToken, err := otherSecret.Issue(userID, "u", nil, time.Hour)
	require.NoError(t, err)

	noUser := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "school-identity",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	noUserToken, err := noUser.SignedString([]byte(testSecret))
	require.NoError(t, err)

	noneAlg := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: userID.String()})
	noneToken, err := noneAlg.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"expired", expiredToken, ErrExpiredToken},
		{"wrong issuer", foreignToken, ErrInvalidToken},
		{"wrong secret", forgedToken, ErrInvalidToken},
		{"missing user", noUserToken, ErrMissingUserID},
		{"alg none", noneToken, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClaims_GlobalWildcard(t *testing.T) {
	c := &Claims{Permissions: []string{"*"}}
	assert.True(t, c.HasPermission("savings:verify"))
	assert.False(t, (&Claims{}).HasPermission("savings:verify"))
	assert.False(t, (&Claims{Permissions: []string{"savings"}}).HasPermission("savings"))
}
