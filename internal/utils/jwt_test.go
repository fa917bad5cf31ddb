package utils

import (
	"testing"
	"time"

	"smartcoffee/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminTokenRoundTrip(t *testing.T) {
	token, err := GenerateAdminToken("secret", 8*time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())
	assert.Equal(t, AdminSubject, claims.Subject)
	assert.Equal(t, TokenIssuer, claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(8*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestParseToken_Rejects(t *testing.T) {
	good, err := GenerateAdminToken("secret", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken("other", good)
	assert.Error(t, err)

	expired, err := GenerateAdminToken("secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("secret", expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, models.AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: models.RoleAdmin,
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ParseToken("secret", foreign)
	assert.Error(t, err)

	_, err = ParseToken("secret", "not-a-token")
	assert.Error(t, err)

	_, err = GenerateAdminToken("", time.Hour)
	assert.Error(t, err)
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret(32)
	require.NoError(t, err)
	b, err := GenerateSecret(32)
	require.NoError(t, err)
	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}
