package auth

import (
	"testing"
	"time"

	"smartcoffee/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_LoginWithPlainPassword(t *testing.T) {
	svc, err := NewService("", "admin_super_secreto", "jwt-secret")
	require.NoError(t, err)

	token, err := svc.Login("admin_super_secreto")
	require.NoError(t, err)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())

	_, err = svc.Login("wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_LoginWithHash(t *testing.T) {
	hash, err := HashPassword("s3nha")
	require.NoError(t, err)

	svc, err := NewService(hash, "ignored", "jwt-secret")
	require.NoError(t, err)

	_, err = svc.Login("s3nha")
	assert.NoError(t, err)
	_, err = svc.Login("ignored")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestNewService_Misconfigured(t *testing.T) {
	_, err := NewService("", "", "jwt-secret")
	assert.Error(t, err)

	_, err = NewService("plain-text-not-a-hash", "", "jwt-secret")
	assert.Error(t, err)
}

func TestService_ParseToken(t *testing.T) {
	svc, err := NewService("", "pw", "jwt-secret")
	require.NoError(t, err)

	expired, err := utils.GenerateAdminToken("jwt-secret", -time.Second)
	require.NoError(t, err)
	_, err = svc.ParseToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign, err := utils.GenerateAdminToken("other-secret", time.Hour)
	require.NoError(t, err)
	_, err = svc.ParseToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
