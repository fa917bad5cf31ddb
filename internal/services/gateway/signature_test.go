package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyNotificationSignature(t *testing.T) {
	const secret = "webhook-secret"
	header := SignNotification("123456", "req-1", secret, 1704908010)

	assert.NoError(t, VerifyNotificationSignature(header, "req-1", "123456", secret))
	assert.ErrorIs(t, VerifyNotificationSignature(header, "req-2", "123456", secret), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyNotificationSignature(header, "req-1", "999", secret), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyNotificationSignature(header, "req-1", "123456", "other"), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyNotificationSignature("", "req-1", "123456", secret), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyNotificationSignature("ts=1,v1=zz", "req-1", "123456", secret), ErrInvalidSignature)
}

func TestVerifyNotificationSignature_NoRequestID(t *testing.T) {
	header := SignNotification("abc", "", "s", 1)
	assert.NoError(t, VerifyNotificationSignature(header, "", "ABC", "s"))
}
