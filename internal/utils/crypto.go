package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateSecret returns n random bytes, URL-safe base64 encoded.
func GenerateSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
