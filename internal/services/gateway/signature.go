package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// SignatureHeader is the header carrying the notification signature.
const SignatureHeader = "X-Signature"

// RequestIDHeader is the per-delivery id included in the signed manifest.
const RequestIDHeader = "X-Request-Id"

var ErrInvalidSignature = errors.New("invalid notification signature")

// VerifyNotificationSignature checks a "ts=<ts>,v1=<hex>" header, where the
// hex digest is HMAC-SHA256(secret, "id:<data id>;request-id:<request id>;ts:<ts>;").
// Manifest parts whose value is empty are left out.
func VerifyNotificationSignature(header, requestID, dataID, secret string) error {
	var ts, v1 string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "ts":
			ts = v
		case "v1":
			v1 = v
		}
	}
	if ts == "" || v1 == "" {
		return ErrInvalidSignature
	}

	got, err := hex.DecodeString(v1)
	if err != nil {
		return ErrInvalidSignature
	}
	want := computeSignature(manifest(dataID, requestID, ts), secret)
	if !hmac.Equal(got, want) {
		return ErrInvalidSignature
	}
	return nil
}

// SignNotification produces the header value a processor would send.
func SignNotification(dataID, requestID, secret string, ts int64) string {
	tsStr := fmt.Sprintf("%d", ts)
	sig := computeSignature(manifest(dataID, requestID, tsStr), secret)
	return fmt.Sprintf("ts=%s,v1=%s", tsStr, hex.EncodeToString(sig))
}

func manifest(dataID, requestID, ts string) string {
	var b strings.Builder
	if dataID != "" {
		b.WriteString("id:" + strings.ToLower(dataID) + ";")
	}
	if requestID != "" {
		b.WriteString("request-id:" + requestID + ";")
	}
	b.WriteString("ts:" + ts + ";")
	return b.String()
}

func computeSignature(manifest, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return mac.Sum(nil)
}
