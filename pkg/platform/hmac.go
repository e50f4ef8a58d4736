package platform

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// SignHex computes HMAC-SHA256 over msg and returns the lowercase hex digest.
// This is the encoding the platform uses for OAuth callback signatures.
func SignHex(secret string, msg []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignBase64 computes HMAC-SHA256 over msg and returns the standard-base64
// digest. This is the encoding the platform uses for webhook signatures.
func SignBase64(secret string, msg []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(msg)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyHex checks a hex-encoded HMAC-SHA256 digest. Comparison is
// constant-time.
func VerifyHex(secret string, msg []byte, supplied string) bool {
	if supplied == "" || secret == "" {
		return false
	}
	expected := SignHex(secret, msg)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(supplied))))
}

// VerifyBase64 checks a base64-encoded HMAC-SHA256 digest, stripping an
// optional "sha256=" prefix. Comparison is constant-time.
func VerifyBase64(secret string, msg []byte, supplied string) bool {
	supplied = strings.TrimSpace(supplied)
	supplied = strings.TrimPrefix(supplied, "sha256=")
	if supplied == "" || secret == "" {
		return false
	}
	expected := SignBase64(secret, msg)
	return hmac.Equal([]byte(expected), []byte(supplied))
}
