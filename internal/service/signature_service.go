package service

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// WebhookSignatureService implements ports.SignatureVerifier using the
// gateway's HMAC-SHA512 scheme over the raw request body.
type WebhookSignatureService struct {
	secret []byte
}

// NewWebhookSignatureService creates a verifier bound to the gateway's shared
// secret.
func NewWebhookSignatureService(secret string) *WebhookSignatureService {
	return &WebhookSignatureService{secret: []byte(secret)}
}

// Sign computes HMAC-SHA512 of the payload. Exposed for tests and tooling
// that need to produce valid notifications.
func (s *WebhookSignatureService) Sign(payload []byte) string {
	mac := hmac.New(sha512.New, s.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the signature against the exact received payload bytes.
// The payload must not be reserialized before this call: re-encoding JSON
// changes the bytes and breaks verification against the gateway's original.
// Uses constant-time comparison.
func (s *WebhookSignatureService) Verify(payload []byte, signature string) bool {
	expected := s.Sign(payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
