package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
)

// Signer computes HMAC-SHA256 signatures with a server-held secret. The
// secret is injected at construction so tests can use distinct keys;
// rotating it invalidates every previously issued signature, which is the
// intended revocation mechanism.
type Signer struct {
	secret []byte
}

func NewSigner(secret []byte) *Signer {
	key := make([]byte, len(secret))
	copy(key, secret)
	return &Signer{secret: key}
}

// Sign computes the MAC over payload. Deterministic for a fixed secret.
func (s *Signer) Sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

// Verify recomputes the MAC and compares in constant time. Returns false
// on any mismatch, including truncated or empty signatures.
func (s *Signer) Verify(payload, signature []byte) bool {
	return hmac.Equal(s.Sign(payload), signature)
}
