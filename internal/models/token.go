package models

import (
	"time"
)

// SignedToken is the issued form of a single-use token: an opaque random
// identifier plus an HMAC signature binding the identifier, payload and
// expiry together. The identifier is what gets embedded in a QR code or URL.
type SignedToken struct {
	Token     string            `json:"token"`
	Payload   map[string]string `json:"payload"`
	IssuedAt  time.Time         `json:"issued_at"`
	ExpiresAt time.Time         `json:"expires_at"`
	Signature []byte            `json:"signature"`
}

// UsageRecord is the persisted side of a SignedToken. Used transitions
// false to true exactly once; there is no way back.
type UsageRecord struct {
	TokenID   string            `json:"token_id"`
	Payload   map[string]string `json:"payload"`
	Signature []byte            `json:"-"`
	IssuedAt  time.Time         `json:"issued_at"`
	ExpiresAt time.Time         `json:"expires_at"`
	Used      bool              `json:"used"`
	UsedAt    *time.Time        `json:"used_at,omitempty"`
}
