package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// IdentityHasher pseudonymizes raw identifiers (client IPs, device serials)
// with a salted SHA-256. Deterministic for one salt, so the same actor
// groups together in analytics, but not invertible without the salt.
type IdentityHasher struct {
	salt []byte
}

func NewIdentityHasher(salt []byte) *IdentityHasher {
	s := make([]byte, len(salt))
	copy(s, salt)
	return &IdentityHasher{salt: s}
}

func (h *IdentityHasher) Hash(raw string) string {
	digest := sha256.New()
	digest.Write(h.salt)
	digest.Write([]byte(raw))
	return hex.EncodeToString(digest.Sum(nil))
}
