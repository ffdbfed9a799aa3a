package models

import (
	"time"

	"github.com/google/uuid"
)

// EncryptedPayload is the three-artifact output of the payload cipher.
// Key and nonce must never be persisted next to the ciphertext; at rest
// only the ciphertext lands in a row, the key and nonce travel inside a
// short-lived signed grant.
type EncryptedPayload struct {
	Ciphertext []byte `json:"ciphertext"`
	Key        []byte `json:"key"`
	Nonce      []byte `json:"nonce"`
}

// StoredPayload is the at-rest form: ciphertext only.
type StoredPayload struct {
	ID         uuid.UUID `json:"id"`
	Kind       string    `json:"kind"`
	Ciphertext []byte    `json:"ciphertext"`
	CreatedAt  time.Time `json:"created_at"`
}
