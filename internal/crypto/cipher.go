package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/Soulfra/soulfra-sub002/internal/models"
)

// ErrTamperedOrWrongKey is returned when AEAD authentication fails: the
// ciphertext, key or nonce was altered, or the artifacts don't belong
// together. No plaintext is ever returned alongside it.
var ErrTamperedOrWrongKey = errors.New("payload tampered or wrong key")

// PayloadCipher encrypts small sensitive payloads (GPS fixes, voice memos)
// with XChaCha20-Poly1305. Every call draws a fresh key and nonce, so the
// three artifacts of one payload are useless for any other.
type PayloadCipher struct{}

func NewPayloadCipher() *PayloadCipher {
	return &PayloadCipher{}
}

// Encrypt seals plaintext under a fresh random key and nonce and returns
// the three artifacts separately.
func (c *PayloadCipher) Encrypt(plaintext []byte) (*models.EncryptedPayload, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return &models.EncryptedPayload{
		Ciphertext: aead.Seal(nil, nonce, plaintext, nil),
		Key:        key,
		Nonce:      nonce,
	}, nil
}

// Decrypt opens the payload. Fails closed with ErrTamperedOrWrongKey on
// any authentication failure; partial output is never returned.
func (c *PayloadCipher) Decrypt(payload *models.EncryptedPayload) ([]byte, error) {
	if payload == nil || len(payload.Key) != chacha20poly1305.KeySize || len(payload.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, ErrTamperedOrWrongKey
	}

	aead, err := chacha20poly1305.NewX(payload.Key)
	if err != nil {
		return nil, ErrTamperedOrWrongKey
	}

	plaintext, err := aead.Open(nil, payload.Nonce, payload.Ciphertext, nil)
	if err != nil {
		return nil, ErrTamperedOrWrongKey
	}
	return plaintext, nil
}
