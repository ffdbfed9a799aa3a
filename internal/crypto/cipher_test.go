package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Soulfra/soulfra-sub002/internal/models"
)

func TestPayloadCipher_RoundTrip(t *testing.T) {
	cipher := NewPayloadCipher()

	plaintext := []byte(`{"lat":54.6872,"lon":25.2797}`)
	payload, err := cipher.Encrypt(plaintext)
	require.NoError(t, err)

	require.NotEmpty(t, payload.Ciphertext)
	require.Len(t, payload.Key, 32)
	require.Len(t, payload.Nonce, 24)

	decrypted, err := cipher.Decrypt(payload)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestPayloadCipher_FreshKeyPerCall(t *testing.T) {
	cipher := NewPayloadCipher()

	a, err := cipher.Encrypt([]byte("same plaintext"))
	require.NoError(t, err)
	b, err := cipher.Encrypt([]byte("same plaintext"))
	require.NoError(t, err)

	assert.NotEqual(t, a.Key, b.Key, "keys are never reused across payloads")
	assert.NotEqual(t, a.Nonce, b.Nonce)
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
}

// Flipping any single bit in any of the three artifacts must fail closed,
// never return altered plaintext.
func TestPayloadCipher_BitFlipFailsClosed(t *testing.T) {
	cipher := NewPayloadCipher()

	original, err := cipher.Encrypt([]byte("short voice memo bytes"))
	require.NoError(t, err)

	flip := func(b []byte, i int) []byte {
		out := make([]byte, len(b))
		copy(out, b)
		out[i] ^= 0x01
		return out
	}

	cases := map[string]*models.EncryptedPayload{
		"ciphertext": {Ciphertext: flip(original.Ciphertext, 0), Key: original.Key, Nonce: original.Nonce},
		"key":        {Ciphertext: original.Ciphertext, Key: flip(original.Key, 0), Nonce: original.Nonce},
		"nonce":      {Ciphertext: original.Ciphertext, Key: original.Key, Nonce: flip(original.Nonce, 0)},
	}

	for name, tampered := range cases {
		t.Run(name, func(t *testing.T) {
			plaintext, err := cipher.Decrypt(tampered)
			assert.ErrorIs(t, err, ErrTamperedOrWrongKey)
			assert.Nil(t, plaintext)
		})
	}
}

func TestPayloadCipher_RejectsMalformedArtifacts(t *testing.T) {
	cipher := NewPayloadCipher()

	_, err := cipher.Decrypt(nil)
	assert.ErrorIs(t, err, ErrTamperedOrWrongKey)

	_, err = cipher.Decrypt(&models.EncryptedPayload{Ciphertext: []byte("x"), Key: []byte("short"), Nonce: make([]byte, 24)})
	assert.ErrorIs(t, err, ErrTamperedOrWrongKey)
}

func TestIdentityHasher(t *testing.T) {
	hasher := NewIdentityHasher([]byte("salt-1"))

	a := hasher.Hash("203.0.113.7")
	b := hasher.Hash("203.0.113.7")
	c := hasher.Hash("203.0.113.8")

	assert.Equal(t, a, b, "same input and salt must group together")
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)

	other := NewIdentityHasher([]byte("salt-2"))
	assert.NotEqual(t, a, other.Hash("203.0.113.7"), "different salts must not correlate")
}
