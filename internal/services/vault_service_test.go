package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Soulfra/soulfra-sub002/internal/crypto"
	"github.com/Soulfra/soulfra-sub002/internal/repositories"
)

func newTestVaultService(grantTTL time.Duration) (*VaultService, *repositories.MemoryPayloadRepository) {
	repo := repositories.NewMemoryPayloadRepository()
	vault := NewVaultService(repo, crypto.NewPayloadCipher(), []byte("test-grant-secret-0123456789abcd"), grantTTL)
	return vault, repo
}

func TestVaultService_StoreAndOpen(t *testing.T) {
	vault, repo := newTestVaultService(time.Minute)
	ctx := context.Background()

	plaintext := []byte(`{"lat":54.6872,"lon":25.2797}`)
	payloadID, grant, err := vault.Store(ctx, "gps", plaintext)
	require.NoError(t, err)

	// Only the ciphertext lands at rest.
	stored, err := repo.GetByID(ctx, payloadID)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, stored.Ciphertext)
	assert.Equal(t, "gps", stored.Kind)

	opened, err := vault.Open(ctx, grant)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestVaultService_ExpiredGrant(t *testing.T) {
	vault, _ := newTestVaultService(-time.Minute)

	_, grant, err := vault.Store(context.Background(), "gps", []byte("data"))
	require.NoError(t, err)

	_, err = vault.Open(context.Background(), grant)
	assert.ErrorIs(t, err, ErrGrantExpired)
}

func TestVaultService_ForgedGrantRejected(t *testing.T) {
	vault, _ := newTestVaultService(time.Minute)
	other, _ := newTestVaultService(time.Minute)
	other.grantSecret = []byte("a-different-grant-secret-0123456")

	_, grant, err := other.Store(context.Background(), "gps", []byte("data"))
	require.NoError(t, err)

	_, err = vault.Open(context.Background(), grant)
	assert.ErrorIs(t, err, ErrGrantInvalid)
}

func TestVaultService_TamperedCiphertextFailsClosed(t *testing.T) {
	vault, repo := newTestVaultService(time.Minute)
	ctx := context.Background()

	payloadID, grant, err := vault.Store(ctx, "voice", []byte("short voice memo"))
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, payloadID)
	require.NoError(t, err)
	stored.Ciphertext[0] ^= 0x01
	require.NoError(t, repo.Create(ctx, stored))

	plaintext, err := vault.Open(ctx, grant)
	assert.ErrorIs(t, err, crypto.ErrTamperedOrWrongKey)
	assert.Nil(t, plaintext)
}

// A grant issued for one payload kind must not open a row whose kind
// has been rewritten underneath it.
func TestVaultService_KindMismatchRejected(t *testing.T) {
	vault, repo := newTestVaultService(time.Minute)
	ctx := context.Background()

	payloadID, grant, err := vault.Store(ctx, "gps", []byte("data"))
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, payloadID)
	require.NoError(t, err)
	stored.Kind = "voice"
	require.NoError(t, repo.Create(ctx, stored))

	_, err = vault.Open(ctx, grant)
	assert.ErrorIs(t, err, ErrGrantInvalid)
}

func TestVaultService_GrantCarriesNoPlaintext(t *testing.T) {
	vault, _ := newTestVaultService(time.Minute)

	_, grant, err := vault.Store(context.Background(), "gps", []byte("55.1234,21.5678"))
	require.NoError(t, err)

	assert.NotContains(t, grant, "55.1234")
}
