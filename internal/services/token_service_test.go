package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Soulfra/soulfra-sub002/internal/crypto"
	"github.com/Soulfra/soulfra-sub002/internal/repositories"
)

func newTestTokenService() (*TokenService, *repositories.MemoryTokenRepository) {
	repo := repositories.NewMemoryTokenRepository()
	signer := crypto.NewSigner([]byte("test-signing-secret-0123456789ab"))
	return NewTokenService(repo, signer), repo
}

func TestTokenService_IssueAndRedeem(t *testing.T) {
	svc, _ := newTestTokenService()
	ctx := context.Background()

	payload := map[string]string{"device_id": "d-1", "device_type": "phone"}
	token, err := svc.Issue(ctx, payload, time.Hour)
	require.NoError(t, err)

	// 256 bits base64url-encoded without padding
	assert.Len(t, token.Token, 43)
	assert.NotEmpty(t, token.Signature)
	assert.True(t, token.ExpiresAt.After(token.IssuedAt))

	redeemed, err := svc.Redeem(ctx, token.Token)
	require.NoError(t, err)
	assert.Equal(t, payload, redeemed)
}

func TestTokenService_RedeemTwiceFails(t *testing.T) {
	svc, _ := newTestTokenService()
	ctx := context.Background()

	token, err := svc.Issue(ctx, map[string]string{"k": "v"}, time.Hour)
	require.NoError(t, err)

	_, err = svc.Redeem(ctx, token.Token)
	require.NoError(t, err)

	_, err = svc.Redeem(ctx, token.Token)
	assert.ErrorIs(t, err, ErrTokenUsed)
}

// Exactly one of many logically concurrent redemptions may succeed.
func TestTokenService_ConcurrentRedemption(t *testing.T) {
	svc, _ := newTestTokenService()
	ctx := context.Background()

	token, err := svc.Issue(ctx, map[string]string{"k": "v"}, time.Hour)
	require.NoError(t, err)

	const attempts = 50
	results := make(chan error, attempts)

	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < attempts; i++ {
		go func() {
			start.Wait()
			_, err := svc.Redeem(ctx, token.Token)
			results <- err
		}()
	}
	start.Done()

	var succeeded, alreadyUsed int
	for i := 0; i < attempts; i++ {
		err := <-results
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, ErrTokenUsed):
			alreadyUsed++
		}
	}

	assert.Equal(t, 1, succeeded, "exactly one redemption may succeed")
	assert.Equal(t, attempts-1, alreadyUsed)
}

func TestTokenService_ZeroTTLExpiresImmediately(t *testing.T) {
	svc, _ := newTestTokenService()
	ctx := context.Background()

	token, err := svc.Issue(ctx, map[string]string{"k": "v"}, 0)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = svc.Redeem(ctx, token.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_UnknownTokenLooksForged(t *testing.T) {
	svc, _ := newTestTokenService()

	_, err := svc.Redeem(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTokenService_TamperedRecordRejected(t *testing.T) {
	svc, repo := newTestTokenService()
	ctx := context.Background()

	token, err := svc.Issue(ctx, map[string]string{"role": "guest"}, time.Hour)
	require.NoError(t, err)

	// Simulate a compromised store editing the payload under the signature.
	record, err := repo.GetByID(ctx, token.Token)
	require.NoError(t, err)
	record.Payload = map[string]string{"role": "admin"}
	require.NoError(t, repo.Create(ctx, record))

	_, err = svc.Redeem(ctx, token.Token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

// A value containing separator characters must not let one payload
// masquerade as another under the same signature.
func TestTokenService_SignatureBindsExactPayload(t *testing.T) {
	svc, repo := newTestTokenService()
	ctx := context.Background()

	token, err := svc.Issue(ctx, map[string]string{"a": "1&b=2"}, time.Hour)
	require.NoError(t, err)

	// Rewrite the stored payload to a different map that would encode
	// identically under a naive k=v& concatenation.
	record, err := repo.GetByID(ctx, token.Token)
	require.NoError(t, err)
	record.Payload = map[string]string{"a": "1", "b": "2"}
	require.NoError(t, repo.Create(ctx, record))

	_, err = svc.Redeem(ctx, token.Token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTokenService_RotatedSecretInvalidatesTokens(t *testing.T) {
	repo := repositories.NewMemoryTokenRepository()
	before := NewTokenService(repo, crypto.NewSigner([]byte("secret-before-rotation-012345678")))
	after := NewTokenService(repo, crypto.NewSigner([]byte("secret-after-rotation-0123456789")))
	ctx := context.Background()

	token, err := before.Issue(ctx, map[string]string{"k": "v"}, time.Hour)
	require.NoError(t, err)

	_, err = after.Redeem(ctx, token.Token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
