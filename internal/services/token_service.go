package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Soulfra/soulfra-sub002/internal/crypto"
	"github.com/Soulfra/soulfra-sub002/internal/models"
	"github.com/Soulfra/soulfra-sub002/internal/repositories"
)

var (
	// ErrInvalidSignature covers forged and corrupted tokens, including
	// opaque identifiers that were never issued.
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenUsed        = errors.New("token already used")
)

const tokenIDBytes = 32 // 256 bits of entropy

// TokenService issues and redeems signed, expiring, single-use tokens.
// Redemption is irreversible and never retried here: retrying a
// successful redemption is indistinguishable from an attack.
type TokenService struct {
	tokenRepo repositories.TokenRepository
	signer    *crypto.Signer
}

func NewTokenService(tokenRepo repositories.TokenRepository, signer *crypto.Signer) *TokenService {
	return &TokenService{
		tokenRepo: tokenRepo,
		signer:    signer,
	}
}

// Issue creates a token with a fresh opaque identifier, signs it together
// with its payload and expiry, and records it as unused.
func (s *TokenService) Issue(ctx context.Context, payload map[string]string, ttl time.Duration) (*models.SignedToken, error) {
	if payload == nil {
		payload = map[string]string{}
	}

	raw := make([]byte, tokenIDBytes)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return nil, fmt.Errorf("failed to generate token id: %w", err)
	}
	tokenID := base64.RawURLEncoding.EncodeToString(raw)

	issuedAt := time.Now()
	expiresAt := issuedAt.Add(ttl)
	signature := s.signer.Sign(canonicalTokenBytes(tokenID, payload, issuedAt, expiresAt))

	record := &models.UsageRecord{
		TokenID:   tokenID,
		Payload:   payload,
		Signature: signature,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Used:      false,
	}
	if err := s.tokenRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist usage record: %w", err)
	}

	return &models.SignedToken{
		Token:     tokenID,
		Payload:   payload,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Signature: signature,
	}, nil
}

// Redeem verifies and consumes a token, returning its payload. The three
// failure modes are deliberately distinct: forged (ErrInvalidSignature),
// stale (ErrTokenExpired) and replayed (ErrTokenUsed). The used flag is
// flipped by a conditional update, so of any number of concurrent calls
// on one token exactly one succeeds.
func (s *TokenService) Redeem(ctx context.Context, tokenID string) (map[string]string, error) {
	record, err := s.tokenRepo.GetByID(ctx, tokenID)
	if errors.Is(err, repositories.ErrNotFound) {
		// An identifier we never issued is indistinguishable from a forgery.
		return nil, ErrInvalidSignature
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load usage record: %w", err)
	}

	signed := canonicalTokenBytes(record.TokenID, record.Payload, record.IssuedAt, record.ExpiresAt)
	if !s.signer.Verify(signed, record.Signature) {
		return nil, ErrInvalidSignature
	}

	// Expiry is a wall-clock comparison at redemption time; no timer ever
	// transitions the row. A ttl of zero expires the moment it is issued.
	if time.Now().After(record.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	err = s.tokenRepo.MarkUsed(ctx, tokenID)
	if errors.Is(err, repositories.ErrAlreadyUsed) {
		return nil, ErrTokenUsed
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidSignature
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark token used: %w", err)
	}

	return record.Payload, nil
}

// canonicalTokenBytes produces the deterministic byte encoding the
// signature covers. Payload keys are sorted so two encodings of the same
// token always match, and every field is length-prefixed so no two
// distinct payloads can share an encoding regardless of what separator
// characters their keys or values contain.
func canonicalTokenBytes(tokenID string, payload map[string]string, issuedAt, expiresAt time.Time) []byte {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	appendField := func(s string) {
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte(':')
		b.WriteString(s)
		b.WriteByte(',')
	}

	appendField(tokenID)
	for _, k := range keys {
		appendField(k)
		appendField(payload[k])
	}
	appendField(strconv.FormatInt(issuedAt.Unix(), 10))
	appendField(strconv.FormatInt(expiresAt.Unix(), 10))
	return []byte(b.String())
}
