package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Soulfra/soulfra-sub002/internal/crypto"
	"github.com/Soulfra/soulfra-sub002/internal/models"
	"github.com/Soulfra/soulfra-sub002/internal/repositories"
)

var (
	ErrGrantInvalid = errors.New("invalid payload grant")
	ErrGrantExpired = errors.New("payload grant expired")
	// ErrPayloadNotFound means the grant referenced a ciphertext row that
	// no longer exists.
	ErrPayloadNotFound = errors.New("encrypted payload not found")
)

// VaultService splits custody of encrypted payloads: the ciphertext goes
// into the primary store, while key and nonce only ever travel inside a
// short-lived signed grant (typically a QR payload). A breach of the
// store alone yields nothing.
type VaultService struct {
	payloadRepo repositories.PayloadRepository
	cipher      *crypto.PayloadCipher
	grantSecret []byte
	grantTTL    time.Duration
}

func NewVaultService(payloadRepo repositories.PayloadRepository, cipher *crypto.PayloadCipher, grantSecret []byte, grantTTL time.Duration) *VaultService {
	return &VaultService{
		payloadRepo: payloadRepo,
		cipher:      cipher,
		grantSecret: grantSecret,
		grantTTL:    grantTTL,
	}
}

// Store encrypts plaintext under a fresh key+nonce, persists the
// ciphertext alone, and returns a grant carrying the other two artifacts.
func (s *VaultService) Store(ctx context.Context, kind string, plaintext []byte) (uuid.UUID, string, error) {
	encrypted, err := s.cipher.Encrypt(plaintext)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to encrypt payload: %w", err)
	}

	stored := &models.StoredPayload{
		ID:         uuid.New(),
		Kind:       kind,
		Ciphertext: encrypted.Ciphertext,
	}
	if err := s.payloadRepo.Create(ctx, stored); err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to persist ciphertext: %w", err)
	}

	grant, err := s.issueGrant(stored.ID, kind, encrypted.Key, encrypted.Nonce)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to issue grant: %w", err)
	}
	return stored.ID, grant, nil
}

// Open validates a grant, loads the referenced ciphertext and decrypts.
// Authentication failure propagates as crypto.ErrTamperedOrWrongKey with
// no partial output.
func (s *VaultService) Open(ctx context.Context, grantToken string) ([]byte, error) {
	payloadID, kind, key, nonce, err := s.parseGrant(grantToken)
	if err != nil {
		return nil, err
	}

	stored, err := s.payloadRepo.GetByID(ctx, payloadID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrPayloadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ciphertext: %w", err)
	}

	// The grant is bound to the payload kind it was issued for.
	if stored.Kind != kind {
		return nil, ErrGrantInvalid
	}

	return s.cipher.Decrypt(&models.EncryptedPayload{
		Ciphertext: stored.Ciphertext,
		Key:        key,
		Nonce:      nonce,
	})
}

func (s *VaultService) issueGrant(payloadID uuid.UUID, kind string, key, nonce []byte) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  payloadID.String(),
		"kind": kind,
		"k":    base64.RawStdEncoding.EncodeToString(key),
		"n":    base64.RawStdEncoding.EncodeToString(nonce),
		"exp":  now.Add(s.grantTTL).Unix(),
		"iat":  now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.grantSecret)
}

func (s *VaultService) parseGrant(grantToken string) (uuid.UUID, string, []byte, []byte, error) {
	token, err := jwt.Parse(grantToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.grantSecret, nil
	})

	if errors.Is(err, jwt.ErrTokenExpired) {
		return uuid.Nil, "", nil, nil, ErrGrantExpired
	}
	if err != nil || !token.Valid {
		return uuid.Nil, "", nil, nil, ErrGrantInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, "", nil, nil, ErrGrantInvalid
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, "", nil, nil, ErrGrantInvalid
	}
	payloadID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, "", nil, nil, ErrGrantInvalid
	}

	kind, ok := claims["kind"].(string)
	if !ok {
		return uuid.Nil, "", nil, nil, ErrGrantInvalid
	}

	key, err := decodeGrantField(claims, "k")
	if err != nil {
		return uuid.Nil, "", nil, nil, err
	}
	nonce, err := decodeGrantField(claims, "n")
	if err != nil {
		return uuid.Nil, "", nil, nil, err
	}

	return payloadID, kind, key, nonce, nil
}

func decodeGrantField(claims jwt.MapClaims, field string) ([]byte, error) {
	encoded, ok := claims[field].(string)
	if !ok {
		return nil, ErrGrantInvalid
	}
	decoded, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrGrantInvalid
	}
	return decoded, nil
}
