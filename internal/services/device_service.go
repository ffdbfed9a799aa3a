package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Soulfra/soulfra-sub002/internal/crypto"
	"github.com/Soulfra/soulfra-sub002/internal/models"
	"github.com/Soulfra/soulfra-sub002/internal/repositories"
)

var (
	// ErrTampered relabels a signature failure for the activation domain.
	ErrTampered = errors.New("activation token tampered")
	// ErrReplayedOrExpired covers both spent and stale activation tokens.
	ErrReplayedOrExpired = errors.New("activation token replayed or expired")
	ErrAlreadyActivated  = errors.New("device already activated")
	ErrDeviceNotFound    = errors.New("device not found")
)

// DeviceService drives the pending -> activated lifecycle. Activation is
// terminal; revocation is an external concern.
type DeviceService struct {
	deviceRepo     repositories.DeviceRepository
	tokens         *TokenService
	hasher         *crypto.IdentityHasher
	deviceTokenTTL time.Duration
}

func NewDeviceService(
	deviceRepo repositories.DeviceRepository,
	tokens *TokenService,
	hasher *crypto.IdentityHasher,
	deviceTokenTTL time.Duration,
) *DeviceService {
	return &DeviceService{
		deviceRepo:     deviceRepo,
		tokens:         tokens,
		hasher:         hasher,
		deviceTokenTTL: deviceTokenTTL,
	}
}

// Register creates a pending device at manufacture time and issues its
// label token. The raw serial is hashed before anything is persisted.
func (s *DeviceService) Register(ctx context.Context, serial, deviceType string, components []models.Component) (*models.Device, *models.SignedToken, error) {
	if components == nil {
		components = []models.Component{}
	}

	device := &models.Device{
		ID:         uuid.New(),
		SerialHash: s.hasher.Hash(serial),
		DeviceType: deviceType,
		Status:     models.DevicePending,
		Components: components,
	}

	if err := s.deviceRepo.Create(ctx, device); err != nil {
		return nil, nil, fmt.Errorf("failed to create device: %w", err)
	}

	token, err := s.tokens.Issue(ctx, map[string]string{
		"device_id":   device.ID.String(),
		"device_type": deviceType,
	}, s.deviceTokenTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to issue activation token: %w", err)
	}

	return device, token, nil
}

// Activate redeems the label token and flips the device to activated.
// Token errors are relabeled for this domain; the status check is a
// second guard on top of single-use redemption.
func (s *DeviceService) Activate(ctx context.Context, token string) (*models.Device, error) {
	payload, err := s.tokens.Redeem(ctx, token)
	if errors.Is(err, ErrInvalidSignature) {
		return nil, fmt.Errorf("%w: %w", ErrTampered, err)
	}
	if errors.Is(err, ErrTokenUsed) || errors.Is(err, ErrTokenExpired) {
		return nil, fmt.Errorf("%w: %w", ErrReplayedOrExpired, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to redeem activation token: %w", err)
	}

	deviceID, err := uuid.Parse(payload["device_id"])
	if err != nil {
		return nil, fmt.Errorf("%w: bad device id in payload", ErrTampered)
	}

	device, err := s.deviceRepo.GetByID(ctx, deviceID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load device: %w", err)
	}

	if device.Status == models.DeviceActivated {
		return nil, ErrAlreadyActivated
	}

	activated, err := s.deviceRepo.Activate(ctx, deviceID)
	if errors.Is(err, repositories.ErrNotFound) {
		// Lost a race with another activation of the same device.
		return nil, ErrAlreadyActivated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to activate device: %w", err)
	}

	if err := s.deviceRepo.AppendAction(ctx, &models.DeviceAction{
		ID:         uuid.New(),
		DeviceID:   deviceID,
		ActionType: "activated",
	}); err != nil {
		return nil, fmt.Errorf("failed to log activation: %w", err)
	}

	return activated, nil
}

// LogAction appends to the device's audit trail. Pure accumulation; the
// only failure is an unknown device.
func (s *DeviceService) LogAction(ctx context.Context, deviceID uuid.UUID, actionType string, metadata map[string]string) error {
	if _, err := s.deviceRepo.GetByID(ctx, deviceID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrDeviceNotFound
		}
		return fmt.Errorf("failed to load device: %w", err)
	}

	action := &models.DeviceAction{
		ID:         uuid.New(),
		DeviceID:   deviceID,
		ActionType: actionType,
		Metadata:   metadata,
	}
	if err := s.deviceRepo.AppendAction(ctx, action); err != nil {
		return fmt.Errorf("failed to append action: %w", err)
	}
	return nil
}

// Actions returns the audit trail in append order.
func (s *DeviceService) Actions(ctx context.Context, deviceID uuid.UUID) ([]*models.DeviceAction, error) {
	actions, err := s.deviceRepo.GetActions(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load device actions: %w", err)
	}
	return actions, nil
}
