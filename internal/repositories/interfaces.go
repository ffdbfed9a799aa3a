package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Soulfra/soulfra-sub002/internal/models"
)

var ErrNotFound = errors.New("not found")

// ErrAlreadyUsed is returned by MarkUsed when the conditional update
// matched no row because used was already true. Under concurrent
// redemption exactly one caller avoids it.
var ErrAlreadyUsed = errors.New("token already used")

type TokenRepository interface {
	Create(ctx context.Context, record *models.UsageRecord) error
	GetByID(ctx context.Context, tokenID string) (*models.UsageRecord, error)
	// MarkUsed performs the atomic used=false -> true transition. It must
	// succeed for exactly one caller per token regardless of concurrency.
	MarkUsed(ctx context.Context, tokenID string) error
}

type DeviceRepository interface {
	Create(ctx context.Context, device *models.Device) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Device, error)
	Activate(ctx context.Context, id uuid.UUID) (*models.Device, error)
	AppendAction(ctx context.Context, action *models.DeviceAction) error
	GetActions(ctx context.Context, deviceID uuid.UUID) ([]*models.DeviceAction, error)
}

type ScanRepository interface {
	Create(ctx context.Context, scan *models.ScanEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ScanEvent, error)
	GetByCodeID(ctx context.Context, codeID string) ([]*models.ScanEvent, error)
}

type PayloadRepository interface {
	Create(ctx context.Context, payload *models.StoredPayload) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StoredPayload, error)
}

// StatsCache holds read-side scan projections with a short TTL. A miss is
// never an error condition; stats are always recomputable from rows.
type StatsCache interface {
	Get(ctx context.Context, codeID string) (*models.ScanStats, error)
	Set(ctx context.Context, stats *models.ScanStats) error
}
