package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Soulfra/soulfra-sub002/internal/models"
)

// In-memory implementations backing service tests and single-node dev
// runs. Each one honors the same contract as its Postgres/Redis
// counterpart, including the single-use transition under concurrency.

type MemoryTokenRepository struct {
	mu      sync.Mutex
	records map[string]*models.UsageRecord
}

func NewMemoryTokenRepository() *MemoryTokenRepository {
	return &MemoryTokenRepository{records: make(map[string]*models.UsageRecord)}
}

func (r *MemoryTokenRepository) Create(ctx context.Context, record *models.UsageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *record
	r.records[record.TokenID] = &clone
	return nil
}

func (r *MemoryTokenRepository) GetByID(ctx context.Context, tokenID string) (*models.UsageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[tokenID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (r *MemoryTokenRepository) MarkUsed(ctx context.Context, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[tokenID]
	if !ok {
		return ErrNotFound
	}
	if record.Used {
		return ErrAlreadyUsed
	}
	now := time.Now()
	record.Used = true
	record.UsedAt = &now
	return nil
}

type MemoryDeviceRepository struct {
	mu      sync.Mutex
	devices map[uuid.UUID]*models.Device
	actions map[uuid.UUID][]*models.DeviceAction
}

func NewMemoryDeviceRepository() *MemoryDeviceRepository {
	return &MemoryDeviceRepository{
		devices: make(map[uuid.UUID]*models.Device),
		actions: make(map[uuid.UUID][]*models.DeviceAction),
	}
}

func (r *MemoryDeviceRepository) Create(ctx context.Context, device *models.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	device.CreatedAt = time.Now()
	clone := *device
	r.devices[device.ID] = &clone
	return nil
}

func (r *MemoryDeviceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.devices[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *device
	return &clone, nil
}

func (r *MemoryDeviceRepository) Activate(ctx context.Context, id uuid.UUID) (*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.devices[id]
	if !ok || device.Status != models.DevicePending {
		return nil, ErrNotFound
	}
	now := time.Now()
	device.Status = models.DeviceActivated
	device.ActivatedAt = &now
	clone := *device
	return &clone, nil
}

func (r *MemoryDeviceRepository) AppendAction(ctx context.Context, action *models.DeviceAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	action.CreatedAt = time.Now()
	clone := *action
	r.actions[action.DeviceID] = append(r.actions[action.DeviceID], &clone)
	return nil
}

func (r *MemoryDeviceRepository) GetActions(ctx context.Context, deviceID uuid.UUID) ([]*models.DeviceAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]*models.DeviceAction, 0, len(r.actions[deviceID]))
	for _, action := range r.actions[deviceID] {
		clone := *action
		actions = append(actions, &clone)
	}
	return actions, nil
}

type MemoryScanRepository struct {
	mu    sync.Mutex
	scans map[uuid.UUID]*models.ScanEvent
	order []uuid.UUID
}

func NewMemoryScanRepository() *MemoryScanRepository {
	return &MemoryScanRepository{scans: make(map[uuid.UUID]*models.ScanEvent)}
}

func (r *MemoryScanRepository) Create(ctx context.Context, scan *models.ScanEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = time.Now()
	}
	clone := *scan
	r.scans[scan.ID] = &clone
	r.order = append(r.order, scan.ID)
	return nil
}

func (r *MemoryScanRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ScanEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	scan, ok := r.scans[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *scan
	return &clone, nil
}

// GetByCodeID returns scans in insertion order, mirroring the
// created_at ASC ordering of the Postgres implementation.
func (r *MemoryScanRepository) GetByCodeID(ctx context.Context, codeID string) ([]*models.ScanEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var scans []*models.ScanEvent
	for _, id := range r.order {
		scan := r.scans[id]
		if scan.CodeID == codeID {
			clone := *scan
			scans = append(scans, &clone)
		}
	}
	return scans, nil
}

type MemoryPayloadRepository struct {
	mu       sync.Mutex
	payloads map[uuid.UUID]*models.StoredPayload
}

func NewMemoryPayloadRepository() *MemoryPayloadRepository {
	return &MemoryPayloadRepository{payloads: make(map[uuid.UUID]*models.StoredPayload)}
}

func (r *MemoryPayloadRepository) Create(ctx context.Context, payload *models.StoredPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	payload.CreatedAt = time.Now()
	clone := *payload
	r.payloads[payload.ID] = &clone
	return nil
}

func (r *MemoryPayloadRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StoredPayload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payload, ok := r.payloads[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *payload
	return &clone, nil
}

type memoryStatsEntry struct {
	stats    *models.ScanStats
	storedAt time.Time
}

// MemoryStatsCache honors the same TTL semantics as the Redis cache; a
// zero ttl means entries live until overwritten.
type MemoryStatsCache struct {
	mu    sync.Mutex
	stats map[string]memoryStatsEntry
	ttl   time.Duration
}

func NewMemoryStatsCache(ttl time.Duration) *MemoryStatsCache {
	return &MemoryStatsCache{stats: make(map[string]memoryStatsEntry), ttl: ttl}
}

func (c *MemoryStatsCache) Get(ctx context.Context, codeID string) (*models.ScanStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.stats[codeID]
	if !ok {
		return nil, ErrNotFound
	}
	if c.ttl > 0 && time.Since(entry.storedAt) > c.ttl {
		delete(c.stats, codeID)
		return nil, ErrNotFound
	}
	clone := *entry.stats
	return &clone, nil
}

func (c *MemoryStatsCache) Set(ctx context.Context, stats *models.ScanStats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clone := *stats
	c.stats[stats.CodeID] = memoryStatsEntry{stats: &clone, storedAt: time.Now()}
	return nil
}
