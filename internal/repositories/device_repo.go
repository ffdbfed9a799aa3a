package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Soulfra/soulfra-sub002/internal/models"
)

type PostgresDeviceRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresDeviceRepository(pool *pgxpool.Pool) *PostgresDeviceRepository {
	return &PostgresDeviceRepository{pool: pool}
}

func (r *PostgresDeviceRepository) Create(ctx context.Context, device *models.Device) error {
	query := `INSERT INTO devices (id, serial_hash, device_type, status, components)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING created_at`

	err := r.pool.QueryRow(ctx, query,
		device.ID,
		device.SerialHash,
		device.DeviceType,
		device.Status,
		device.Components,
	).Scan(&device.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}
	return nil
}

func (r *PostgresDeviceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Device, error) {
	query := `SELECT id, serial_hash, device_type, status, components, activated_at, created_at
	          FROM devices
	          WHERE id = $1`

	var device models.Device
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&device.ID,
		&device.SerialHash,
		&device.DeviceType,
		&device.Status,
		&device.Components,
		&device.ActivatedAt,
		&device.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return &device, nil
}

// Activate flips a pending device to activated. The status guard in the
// WHERE clause means a device can only make this transition once.
func (r *PostgresDeviceRepository) Activate(ctx context.Context, id uuid.UUID) (*models.Device, error) {
	query := `UPDATE devices
	          SET status = $1, activated_at = NOW()
	          WHERE id = $2 AND status = $3
	          RETURNING id, serial_hash, device_type, status, components, activated_at, created_at`

	var device models.Device
	err := r.pool.QueryRow(ctx, query, models.DeviceActivated, id, models.DevicePending).Scan(
		&device.ID,
		&device.SerialHash,
		&device.DeviceType,
		&device.Status,
		&device.Components,
		&device.ActivatedAt,
		&device.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to activate device: %w", err)
	}
	return &device, nil
}

func (r *PostgresDeviceRepository) AppendAction(ctx context.Context, action *models.DeviceAction) error {
	query := `INSERT INTO device_actions (id, device_id, action_type, metadata)
	          VALUES ($1, $2, $3, $4)
	          RETURNING created_at`

	err := r.pool.QueryRow(ctx, query,
		action.ID,
		action.DeviceID,
		action.ActionType,
		action.Metadata,
	).Scan(&action.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to append device action: %w", err)
	}
	return nil
}

func (r *PostgresDeviceRepository) GetActions(ctx context.Context, deviceID uuid.UUID) ([]*models.DeviceAction, error) {
	query := `SELECT id, device_id, action_type, metadata, created_at
	          FROM device_actions
	          WHERE device_id = $1
	          ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query device actions: %w", err)
	}
	defer rows.Close()

	var actions []*models.DeviceAction
	for rows.Next() {
		var action models.DeviceAction
		err := rows.Scan(
			&action.ID,
			&action.DeviceID,
			&action.ActionType,
			&action.Metadata,
			&action.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device action: %w", err)
		}
		actions = append(actions, &action)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating device actions: %w", err)
	}

	return actions, nil
}
