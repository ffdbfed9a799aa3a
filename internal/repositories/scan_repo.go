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

type PostgresScanRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresScanRepository(pool *pgxpool.Pool) *PostgresScanRepository {
	return &PostgresScanRepository{pool: pool}
}

func (r *PostgresScanRepository) Create(ctx context.Context, scan *models.ScanEvent) error {
	query := `INSERT INTO scan_events (id, code_id, parent_scan_id, device_type, city, country, actor_hash, referrer)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING created_at`

	err := r.pool.QueryRow(ctx, query,
		scan.ID,
		scan.CodeID,
		scan.ParentScanID,
		scan.DeviceType,
		scan.City,
		scan.Country,
		scan.ActorHash,
		scan.Referrer,
	).Scan(&scan.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create scan event: %w", err)
	}
	return nil
}

func (r *PostgresScanRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ScanEvent, error) {
	query := `SELECT id, code_id, parent_scan_id, device_type, city, country, actor_hash, referrer, created_at
	          FROM scan_events
	          WHERE id = $1`

	var scan models.ScanEvent
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&scan.ID,
		&scan.CodeID,
		&scan.ParentScanID,
		&scan.DeviceType,
		&scan.City,
		&scan.Country,
		&scan.ActorHash,
		&scan.Referrer,
		&scan.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan event: %w", err)
	}
	return &scan, nil
}

func (r *PostgresScanRepository) GetByCodeID(ctx context.Context, codeID string) ([]*models.ScanEvent, error) {
	query := `SELECT id, code_id, parent_scan_id, device_type, city, country, actor_hash, referrer, created_at
	          FROM scan_events
	          WHERE code_id = $1
	          ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, codeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan events: %w", err)
	}
	defer rows.Close()

	var scans []*models.ScanEvent
	for rows.Next() {
		var scan models.ScanEvent
		err := rows.Scan(
			&scan.ID,
			&scan.CodeID,
			&scan.ParentScanID,
			&scan.DeviceType,
			&scan.City,
			&scan.Country,
			&scan.ActorHash,
			&scan.Referrer,
			&scan.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scan event: %w", err)
		}
		scans = append(scans, &scan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scan events: %w", err)
	}

	return scans, nil
}
