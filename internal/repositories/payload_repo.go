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

// PostgresPayloadRepository stores ciphertext-only rows. Keys and nonces
// never land here; they travel inside signed grants.
type PostgresPayloadRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresPayloadRepository(pool *pgxpool.Pool) *PostgresPayloadRepository {
	return &PostgresPayloadRepository{pool: pool}
}

func (r *PostgresPayloadRepository) Create(ctx context.Context, payload *models.StoredPayload) error {
	query := `INSERT INTO encrypted_payloads (id, kind, ciphertext)
	          VALUES ($1, $2, $3)
	          RETURNING created_at`

	err := r.pool.QueryRow(ctx, query,
		payload.ID,
		payload.Kind,
		payload.Ciphertext,
	).Scan(&payload.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create encrypted payload: %w", err)
	}
	return nil
}

func (r *PostgresPayloadRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StoredPayload, error) {
	query := `SELECT id, kind, ciphertext, created_at
	          FROM encrypted_payloads
	          WHERE id = $1`

	var payload models.StoredPayload
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&payload.ID,
		&payload.Kind,
		&payload.Ciphertext,
		&payload.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get encrypted payload: %w", err)
	}
	return &payload, nil
}
