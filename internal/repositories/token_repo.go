package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Soulfra/soulfra-sub002/internal/models"
)

type PostgresTokenRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresTokenRepository(pool *pgxpool.Pool) *PostgresTokenRepository {
	return &PostgresTokenRepository{pool: pool}
}

func (r *PostgresTokenRepository) Create(ctx context.Context, record *models.UsageRecord) error {
	query := `INSERT INTO usage_records (token_id, payload, signature, issued_at, expires_at, used)
	          VALUES ($1, $2, $3, $4, $5, false)`

	_, err := r.pool.Exec(ctx, query,
		record.TokenID,
		record.Payload,
		record.Signature,
		record.IssuedAt,
		record.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create usage record: %w", err)
	}
	return nil
}

func (r *PostgresTokenRepository) GetByID(ctx context.Context, tokenID string) (*models.UsageRecord, error) {
	query := `SELECT token_id, payload, signature, issued_at, expires_at, used, used_at
	          FROM usage_records
	          WHERE token_id = $1`

	var record models.UsageRecord
	err := r.pool.QueryRow(ctx, query, tokenID).Scan(
		&record.TokenID,
		&record.Payload,
		&record.Signature,
		&record.IssuedAt,
		&record.ExpiresAt,
		&record.Used,
		&record.UsedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get usage record: %w", err)
	}
	return &record, nil
}

// MarkUsed relies on the WHERE clause to make check-then-mark a single
// atomic step: only one concurrent caller sees a row with used = false.
func (r *PostgresTokenRepository) MarkUsed(ctx context.Context, tokenID string) error {
	query := `UPDATE usage_records
	          SET used = true, used_at = NOW()
	          WHERE token_id = $1 AND used = false`

	result, err := r.pool.Exec(ctx, query, tokenID)
	if err != nil {
		return fmt.Errorf("failed to mark token used: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Either unknown or already spent; disambiguate for the caller.
		if _, getErr := r.GetByID(ctx, tokenID); errors.Is(getErr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrAlreadyUsed
	}
	return nil
}
