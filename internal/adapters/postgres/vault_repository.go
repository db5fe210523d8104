package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartloom/gmo-payment-service/internal/domain"
	"github.com/cartloom/gmo-payment-service/internal/domain/ports"
)

const uniqueViolationCode = "23505"

// CardVaultRepository persists the user-to-gateway-member mapping.
type CardVaultRepository struct {
	pool   *pgxpool.Pool
	logger ports.Logger
}

// NewCardVaultRepository creates a new repository backed by the given pool.
func NewCardVaultRepository(pool *pgxpool.Pool, logger ports.Logger) *CardVaultRepository {
	return &CardVaultRepository{
		pool:   pool,
		logger: logger,
	}
}

// Create inserts a new vault record. Returns domain.ErrVaultConflict when a
// live record already exists for the user or the member ID is taken.
func (r *CardVaultRepository) Create(ctx context.Context, record *domain.CardVaultRecord) error {
	const query = `
		INSERT INTO card_vault (user_id, member_id, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())`

	_, err := r.pool.Exec(ctx, query, record.UserID, record.MemberID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.ErrVaultConflict
		}
		return fmt.Errorf("failed to insert vault record: %w", err)
	}

	r.logger.Info("Vault record created",
		ports.String("user_id", record.UserID),
		ports.String("member_id", record.MemberID),
	)
	return nil
}

// GetByUserID returns the live vault record for a user. Soft-deleted records
// are invisible. Returns domain.ErrVaultNotFound when no record exists.
func (r *CardVaultRepository) GetByUserID(ctx context.Context, userID string) (*domain.CardVaultRecord, error) {
	const query = `
		SELECT user_id, member_id, created_at, updated_at, deleted_at
		FROM card_vault
		WHERE user_id = $1 AND deleted_at IS NULL`

	var record domain.CardVaultRecord
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&record.UserID,
		&record.MemberID,
		&record.CreatedAt,
		&record.UpdatedAt,
		&record.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVaultNotFound
		}
		return nil, fmt.Errorf("failed to query vault record: %w", err)
	}

	return &record, nil
}

// SoftDelete marks the user's vault record as deleted without removing the
// row, so the gateway member ID remains auditable.
func (r *CardVaultRepository) SoftDelete(ctx context.Context, userID string) error {
	const query = `
		UPDATE card_vault
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND deleted_at IS NULL`

	tag, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to soft-delete vault record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVaultNotFound
	}

	r.logger.Info("Vault record soft-deleted", ports.String("user_id", userID))
	return nil
}
