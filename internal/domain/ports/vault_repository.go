package ports

import (
	"context"

	"github.com/cartloom/gmo-payment-service/internal/domain"
)

// CardVaultRepository persists the user -> gateway member mapping, the one
// table this subsystem owns. Records are soft-deleted only.
type CardVaultRepository interface {
	// Create inserts a new vault record. Returns domain.ErrVaultConflict
	// when a non-deleted record already exists for the user.
	Create(ctx context.Context, record *domain.CardVaultRecord) error

	// GetByUserID returns the non-deleted record for a user, or
	// domain.ErrVaultNotFound.
	GetByUserID(ctx context.Context, userID string) (*domain.CardVaultRecord, error)

	// SoftDelete marks the record for a user as deleted.
	SoftDelete(ctx context.Context, userID string) error
}
