package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cartloom/gmo-payment-service/internal/domain"
	"github.com/cartloom/gmo-payment-service/internal/domain/ports"
)

// The gateway stores at most one card per member, always written through the
// fixed slot below. Replacing a card saves the new one first, then deletes
// the old slot, so a failure mid-replace leaves a usable card behind.
const primaryCardSlot = 0

// Service implements the card vault: the mapping from local users to gateway
// members and each member's single stored card.
type Service struct {
	gateway ports.PaymentGateway
	repo    ports.CardVaultRepository
	logger  ports.Logger
}

// NewService creates a new card vault service.
func NewService(gateway ports.PaymentGateway, repo ports.CardVaultRepository, logger ports.Logger) *Service {
	return &Service{
		gateway: gateway,
		repo:    repo,
		logger:  logger,
	}
}

// RetrieveMember returns the vault record for a user, or
// domain.ErrVaultNotFound if the user has never saved a card.
func (s *Service) RetrieveMember(ctx context.Context, userID string) (*domain.CardVaultRecord, error) {
	if userID == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "user ID is required")
	}
	return s.repo.GetByUserID(ctx, userID)
}

// EnsureMember provisions a gateway member for the user if none exists yet,
// so a card can be saved later without re-entering the transaction. The
// member ID is generated locally.
func (s *Service) EnsureMember(ctx context.Context, userID string) (domain.VaultUpsert, error) {
	if userID == "" {
		return domain.VaultUpsert{}, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "user ID is required")
	}

	record, err := s.repo.GetByUserID(ctx, userID)
	if err == nil {
		return domain.VaultUpsert{Outcome: domain.VaultExisting, MemberID: record.MemberID}, nil
	}
	if !errors.Is(err, domain.ErrVaultNotFound) {
		return domain.VaultUpsert{}, fmt.Errorf("failed to look up vault record: %w", err)
	}

	memberID := uuid.NewString()
	if err := s.gateway.SaveMember(ctx, memberID, ""); err != nil {
		return domain.VaultUpsert{}, fmt.Errorf("failed to register gateway member: %w", err)
	}

	created, err := s.createRecord(ctx, userID, memberID)
	if err != nil {
		return domain.VaultUpsert{}, err
	}

	s.logger.Info("Gateway member provisioned",
		ports.String("user_id", userID),
		ports.String("member_id", created.MemberID),
		ports.Bool("existing", created.Outcome == domain.VaultExisting),
	)
	return created, nil
}

// SaveMember saves a card for the user, creating the gateway member on first
// use. A member holds exactly one card: saving over an existing member
// replaces the previous card rather than accumulating slots.
func (s *Service) SaveMember(ctx context.Context, userID, token, displayName string) (domain.VaultUpsert, error) {
	if userID == "" {
		return domain.VaultUpsert{}, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "user ID is required")
	}
	if token == "" {
		return domain.VaultUpsert{}, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "card token is required")
	}

	record, err := s.repo.GetByUserID(ctx, userID)
	if err == nil {
		return s.replaceCard(ctx, record.MemberID, token)
	}
	if !errors.Is(err, domain.ErrVaultNotFound) {
		return domain.VaultUpsert{}, fmt.Errorf("failed to look up vault record: %w", err)
	}

	return s.registerMember(ctx, userID, token, displayName)
}

// replaceCard saves the new card under the existing member, then deletes the
// previously active slot so exactly one card remains.
func (s *Service) replaceCard(ctx context.Context, memberID, token string) (domain.VaultUpsert, error) {
	newSeq, err := s.gateway.SaveCard(ctx, memberID, token)
	if err != nil {
		return domain.VaultUpsert{}, fmt.Errorf("failed to save card: %w", err)
	}

	if newSeq != primaryCardSlot {
		if err := s.gateway.DeleteCard(ctx, memberID, primaryCardSlot); err != nil {
			return domain.VaultUpsert{}, fmt.Errorf("failed to delete replaced card: %w", err)
		}
	}

	s.logger.Info("Card replaced",
		ports.String("member_id", memberID),
		ports.Int("card_seq", newSeq),
	)
	return domain.VaultUpsert{Outcome: domain.VaultExisting, MemberID: memberID}, nil
}

// registerMember creates a gateway member, saves the card, then persists the
// vault record. The record is written only after the card save succeeds: if
// the save fails the member is orphaned at the gateway but invisible locally,
// and a later retry simply creates a fresh member.
func (s *Service) registerMember(ctx context.Context, userID, token, displayName string) (domain.VaultUpsert, error) {
	memberID := uuid.NewString()

	if err := s.gateway.SaveMember(ctx, memberID, displayName); err != nil {
		return domain.VaultUpsert{}, fmt.Errorf("failed to register gateway member: %w", err)
	}

	if _, err := s.gateway.SaveCard(ctx, memberID, token); err != nil {
		s.logger.Warn("Card save failed after member registration; member orphaned at gateway",
			ports.String("user_id", userID),
			ports.String("member_id", memberID),
			ports.Err(err),
		)
		return domain.VaultUpsert{}, fmt.Errorf("failed to save card: %w", err)
	}

	created, err := s.createRecord(ctx, userID, memberID)
	if err != nil {
		return domain.VaultUpsert{}, err
	}

	s.logger.Info("Vault member registered",
		ports.String("user_id", userID),
		ports.String("member_id", created.MemberID),
	)
	return created, nil
}

// createRecord persists the vault row. A unique-constraint conflict means a
// concurrent call won the race; the stored record wins and our member is
// abandoned unreferenced.
func (s *Service) createRecord(ctx context.Context, userID, memberID string) (domain.VaultUpsert, error) {
	record := &domain.CardVaultRecord{
		UserID:    userID,
		MemberID:  memberID,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	err := s.repo.Create(ctx, record)
	if err == nil {
		return domain.VaultUpsert{Outcome: domain.VaultCreated, MemberID: memberID}, nil
	}
	if !errors.Is(err, domain.ErrVaultConflict) {
		return domain.VaultUpsert{}, fmt.Errorf("failed to persist vault record: %w", err)
	}

	existing, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return domain.VaultUpsert{}, fmt.Errorf("failed to re-read vault record after conflict: %w", err)
	}
	return domain.VaultUpsert{Outcome: domain.VaultExisting, MemberID: existing.MemberID}, nil
}

// ShowCard lists the user's vaulted cards for display. It never fails: a
// missing vault record or a gateway error yields an empty list, because this
// read must not block checkout.
func (s *Service) ShowCard(ctx context.Context, userID string) []domain.Card {
	record, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrVaultNotFound) {
			s.logger.Warn("Vault lookup failed while listing cards",
				ports.String("user_id", userID),
				ports.Err(err),
			)
		}
		return []domain.Card{}
	}

	cards, err := s.gateway.SearchCard(ctx, record.MemberID)
	if err != nil {
		s.logger.Warn("Gateway card search failed; returning empty list",
			ports.String("member_id", record.MemberID),
			ports.Err(err),
		)
		return []domain.Card{}
	}
	if cards == nil {
		cards = []domain.Card{}
	}
	return cards
}
