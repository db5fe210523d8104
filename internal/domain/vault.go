package domain

import "time"

// CardVaultRecord maps a local user identity to a gateway-side member.
// At most one non-deleted record exists per user; the member ID is assigned
// exactly once and never changes for a given user.
type CardVaultRecord struct {
	UserID    string
	MemberID  string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Card is a card stored at the gateway under a member, as returned by
// SearchCard. The card number is masked by the gateway.
type Card struct {
	CardSeq    int    `json:"card_seq"`
	CardNo     string `json:"card_no"`
	Expire     string `json:"expire"`
	HolderName string `json:"holder_name,omitempty"`
}

// VaultOutcome tags whether a vault upsert reused an existing member or
// created a new one.
type VaultOutcome string

const (
	VaultExisting VaultOutcome = "existing"
	VaultCreated  VaultOutcome = "created"
)

// VaultUpsert is the result of resolving a user to a gateway member.
type VaultUpsert struct {
	Outcome  VaultOutcome
	MemberID string
}
