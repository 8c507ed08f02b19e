package models

import "time"

// ReferralPayoutStatus is the two-state lifecycle of a referral payout.
// locked → unlocked happens exactly once; there is no way back.
type ReferralPayoutStatus string

const (
	ReferralPayoutLocked   ReferralPayoutStatus = "locked"
	ReferralPayoutUnlocked ReferralPayoutStatus = "unlocked"
)

// ReferralPayout is a locked reward created when a referral is claimed.
// It unlocks when the referred user's cumulative approved purchase volume
// reaches RequiredThresholdCents, crediting BeneficiaryID (usually the
// referrer — kept separate for multi-tier setups).
type ReferralPayout struct {
	ID             string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	ReferrerID     string `gorm:"index;not null" json:"referrer_id"`           // ExternalUserID
	ReferredUserID string `gorm:"uniqueIndex;not null" json:"referred_user_id"` // one claim per referred user
	BeneficiaryID  string `gorm:"index;not null" json:"beneficiary_id"`

	ReferralCodeUsed string `gorm:"not null" json:"referral_code_used"`

	AmountBonk             int64 `gorm:"not null" json:"amount_bonk"`
	RequiredThresholdCents int64 `gorm:"not null" json:"required_threshold_cents"`

	Status     ReferralPayoutStatus `gorm:"not null;default:'locked';index" json:"status"`
	UnlockedAt *time.Time           `json:"unlocked_at,omitempty"`

	Timestamps
}
