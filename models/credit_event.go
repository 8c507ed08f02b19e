package models

import "time"

// CreditEvent is the append-only idempotency record behind every balance
// mutation. The IdempotencyKey is a stable key derived from the source record
// and purpose (e.g. "tx:<id>:immediate", "referral:<id>", "tx:<id>:clawback:immediate");
// its unique index is the sole guard against double-crediting. Rows are never
// updated or deleted. Clawbacks are negative-amount events with their own key.
type CreditEvent struct {
	ID             string    `gorm:"primaryKey;type:uuid;not null" json:"id"`
	IdempotencyKey string    `gorm:"uniqueIndex;not null" json:"idempotency_key"`
	UserID         string    `gorm:"index;not null" json:"user_id"`
	AmountBonk     int64     `gorm:"not null" json:"amount_bonk"`
	AppliedAt      time.Time `gorm:"not null" json:"applied_at"`
}
