package models

import "time"

// WalletStatement records a generated monthly statement export. The statement
// body lives in R2; this row just remembers where it went. Derived data —
// never consulted by the ledger itself.
type WalletStatement struct {
	ID          string    `gorm:"primaryKey;type:uuid;not null" json:"id"`
	UserID      string    `gorm:"index;not null" json:"user_id"`
	PeriodStart time.Time `gorm:"not null" json:"period_start"`
	PeriodEnd   time.Time `gorm:"not null" json:"period_end"`
	ObjectKey   string    `gorm:"not null" json:"object_key"`
	URL         string    `gorm:"not null" json:"url"`
	GeneratedAt time.Time `gorm:"not null" json:"generated_at"`

	Timestamps
}
