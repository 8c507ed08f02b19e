package models

// Offer is a merchant cashback offer. Percentage is stored in basis points
// (550 = 5.5%) so the cashback math stays in integers.
type Offer struct {
	ID                  string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	MerchantName        string `gorm:"not null" json:"merchant_name"`
	Title               string `gorm:"not null" json:"title"`
	Slug                string `gorm:"uniqueIndex;not null" json:"slug"`
	Category            string `gorm:"index" json:"category"` // empty = uncategorized
	CashbackBasisPoints int64  `gorm:"not null" json:"cashback_basis_points"`
	MaxCashbackCents    *int64 `json:"max_cashback_cents,omitempty"` // nil = uncapped
	ReturnWindowDays    int    `gorm:"not null;default:14" json:"return_window_days"`
	IsActive            bool   `gorm:"not null;default:true" json:"is_active"`

	Timestamps
}
