package models

import "time"

// ConversionRate mirrors the price service's BONK conversion rate.
// BonkPerUnit is BONK per whole fiat unit (1000 = 1 USD → 1000 BONK).
// Transaction creation reads the latest row and freezes the value onto the
// transaction; the mirror is refreshed by the rate sync worker.
type ConversionRate struct {
	ID           string    `gorm:"primaryKey;type:uuid;not null" json:"id"`
	Token        string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_rate_pair" json:"token"`
	FiatCurrency string    `gorm:"type:varchar(8);not null;uniqueIndex:idx_rate_pair" json:"fiat_currency"`
	BonkPerUnit  int64     `gorm:"not null" json:"bonk_per_unit"`
	FetchedAt    time.Time `gorm:"not null" json:"fetched_at"`

	Timestamps
}
