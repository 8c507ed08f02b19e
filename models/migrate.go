package models

import "gorm.io/gorm"

// AutoMigrate runs the schema migration for every table this service owns.
// Shared between main and the test harness so the list never drifts.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Offer{},
		&CashbackPolicy{},
		&CashbackTransaction{},
		&ReferralPayout{},
		&BonkLock{},
		&CreditEvent{},
		&WalletBalance{},
		&ConversionRate{},
		&CashbackUser{},
		&WalletStatement{},
	)
}
