package models

// WalletBalance is the running cumulative BONK total per user, kept
// consistent with credit events by CreditApplier: the row is only ever
// bumped in the same transaction that inserts the event, guarded by the
// Version compare-and-swap.
type WalletBalance struct {
	ID        string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	UserID    string `gorm:"uniqueIndex;not null" json:"user_id"`
	TotalBonk int64  `gorm:"not null;default:0" json:"total_bonk"`
	Version   int64  `gorm:"not null;default:0" json:"version"`

	Timestamps
}

// WalletBalanceSnapshot is the derived wallet view. Computed at query time
// by the balance aggregator, never persisted as source of truth.
type WalletBalanceSnapshot struct {
	TotalBonk     int64 `json:"total_bonk"`
	LockedBonk    int64 `json:"locked_bonk"`
	AvailableBonk int64 `json:"available_bonk"`
	PendingBonk   int64 `json:"pending_bonk"`

	// Degraded is set when the running counter was unreachable and the
	// total had to be recomputed from raw credit events.
	Degraded bool `json:"degraded,omitempty"`
}
