package models

// CashbackPolicy controls how an approved reward is released: the
// immediate-release percentage and the delay before the deferred leg.
// One row with Category == "" is the global policy; category rows override it.
// The policy in effect is frozen onto the transaction at approval time —
// later policy edits never touch existing transactions.
type CashbackPolicy struct {
	ID                       string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	Category                 string `gorm:"uniqueIndex" json:"category"` // "" = global
	ImmediateReleasePercent  int    `gorm:"not null" json:"immediate_release_percent"`
	DeferredReleaseDelayDays int    `gorm:"not null" json:"deferred_release_delay_days"`

	Timestamps
}
