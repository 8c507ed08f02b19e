package models

import "time"

// BonkLock is a compliance/risk hold on part of a user's balance, distinct
// from referral locks. Released either when UnlockAt elapses (scheduler) or
// by explicit admin action; ReleasedAt is stamped either way.
type BonkLock struct {
	ID         string     `gorm:"primaryKey;type:uuid;not null" json:"id"`
	UserID     string     `gorm:"index;not null" json:"user_id"`
	AmountBonk int64      `gorm:"not null" json:"amount_bonk"`
	Reason     string     `gorm:"not null" json:"reason"`
	LockedAt   time.Time  `gorm:"not null" json:"locked_at"`
	UnlockAt   *time.Time `json:"unlock_at,omitempty"` // nil = held until admin release
	ReleasedAt *time.Time `gorm:"index" json:"released_at,omitempty"`

	Timestamps
}

// Active reports whether the lock still reduces the user's available balance.
func (l *BonkLock) Active(now time.Time) bool {
	if l.ReleasedAt != nil {
		return false
	}
	if l.UnlockAt != nil && !now.Before(*l.UnlockAt) {
		return false
	}
	return true
}
