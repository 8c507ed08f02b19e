package models

import (
	"time"

	"gorm.io/gorm"
)

// CashbackUser is a local snapshot of profile-service user data needed by the
// cashback core: identity plus the referral code that claim requests resolve.
// Populated via sync worker from the profile service.
type CashbackUser struct {
	ID             string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // profile service UUID
	Username       string `gorm:"index;not null" json:"username"`
	Email          string `json:"email,omitempty"`
	ReferralCode   string `gorm:"uniqueIndex;not null" json:"referral_code"`
	IsBanned       bool   `gorm:"default:false" json:"is_banned"` // local risk ban, blocks new rewards

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
