package models

import "time"

// TransactionStatus is the lifecycle state of a cashback transaction
type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusApproved TransactionStatus = "approved"
	TransactionStatusPaid     TransactionStatus = "paid"
)

// TransactionSource tags where a transaction came from
type TransactionSource string

const (
	TransactionSourceLive TransactionSource = "live"
	TransactionSourceDemo TransactionSource = "demo"
)

// CashbackTransaction is one reward-producing purchase. Fiat amounts are in
// minor units (cents); BONK amounts are whole token units. BonkAmount is
// computed once at creation from the conversion rate frozen onto the row and
// is never recomputed from a live price.
type CashbackTransaction struct {
	ID      string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	UserID  string `gorm:"index;not null" json:"user_id"` // ExternalUserID
	OfferID string `gorm:"index;not null" json:"offer_id"`

	PurchaseCents int64 `gorm:"not null" json:"purchase_cents"`
	CashbackCents int64 `gorm:"not null" json:"cashback_cents"`
	BonkAmount    int64 `gorm:"not null" json:"bonk_amount"`
	BonkPerUnit   int64 `gorm:"not null" json:"bonk_per_unit"` // frozen conversion rate (BONK per whole fiat unit)

	Status TransactionStatus `gorm:"not null;default:'pending';index" json:"status"`

	// Source variant: live transactions carry the merchant order id,
	// demo ones a scenario label. Never both.
	Source          TransactionSource `gorm:"not null;default:'live'" json:"source"`
	MerchantOrderID string            `gorm:"index" json:"merchant_order_id,omitempty"`
	DemoScenario    string            `json:"demo_scenario,omitempty"`

	PurchaseDate       time.Time  `gorm:"not null" json:"purchase_date"`
	ApprovedDate       *time.Time `json:"approved_date,omitempty"`
	ReturnWindowEndsAt *time.Time `json:"return_window_ends_at,omitempty"`

	// Release split, populated at approval from the policy in effect then.
	ImmediateAmount        int64      `json:"immediate_amount"`
	DeferredAmount         int64      `json:"deferred_amount"`
	AvailableFromImmediate *time.Time `json:"available_from_immediate,omitempty"`
	AvailableFromDeferred  *time.Time `json:"available_from_deferred,omitempty"`

	IsReturned bool       `gorm:"not null;default:false;index" json:"is_returned"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`

	Timestamps
}

// TransactionView is the per-transaction availability projection returned by
// the available-cashback endpoint. Derived at query time, never persisted.
type TransactionView struct {
	TransactionID   string            `json:"transaction_id"`
	OfferID         string            `json:"offer_id"`
	Status          TransactionStatus `json:"status"`
	BonkAmount      int64             `json:"bonk_amount"`
	AvailableAmount int64             `json:"available_amount"`
	PendingAmount   int64             `json:"pending_amount"`
	IsReturned      bool              `json:"is_returned"`
	PurchaseDate    time.Time         `json:"purchase_date"`
}
