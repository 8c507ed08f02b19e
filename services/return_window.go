package services

import (
	"time"

	"github.com/Serhat17/bonkback-sub000/models"
)

// AvailableAmount computes how much of a transaction's reward is spendable at
// `now`. Zero for returned transactions, whatever the clock says — a return
// invalidates both legs, including an immediate portion whose timestamp had
// already passed. The immediate leg is exposed before the return window
// closes; it is at risk until the window ends, and a recorded return claws it
// back via a negative credit event rather than by editing the ledger.
func AvailableAmount(tx *models.CashbackTransaction, now time.Time) int64 {
	if tx.IsReturned {
		return 0
	}
	if tx.Status == models.TransactionStatusPending {
		return 0
	}

	var available int64
	if tx.AvailableFromImmediate != nil && !now.Before(*tx.AvailableFromImmediate) {
		available += tx.ImmediateAmount
	}
	if tx.AvailableFromDeferred != nil && !now.Before(*tx.AvailableFromDeferred) {
		available += tx.DeferredAmount
	}
	return available
}

// PendingAmount is the portion of the reward not yet spendable at `now`.
// Zero for returned transactions (nothing further will release).
func PendingAmount(tx *models.CashbackTransaction, now time.Time) int64 {
	if tx.IsReturned {
		return 0
	}
	return tx.BonkAmount - AvailableAmount(tx, now)
}

// ReturnWindowOpen reports whether the merchant can still reverse the
// transaction. The window is anchored at the purchase date and frozen onto
// the row at approval; an unapproved transaction has no window yet and
// cannot be returned.
func ReturnWindowOpen(tx *models.CashbackTransaction, now time.Time) bool {
	if tx.ReturnWindowEndsAt == nil {
		return false
	}
	return !now.After(*tx.ReturnWindowEndsAt)
}
