package services

import (
	"fmt"
	"log"
	"time"

	"github.com/Serhat17/bonkback-sub000/models"
	apperrors "github.com/Serhat17/bonkback-sub000/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Idempotency keys are derived from the source record and purpose, so a
// retried upstream event can never credit twice.
func ImmediateCreditKey(txID string) string { return fmt.Sprintf("tx:%s:immediate", txID) }

func DeferredCreditKey(txID string) string { return fmt.Sprintf("tx:%s:deferred", txID) }

func ClawbackImmediateKey(txID string) string { return fmt.Sprintf("tx:%s:clawback:immediate", txID) }

func ClawbackDeferredKey(txID string) string { return fmt.Sprintf("tx:%s:clawback:deferred", txID) }
func ReferralCreditKey(payoutID string) string {
	return fmt.Sprintf("referral:%s", payoutID)
}

// maxApplyAttempts bounds the CAS retry loop before the caller sees a
// transient-failure signal. The credit is never silently dropped.
const maxApplyAttempts = 5

// CreditService is the only component allowed to mutate wallet totals.
type CreditService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewCreditService(db *gorm.DB) *CreditService {
	return &CreditService{DB: db, Now: time.Now}
}

// Apply credits amountBonk to the user exactly once per idempotency key.
// Returns applied=false (and no error) when the key was already used.
// Negative amounts are clawbacks and follow the same path with their own key.
func (s *CreditService) Apply(userID string, amountBonk int64, idempotencyKey string) (bool, error) {
	var lastErr error
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		applied, err := s.tryApply(userID, amountBonk, idempotencyKey)
		if err == nil {
			return applied, nil
		}
		if apperrors.Code(err) != apperrors.ErrCodeConcurrencyConflict {
			return false, err
		}
		lastErr = err
	}
	return false, apperrors.Wrap(lastErr, apperrors.ErrCodeConcurrencyConflict,
		fmt.Sprintf("credit %s not applied after %d attempts", idempotencyKey, maxApplyAttempts))
}

// tryApply inserts the credit event and bumps the wallet counter in one
// database transaction. The event insert is an insert-if-absent on the key's
// unique index; the counter bump is a compare-and-swap on the row version.
// Any CAS miss rolls back the event insert with it.
func (s *CreditService) tryApply(userID string, amountBonk int64, idempotencyKey string) (bool, error) {
	applied := false

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		event := models.CreditEvent{
			ID:             uuid.NewString(),
			IdempotencyKey: idempotencyKey,
			UserID:         userID,
			AmountBonk:     amountBonk,
			AppliedAt:      s.Now(),
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).Create(&event)
		if res.Error != nil {
			return apperrors.Wrap(res.Error, apperrors.ErrCodeUnavailable, "failed to insert credit event")
		}
		if res.RowsAffected == 0 {
			// Key already used — exactly-once guarantee holds, nothing to do.
			return nil
		}

		var wallet models.WalletBalance
		err := tx.Where("user_id = ?", userID).First(&wallet).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			fresh := models.WalletBalance{
				ID:        uuid.NewString(),
				UserID:    userID,
				TotalBonk: amountBonk,
				Version:   1,
			}
			createRes := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}},
				DoNothing: true,
			}).Create(&fresh)
			if createRes.Error != nil {
				return apperrors.Wrap(createRes.Error, apperrors.ErrCodeUnavailable, "failed to create wallet row")
			}
			if createRes.RowsAffected == 0 {
				// Lost the creation race — retry against the existing row.
				return apperrors.New(apperrors.ErrCodeConcurrencyConflict, "wallet row created concurrently")
			}
		case err != nil:
			return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to read wallet row")
		default:
			update := tx.Model(&models.WalletBalance{}).
				Where("user_id = ? AND version = ?", userID, wallet.Version).
				Updates(map[string]interface{}{
					"total_bonk": wallet.TotalBonk + amountBonk,
					"version":    wallet.Version + 1,
				})
			if update.Error != nil {
				return apperrors.Wrap(update.Error, apperrors.ErrCodeUnavailable, "failed to update wallet total")
			}
			if update.RowsAffected == 0 {
				return apperrors.New(apperrors.ErrCodeConcurrencyConflict, "wallet version moved")
			}
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// OutstandingForTransaction nets the release credits applied for a
// transaction against the clawbacks already recorded for it. A returned
// transaction with a non-zero outstanding amount still owes money back.
func (s *CreditService) OutstandingForTransaction(txID string) (int64, error) {
	var total int64
	err := s.DB.Model(&models.CreditEvent{}).
		Where("idempotency_key IN ?", []string{
			ImmediateCreditKey(txID), DeferredCreditKey(txID),
			ClawbackImmediateKey(txID), ClawbackDeferredKey(txID),
		}).
		Select("COALESCE(SUM(amount_bonk), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to sum transaction credits")
	}
	return total, nil
}

// ClawbackCredits reverses every release credit applied for a returned
// transaction. Each leg is reversed under its own key sized from the credit
// event it mirrors, so a repeat call — or a call racing the release sweep —
// claws each leg back at most once. Returns how many reversals this call
// applied.
func (s *CreditService) ClawbackCredits(txID string) (int, error) {
	legs := []struct {
		creditKey   string
		clawbackKey string
	}{
		{ImmediateCreditKey(txID), ClawbackImmediateKey(txID)},
		{DeferredCreditKey(txID), ClawbackDeferredKey(txID)},
	}

	clawed := 0
	for _, leg := range legs {
		var event models.CreditEvent
		err := s.DB.Where("idempotency_key = ?", leg.creditKey).First(&event).Error
		if err == gorm.ErrRecordNotFound {
			continue // leg never released, nothing to reverse
		}
		if err != nil {
			return clawed, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to load release credit")
		}

		applied, err := s.Apply(event.UserID, -event.AmountBonk, leg.clawbackKey)
		if err != nil {
			return clawed, err
		}
		if applied {
			clawed++
		}
	}
	return clawed, nil
}

// ReconcileReturnedCredits walks returned transactions and reverses any
// release credit not yet matched by a clawback. This is the convergence
// backstop for the two races the reactive path cannot see: a release sweep
// that credited a leg after the return was marked, and a clawback that
// failed at return-marking time.
func (s *CreditService) ReconcileReturnedCredits() (int, error) {
	var txs []models.CashbackTransaction
	if err := s.DB.Where("is_returned = ?", true).Find(&txs).Error; err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to load returned transactions")
	}

	reconciled := 0
	for i := range txs {
		outstanding, err := s.OutstandingForTransaction(txs[i].ID)
		if err != nil {
			log.Printf("⚠️ [RECONCILE] Could not size residual for tx %s: %v", txs[i].ID, err)
			continue
		}
		if outstanding == 0 {
			continue
		}

		clawed, err := s.ClawbackCredits(txs[i].ID)
		if err != nil {
			log.Printf("❌ [RECONCILE] Clawback failed for tx %s: %v", txs[i].ID, err)
			continue
		}
		reconciled += clawed
	}
	return reconciled, nil
}

// ReleaseDueCredits walks approved, non-returned transactions whose release
// timestamps have passed and applies the matching credits. Safe to run on a
// timer and to overlap with the reactive path after approval — every credit
// is keyed. A transaction moves to paid once both legs are credited.
func (s *CreditService) ReleaseDueCredits() (int, error) {
	now := s.Now()

	var txs []models.CashbackTransaction
	if err := s.DB.
		Where("status = ? AND is_returned = ? AND available_from_immediate <= ?",
			models.TransactionStatusApproved, false, now).
		Find(&txs).Error; err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to load due transactions")
	}

	released := 0
	for i := range txs {
		t := &txs[i]

		applied, err := s.Apply(t.UserID, t.ImmediateAmount, ImmediateCreditKey(t.ID))
		if err != nil {
			log.Printf("❌ [RELEASE] Immediate credit failed for tx %s: %v", t.ID, err)
			continue
		}
		if applied {
			released++
		}

		if t.AvailableFromDeferred == nil || now.Before(*t.AvailableFromDeferred) {
			continue
		}

		applied, err = s.Apply(t.UserID, t.DeferredAmount, DeferredCreditKey(t.ID))
		if err != nil {
			log.Printf("❌ [RELEASE] Deferred credit failed for tx %s: %v", t.ID, err)
			continue
		}
		if applied {
			released++
		}

		// Fully released → paid. Guarded so a concurrent return keeps its state.
		if err := s.DB.Model(&models.CashbackTransaction{}).
			Where("id = ? AND status = ? AND is_returned = ?", t.ID, models.TransactionStatusApproved, false).
			Update("status", models.TransactionStatusPaid).Error; err != nil {
			log.Printf("⚠️ [RELEASE] Failed to mark tx %s paid: %v", t.ID, err)
		}
	}

	return released, nil
}
