package services

import (
	"log"
	"strconv"
	"time"

	"github.com/Serhat17/bonkback-sub000/models"
	apperrors "github.com/Serhat17/bonkback-sub000/pkg/errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// BalanceService is the read side: it combines the wallet counter, locks,
// referral holds and per-transaction availability into one snapshot. It
// mutates nothing, and two snapshots taken with no intervening write are
// identical for the same clock reading.
type BalanceService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewBalanceService(db *gorm.DB) *BalanceService {
	return &BalanceService{DB: db, Now: time.Now}
}

// PayoutEligibility is the typed result of a payout check. Insufficient
// balance is a result, not an error.
type PayoutEligibility struct {
	Eligible      bool  `json:"eligible"`
	AvailableBonk int64 `json:"available_bonk"`
}

// Balances computes the wallet view for a user at the current time.
// If the running counter is unreachable the total is recomputed from raw
// credit events and the snapshot is flagged degraded — the read path bends,
// it does not fail.
func (s *BalanceService) Balances(userID string) (models.WalletBalanceSnapshot, error) {
	now := s.Now()
	snap := models.WalletBalanceSnapshot{}

	var wallet models.WalletBalance
	err := s.DB.Where("user_id = ?", userID).First(&wallet).Error
	switch {
	case err == nil:
		snap.TotalBonk = wallet.TotalBonk
	case err == gorm.ErrRecordNotFound:
		// No credits yet.
	default:
		log.Printf("⚠️ [BALANCE] Wallet counter unreachable for %s, recomputing from credit events: %v", userID, err)
		total, sumErr := s.totalFromEvents(userID)
		if sumErr != nil {
			return snap, apperrors.Wrap(sumErr, apperrors.ErrCodeUnavailable, "could not determine balance")
		}
		snap.TotalBonk = total
		snap.Degraded = true
	}

	var lockedHolds int64
	if err := s.DB.Model(&models.BonkLock{}).
		Where("user_id = ? AND released_at IS NULL AND (unlock_at IS NULL OR unlock_at > ?)", userID, now).
		Select("COALESCE(SUM(amount_bonk), 0)").
		Scan(&lockedHolds).Error; err != nil {
		return snap, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to sum locks")
	}

	var lockedReferrals int64
	if err := s.DB.Model(&models.ReferralPayout{}).
		Where("beneficiary_id = ? AND status = ?", userID, models.ReferralPayoutLocked).
		Select("COALESCE(SUM(amount_bonk), 0)").
		Scan(&lockedReferrals).Error; err != nil {
		return snap, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to sum locked referrals")
	}

	snap.LockedBonk = lockedHolds + lockedReferrals

	var txs []models.CashbackTransaction
	if err := s.DB.Where("user_id = ? AND is_returned = ?", userID, false).
		Find(&txs).Error; err != nil {
		return snap, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to load transactions")
	}
	var pendingTx int64
	for i := range txs {
		pendingTx += PendingAmount(&txs[i], now)
	}
	snap.PendingBonk = pendingTx + lockedReferrals

	snap.AvailableBonk = snap.TotalBonk - snap.LockedBonk
	if snap.AvailableBonk < 0 {
		snap.AvailableBonk = 0
	}

	return snap, nil
}

func (s *BalanceService) totalFromEvents(userID string) (int64, error) {
	var total int64
	err := s.DB.Model(&models.CreditEvent{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount_bonk), 0)").
		Scan(&total).Error
	return total, err
}

// CheckPayoutEligibility reports whether requestedAmount is spendable right
// now, always alongside the actual available figure.
func (s *BalanceService) CheckPayoutEligibility(userID string, requestedAmount int64) (PayoutEligibility, error) {
	if requestedAmount <= 0 {
		return PayoutEligibility{}, apperrors.New(apperrors.ErrCodeValidation, "requested amount must be positive")
	}

	snap, err := s.Balances(userID)
	if err != nil {
		return PayoutEligibility{}, err
	}

	return PayoutEligibility{
		Eligible:      requestedAmount <= snap.AvailableBonk,
		AvailableBonk: snap.AvailableBonk,
	}, nil
}

// --- HTTP handlers ---

// GetWalletBalancesHandler handles GET /s/wallet/balances
func (s *BalanceService) GetWalletBalancesHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	snap, err := s.Balances(userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(snap)
}

// PayoutEligibilityHandler handles GET /s/wallet/payout-eligibility?amount=
func (s *BalanceService) PayoutEligibilityHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	amount, err := strconv.ParseInt(c.Query("amount"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid amount parameter"})
	}

	result, err := s.CheckPayoutEligibility(userID, amount)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}
