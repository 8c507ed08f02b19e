package services

import (
	"log"
	"time"

	"github.com/Serhat17/bonkback-sub000/models"
	apperrors "github.com/Serhat17/bonkback-sub000/pkg/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferralTerms define the payout created per claim (tunable via config/env later)
type ReferralTerms struct {
	RewardBonk     int64
	ThresholdCents int64
}

var DefaultReferralTerms = ReferralTerms{
	RewardBonk:     5000,
	ThresholdCents: 5000, // referred user must spend $50 across approved purchases
}

// ReferralService creates locked payouts at claim time and unlocks them when
// the referred user's qualifying activity crosses the threshold.
type ReferralService struct {
	DB      *gorm.DB
	Credits *CreditService
	Terms   ReferralTerms
	Now     func() time.Time
}

func NewReferralService(db *gorm.DB, credits *CreditService) *ReferralService {
	return &ReferralService{
		DB:      db,
		Credits: credits,
		Terms:   DefaultReferralTerms,
		Now:     time.Now,
	}
}

// ClaimReferral resolves a referral code and creates the locked payout for
// the referrer. One claim per referred user; retried claims return the
// existing payout.
func (s *ReferralService) ClaimReferral(referredUserID, referralCode string) (*models.ReferralPayout, error) {
	if referredUserID == "" || referralCode == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "referred user id and referral code are required")
	}

	var existing models.ReferralPayout
	err := s.DB.Where("referred_user_id = ?", referredUserID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to check existing claim")
	}

	var referrer models.CashbackUser
	if err := s.DB.Where("referral_code = ?", referralCode).First(&referrer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.ErrCodeValidation, "unknown referral code")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to resolve referral code")
	}
	if referrer.ExternalUserID == referredUserID {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "cannot claim your own referral code")
	}

	payout := models.ReferralPayout{
		ID:                     uuid.NewString(),
		ReferrerID:             referrer.ExternalUserID,
		ReferredUserID:         referredUserID,
		BeneficiaryID:          referrer.ExternalUserID,
		ReferralCodeUsed:       referralCode,
		AmountBonk:             s.Terms.RewardBonk,
		RequiredThresholdCents: s.Terms.ThresholdCents,
		Status:                 models.ReferralPayoutLocked,
	}

	res := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "referred_user_id"}},
		DoNothing: true,
	}).Create(&payout)
	if res.Error != nil {
		return nil, apperrors.Wrap(res.Error, apperrors.ErrCodeUnavailable, "failed to create referral payout")
	}
	if res.RowsAffected == 0 {
		// Lost the claim race — whatever won is the claim.
		if err := s.DB.Where("referred_user_id = ?", referredUserID).First(&payout).Error; err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to load winning claim")
		}
	}

	return &payout, nil
}

// QualifyingVolume is the referred user's cumulative approved purchase volume
// in fiat minor units. Returned transactions do not count.
func (s *ReferralService) QualifyingVolume(userID string) (int64, error) {
	var total int64
	err := s.DB.Model(&models.CashbackTransaction{}).
		Where("user_id = ? AND status IN ? AND is_returned = ?",
			userID,
			[]models.TransactionStatus{models.TransactionStatusApproved, models.TransactionStatusPaid},
			false).
		Select("COALESCE(SUM(purchase_cents), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to sum qualifying volume")
	}
	return total, nil
}

// EvaluateUnlock checks one payout against the referred user's activity and
// unlocks it if the threshold is met. Safe to call repeatedly: the credit is
// keyed on the payout id and the flip is guarded on status = locked, so the
// event-driven path and the sweep converge on the same end state. Returns
// whether this call performed the unlock.
func (s *ReferralService) EvaluateUnlock(payoutID string) (bool, error) {
	var payout models.ReferralPayout
	if err := s.DB.Where("id = ?", payoutID).First(&payout).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, apperrors.New(apperrors.ErrCodeNotFound, "referral payout not found")
		}
		return false, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to load referral payout")
	}

	if payout.Status == models.ReferralPayoutUnlocked {
		return false, nil
	}

	volume, err := s.QualifyingVolume(payout.ReferredUserID)
	if err != nil {
		return false, err
	}
	if volume < payout.RequiredThresholdCents {
		return false, nil
	}

	// Credit first: the idempotency key makes a crash between credit and
	// flip harmless — the next evaluation re-applies as a no-op and flips.
	if _, err := s.Credits.Apply(payout.BeneficiaryID, payout.AmountBonk, ReferralCreditKey(payout.ID)); err != nil {
		return false, err
	}

	res := s.DB.Model(&models.ReferralPayout{}).
		Where("id = ? AND status = ?", payoutID, models.ReferralPayoutLocked).
		Updates(map[string]interface{}{
			"status":      models.ReferralPayoutUnlocked,
			"unlocked_at": s.Now(),
		})
	if res.Error != nil {
		return false, apperrors.Wrap(res.Error, apperrors.ErrCodeUnavailable, "failed to unlock referral payout")
	}

	return res.RowsAffected == 1, nil
}

// UnlockDuePayouts evaluates every locked payout the user touches — as the
// referred user whose activity just changed, or as a beneficiary asking for
// a catch-up. Used reactively after a qualifying approval and from the
// periodic sweep.
func (s *ReferralService) UnlockDuePayouts(userID string) error {
	var payouts []models.ReferralPayout
	if err := s.DB.
		Where("status = ? AND (referred_user_id = ? OR beneficiary_id = ?)",
			models.ReferralPayoutLocked, userID, userID).
		Find(&payouts).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to load locked payouts")
	}

	for i := range payouts {
		if _, err := s.EvaluateUnlock(payouts[i].ID); err != nil {
			log.Printf("⚠️ [REFERRAL] Unlock evaluation failed for payout %s: %v", payouts[i].ID, err)
		}
	}
	return nil
}

// SweepLockedPayouts evaluates all locked payouts. Scheduled as the
// correctness backstop for thresholds crossed by events the reactive path
// never saw.
func (s *ReferralService) SweepLockedPayouts() (int, error) {
	var payouts []models.ReferralPayout
	if err := s.DB.Where("status = ?", models.ReferralPayoutLocked).Find(&payouts).Error; err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to load locked payouts")
	}

	unlocked := 0
	for i := range payouts {
		did, err := s.EvaluateUnlock(payouts[i].ID)
		if err != nil {
			log.Printf("⚠️ [REFERRAL] Sweep evaluation failed for payout %s: %v", payouts[i].ID, err)
			continue
		}
		if did {
			unlocked++
		}
	}
	return unlocked, nil
}

// --- HTTP handlers ---

// ClaimReferralHandler handles POST /s/referrals/claim
func (s *ReferralService) ClaimReferralHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		ReferralCode string `json:"referral_code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	payout, err := s.ClaimReferral(userID, req.ReferralCode)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(payout)
}

// UnlockPayoutsHandler handles POST /s/referrals/unlock
func (s *ReferralService) UnlockPayoutsHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	if err := s.UnlockDuePayouts(userID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "OK"})
}
