package services

import (
	"log"
	"time"

	"github.com/Serhat17/bonkback-sub000/models"
	apperrors "github.com/Serhat17/bonkback-sub000/pkg/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversion rates are mirrored per token/fiat pair; the ledger only ever
// reads this one.
const (
	BonkToken           = "BONK"
	DefaultFiatCurrency = "USD"
)

// LedgerService owns the cashback transaction lifecycle:
// pending → approved (split annotated) → paid, with an irreversible
// return flag in between.
type LedgerService struct {
	DB        *gorm.DB
	Policies  *PolicyService
	Credits   *CreditService
	Referrals *ReferralService
	Now       func() time.Time
}

func NewLedgerService(db *gorm.DB, policies *PolicyService, credits *CreditService, referrals *ReferralService) *LedgerService {
	return &LedgerService{
		DB:        db,
		Policies:  policies,
		Credits:   credits,
		Referrals: referrals,
		Now:       time.Now,
	}
}

// CreatePurchaseCashback records a live purchase as a pending transaction.
// The cashback amount is recomputed here from the offer — never trusted from
// the client — and the BONK amount is frozen from the mirrored conversion
// rate. Retried calls with the same merchant order id return the existing row.
func (s *LedgerService) CreatePurchaseCashback(userID, offerID string, purchaseCents int64, merchantOrderID string) (*models.CashbackTransaction, error) {
	return s.createTransaction(userID, offerID, purchaseCents, models.TransactionSourceLive, merchantOrderID, "")
}

// CreateDemoCashback records a simulated purchase, tagged with its scenario.
// Demo rows go through the identical pipeline so the read path never needs
// to guess shape.
func (s *LedgerService) CreateDemoCashback(userID, offerID string, purchaseCents int64, scenario string) (*models.CashbackTransaction, error) {
	return s.createTransaction(userID, offerID, purchaseCents, models.TransactionSourceDemo, "", scenario)
}

func (s *LedgerService) createTransaction(userID, offerID string, purchaseCents int64, source models.TransactionSource, merchantOrderID, scenario string) (*models.CashbackTransaction, error) {
	if userID == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "user id is required")
	}
	if purchaseCents <= 0 {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "purchase amount must be positive")
	}

	// Retried delivery of the same order must not create a second reward.
	if merchantOrderID != "" {
		var existing models.CashbackTransaction
		err := s.DB.Where("merchant_order_id = ?", merchantOrderID).First(&existing).Error
		if err == nil {
			return &existing, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to check merchant order id")
		}
	}

	var offer models.Offer
	if err := s.DB.Where("id = ?", offerID).First(&offer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.ErrCodeValidation, "unknown offer")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to load offer")
	}
	if !offer.IsActive {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "offer is not active")
	}

	var user models.CashbackUser
	if err := s.DB.Where("external_user_id = ?", userID).First(&user).Error; err == nil && user.IsBanned {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "user is blocked from earning rewards")
	}

	cashbackCents := purchaseCents * offer.CashbackBasisPoints / 10000
	if offer.MaxCashbackCents != nil && cashbackCents > *offer.MaxCashbackCents {
		cashbackCents = *offer.MaxCashbackCents
	}

	var rate models.ConversionRate
	if err := s.DB.Where("token = ? AND fiat_currency = ?", BonkToken, DefaultFiatCurrency).
		Order("fetched_at DESC").First(&rate).Error; err != nil {
		// Without a mirrored rate we cannot freeze bonk_amount; the write
		// path must not guess.
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "no conversion rate available")
	}

	tx := &models.CashbackTransaction{
		ID:              uuid.NewString(),
		UserID:          userID,
		OfferID:         offer.ID,
		PurchaseCents:   purchaseCents,
		CashbackCents:   cashbackCents,
		BonkAmount:      cashbackCents * rate.BonkPerUnit / 100,
		BonkPerUnit:     rate.BonkPerUnit,
		Status:          models.TransactionStatusPending,
		Source:          source,
		MerchantOrderID: merchantOrderID,
		DemoScenario:    scenario,
		PurchaseDate:    s.Now(),
	}

	if err := s.DB.Create(tx).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to create transaction")
	}

	return tx, nil
}

// Approve transitions pending → approved, freezing the release split and the
// return window onto the row. Approving an already-approved or paid
// transaction is a no-op so upstream retries are harmless. The guarded
// UPDATE (status = pending in the WHERE) makes concurrent approvals collapse
// to one.
func (s *LedgerService) Approve(txID string) (*models.CashbackTransaction, error) {
	var row models.CashbackTransaction
	var freshlyApproved bool

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", txID).First(&row).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperrors.New(apperrors.ErrCodeNotFound, "transaction not found")
			}
			return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to load transaction")
		}

		if row.Status != models.TransactionStatusPending {
			return nil // already approved or paid
		}

		var offer models.Offer
		if err := tx.Where("id = ?", row.OfferID).First(&offer).Error; err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to load offer for approval")
		}

		now := s.Now()
		policy := s.Policies.CurrentPolicy(offer.Category)
		plan := SplitRelease(row.BonkAmount, policy, now)
		windowEnd := row.PurchaseDate.AddDate(0, 0, offer.ReturnWindowDays)

		res := tx.Model(&models.CashbackTransaction{}).
			Where("id = ? AND status = ?", txID, models.TransactionStatusPending).
			Updates(map[string]interface{}{
				"status":                   models.TransactionStatusApproved,
				"approved_date":            now,
				"return_window_ends_at":    windowEnd,
				"immediate_amount":         plan.ImmediateAmount,
				"deferred_amount":          plan.DeferredAmount,
				"available_from_immediate": plan.AvailableFromImmediate,
				"available_from_deferred":  plan.AvailableFromDeferred,
			})
		if res.Error != nil {
			return apperrors.Wrap(res.Error, apperrors.ErrCodeUnavailable, "failed to approve transaction")
		}
		freshlyApproved = res.RowsAffected == 1

		return tx.Where("id = ?", txID).First(&row).Error
	})
	if err != nil {
		return nil, err
	}

	if freshlyApproved {
		// Reactive release of the immediate leg; the sweep is the backstop.
		if _, err := s.Credits.Apply(row.UserID, row.ImmediateAmount, ImmediateCreditKey(row.ID)); err != nil {
			log.Printf("⚠️ [LEDGER] Immediate credit deferred to sweep for tx %s: %v", row.ID, err)
		}
		// The approval may have pushed the user's qualifying volume over a
		// referral threshold.
		if err := s.Referrals.UnlockDuePayouts(row.UserID); err != nil {
			log.Printf("⚠️ [LEDGER] Referral unlock after approval failed for user %s: %v", row.UserID, err)
		}
	}

	return &row, nil
}

// MarkReturned flags a transaction as reversed by the merchant. Legal only
// from approved or paid and only while the return window is open; the flag is
// irreversible. Any amount already credited for the transaction is clawed
// back as negative credit events — the ledger itself is never edited. A
// retried call on an already-returned row re-runs the clawback, so a reversal
// that failed the first time is recovered on retry (the reconcile sweep is
// the backstop when no retry arrives).
func (s *LedgerService) MarkReturned(txID string) (*models.CashbackTransaction, error) {
	var row models.CashbackTransaction
	if err := s.DB.Where("id = ?", txID).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.ErrCodeNotFound, "transaction not found")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to load transaction")
	}

	if row.IsReturned {
		if _, err := s.Credits.ClawbackCredits(txID); err != nil {
			log.Printf("❌ [LEDGER] Clawback retry failed for tx %s: %v", txID, err)
		}
		return &row, nil // already in the target state
	}
	if row.Status == models.TransactionStatusPending {
		return nil, apperrors.New(apperrors.ErrCodeStateConflict, "cannot return a pending transaction")
	}

	now := s.Now()
	if !ReturnWindowOpen(&row, now) {
		return nil, apperrors.New(apperrors.ErrCodeStateConflict, "return window has closed")
	}

	res := s.DB.Model(&models.CashbackTransaction{}).
		Where("id = ? AND is_returned = ?", txID, false).
		Updates(map[string]interface{}{
			"is_returned": true,
			"returned_at": now,
		})
	if res.Error != nil {
		return nil, apperrors.Wrap(res.Error, apperrors.ErrCodeUnavailable, "failed to mark transaction returned")
	}

	if res.RowsAffected == 1 {
		if _, err := s.Credits.ClawbackCredits(txID); err != nil {
			log.Printf("❌ [LEDGER] Clawback failed for tx %s: %v", txID, err)
		}
	}

	if err := s.DB.Where("id = ?", txID).First(&row).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to reload transaction")
	}
	return &row, nil
}

// AvailableCashback builds the per-transaction availability view for a user
// at call time.
func (s *LedgerService) AvailableCashback(userID string) ([]models.TransactionView, error) {
	var txs []models.CashbackTransaction
	if err := s.DB.Where("user_id = ?", userID).
		Order("purchase_date DESC").
		Find(&txs).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to fetch transactions")
	}

	now := s.Now()
	views := make([]models.TransactionView, 0, len(txs))
	for i := range txs {
		t := &txs[i]
		views = append(views, models.TransactionView{
			TransactionID:   t.ID,
			OfferID:         t.OfferID,
			Status:          t.Status,
			BonkAmount:      t.BonkAmount,
			AvailableAmount: AvailableAmount(t, now),
			PendingAmount:   PendingAmount(t, now),
			IsReturned:      t.IsReturned,
			PurchaseDate:    t.PurchaseDate,
		})
	}
	return views, nil
}

// --- HTTP handlers ---

// CreatePurchaseCashbackHandler handles POST /s/cashback/purchases
func (s *LedgerService) CreatePurchaseCashbackHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		OfferID         string `json:"offer_id"`
		PurchaseCents   int64  `json:"purchase_cents"`
		MerchantOrderID string `json:"merchant_order_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	tx, err := s.CreatePurchaseCashback(userID, req.OfferID, req.PurchaseCents, req.MerchantOrderID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tx)
}

// CreateDemoCashbackHandler handles POST /s/cashback/demo
func (s *LedgerService) CreateDemoCashbackHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		OfferID       string `json:"offer_id"`
		PurchaseCents int64  `json:"purchase_cents"`
		Scenario      string `json:"scenario"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	tx, err := s.CreateDemoCashback(userID, req.OfferID, req.PurchaseCents, req.Scenario)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tx)
}

// ApproveTransactionHandler handles POST /admin/cashback/transactions/:id/approve
func (s *LedgerService) ApproveTransactionHandler(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}

	tx, err := s.Approve(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tx)
}

// MarkReturnedHandler handles POST /admin/cashback/transactions/:id/return
func (s *LedgerService) MarkReturnedHandler(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}

	tx, err := s.MarkReturned(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tx)
}

// AvailableCashbackHandler handles GET /s/cashback/available
func (s *LedgerService) AvailableCashbackHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	views, err := s.AvailableCashback(userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(views)
}
