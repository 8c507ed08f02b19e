package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Serhat17/bonkback-sub000/models"
	apperrors "github.com/Serhat17/bonkback-sub000/pkg/errors"
	"github.com/Serhat17/bonkback-sub000/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"
)

// StatementService renders monthly wallet statements (credit events plus the
// purchases behind them) and ships them to R2. Statements are derived data
// for support/audit — the ledger never reads them back.
type StatementService struct {
	DB       *gorm.DB
	Balances *BalanceService
	Now      func() time.Time

	printer *message.Printer
}

func NewStatementService(db *gorm.DB, balances *BalanceService) *StatementService {
	return &StatementService{
		DB:       db,
		Balances: balances,
		Now:      time.Now,
		printer:  message.NewPrinter(language.English),
	}
}

type statementLine struct {
	AppliedAt      time.Time `json:"applied_at"`
	IdempotencyKey string    `json:"idempotency_key"`
	AmountBonk     int64     `json:"amount_bonk"`
}

type statementPurchase struct {
	TransactionID  string `json:"transaction_id"`
	PurchaseDate   string `json:"purchase_date"`
	PurchaseAmount string `json:"purchase_amount"`
	CashbackAmount string `json:"cashback_amount"`
	BonkAmount     int64  `json:"bonk_amount"`
	Status         string `json:"status"`
	IsReturned     bool   `json:"is_returned"`
}

type statementDocument struct {
	UserID      string                       `json:"user_id"`
	PeriodStart string                       `json:"period_start"`
	PeriodEnd   string                       `json:"period_end"`
	Credits     []statementLine              `json:"credits"`
	Purchases   []statementPurchase          `json:"purchases"`
	Closing     models.WalletBalanceSnapshot `json:"closing_balances"`
	GeneratedAt time.Time                    `json:"generated_at"`
}

func (s *StatementService) formatFiat(cents int64) string {
	return s.printer.Sprintf("%s %.2f", DefaultFiatCurrency, float64(cents)/100)
}

// GenerateMonthlyStatements renders the previous calendar month for every
// user that had credit activity in it. Re-running the job skips periods that
// already have a statement row.
func (s *StatementService) GenerateMonthlyStatements() (int, error) {
	now := s.Now().UTC()
	periodEnd := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	periodStart := periodEnd.AddDate(0, -1, 0)

	var userIDs []string
	if err := s.DB.Model(&models.CreditEvent{}).
		Where("applied_at >= ? AND applied_at < ?", periodStart, periodEnd).
		Distinct("user_id").
		Pluck("user_id", &userIDs).Error; err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to list active users")
	}

	generated := 0
	for _, userID := range userIDs {
		var count int64
		if err := s.DB.Model(&models.WalletStatement{}).
			Where("user_id = ? AND period_start = ?", userID, periodStart).
			Count(&count).Error; err != nil {
			log.Printf("⚠️ [STATEMENT] Skipping %s, existence check failed: %v", userID, err)
			continue
		}
		if count > 0 {
			continue
		}

		if err := s.generateFor(userID, periodStart, periodEnd); err != nil {
			log.Printf("❌ [STATEMENT] Failed for user %s: %v", userID, err)
			continue
		}
		generated++
	}

	return generated, nil
}

func (s *StatementService) generateFor(userID string, periodStart, periodEnd time.Time) error {
	var events []models.CreditEvent
	if err := s.DB.Where("user_id = ? AND applied_at >= ? AND applied_at < ?", userID, periodStart, periodEnd).
		Order("applied_at ASC").
		Find(&events).Error; err != nil {
		return fmt.Errorf("failed to load credit events: %w", err)
	}

	var txs []models.CashbackTransaction
	if err := s.DB.Where("user_id = ? AND purchase_date >= ? AND purchase_date < ?", userID, periodStart, periodEnd).
		Order("purchase_date ASC").
		Find(&txs).Error; err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}

	closing, err := s.Balances.Balances(userID)
	if err != nil {
		return fmt.Errorf("failed to compute closing balances: %w", err)
	}

	doc := statementDocument{
		UserID:      userID,
		PeriodStart: periodStart.Format("2006-01-02"),
		PeriodEnd:   periodEnd.Format("2006-01-02"),
		Credits:     make([]statementLine, 0, len(events)),
		Purchases:   make([]statementPurchase, 0, len(txs)),
		Closing:     closing,
		GeneratedAt: s.Now().UTC(),
	}
	for _, e := range events {
		doc.Credits = append(doc.Credits, statementLine{
			AppliedAt:      e.AppliedAt,
			IdempotencyKey: e.IdempotencyKey,
			AmountBonk:     e.AmountBonk,
		})
	}
	for i := range txs {
		t := &txs[i]
		doc.Purchases = append(doc.Purchases, statementPurchase{
			TransactionID:  t.ID,
			PurchaseDate:   t.PurchaseDate.Format("2006-01-02"),
			PurchaseAmount: s.formatFiat(t.PurchaseCents),
			CashbackAmount: s.formatFiat(t.CashbackCents),
			BonkAmount:     t.BonkAmount,
			Status:         string(t.Status),
			IsReturned:     t.IsReturned,
		})
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal statement: %w", err)
	}

	key := fmt.Sprintf("statements/%s/%s.json", userID, periodStart.Format("2006-01"))
	url, err := utils.UploadBytesToR2(key, "application/json", payload)
	if err != nil {
		return fmt.Errorf("failed to upload statement: %w", err)
	}

	record := models.WalletStatement{
		ID:          uuid.NewString(),
		UserID:      userID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		ObjectKey:   key,
		URL:         url,
		GeneratedAt: s.Now().UTC(),
	}
	if err := s.DB.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to record statement: %w", err)
	}

	log.Printf("✅ [STATEMENT] Generated %s for user %s", key, userID)
	return nil
}

// --- HTTP handlers ---

// LatestStatementHandler handles GET /s/wallet/statements/latest
func (s *StatementService) LatestStatementHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var stmt models.WalletStatement
	if err := s.DB.Where("user_id = ?", userID).
		Order("period_start DESC").
		First(&stmt).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No statements yet"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	return c.JSON(stmt)
}
