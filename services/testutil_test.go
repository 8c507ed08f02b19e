package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/Serhat17/bonkback-sub000/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// testClock lets tests move wall-clock time deterministically.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func (c *testClock) AdvanceDays(days int) {
	c.now = c.now.AddDate(0, 0, days)
}

// testServices is the fully wired service graph on one in-memory DB with
// one shared clock.
type testServices struct {
	db        *gorm.DB
	clock     *testClock
	policies  *PolicyService
	credits   *CreditService
	referrals *ReferralService
	ledger    *LedgerService
	balances  *BalanceService
	locks     *LockService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	db := setupTestDB(t)
	clock := &testClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}

	policies := NewPolicyService(db)
	credits := NewCreditService(db)
	credits.Now = clock.Now
	referrals := NewReferralService(db, credits)
	referrals.Now = clock.Now
	ledger := NewLedgerService(db, policies, credits, referrals)
	ledger.Now = clock.Now
	balances := NewBalanceService(db)
	balances.Now = clock.Now
	locks := NewLockService(db)
	locks.Now = clock.Now

	return &testServices{
		db:        db,
		clock:     clock,
		policies:  policies,
		credits:   credits,
		referrals: referrals,
		ledger:    ledger,
		balances:  balances,
		locks:     locks,
	}
}

func seedOffer(t *testing.T, db *gorm.DB, category string, basisPoints int64, maxCents *int64, windowDays int) models.Offer {
	t.Helper()
	offer := models.Offer{
		ID:                  uuid.NewString(),
		MerchantName:        "Acme Store",
		Title:               "Acme cashback",
		Slug:                "acme-cashback-" + uuid.NewString()[:8],
		Category:            category,
		CashbackBasisPoints: basisPoints,
		MaxCashbackCents:    maxCents,
		ReturnWindowDays:    windowDays,
		IsActive:            true,
	}
	if err := db.Create(&offer).Error; err != nil {
		t.Fatalf("seed offer: %v", err)
	}
	return offer
}

func seedRate(t *testing.T, db *gorm.DB, bonkPerUnit int64, fetchedAt time.Time) {
	t.Helper()
	rate := models.ConversionRate{
		ID:           uuid.NewString(),
		Token:        BonkToken,
		FiatCurrency: DefaultFiatCurrency,
		BonkPerUnit:  bonkPerUnit,
		FetchedAt:    fetchedAt,
	}
	if err := db.Create(&rate).Error; err != nil {
		t.Fatalf("seed rate: %v", err)
	}
}

func seedUser(t *testing.T, db *gorm.DB, externalID, referralCode string) models.CashbackUser {
	t.Helper()
	user := models.CashbackUser{
		ID:             uuid.NewString(),
		ExternalUserID: externalID,
		Username:       "user-" + externalID,
		ReferralCode:   referralCode,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedPolicy(t *testing.T, db *gorm.DB, category string, immediatePct, delayDays int) {
	t.Helper()
	policy := models.CashbackPolicy{
		ID:                       uuid.NewString(),
		Category:                 category,
		ImmediateReleasePercent:  immediatePct,
		DeferredReleaseDelayDays: delayDays,
	}
	if err := db.Create(&policy).Error; err != nil {
		t.Fatalf("seed policy: %v", err)
	}
}

func walletTotal(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var wallet models.WalletBalance
	err := db.Where("user_id = ?", userID).First(&wallet).Error
	if err == gorm.ErrRecordNotFound {
		return 0
	}
	if err != nil {
		t.Fatalf("read wallet: %v", err)
	}
	return wallet.TotalBonk
}
