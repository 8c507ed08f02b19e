package services

import (
	"testing"

	"github.com/Serhat17/bonkback-sub000/models"
)

func TestApplyIsExactlyOnce(t *testing.T) {
	ts := newTestServices(t)

	applied, err := ts.credits.Apply("user-1", 2750, ImmediateCreditKey("tx-1"))
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if !applied {
		t.Fatal("first apply should credit")
	}

	applied, err = ts.credits.Apply("user-1", 2750, ImmediateCreditKey("tx-1"))
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if applied {
		t.Fatal("second apply with same key must be a no-op")
	}

	if got := walletTotal(t, ts.db, "user-1"); got != 2750 {
		t.Errorf("wallet total = %d, want 2750 (credited exactly once)", got)
	}

	var eventCount int64
	if err := ts.db.Model(&models.CreditEvent{}).Where("user_id = ?", "user-1").Count(&eventCount).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if eventCount != 1 {
		t.Errorf("credit events = %d, want 1", eventCount)
	}
}

func TestApplyNegativeClawback(t *testing.T) {
	ts := newTestServices(t)

	if _, err := ts.credits.Apply("user-1", 5500, ImmediateCreditKey("tx-1")); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := ts.credits.Apply("user-1", -5500, ClawbackImmediateKey("tx-1")); err != nil {
		t.Fatalf("clawback: %v", err)
	}
	// Retried clawback must not double-deduct.
	if _, err := ts.credits.Apply("user-1", -5500, ClawbackImmediateKey("tx-1")); err != nil {
		t.Fatalf("retried clawback: %v", err)
	}

	if got := walletTotal(t, ts.db, "user-1"); got != 0 {
		t.Errorf("wallet total after clawback = %d, want 0", got)
	}
}

func TestOutstandingForTransaction(t *testing.T) {
	ts := newTestServices(t)

	if _, err := ts.credits.Apply("user-1", 2750, ImmediateCreditKey("tx-1")); err != nil {
		t.Fatalf("immediate: %v", err)
	}
	if _, err := ts.credits.Apply("user-1", 2750, DeferredCreditKey("tx-1")); err != nil {
		t.Fatalf("deferred: %v", err)
	}
	// Another transaction's credits must not bleed in.
	if _, err := ts.credits.Apply("user-1", 999, ImmediateCreditKey("tx-2")); err != nil {
		t.Fatalf("other tx: %v", err)
	}

	outstanding, err := ts.credits.OutstandingForTransaction("tx-1")
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if outstanding != 5500 {
		t.Errorf("outstanding = %d, want 5500", outstanding)
	}

	// A clawback nets the outstanding amount down per leg.
	if _, err := ts.credits.Apply("user-1", -2750, ClawbackImmediateKey("tx-1")); err != nil {
		t.Fatalf("clawback: %v", err)
	}
	outstanding, err = ts.credits.OutstandingForTransaction("tx-1")
	if err != nil {
		t.Fatalf("sum after clawback: %v", err)
	}
	if outstanding != 2750 {
		t.Errorf("outstanding after clawback = %d, want 2750", outstanding)
	}
}

func TestReleaseDueCreditsSweep(t *testing.T) {
	ts := newTestServices(t)
	seedRate(t, ts.db, 1000, ts.clock.Now())
	offer := seedOffer(t, ts.db, "electronics", 550, nil, 14)
	seedPolicy(t, ts.db, "electronics", 50, 30)

	tx, err := ts.ledger.CreatePurchaseCashback("user-1", offer.ID, 10000, "order-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := ts.ledger.Approve(tx.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Approval already credited the immediate leg reactively.
	if got := walletTotal(t, ts.db, "user-1"); got != 2750 {
		t.Fatalf("after approval total = %d, want 2750", got)
	}

	// Sweep before the deferred timestamp must not release the second leg.
	if _, err := ts.credits.ReleaseDueCredits(); err != nil {
		t.Fatalf("early sweep: %v", err)
	}
	if got := walletTotal(t, ts.db, "user-1"); got != 2750 {
		t.Errorf("early sweep changed total to %d", got)
	}

	ts.clock.AdvanceDays(30)
	if _, err := ts.credits.ReleaseDueCredits(); err != nil {
		t.Fatalf("due sweep: %v", err)
	}
	if got := walletTotal(t, ts.db, "user-1"); got != 5500 {
		t.Errorf("after due sweep total = %d, want 5500", got)
	}

	var reloaded models.CashbackTransaction
	if err := ts.db.Where("id = ?", tx.ID).First(&reloaded).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != models.TransactionStatusPaid {
		t.Errorf("status = %s, want paid after full release", reloaded.Status)
	}

	// Sweeps are idempotent: running again moves nothing.
	if _, err := ts.credits.ReleaseDueCredits(); err != nil {
		t.Fatalf("repeat sweep: %v", err)
	}
	if got := walletTotal(t, ts.db, "user-1"); got != 5500 {
		t.Errorf("repeat sweep changed total to %d", got)
	}
}
