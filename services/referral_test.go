package services

import (
	"testing"

	"github.com/Serhat17/bonkback-sub000/models"
	apperrors "github.com/Serhat17/bonkback-sub000/pkg/errors"
)

func TestClaimReferral(t *testing.T) {
	ts := newTestServices(t)
	seedUser(t, ts.db, "referrer-1", "anna-4f2a91bc")

	payout, err := ts.referrals.ClaimReferral("referred-1", "anna-4f2a91bc")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if payout.Status != models.ReferralPayoutLocked {
		t.Errorf("status = %s, want locked", payout.Status)
	}
	if payout.ReferrerID != "referrer-1" || payout.BeneficiaryID != "referrer-1" {
		t.Errorf("referrer/beneficiary = %s/%s, want referrer-1", payout.ReferrerID, payout.BeneficiaryID)
	}

	// Retried claim returns the same payout.
	again, err := ts.referrals.ClaimReferral("referred-1", "anna-4f2a91bc")
	if err != nil {
		t.Fatalf("retried claim: %v", err)
	}
	if again.ID != payout.ID {
		t.Errorf("retried claim created a new payout: %s vs %s", again.ID, payout.ID)
	}
}

func TestClaimReferralValidation(t *testing.T) {
	ts := newTestServices(t)
	seedUser(t, ts.db, "referrer-1", "anna-4f2a91bc")

	if _, err := ts.referrals.ClaimReferral("referred-1", "nope"); err == nil || apperrors.Code(err) != apperrors.ErrCodeValidation {
		t.Errorf("unknown code should be a validation error, got %v", err)
	}
	if _, err := ts.referrals.ClaimReferral("referrer-1", "anna-4f2a91bc"); err == nil || apperrors.Code(err) != apperrors.ErrCodeValidation {
		t.Errorf("self-referral should be a validation error, got %v", err)
	}
}

func TestReferralUnlocksOnThresholdCrossing(t *testing.T) {
	ts := newTestServices(t)
	seedRate(t, ts.db, 1000, ts.clock.Now())
	seedUser(t, ts.db, "referrer-1", "anna-4f2a91bc")
	offer := seedOffer(t, ts.db, "", 550, nil, 14)

	payout, err := ts.referrals.ClaimReferral("referred-1", "anna-4f2a91bc")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	// $30 purchase — below the $50 threshold.
	tx1, _ := ts.ledger.CreatePurchaseCashback("referred-1", offer.ID, 3000, "order-1")
	if _, err := ts.ledger.Approve(tx1.ID); err != nil {
		t.Fatalf("approve tx1: %v", err)
	}

	var reloaded models.ReferralPayout
	ts.db.Where("id = ?", payout.ID).First(&reloaded)
	if reloaded.Status != models.ReferralPayoutLocked {
		t.Fatalf("payout unlocked below threshold")
	}

	referrerTotalBefore := walletTotal(t, ts.db, "referrer-1")

	// $25 purchase crosses $50 cumulative — approval triggers the unlock.
	tx2, _ := ts.ledger.CreatePurchaseCashback("referred-1", offer.ID, 2500, "order-2")
	if _, err := ts.ledger.Approve(tx2.ID); err != nil {
		t.Fatalf("approve tx2: %v", err)
	}

	ts.db.Where("id = ?", payout.ID).First(&reloaded)
	if reloaded.Status != models.ReferralPayoutUnlocked {
		t.Fatal("payout should unlock once cumulative volume reaches the threshold")
	}
	if reloaded.UnlockedAt == nil {
		t.Error("unlocked_at not stamped")
	}

	gain := walletTotal(t, ts.db, "referrer-1") - referrerTotalBefore
	if gain != payout.AmountBonk {
		t.Errorf("beneficiary credited %d, want %d", gain, payout.AmountBonk)
	}
}

func TestReferralUnlockHappensAtMostOnce(t *testing.T) {
	ts := newTestServices(t)
	seedRate(t, ts.db, 1000, ts.clock.Now())
	seedUser(t, ts.db, "referrer-1", "anna-4f2a91bc")
	offer := seedOffer(t, ts.db, "", 550, nil, 14)

	payout, _ := ts.referrals.ClaimReferral("referred-1", "anna-4f2a91bc")

	tx, _ := ts.ledger.CreatePurchaseCashback("referred-1", offer.ID, 6000, "order-1")
	if _, err := ts.ledger.Approve(tx.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	totalAfterUnlock := walletTotal(t, ts.db, "referrer-1")

	// Event-driven unlock already ran; every later path must converge, not re-credit.
	if did, err := ts.referrals.EvaluateUnlock(payout.ID); err != nil || did {
		t.Errorf("re-evaluation should be a no-op, did=%v err=%v", did, err)
	}
	if _, err := ts.referrals.SweepLockedPayouts(); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if err := ts.referrals.UnlockDuePayouts("referred-1"); err != nil {
		t.Fatalf("reactive path: %v", err)
	}

	if got := walletTotal(t, ts.db, "referrer-1"); got != totalAfterUnlock {
		t.Errorf("repeated evaluation changed beneficiary total: %d vs %d", got, totalAfterUnlock)
	}

	var reloaded models.ReferralPayout
	ts.db.Where("id = ?", payout.ID).First(&reloaded)
	if reloaded.Status != models.ReferralPayoutUnlocked {
		t.Error("payout regressed from unlocked")
	}
}

func TestSweepIsCorrectnessBackstop(t *testing.T) {
	ts := newTestServices(t)
	seedRate(t, ts.db, 1000, ts.clock.Now())
	seedUser(t, ts.db, "referrer-1", "anna-4f2a91bc")
	offer := seedOffer(t, ts.db, "", 550, nil, 14)

	// Volume accrued before the claim existed — the reactive path never saw it.
	tx, _ := ts.ledger.CreatePurchaseCashback("referred-1", offer.ID, 9000, "order-1")
	if _, err := ts.ledger.Approve(tx.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	payout, _ := ts.referrals.ClaimReferral("referred-1", "anna-4f2a91bc")

	unlocked, err := ts.referrals.SweepLockedPayouts()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if unlocked != 1 {
		t.Errorf("sweep unlocked %d payouts, want 1", unlocked)
	}

	var reloaded models.ReferralPayout
	ts.db.Where("id = ?", payout.ID).First(&reloaded)
	if reloaded.Status != models.ReferralPayoutUnlocked {
		t.Error("sweep did not unlock an already-qualified payout")
	}
}

func TestReturnedPurchasesDoNotQualify(t *testing.T) {
	ts := newTestServices(t)
	seedRate(t, ts.db, 1000, ts.clock.Now())
	seedUser(t, ts.db, "referrer-1", "anna-4f2a91bc")
	offer := seedOffer(t, ts.db, "", 550, nil, 14)

	tx, _ := ts.ledger.CreatePurchaseCashback("referred-1", offer.ID, 6000, "order-1")
	ts.ledger.Approve(tx.ID)
	ts.ledger.MarkReturned(tx.ID)

	payout, _ := ts.referrals.ClaimReferral("referred-1", "anna-4f2a91bc")

	// Volume from the returned purchase no longer counts.
	volume, err := ts.referrals.QualifyingVolume("referred-1")
	if err != nil {
		t.Fatalf("volume: %v", err)
	}
	if volume != 0 {
		t.Errorf("qualifying volume = %d, want 0 after return", volume)
	}

	if did, err := ts.referrals.EvaluateUnlock(payout.ID); err != nil || did {
		t.Errorf("payout should stay locked, did=%v err=%v", did, err)
	}
}
