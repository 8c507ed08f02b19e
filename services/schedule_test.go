package services

import (
	"testing"
	"time"

	"github.com/Serhat17/bonkback-sub000/models"
)

func TestSplitRelease(t *testing.T) {
	approvedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		bonkAmount    int64
		immediatePct  int
		delayDays     int
		wantImmediate int64
		wantDeferred  int64
	}{
		{
			name:          "50/50 even amount",
			bonkAmount:    5500,
			immediatePct:  50,
			delayDays:     30,
			wantImmediate: 2750,
			wantDeferred:  2750,
		},
		{
			name:          "50/50 odd amount floors immediate",
			bonkAmount:    5501,
			immediatePct:  50,
			delayDays:     30,
			wantImmediate: 2750,
			wantDeferred:  2751,
		},
		{
			name:          "everything immediate",
			bonkAmount:    999,
			immediatePct:  100,
			delayDays:     0,
			wantImmediate: 999,
			wantDeferred:  0,
		},
		{
			name:          "everything deferred",
			bonkAmount:    999,
			immediatePct:  0,
			delayDays:     7,
			wantImmediate: 0,
			wantDeferred:  999,
		},
		{
			name:          "33 percent of small amount",
			bonkAmount:    10,
			immediatePct:  33,
			delayDays:     14,
			wantImmediate: 3,
			wantDeferred:  7,
		},
		{
			name:          "zero amount",
			bonkAmount:    0,
			immediatePct:  50,
			delayDays:     30,
			wantImmediate: 0,
			wantDeferred:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := models.CashbackPolicy{
				ImmediateReleasePercent:  tt.immediatePct,
				DeferredReleaseDelayDays: tt.delayDays,
			}

			plan := SplitRelease(tt.bonkAmount, policy, approvedAt)

			if plan.ImmediateAmount != tt.wantImmediate {
				t.Errorf("ImmediateAmount = %d, want %d", plan.ImmediateAmount, tt.wantImmediate)
			}
			if plan.DeferredAmount != tt.wantDeferred {
				t.Errorf("DeferredAmount = %d, want %d", plan.DeferredAmount, tt.wantDeferred)
			}
			if plan.ImmediateAmount+plan.DeferredAmount != tt.bonkAmount {
				t.Errorf("split leaks: %d + %d != %d", plan.ImmediateAmount, plan.DeferredAmount, tt.bonkAmount)
			}
			if !plan.AvailableFromImmediate.Equal(approvedAt) {
				t.Errorf("AvailableFromImmediate = %v, want approval time %v", plan.AvailableFromImmediate, approvedAt)
			}
			wantDeferredAt := approvedAt.AddDate(0, 0, tt.delayDays)
			if !plan.AvailableFromDeferred.Equal(wantDeferredAt) {
				t.Errorf("AvailableFromDeferred = %v, want %v", plan.AvailableFromDeferred, wantDeferredAt)
			}
		})
	}
}

func TestSplitReleaseClampsBadPolicy(t *testing.T) {
	approvedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	plan := SplitRelease(1000, models.CashbackPolicy{ImmediateReleasePercent: 150, DeferredReleaseDelayDays: -3}, approvedAt)
	if plan.ImmediateAmount != 1000 || plan.DeferredAmount != 0 {
		t.Errorf("percent over 100 should clamp: got %d/%d", plan.ImmediateAmount, plan.DeferredAmount)
	}
	if !plan.AvailableFromDeferred.Equal(approvedAt) {
		t.Errorf("negative delay should clamp to approval time, got %v", plan.AvailableFromDeferred)
	}

	plan = SplitRelease(1000, models.CashbackPolicy{ImmediateReleasePercent: -10}, approvedAt)
	if plan.ImmediateAmount != 0 || plan.DeferredAmount != 1000 {
		t.Errorf("negative percent should clamp: got %d/%d", plan.ImmediateAmount, plan.DeferredAmount)
	}
}
