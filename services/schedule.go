package services

import (
	"time"

	"github.com/Serhat17/bonkback-sub000/models"
)

// ReleasePlan is the immediate/deferred split of an approved reward.
type ReleasePlan struct {
	ImmediateAmount        int64
	DeferredAmount         int64
	AvailableFromImmediate time.Time
	AvailableFromDeferred  time.Time
}

// SplitRelease computes how an approved reward is released under the given
// policy. The immediate leg is floored; the deferred leg takes the remainder
// so the two always sum exactly to bonkAmount. The immediate leg is available
// from the moment of approval (net of return-window risk), the deferred leg
// after the policy delay.
func SplitRelease(bonkAmount int64, policy models.CashbackPolicy, approvedAt time.Time) ReleasePlan {
	pct := int64(policy.ImmediateReleasePercent)
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	immediate := bonkAmount * pct / 100
	deferred := bonkAmount - immediate

	delay := policy.DeferredReleaseDelayDays
	if delay < 0 {
		delay = 0
	}

	return ReleasePlan{
		ImmediateAmount:        immediate,
		DeferredAmount:         deferred,
		AvailableFromImmediate: approvedAt,
		AvailableFromDeferred:  approvedAt.AddDate(0, 0, delay),
	}
}
