// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// SweepScheduler runs the periodic jobs that keep the ledger converged:
// due-credit release, referral unlock backstop, lock expiry and statement
// export. Every job is idempotent, so overlapping with the reactive paths
// is harmless.
type SweepScheduler struct {
	Credits    *CreditService
	Referrals  *ReferralService
	Locks      *LockService
	Statements *StatementService
}

func NewSweepScheduler(credits *CreditService, referrals *ReferralService, locks *LockService, statements *StatementService) *SweepScheduler {
	return &SweepScheduler{
		Credits:    credits,
		Referrals:  referrals,
		Locks:      locks,
		Statements: statements,
	}
}

func (s *SweepScheduler) Start() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: release credits whose availability timestamps passed
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			released, err := s.Credits.ReleaseDueCredits()
			if err != nil {
				log.Printf("[Scheduler] Release sweep error: %v", err)
				return
			}
			if released > 0 {
				log.Printf("✅ Released %d due credit(s)", released)
			}
		}),
	)

	// Every 5 minutes: reverse residual credits on returned transactions
	// (release sweep raced a return, or the reactive clawback failed)
	_, _ = sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			reconciled, err := s.Credits.ReconcileReturnedCredits()
			if err != nil {
				log.Printf("[Scheduler] Clawback reconcile error: %v", err)
				return
			}
			if reconciled > 0 {
				log.Printf("✅ Clawed back %d residual credit(s)", reconciled)
			}
		}),
	)

	// Every 5 minutes: referral unlock backstop
	_, _ = sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			unlocked, err := s.Referrals.SweepLockedPayouts()
			if err != nil {
				log.Printf("[Scheduler] Referral sweep error: %v", err)
				return
			}
			if unlocked > 0 {
				log.Printf("✅ Unlocked %d referral payout(s)", unlocked)
			}
		}),
	)

	// Every 10 minutes: expire time-bound risk holds
	_, _ = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			expired, err := s.Locks.ExpireDueLocks()
			if err != nil {
				log.Printf("[Scheduler] Lock expiry error: %v", err)
				return
			}
			if expired > 0 {
				log.Printf("✅ Expired %d lock(s)", expired)
			}
		}),
	)

	// First of the month, 03:00: export last month's statements
	_, _ = sched.NewJob(
		gocron.MonthlyJob(1,
			gocron.NewDaysOfTheMonth(1),
			gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0)),
		),
		gocron.NewTask(func() {
			generated, err := s.Statements.GenerateMonthlyStatements()
			if err != nil {
				log.Printf("[Scheduler] Statement export error: %v", err)
				return
			}
			log.Printf("✅ Generated %d statement(s)", generated)
		}),
	)
}
