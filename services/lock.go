package services

import (
	"time"

	"github.com/Serhat17/bonkback-sub000/models"
	apperrors "github.com/Serhat17/bonkback-sub000/pkg/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LockService manages compliance/risk holds. A hold is released either by
// its own unlock time (scheduler) or by explicit admin action; both stamp
// ReleasedAt so the balance aggregator sees it the same way.
type LockService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewLockService(db *gorm.DB) *LockService {
	return &LockService{DB: db, Now: time.Now}
}

func (s *LockService) CreateLock(userID string, amountBonk int64, reason string, unlockAt *time.Time) (*models.BonkLock, error) {
	if userID == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "user id is required")
	}
	if amountBonk <= 0 {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "lock amount must be positive")
	}
	if reason == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "lock reason is required")
	}

	lock := &models.BonkLock{
		ID:         uuid.NewString(),
		UserID:     userID,
		AmountBonk: amountBonk,
		Reason:     reason,
		LockedAt:   s.Now(),
		UnlockAt:   unlockAt,
	}
	if err := s.DB.Create(lock).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to create lock")
	}
	return lock, nil
}

// ReleaseLock is the explicit admin release. Releasing an already-released
// lock is a no-op.
func (s *LockService) ReleaseLock(lockID string) (*models.BonkLock, error) {
	var lock models.BonkLock
	if err := s.DB.Where("id = ?", lockID).First(&lock).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.ErrCodeNotFound, "lock not found")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to load lock")
	}

	if lock.ReleasedAt != nil {
		return &lock, nil
	}

	now := s.Now()
	if err := s.DB.Model(&models.BonkLock{}).
		Where("id = ? AND released_at IS NULL", lockID).
		Update("released_at", now).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to release lock")
	}

	lock.ReleasedAt = &now
	return &lock, nil
}

// ExpireDueLocks stamps ReleasedAt on every lock whose unlock time has
// passed. Run from the scheduler.
func (s *LockService) ExpireDueLocks() (int64, error) {
	now := s.Now()
	res := s.DB.Model(&models.BonkLock{}).
		Where("released_at IS NULL AND unlock_at IS NOT NULL AND unlock_at <= ?", now).
		Update("released_at", now)
	if res.Error != nil {
		return 0, apperrors.Wrap(res.Error, apperrors.ErrCodeUnavailable, "failed to expire locks")
	}
	return res.RowsAffected, nil
}

// --- HTTP handlers ---

// CreateLockHandler handles POST /admin/locks
func (s *LockService) CreateLockHandler(c *fiber.Ctx) error {
	var req struct {
		UserID     string     `json:"user_id"`
		AmountBonk int64      `json:"amount_bonk"`
		Reason     string     `json:"reason"`
		UnlockAt   *time.Time `json:"unlock_at"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	lock, err := s.CreateLock(req.UserID, req.AmountBonk, req.Reason, req.UnlockAt)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(lock)
}

// ReleaseLockHandler handles DELETE /admin/locks/:id
func (s *LockService) ReleaseLockHandler(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid lock ID"})
	}

	lock, err := s.ReleaseLock(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Lock released", "lock": lock})
}
