package services

import (
	"log"

	"github.com/Serhat17/bonkback-sub000/models"

	"gorm.io/gorm"
)

// Release defaults used whenever no policy row is configured. A missing
// policy must never block reward creation, so lookup always succeeds.
const (
	DefaultImmediateReleasePercent  = 50
	DefaultDeferredReleaseDelayDays = 30
)

type PolicyService struct {
	DB *gorm.DB
}

func NewPolicyService(db *gorm.DB) *PolicyService {
	return &PolicyService{DB: db}
}

// CurrentPolicy returns the policy in effect for a category: category
// override → global row → hard default. Fallback to the default is logged
// so operators can spot missing configuration; the caller never sees it.
func (s *PolicyService) CurrentPolicy(category string) models.CashbackPolicy {
	var p models.CashbackPolicy

	if category != "" {
		if err := s.DB.Where("category = ?", category).First(&p).Error; err == nil {
			return p
		}
	}

	if err := s.DB.Where("category = ?", "").First(&p).Error; err == nil {
		return p
	}

	log.Printf("⚠️ [POLICY] No policy row for category=%q — using default %d%% immediate / %dd deferred",
		category, DefaultImmediateReleasePercent, DefaultDeferredReleaseDelayDays)

	return models.CashbackPolicy{
		Category:                 category,
		ImmediateReleasePercent:  DefaultImmediateReleasePercent,
		DeferredReleaseDelayDays: DefaultDeferredReleaseDelayDays,
	}
}
