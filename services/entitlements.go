package services

import (
	"context"
	"time"

	"feedquire/logger"
	"feedquire/models"

	"gorm.io/gorm"
)

type Feature string

const (
	FeatureTasks       Feature = "tasks"
	FeatureRevisions   Feature = "revisions"
	FeatureAssessment  Feature = "assessment"
	FeatureAdmin       Feature = "admin"
	FeatureProFeatures Feature = "pro_features"
)

// Entitlements is the capability set computed for one user.
// Tasks, Revisions and ProFeatures are always equal; no tier grants revisions alone.
type Entitlements struct {
	Tasks       bool `json:"tasks"`
	Revisions   bool `json:"revisions"`
	Assessment  bool `json:"assessment"`
	Admin       bool `json:"admin"`
	ProFeatures bool `json:"pro_features"`
}

func (e Entitlements) Has(f Feature) bool {
	switch f {
	case FeatureTasks:
		return e.Tasks
	case FeatureRevisions:
		return e.Revisions
	case FeatureAssessment:
		return e.Assessment
	case FeatureAdmin:
		return e.Admin
	case FeatureProFeatures:
		return e.ProFeatures
	}
	return false
}

// EntitlementsFor derives the capability set from a persisted profile.
func EntitlementsFor(p *models.Profile) Entitlements {
	if p == nil {
		return Entitlements{}
	}
	qualified := p.AccountStatus == models.AccountQualified
	return Entitlements{
		Tasks:       qualified,
		Revisions:   qualified,
		Assessment:  p.AccountStatus != models.AccountUnverified,
		Admin:       p.Role == models.RoleSystemOperator,
		ProFeatures: qualified,
	}
}

// EntitlementResolver reads the profile on every call; nothing is cached.
type EntitlementResolver struct {
	DB      *gorm.DB
	Timeout time.Duration
	log     *logger.Logger
}

func NewEntitlementResolver(db *gorm.DB, timeout time.Duration, log *logger.Logger) *EntitlementResolver {
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &EntitlementResolver{DB: db, Timeout: timeout, log: log.With("service", "EntitlementResolver")}
}

// Resolve fails closed: any lookup error yields the empty set.
func (r *EntitlementResolver) Resolve(ctx context.Context, userID string) Entitlements {
	if userID == "" {
		return Entitlements{}
	}
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	var profile models.Profile
	if err := r.DB.WithContext(ctx).First(&profile, "id = ?", userID).Error; err != nil {
		r.log.Warn("⚠️ entitlement lookup failed, denying everything", "user_id", userID, "error", err)
		return Entitlements{}
	}
	return EntitlementsFor(&profile)
}
