package models

type PlatformStatus string

const (
	PlatformActive    PlatformStatus = "active"
	PlatformPaused    PlatformStatus = "paused"
	PlatformCompleted PlatformStatus = "completed"
)

func (s PlatformStatus) Valid() bool {
	switch s {
	case PlatformActive, PlatformPaused, PlatformCompleted:
		return true
	}
	return false
}

// AIPlatform is a reviewable AI product and the rate paid per approved submission.
// Exactly one row may carry IsAssessment; it gates onboarding.
type AIPlatform struct {
	ID           string         `gorm:"primaryKey;type:uuid" json:"id"`
	Slug         string         `gorm:"uniqueIndex;not null" json:"slug"`
	Domain       string         `gorm:"not null" json:"domain"`
	Description  string         `gorm:"type:text" json:"description"`
	LogoURL      string         `json:"logo_url,omitempty"`
	Amount       float64        `gorm:"not null;default:0" json:"amount"`
	Status       PlatformStatus `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	IsAssessment bool           `gorm:"not null;default:false;index" json:"is_assessment"`
	Timestamps
}

func (AIPlatform) TableName() string {
	return "ai_platforms"
}
