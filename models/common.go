package models

import "time"

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// All lists every model for AutoMigrate, in dependency order.
func All() []interface{} {
	return []interface{}{
		&Profile{},
		&AIPlatform{},
		&FeedbackQuestion{},
		&FeedbackSubmission{},
		&SubmissionResponse{},
		&Ticket{},
		&Payment{},
		&ActivityLog{},
	}
}
