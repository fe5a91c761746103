package models

import "time"

type SubmissionStatus string

const (
	// SubmissionInProgress is reserved; no flow produces it.
	SubmissionInProgress SubmissionStatus = "in_progress"
	SubmissionSubmitted  SubmissionStatus = "submitted"
	SubmissionApproved   SubmissionStatus = "approved"
	SubmissionRejected   SubmissionStatus = "rejected"
	SubmissionPaid       SubmissionStatus = "paid"
)

func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionInProgress, SubmissionSubmitted, SubmissionApproved, SubmissionRejected, SubmissionPaid:
		return true
	}
	return false
}

// CanTransitionTo encodes in_progress → submitted → {approved, rejected}; approved → paid.
func (s SubmissionStatus) CanTransitionTo(next SubmissionStatus) bool {
	switch s {
	case SubmissionInProgress:
		return next == SubmissionSubmitted
	case SubmissionSubmitted:
		return next == SubmissionApproved || next == SubmissionRejected
	case SubmissionApproved:
		return next == SubmissionPaid
	}
	return false
}

// FeedbackSubmission is one user's attempt at one platform's task.
type FeedbackSubmission struct {
	ID                   string           `gorm:"primaryKey;type:uuid" json:"id"`
	UserID               string           `gorm:"type:uuid;not null;uniqueIndex:idx_submission_user_platform" json:"user_id"`
	PlatformID           string           `gorm:"type:uuid;not null;uniqueIndex:idx_submission_user_platform;index" json:"platform_id"`
	Status               SubmissionStatus `gorm:"type:varchar(16);not null;default:'submitted';index" json:"status"`
	CompletionPercentage int              `gorm:"not null;default:0" json:"completion_percentage"`
	AmountEarned         float64          `gorm:"not null;default:0" json:"amount_earned"`
	SubmittedAt          *time.Time       `json:"submitted_at,omitempty"`
	ReviewedAt           *time.Time       `json:"reviewed_at,omitempty"`
	ReviewedBy           *string          `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	PaidAt               *time.Time       `json:"paid_at,omitempty"`
	Timestamps

	Platform  *AIPlatform          `gorm:"foreignKey:PlatformID" json:"platform,omitempty"`
	Responses []SubmissionResponse `gorm:"foreignKey:SubmissionID" json:"responses,omitempty"`
}

// SubmissionResponse is a stored answer to one question.
type SubmissionResponse struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	SubmissionID string    `gorm:"type:uuid;not null;index" json:"submission_id"`
	QuestionID   string    `gorm:"type:uuid;not null" json:"question_id"`
	ResponseText string    `gorm:"type:text" json:"response_text"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}
