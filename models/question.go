package models

// FeedbackQuestion is one prompt of a questionnaire. A nil PlatformID marks
// the shared questionnaire used by platforms without their own.
type FeedbackQuestion struct {
	ID            string  `gorm:"primaryKey;type:uuid" json:"id"`
	PlatformID    *string `gorm:"type:uuid;index" json:"platform_id,omitempty"`
	SectionNumber int     `gorm:"not null;default:1" json:"section_number"`
	SectionTitle  string  `json:"section_title"`
	Text          string  `gorm:"type:text;not null" json:"text"`
	Order         int     `gorm:"column:sort_order;default:0" json:"order"`
	Timestamps
}
