package models

import "time"

// ActivityLog is the per-user operational row. Writes to it are best effort.
type ActivityLog struct {
	ID               string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID           string    `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	LastEvent        string    `json:"last_event"`
	PaymentStatus    string    `json:"payment_status,omitempty"`
	PaymentReference string    `json:"payment_reference,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
