package models

import "time"

type TicketStatus string

const (
	TicketOpen   TicketStatus = "open"
	TicketClosed TicketStatus = "closed"
)

// Ticket is a support request, closed by an operator reply or an explicit resolve.
type Ticket struct {
	ID            string       `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string       `gorm:"type:uuid;not null;index" json:"user_id"`
	Title         string       `gorm:"not null" json:"title"`
	Description   string       `gorm:"type:text;not null" json:"description"`
	AttachmentURL string       `json:"attachment_url,omitempty"`
	Status        TicketStatus `gorm:"type:varchar(16);not null;default:'open';index" json:"status"`
	AdminReply    string       `gorm:"type:text" json:"admin_reply,omitempty"`
	RepliedAt     *time.Time   `json:"replied_at,omitempty"`
	Timestamps
}
