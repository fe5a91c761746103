package models

import (
	"time"

	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSuccess   PaymentStatus = "success"
	PaymentFailed    PaymentStatus = "failed"
	PaymentAbandoned PaymentStatus = "abandoned"
)

// PaymentChannel records which confirmation path settled the payment.
type PaymentChannel string

const (
	ChannelCheckout     PaymentChannel = "checkout"
	ChannelWebhook      PaymentChannel = "webhook"
	ChannelClientVerify PaymentChannel = "client_verify"
	ChannelReconcile    PaymentChannel = "reconcile"
)

// Payment is one activation charge. Amount is in the currency's minor unit (kobo for NGN).
type Payment struct {
	ID         string         `gorm:"primaryKey;type:uuid" json:"id"`
	Reference  string         `gorm:"uniqueIndex;not null" json:"reference"`
	UserID     string         `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount     int64          `gorm:"not null" json:"amount"`
	Currency   string         `gorm:"type:varchar(8);not null" json:"currency"`
	Status     PaymentStatus  `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	Channel    PaymentChannel `gorm:"type:varchar(16)" json:"channel"`
	RawPayload datatypes.JSON `json:"raw_payload,omitempty"`
	PaidAt     *time.Time     `json:"paid_at,omitempty"`
	Timestamps
}
