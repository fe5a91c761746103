package services

import (
	"context"
	"time"

	"feedquire/logger"
	"feedquire/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// recordActivity upserts the user's operational log row. Failures are logged and swallowed.
func recordActivity(ctx context.Context, db *gorm.DB, log *logger.Logger, userID, event string, payment *models.Payment) {
	row := models.ActivityLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		LastEvent: event,
		UpdatedAt: time.Now().UTC(),
	}
	columns := []string{"last_event", "updated_at"}
	if payment != nil {
		row.PaymentStatus = string(payment.Status)
		row.PaymentReference = payment.Reference
		columns = append(columns, "payment_status", "payment_reference")
	}

	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(&row).Error
	if err != nil {
		log.Warn("activity log update failed (ignored)", "user_id", userID, "event", event, "error", err)
	}
}
