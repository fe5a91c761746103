package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"feedquire/logger"
	"feedquire/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Identity is what the session token tells us about the caller.
type Identity struct {
	UserID string
	Email  string
}

type ProfileService struct {
	DB  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func NewProfileService(db *gorm.DB, log *logger.Logger) *ProfileService {
	return &ProfileService{
		DB:  db,
		log: log.With("service", "ProfileService"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// EnsureProfile returns the caller's profile, provisioning an unverified one on first session.
func (s *ProfileService) EnsureProfile(ctx context.Context, id Identity) (*models.Profile, error) {
	if id.UserID == "" {
		return nil, invalidInput("user id is required")
	}
	profile := models.Profile{
		ID:            id.UserID,
		Email:         strings.ToLower(strings.TrimSpace(id.Email)),
		DisplayName:   defaultDisplayName(id.Email),
		Role:          models.RoleUser,
		AccountStatus: models.AccountUnverified,
	}
	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&profile)
	if res.Error != nil {
		return nil, fmt.Errorf("provision profile: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		s.log.Info("👤 provisioned profile", "user_id", id.UserID)
	}
	return s.GetProfile(ctx, id.UserID)
}

func defaultDisplayName(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	if local == "" {
		return "Tester"
	}
	return local
}

func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	if err := s.DB.WithContext(ctx).First(&p, "id = ?", userID).Error; err != nil {
		return nil, notFoundOr(err, "profile")
	}
	return &p, nil
}

// ProfileUpdate carries the self-service editable fields; nil means unchanged.
type ProfileUpdate struct {
	DisplayName *string `json:"display_name"`
	PaypalEmail *string `json:"paypal_email"`
}

func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*models.Profile, error) {
	updates := map[string]interface{}{}
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if name == "" || len([]rune(name)) > 80 {
			return nil, invalidInput("display_name must be 1-80 characters")
		}
		updates["display_name"] = name
	}
	if in.PaypalEmail != nil {
		email := strings.ToLower(strings.TrimSpace(*in.PaypalEmail))
		if email != "" {
			addr, err := mail.ParseAddress(email)
			if err != nil || addr.Address != email {
				return nil, invalidInput("paypal_email is not a valid address")
			}
		}
		updates["paypal_email"] = email
	}
	if len(updates) == 0 {
		return s.GetProfile(ctx, userID)
	}

	res := s.DB.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, notFound("profile")
	}
	return s.GetProfile(ctx, userID)
}

type EarningsSummary struct {
	ApprovedCount  int64   `json:"approved_count"`
	ApprovedAmount float64 `json:"approved_amount"`
	PaidCount      int64   `json:"paid_count"`
	PaidAmount     float64 `json:"paid_amount"`
	PendingCount   int64   `json:"pending_count"`
	TotalEarned    float64 `json:"total_earned"`
}

func (s *ProfileService) Earnings(ctx context.Context, userID string) (*EarningsSummary, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	type row struct {
		Status models.SubmissionStatus
		Count  int64
		Amount float64
	}
	var rows []row
	if err := s.DB.WithContext(ctx).Model(&models.FeedbackSubmission{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount_earned), 0) AS amount").
		Where("user_id = ? AND status <> ?", userID, models.SubmissionInProgress).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("summarize earnings: %w", err)
	}

	out := &EarningsSummary{TotalEarned: profile.TotalEarned}
	for _, r := range rows {
		switch r.Status {
		case models.SubmissionApproved:
			out.ApprovedCount, out.ApprovedAmount = r.Count, r.Amount
		case models.SubmissionPaid:
			out.PaidCount, out.PaidAmount = r.Count, r.Amount
		case models.SubmissionSubmitted:
			out.PendingCount = r.Count
		}
	}
	return out, nil
}

// --- Admin ---

type ProfileFilter struct {
	Status models.AccountStatus
	Search string
	Page   int
	Size   int
}

func (f *ProfileFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Size <= 0 || f.Size > 100 {
		f.Size = 50
	}
}

func (s *ProfileService) ListProfiles(ctx context.Context, f ProfileFilter) ([]models.Profile, int64, error) {
	f.normalize()
	q := s.DB.WithContext(ctx).Model(&models.Profile{})
	if f.Status != "" {
		q = q.Where("account_status = ?", f.Status)
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(email) LIKE ? OR LOWER(display_name) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count profiles: %w", err)
	}
	var profiles []models.Profile
	if err := q.Order("created_at DESC").
		Offset((f.Page - 1) * f.Size).Limit(f.Size).
		Find(&profiles).Error; err != nil {
		return nil, 0, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, total, nil
}

// SetAccountStatus applies an operator status change. Operators can only reject or ban.
func (s *ProfileService) SetAccountStatus(ctx context.Context, userID string, next models.AccountStatus) (*models.Profile, error) {
	if !next.Valid() {
		return nil, invalidInput("unknown account status %q", next)
	}
	if err := checkID(userID, "profile"); err != nil {
		return nil, err
	}
	var profile models.Profile
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&profile, "id = ?", userID).Error; err != nil {
			return notFoundOr(err, "profile")
		}
		if !profile.AccountStatus.CanOperatorSet(next) {
			return invalidTransition(string(profile.AccountStatus), string(next))
		}
		profile.AccountStatus = next
		return tx.Model(&profile).Update("account_status", next).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("🔁 account status changed", "user_id", userID, "status", next)
	recordActivity(ctx, s.DB, s.log, userID, "status_"+string(next), nil)
	return &profile, nil
}

// DeleteProfile hard-deletes a profile and everything it owns.
func (s *ProfileService) DeleteProfile(ctx context.Context, userID string) error {
	if err := checkID(userID, "profile"); err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := deleteProfilesTx(tx, []string{userID})
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("profile")
		}
		return nil
	})
}

// SweepUnverified removes profiles that stayed unverified past ttl without a successful payment.
func (s *ProfileService) SweepUnverified(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := s.now().Add(-ttl)

	var deleted int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := staleUnverified(tx.Model(&models.Profile{}).Clauses(clause.Locking{Strength: "UPDATE"}), cutoff).
			Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("find stale profiles: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		// The profile delete repeats the predicates; a charge confirmed since the
		// lookup keeps its profile and everything it owns.
		res := staleUnverified(tx.Where("id IN ?", ids), cutoff).Delete(&models.Profile{})
		if res.Error != nil {
			return fmt.Errorf("delete profiles: %w", res.Error)
		}
		deleted = res.RowsAffected
		if deleted == 0 {
			return nil
		}

		var kept []string
		if err := tx.Model(&models.Profile{}).Where("id IN ?", ids).Pluck("id", &kept).Error; err != nil {
			return fmt.Errorf("reload profiles: %w", err)
		}
		return deleteOwnedTx(tx, without(ids, kept))
	})
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.log.Info("🧹 swept unverified profiles", "count", deleted, "cutoff", cutoff.Format(time.RFC3339))
	}
	return deleted, nil
}

func staleUnverified(q *gorm.DB, cutoff time.Time) *gorm.DB {
	return q.Where("account_status = ? AND created_at < ?", models.AccountUnverified, cutoff).
		Where("NOT EXISTS (SELECT 1 FROM payments WHERE payments.user_id = profiles.id AND payments.status = ?)", models.PaymentSuccess)
}

func without(ids, drop []string) []string {
	skip := make(map[string]bool, len(drop))
	for _, id := range drop {
		skip[id] = true
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !skip[id] {
			out = append(out, id)
		}
	}
	return out
}

func deleteProfilesTx(tx *gorm.DB, ids []string) (int64, error) {
	if err := deleteOwnedTx(tx, ids); err != nil {
		return 0, err
	}
	res := tx.Where("id IN ?", ids).Delete(&models.Profile{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete profiles: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func deleteOwnedTx(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	var submissionIDs []string
	if err := tx.Model(&models.FeedbackSubmission{}).Where("user_id IN ?", ids).Pluck("id", &submissionIDs).Error; err != nil {
		return err
	}
	if len(submissionIDs) > 0 {
		if err := tx.Where("submission_id IN ?", submissionIDs).Delete(&models.SubmissionResponse{}).Error; err != nil {
			return fmt.Errorf("delete responses: %w", err)
		}
		if err := tx.Where("id IN ?", submissionIDs).Delete(&models.FeedbackSubmission{}).Error; err != nil {
			return fmt.Errorf("delete submissions: %w", err)
		}
	}
	for _, m := range []interface{}{&models.Ticket{}, &models.ActivityLog{}} {
		if err := tx.Where("user_id IN ?", ids).Delete(m).Error; err != nil {
			return fmt.Errorf("delete owned rows: %w", err)
		}
	}
	// Payments are kept for bookkeeping; only unsettled ones go.
	if err := tx.Where("user_id IN ? AND status <> ?", ids, models.PaymentSuccess).Delete(&models.Payment{}).Error; err != nil {
		return fmt.Errorf("delete payments: %w", err)
	}
	return nil
}

// isDuplicate reports a unique-constraint violation (requires gorm TranslateError).
func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
