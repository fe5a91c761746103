package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"feedquire/logger"
	"feedquire/models"
	"feedquire/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReviewService holds the operator-side submission transitions. Every
// transition and its side effects commit in one transaction.
type ReviewService struct {
	DB             *gorm.DB
	PayoutCurrency string
	log            *logger.Logger
	now            func() time.Time
}

func NewReviewService(db *gorm.DB, payoutCurrency string, log *logger.Logger) *ReviewService {
	return &ReviewService{
		DB:             db,
		PayoutCurrency: payoutCurrency,
		log:            log.With("service", "ReviewService"),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Approve stamps the platform's current rate and, for the assessment, promotes
// the owner from payment_verified to qualified.
func (s *ReviewService) Approve(ctx context.Context, id, reviewerID string, score *int) (*models.FeedbackSubmission, error) {
	var promoted bool
	sub, err := s.transition(ctx, id, reviewerID, models.SubmissionApproved, func(tx *gorm.DB, sub *models.FeedbackSubmission, updates map[string]interface{}) error {
		var platform models.AIPlatform
		if err := tx.First(&platform, "id = ?", sub.PlatformID).Error; err != nil {
			return notFoundOr(err, "platform")
		}
		updates["amount_earned"] = platform.Amount
		sub.AmountEarned = platform.Amount

		if !platform.IsAssessment {
			return nil
		}
		profileUpdates := map[string]interface{}{"account_status": models.AccountQualified}
		if score != nil {
			profileUpdates["test_score"] = *score
		}
		res := tx.Model(&models.Profile{}).
			Where("id = ? AND account_status = ?", sub.UserID, models.AccountPaymentVerified).
			Updates(profileUpdates)
		if res.Error != nil {
			return fmt.Errorf("promote profile: %w", res.Error)
		}
		promoted = res.RowsAffected == 1
		if !promoted {
			s.log.Warn("assessment approved but profile was not payment_verified; status left unchanged",
				"user_id", sub.UserID, "submission_id", sub.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if promoted {
		s.log.Info("🎓 user qualified", "user_id", sub.UserID, "submission_id", sub.ID)
		recordActivity(ctx, s.DB, s.log, sub.UserID, "qualified", nil)
	}
	return sub, nil
}

// Reject is terminal; no path reopens a rejected submission.
func (s *ReviewService) Reject(ctx context.Context, id, reviewerID string) (*models.FeedbackSubmission, error) {
	return s.transition(ctx, id, reviewerID, models.SubmissionRejected, nil)
}

// MarkPaid credits the earned amount to the owner's total exactly once.
func (s *ReviewService) MarkPaid(ctx context.Context, id, reviewerID string) (*models.FeedbackSubmission, error) {
	return s.transition(ctx, id, reviewerID, models.SubmissionPaid, func(tx *gorm.DB, sub *models.FeedbackSubmission, updates map[string]interface{}) error {
		now := s.now()
		updates["paid_at"] = now
		sub.PaidAt = &now
		res := tx.Model(&models.Profile{}).
			Where("id = ?", sub.UserID).
			UpdateColumn("total_earned", gorm.Expr("total_earned + ?", sub.AmountEarned))
		if res.Error != nil {
			return fmt.Errorf("credit total earned: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound("profile")
		}
		return nil
	})
}

type transitionFunc func(tx *gorm.DB, sub *models.FeedbackSubmission, updates map[string]interface{}) error

func (s *ReviewService) transition(ctx context.Context, id, reviewerID string, next models.SubmissionStatus, apply transitionFunc) (*models.FeedbackSubmission, error) {
	if err := checkID(id, "submission"); err != nil {
		return nil, err
	}
	var sub models.FeedbackSubmission
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sub, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "submission")
		}
		if !sub.Status.CanTransitionTo(next) {
			return invalidTransition(string(sub.Status), string(next))
		}

		now := s.now()
		updates := map[string]interface{}{"status": next}
		if next != models.SubmissionPaid {
			updates["reviewed_at"] = now
			sub.ReviewedAt = &now
			if reviewerID != "" {
				updates["reviewed_by"] = reviewerID
				sub.ReviewedBy = &reviewerID
			}
		}
		if apply != nil {
			if err := apply(tx, &sub, updates); err != nil {
				return err
			}
		}
		sub.Status = next
		return tx.Model(&models.FeedbackSubmission{}).Where("id = ?", sub.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("🔁 submission transitioned", "submission_id", id, "status", next, "reviewer", reviewerID)
	return &sub, nil
}

type BulkAction string

const (
	BulkApprove  BulkAction = "approve"
	BulkReject   BulkAction = "reject"
	BulkMarkPaid BulkAction = "mark_paid"
)

type BulkResult struct {
	ID      string `json:"id"`
	Outcome string `json:"outcome"` // ok | skipped | error
	Error   string `json:"error,omitempty"`
}

// Bulk applies one action per id, each in its own transaction. Invalid
// transitions are reported as skipped.
func (s *ReviewService) Bulk(ctx context.Context, action BulkAction, ids []string, reviewerID string) ([]BulkResult, error) {
	var run func(string) error
	switch action {
	case BulkApprove:
		run = func(id string) error { _, err := s.Approve(ctx, id, reviewerID, nil); return err }
	case BulkReject:
		run = func(id string) error { _, err := s.Reject(ctx, id, reviewerID); return err }
	case BulkMarkPaid:
		run = func(id string) error { _, err := s.MarkPaid(ctx, id, reviewerID); return err }
	default:
		return nil, invalidInput("unknown bulk action %q", action)
	}
	if len(ids) == 0 {
		return nil, invalidInput("ids are required")
	}
	if len(ids) > 200 {
		return nil, invalidInput("at most 200 ids per request")
	}

	results := make([]BulkResult, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		err := run(id)
		switch {
		case err == nil:
			results = append(results, BulkResult{ID: id, Outcome: "ok"})
		case errors.Is(err, ErrInvalidTransition):
			results = append(results, BulkResult{ID: id, Outcome: "skipped", Error: err.Error()})
		default:
			results = append(results, BulkResult{ID: id, Outcome: "error", Error: err.Error()})
		}
	}
	return results, nil
}

type SubmissionFilter struct {
	Status     models.SubmissionStatus
	PlatformID string
	UserID     string
	Page       int
	Size       int
}

// ListSubmissions excludes in_progress rows unless explicitly requested.
func (s *ReviewService) ListSubmissions(ctx context.Context, f SubmissionFilter) ([]models.FeedbackSubmission, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Size <= 0 || f.Size > 100 {
		f.Size = 50
	}
	q := s.DB.WithContext(ctx).Model(&models.FeedbackSubmission{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	} else {
		q = q.Where("status <> ?", models.SubmissionInProgress)
	}
	if err := uuidFilter("platform_id", f.PlatformID); err != nil {
		return nil, 0, err
	}
	if err := uuidFilter("user_id", f.UserID); err != nil {
		return nil, 0, err
	}
	if f.PlatformID != "" {
		q = q.Where("platform_id = ?", f.PlatformID)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}
	var subs []models.FeedbackSubmission
	if err := q.Preload("Platform").Preload("Responses").
		Order("submitted_at DESC, created_at DESC").
		Offset((f.Page - 1) * f.Size).Limit(f.Size).
		Find(&subs).Error; err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}
	return subs, total, nil
}

// PayoutLine is one user's approved-but-unpaid balance.
type PayoutLine struct {
	UserID      string  `json:"user_id"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email"`
	PaypalEmail string  `json:"paypal_email"`
	Submissions int64   `json:"submissions"`
	Amount      float64 `json:"amount"`
	Formatted   string  `json:"formatted" gorm:"-"`
}

func (s *ReviewService) PayoutReport(ctx context.Context) ([]PayoutLine, error) {
	var lines []PayoutLine
	if err := s.DB.WithContext(ctx).Raw(`
		SELECT s.user_id, p.display_name, p.email, p.paypal_email,
		       COUNT(*) AS submissions, SUM(s.amount_earned) AS amount
		FROM feedback_submissions s
		INNER JOIN profiles p ON p.id = s.user_id
		WHERE s.status = ?
		GROUP BY s.user_id, p.display_name, p.email, p.paypal_email
		ORDER BY amount DESC
	`, models.SubmissionApproved).Scan(&lines).Error; err != nil {
		return nil, fmt.Errorf("payout report: %w", err)
	}
	for i := range lines {
		lines[i].Formatted = utils.FormatAmount(s.PayoutCurrency, lines[i].Amount)
	}
	return lines, nil
}
