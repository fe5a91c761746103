package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"feedquire/logger"
	"feedquire/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransactionVerifier looks a charge up at the gateway.
type TransactionVerifier interface {
	VerifyTransaction(ctx context.Context, reference string) (*PaystackTransaction, []byte, error)
}

type PaymentService struct {
	DB       *gorm.DB
	Gateway  TransactionVerifier
	Ledger   EventLedger
	log      *logger.Logger
	now      func() time.Time
	settings PaymentSettings
}

type PaymentSettings struct {
	WebhookSecret string
	PublicKey     string
	FeeMinor      int64
	Currency      string
}

func NewPaymentService(db *gorm.DB, gateway TransactionVerifier, ledger EventLedger, settings PaymentSettings, log *logger.Logger) *PaymentService {
	if ledger == nil {
		ledger = NewMemoryLedger(24 * time.Hour)
	}
	return &PaymentService{
		DB:       db,
		Gateway:  gateway,
		Ledger:   ledger,
		settings: settings,
		log:      log.With("service", "PaymentService"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type Checkout struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Email     string `json:"email"`
	PublicKey string `json:"public_key"`
}

// InitializeCheckout records a pending activation payment for the inline widget.
func (s *PaymentService) InitializeCheckout(ctx context.Context, userID string) (*Checkout, error) {
	var profile models.Profile
	if err := s.DB.WithContext(ctx).First(&profile, "id = ?", userID).Error; err != nil {
		return nil, notFoundOr(err, "profile")
	}
	if profile.AccountStatus != models.AccountUnverified {
		return nil, conflict("activation fee already settled")
	}

	payment := models.Payment{
		ID:        uuid.NewString(),
		Reference: "FQ-" + uuid.NewString(),
		UserID:    userID,
		Amount:    s.settings.FeeMinor,
		Currency:  s.settings.Currency,
		Status:    models.PaymentPending,
		Channel:   models.ChannelCheckout,
	}
	if err := s.DB.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, fmt.Errorf("create pending payment: %w", err)
	}
	s.log.Info("💳 checkout initialized", "user_id", userID, "reference", payment.Reference)
	return &Checkout{
		Reference: payment.Reference,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		Email:     profile.Email,
		PublicKey: s.settings.PublicKey,
	}, nil
}

// VerifySignature checks the hex HMAC-SHA512 Paystack puts in x-paystack-signature.
func (s *PaymentService) VerifySignature(body []byte, signature string) bool {
	if s.settings.WebhookSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(s.settings.WebhookSecret))
	mac.Write(body)
	expected := mac.Sum(nil)
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

type webhookEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// HandleWebhook processes a raw Paystack event and returns the status and message to answer with.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) (int, string) {
	if !s.VerifySignature(body, signature) {
		s.log.Warn("⛔ webhook signature mismatch")
		return fiber.StatusUnauthorized, "invalid signature"
	}

	var evt webhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return fiber.StatusBadRequest, "invalid payload"
	}
	if evt.Event != "charge.success" {
		s.log.Debug("webhook event ignored", "event", evt.Event)
		return fiber.StatusOK, "ignored"
	}

	var txn PaystackTransaction
	if err := json.Unmarshal(evt.Data, &txn); err != nil {
		return fiber.StatusBadRequest, "invalid payload"
	}
	txn.Reference = strings.TrimSpace(txn.Reference)
	if txn.Reference == "" {
		return fiber.StatusBadRequest, "missing reference"
	}
	userID := txn.UserID()
	if userID == "" {
		return fiber.StatusBadRequest, "missing user_id"
	}

	seen, err := s.Ledger.Seen(ctx, txn.Reference)
	if err != nil {
		s.log.Warn("replay ledger lookup failed, processing anyway", "reference", txn.Reference, "error", err)
	}
	if seen {
		s.log.Info("🔁 webhook replay acknowledged", "reference", txn.Reference)
		return fiber.StatusOK, "already processed"
	}

	if _, err := s.ConfirmCharge(ctx, chargeFrom(&txn, userID, evt.Data), models.ChannelWebhook); err != nil {
		// A mismatched event never succeeds on retry.
		if errors.Is(err, ErrInvalidInput) {
			s.log.Warn("⚠️ webhook rejected", "reference", txn.Reference, "user_id", userID, "error", err)
			return fiber.StatusBadRequest, "invalid event"
		}
		s.log.Error("❌ webhook confirmation failed", "reference", txn.Reference, "user_id", userID, "error", err)
		return fiber.StatusInternalServerError, "confirmation failed"
	}
	return fiber.StatusOK, "ok"
}

// Charge is a gateway-confirmed successful payment.
type Charge struct {
	Reference string
	UserID    string
	Amount    int64
	Currency  string
	PaidAt    *time.Time
	Raw       []byte
}

func chargeFrom(txn *PaystackTransaction, userID string, raw []byte) Charge {
	return Charge{
		Reference: txn.Reference,
		UserID:    userID,
		Amount:    txn.Amount,
		Currency:  strings.ToUpper(txn.Currency),
		PaidAt:    txn.PaidAt,
		Raw:       raw,
	}
}

// ConfirmCharge is the one place a successful charge is applied. The payment
// upsert and the profile advance commit together; replays converge on the same state.
func (s *PaymentService) ConfirmCharge(ctx context.Context, ch Charge, channel models.PaymentChannel) (*models.Payment, error) {
	if ch.Reference == "" || ch.UserID == "" {
		return nil, invalidInput("reference and user id are required")
	}
	paidAt := s.now()
	if ch.PaidAt != nil {
		paidAt = ch.PaidAt.UTC()
	}

	var (
		payment  models.Payment
		promoted bool
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payment, "reference = ?", ch.Reference).Error
		switch {
		case err == nil:
			if payment.UserID != ch.UserID {
				return invalidInput("reference %s belongs to another user", ch.Reference)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			payment = models.Payment{ID: uuid.NewString(), Reference: ch.Reference, UserID: ch.UserID}
		default:
			return fmt.Errorf("load payment: %w", err)
		}

		if payment.Status != models.PaymentSuccess {
			payment.Amount = ch.Amount
			payment.Currency = ch.Currency
			payment.Status = models.PaymentSuccess
			payment.Channel = channel
			payment.PaidAt = &paidAt
			if len(ch.Raw) > 0 && json.Valid(ch.Raw) {
				payment.RawPayload = datatypes.JSON(ch.Raw)
			}
			if payment.CreatedAt.IsZero() {
				err = tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "reference"}},
					DoUpdates: clause.AssignmentColumns([]string{"amount", "currency", "status", "channel", "raw_payload", "paid_at", "updated_at"}),
				}).Create(&payment).Error
			} else {
				err = tx.Save(&payment).Error
			}
			if err != nil {
				return fmt.Errorf("upsert payment: %w", err)
			}
		}

		var profile models.Profile
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&profile, "id = ?", ch.UserID).Error; err != nil {
			return notFoundOr(err, "profile")
		}
		if profile.AccountStatus != models.AccountUnverified {
			return nil
		}
		if !s.coversFee(payment) {
			s.log.Warn("⚠️ charge below activation fee, profile not advanced",
				"reference", payment.Reference, "amount", payment.Amount, "currency", payment.Currency)
			return nil
		}
		res := tx.Model(&models.Profile{}).
			Where("id = ? AND account_status = ?", ch.UserID, models.AccountUnverified).
			Update("account_status", models.AccountPaymentVerified)
		if res.Error != nil {
			return fmt.Errorf("advance profile: %w", res.Error)
		}
		promoted = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return nil, err
	}

	if promoted {
		s.log.Info("✅ payment verified", "user_id", ch.UserID, "reference", ch.Reference, "channel", channel)
	}
	recordActivity(ctx, s.DB, s.log, ch.UserID, "payment_"+string(channel), &payment)
	if err := s.Ledger.Mark(ctx, ch.Reference); err != nil {
		s.log.Warn("replay ledger mark failed (ignored)", "reference", ch.Reference, "error", err)
	}
	return &payment, nil
}

func (s *PaymentService) coversFee(p models.Payment) bool {
	if s.settings.FeeMinor <= 0 {
		return true
	}
	if s.settings.Currency != "" && p.Currency != "" && !strings.EqualFold(p.Currency, s.settings.Currency) {
		return false
	}
	return p.Amount >= s.settings.FeeMinor
}

// VerifyForUser confirms the caller's own reference with the gateway.
func (s *PaymentService) VerifyForUser(ctx context.Context, userID, reference string) (*models.Payment, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, invalidInput("reference is required")
	}
	var payment models.Payment
	if err := s.DB.WithContext(ctx).First(&payment, "reference = ?", reference).Error; err != nil {
		return nil, notFoundOr(err, "payment")
	}
	if payment.UserID != userID {
		return nil, forbidden("payment belongs to another user")
	}
	if payment.Status == models.PaymentSuccess {
		return &payment, nil
	}
	return s.settle(ctx, &payment, models.ChannelClientVerify, 0)
}

// settle asks the gateway about a non-final payment and applies the answer.
// A positive abandonAfter marks still-pending payments older than it as abandoned.
func (s *PaymentService) settle(ctx context.Context, payment *models.Payment, channel models.PaymentChannel, abandonAfter time.Duration) (*models.Payment, error) {
	if s.Gateway == nil {
		return nil, unavailable("payment gateway is not configured")
	}
	txn, raw, err := s.Gateway.VerifyTransaction(ctx, payment.Reference)
	if err != nil && !errors.Is(err, ErrTransactionNotFound) {
		return nil, fmt.Errorf("verify %s: %w", payment.Reference, err)
	}

	status := ""
	if txn != nil {
		status = strings.ToLower(txn.Status)
	}
	switch status {
	case "success":
		return s.ConfirmCharge(ctx, chargeFrom(txn, payment.UserID, raw), channel)
	case "failed", "reversed":
		return s.markPayment(ctx, payment, models.PaymentFailed)
	}
	// Paystack reports unfinished checkouts as "abandoned" while they can still be paid.
	if abandonAfter > 0 && s.now().Sub(payment.CreatedAt) > abandonAfter {
		return s.markPayment(ctx, payment, models.PaymentAbandoned)
	}
	return payment, nil
}

func (s *PaymentService) markPayment(ctx context.Context, payment *models.Payment, status models.PaymentStatus) (*models.Payment, error) {
	res := s.DB.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", payment.ID, models.PaymentPending).
		Update("status", status)
	if res.Error != nil {
		return nil, fmt.Errorf("update payment status: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		payment.Status = status
		recordActivity(ctx, s.DB, s.log, payment.UserID, "payment_"+string(status), payment)
	}
	return payment, nil
}

type ReconcileStats struct {
	Checked   int `json:"checked"`
	Confirmed int `json:"confirmed"`
	Failed    int `json:"failed"`
	Abandoned int `json:"abandoned"`
	Errors    int `json:"errors"`
}

// ReconcilePending re-verifies pending payments older than olderThan.
func (s *PaymentService) ReconcilePending(ctx context.Context, olderThan, abandonAfter time.Duration) (ReconcileStats, error) {
	var stats ReconcileStats
	var pending []models.Payment
	if err := s.DB.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.PaymentPending, s.now().Add(-olderThan)).
		Order("created_at ASC").
		Limit(100).
		Find(&pending).Error; err != nil {
		return stats, fmt.Errorf("load pending payments: %w", err)
	}

	for i := range pending {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		stats.Checked++
		p, err := s.settle(ctx, &pending[i], models.ChannelReconcile, abandonAfter)
		if err != nil {
			stats.Errors++
			s.log.Warn("reconcile failed", "reference", pending[i].Reference, "error", err)
			continue
		}
		switch p.Status {
		case models.PaymentSuccess:
			stats.Confirmed++
		case models.PaymentFailed:
			stats.Failed++
		case models.PaymentAbandoned:
			stats.Abandoned++
		}
	}
	if stats.Checked > 0 {
		s.log.Info("🧾 reconcile pass", "checked", stats.Checked, "confirmed", stats.Confirmed,
			"failed", stats.Failed, "abandoned", stats.Abandoned, "errors", stats.Errors)
	}
	return stats, nil
}

func (s *PaymentService) MyPayments(ctx context.Context, userID string) ([]models.Payment, error) {
	var out []models.Payment
	if err := s.DB.WithContext(ctx).
		Omit("raw_payload").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return out, nil
}
