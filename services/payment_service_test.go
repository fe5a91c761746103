package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"feedquire/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const testWebhookSecret = "sk_test_webhook"

func newTestPaymentService(db *gorm.DB, gateway TransactionVerifier) *PaymentService {
	return NewPaymentService(db, gateway, NewMemoryLedger(time.Hour), PaymentSettings{
		WebhookSecret: testWebhookSecret,
		PublicKey:     "pk_test",
		FeeMinor:      500000,
		Currency:      "NGN",
	}, testLogger())
}

func sign(body []byte) string {
	mac := hmac.New(sha512.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func chargeEvent(reference, userID string, amount int64) []byte {
	return []byte(fmt.Sprintf(`{"event":"charge.success","data":{"reference":%q,"amount":%d,"currency":"NGN","status":"success","paid_at":"2026-03-01T10:00:00Z","metadata":{"user_id":%q}}}`,
		reference, amount, userID))
}

func countPayments(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.Payment{}).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func TestVerifySignature(t *testing.T) {
	svc := newTestPaymentService(setupTestDB(t), nil)
	body := []byte(`{"event":"charge.success"}`)

	if !svc.VerifySignature(body, sign(body)) {
		t.Fatal("valid signature rejected")
	}
	if svc.VerifySignature(append(body, ' '), sign(body)) {
		t.Fatal("tampered body accepted")
	}
	if svc.VerifySignature(body, "") || svc.VerifySignature(body, "zz") {
		t.Fatal("malformed signature accepted")
	}
}

func TestWebhookConfirmsPayment(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestPaymentService(db, nil)
	user := seedProfile(t, db, models.AccountUnverified)
	body := chargeEvent("FQ-abc", user.ID, 500000)

	status, msg := svc.HandleWebhook(context.Background(), body, sign(body))
	if status != http.StatusOK {
		t.Fatalf("status = %d (%s)", status, msg)
	}
	if p := reloadProfile(t, db, user.ID); p.AccountStatus != models.AccountPaymentVerified {
		t.Fatalf("account status = %s", p.AccountStatus)
	}

	var payment models.Payment
	if err := db.First(&payment, "reference = ?", "FQ-abc").Error; err != nil {
		t.Fatal(err)
	}
	if payment.Status != models.PaymentSuccess || payment.Channel != models.ChannelWebhook || payment.PaidAt == nil {
		t.Fatalf("unexpected payment %+v", payment)
	}

	var activity models.ActivityLog
	if err := db.First(&activity, "user_id = ?", user.ID).Error; err != nil {
		t.Fatalf("activity log missing: %v", err)
	}
	if activity.PaymentReference != "FQ-abc" {
		t.Fatalf("activity reference = %q", activity.PaymentReference)
	}
}

func TestWebhookReplayIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestPaymentService(db, nil)
	user := seedProfile(t, db, models.AccountUnverified)
	body := chargeEvent("FQ-replay", user.ID, 500000)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if status, msg := svc.HandleWebhook(ctx, body, sign(body)); status != http.StatusOK {
			t.Fatalf("delivery %d: status = %d (%s)", i, status, msg)
		}
	}

	// A fresh ledger forces the database path; the outcome must not change.
	svc.Ledger = NewMemoryLedger(time.Hour)
	if status, _ := svc.HandleWebhook(ctx, body, sign(body)); status != http.StatusOK {
		t.Fatalf("replay without ledger: status = %d", status)
	}

	if n := countPayments(t, db); n != 1 {
		t.Fatalf("payments = %d, want 1", n)
	}
	if p := reloadProfile(t, db, user.ID); p.AccountStatus != models.AccountPaymentVerified {
		t.Fatalf("account status = %s", p.AccountStatus)
	}
}

func TestWebhookNeverDemotes(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestPaymentService(db, nil)
	user := seedProfile(t, db, models.AccountQualified)
	body := chargeEvent("FQ-late", user.ID, 500000)

	if status, _ := svc.HandleWebhook(context.Background(), body, sign(body)); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if p := reloadProfile(t, db, user.ID); p.AccountStatus != models.AccountQualified {
		t.Fatalf("qualified account changed to %s", p.AccountStatus)
	}
}

func TestWebhookRejections(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestPaymentService(db, nil)
	user := seedProfile(t, db, models.AccountUnverified)
	ctx := context.Background()

	body := chargeEvent("FQ-tamper", user.ID, 500000)
	tampered := []byte(strings.Replace(string(body), "500000", "500001", 1))
	if status, _ := svc.HandleWebhook(ctx, tampered, sign(body)); status != http.StatusUnauthorized {
		t.Fatalf("tampered: status = %d, want 401", status)
	}

	other := []byte(`{"event":"transfer.success","data":{}}`)
	if status, _ := svc.HandleWebhook(ctx, other, sign(other)); status != http.StatusOK {
		t.Fatalf("ignored event: status = %d, want 200", status)
	}

	noUser := []byte(`{"event":"charge.success","data":{"reference":"FQ-x","amount":500000,"metadata":""}}`)
	if status, _ := svc.HandleWebhook(ctx, noUser, sign(noUser)); status != http.StatusBadRequest {
		t.Fatalf("missing user: status = %d, want 400", status)
	}

	noRef := []byte(`{"event":"charge.success","data":{"amount":500000,"metadata":{"user_id":"u"}}}`)
	if status, _ := svc.HandleWebhook(ctx, noRef, sign(noRef)); status != http.StatusBadRequest {
		t.Fatalf("missing reference: status = %d, want 400", status)
	}

	ghost := chargeEvent("FQ-ghost", "11111111-1111-1111-1111-111111111111", 500000)
	if status, _ := svc.HandleWebhook(ctx, ghost, sign(ghost)); status != http.StatusInternalServerError {
		t.Fatalf("unknown profile: status = %d, want 500", status)
	}

	if n := countPayments(t, db); n != 0 {
		t.Fatalf("rejected deliveries wrote %d payments", n)
	}
	if p := reloadProfile(t, db, user.ID); p.AccountStatus != models.AccountUnverified {
		t.Fatalf("account status = %s", p.AccountStatus)
	}
}

func TestWebhookForeignReferenceIsBadRequest(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestPaymentService(db, nil)
	ctx := context.Background()
	owner := seedProfile(t, db, models.AccountUnverified)
	other := seedProfile(t, db, models.AccountUnverified)
	if err := db.Create(&models.Payment{ID: uuid.NewString(), Reference: "FQ-owned", UserID: owner.ID, Amount: 500000, Currency: "NGN", Status: models.PaymentPending}).Error; err != nil {
		t.Fatal(err)
	}

	body := chargeEvent("FQ-owned", other.ID, 500000)
	if status, _ := svc.HandleWebhook(ctx, body, sign(body)); status != http.StatusBadRequest {
		t.Fatalf("foreign reference: status = %d, want 400", status)
	}
	if got := reloadProfile(t, db, other.ID); got.AccountStatus != models.AccountUnverified {
		t.Fatalf("other user promoted to %s", got.AccountStatus)
	}
	var p models.Payment
	db.First(&p, "reference = ?", "FQ-owned")
	if p.Status != models.PaymentPending || p.UserID != owner.ID {
		t.Fatalf("payment changed: %+v", p)
	}
}

func TestUnderpaidChargeDoesNotPromote(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestPaymentService(db, nil)
	user := seedProfile(t, db, models.AccountUnverified)
	body := chargeEvent("FQ-small", user.ID, 100)

	if status, _ := svc.HandleWebhook(context.Background(), body, sign(body)); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if n := countPayments(t, db); n != 1 {
		t.Fatalf("underpaid charge should still be recorded, payments = %d", n)
	}
	if p := reloadProfile(t, db, user.ID); p.AccountStatus != models.AccountUnverified {
		t.Fatalf("account status = %s", p.AccountStatus)
	}
}

func fakePaystack(t *testing.T, statuses map[string]string, userID string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		ref := strings.TrimPrefix(r.URL.Path, "/transaction/verify/")
		status, ok := statuses[ref]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":false,"message":"Transaction reference not found"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"status":true,"message":"Verification successful","data":{"reference":%q,"amount":500000,"currency":"NGN","status":%q,"metadata":{"user_id":%q}}}`,
			ref, status, userID)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckoutAndClientVerify(t *testing.T) {
	db := setupTestDB(t)
	user := seedProfile(t, db, models.AccountUnverified)
	stranger := seedProfile(t, db, models.AccountUnverified)
	ctx := context.Background()

	statuses := map[string]string{}
	srv := fakePaystack(t, statuses, user.ID)
	svc := newTestPaymentService(db, NewPaystackClient(srv.URL, "sk_test", srv.Client()))

	checkout, err := svc.InitializeCheckout(ctx, user.ID)
	if err != nil {
		t.Fatalf("InitializeCheckout: %v", err)
	}
	if !strings.HasPrefix(checkout.Reference, "FQ-") || checkout.Amount != 500000 || checkout.PublicKey != "pk_test" {
		t.Fatalf("unexpected checkout %+v", checkout)
	}

	if _, err := svc.VerifyForUser(ctx, stranger.ID, checkout.Reference); err == nil {
		t.Fatal("verifying someone else's reference must fail")
	}
	if _, err := svc.VerifyForUser(ctx, user.ID, "FQ-unknown"); err == nil {
		t.Fatal("unknown reference must fail")
	}

	pending, err := svc.VerifyForUser(ctx, user.ID, checkout.Reference)
	if err != nil {
		t.Fatalf("VerifyForUser (not yet paid): %v", err)
	}
	if pending.Status != models.PaymentPending {
		t.Fatalf("status = %s, want pending", pending.Status)
	}

	statuses[checkout.Reference] = "success"
	paid, err := svc.VerifyForUser(ctx, user.ID, checkout.Reference)
	if err != nil {
		t.Fatalf("VerifyForUser: %v", err)
	}
	if paid.Status != models.PaymentSuccess || paid.Channel != models.ChannelClientVerify {
		t.Fatalf("unexpected payment %+v", paid)
	}
	if p := reloadProfile(t, db, user.ID); p.AccountStatus != models.AccountPaymentVerified {
		t.Fatalf("account status = %s", p.AccountStatus)
	}
	if n := countPayments(t, db); n != 1 {
		t.Fatalf("payments = %d, want 1", n)
	}

	if _, err := svc.InitializeCheckout(ctx, user.ID); err == nil {
		t.Fatal("checkout after activation must fail")
	}
}

func TestReconcilePending(t *testing.T) {
	db := setupTestDB(t)
	user := seedProfile(t, db, models.AccountUnverified)
	statuses := map[string]string{"FQ-ok": "success", "FQ-bad": "failed"}
	srv := fakePaystack(t, statuses, user.ID)
	svc := newTestPaymentService(db, NewPaystackClient(srv.URL, "sk_test", srv.Client()))

	old := time.Now().UTC().Add(-2 * time.Hour)
	ancient := time.Now().UTC().Add(-48 * time.Hour)
	for ref, created := range map[string]time.Time{"FQ-ok": old, "FQ-bad": old, "FQ-stale": ancient, "FQ-fresh": time.Now().UTC()} {
		p := models.Payment{ID: ref + "-id", Reference: ref, UserID: user.ID, Amount: 500000, Currency: "NGN", Status: models.PaymentPending}
		p.CreatedAt = created
		if err := db.Create(&p).Error; err != nil {
			t.Fatal(err)
		}
	}

	stats, err := svc.ReconcilePending(context.Background(), time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("ReconcilePending: %v", err)
	}
	if stats.Checked != 3 || stats.Confirmed != 1 || stats.Failed != 1 || stats.Abandoned != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	want := map[string]models.PaymentStatus{
		"FQ-ok":    models.PaymentSuccess,
		"FQ-bad":   models.PaymentFailed,
		"FQ-stale": models.PaymentAbandoned,
		"FQ-fresh": models.PaymentPending,
	}
	for ref, status := range want {
		var p models.Payment
		if err := db.First(&p, "reference = ?", ref).Error; err != nil {
			t.Fatal(err)
		}
		if p.Status != status {
			t.Errorf("%s: status = %s, want %s", ref, p.Status, status)
		}
	}
	if p := reloadProfile(t, db, user.ID); p.AccountStatus != models.AccountPaymentVerified {
		t.Fatalf("account status = %s", p.AccountStatus)
	}
}
