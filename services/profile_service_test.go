package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"feedquire/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func TestEnsureProfileProvisionsOnce(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProfileService(db, testLogger())
	ctx := context.Background()
	id := Identity{UserID: uuid.NewString(), Email: "Ada@Example.com"}

	p, err := svc.EnsureProfile(ctx, id)
	if err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	if p.AccountStatus != models.AccountUnverified || p.Role != models.RoleUser {
		t.Fatalf("unexpected new profile %+v", p)
	}
	if p.Email != "ada@example.com" || p.DisplayName != "Ada" {
		t.Fatalf("email/display name = %q/%q", p.Email, p.DisplayName)
	}

	db.Model(&models.Profile{}).Where("id = ?", id.UserID).Update("account_status", models.AccountQualified)
	again, err := svc.EnsureProfile(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if again.AccountStatus != models.AccountQualified {
		t.Fatal("EnsureProfile must not overwrite an existing profile")
	}
}

func TestUpdateProfile(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProfileService(db, testLogger())
	p := seedProfile(t, db, models.AccountQualified)
	ctx := context.Background()

	name, paypal := "  Grace ", "Grace@Example.com"
	got, err := svc.UpdateProfile(ctx, p.ID, ProfileUpdate{DisplayName: &name, PaypalEmail: &paypal})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.DisplayName != "Grace" || got.PaypalEmail != "grace@example.com" {
		t.Fatalf("unexpected profile %+v", got)
	}

	bad := "not-an-email"
	if _, err := svc.UpdateProfile(ctx, p.ID, ProfileUpdate{PaypalEmail: &bad}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestSetAccountStatusIsOneDirectional(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProfileService(db, testLogger())
	p := seedProfile(t, db, models.AccountQualified)
	ctx := context.Background()

	if _, err := svc.SetAccountStatus(ctx, p.ID, models.AccountUnverified); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("demotion: expected invalid transition, got %v", err)
	}
	if _, err := svc.SetAccountStatus(ctx, p.ID, models.AccountBanned); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if _, err := svc.SetAccountStatus(ctx, p.ID, models.AccountQualified); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("unban: expected invalid transition, got %v", err)
	}
	if _, err := svc.SetAccountStatus(ctx, p.ID, models.AccountStatus("vip")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown status: expected invalid input, got %v", err)
	}
}

func TestOperatorCannotQualifyOrVerify(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProfileService(db, testLogger())
	ctx := context.Background()

	verified := seedProfile(t, db, models.AccountPaymentVerified)
	if _, err := svc.SetAccountStatus(ctx, verified.ID, models.AccountQualified); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("qualify by hand: expected invalid transition, got %v", err)
	}
	if got := reloadProfile(t, db, verified.ID); got.AccountStatus != models.AccountPaymentVerified {
		t.Fatalf("status = %s, want payment_verified", got.AccountStatus)
	}

	fresh := seedProfile(t, db, models.AccountUnverified)
	if _, err := svc.SetAccountStatus(ctx, fresh.ID, models.AccountPaymentVerified); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("verify by hand: expected invalid transition, got %v", err)
	}
	if _, err := svc.SetAccountStatus(ctx, fresh.ID, models.AccountRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
}

func TestSweepUnverified(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProfileService(db, testLogger())
	ctx := context.Background()
	old := time.Now().UTC().Add(-72 * time.Hour)

	stale := &models.Profile{ID: uuid.NewString(), Email: "stale@example.com", Role: models.RoleUser, AccountStatus: models.AccountUnverified}
	stale.CreatedAt = old
	paid := &models.Profile{ID: uuid.NewString(), Email: "paid@example.com", Role: models.RoleUser, AccountStatus: models.AccountUnverified}
	paid.CreatedAt = old
	verified := &models.Profile{ID: uuid.NewString(), Email: "verified@example.com", Role: models.RoleUser, AccountStatus: models.AccountPaymentVerified}
	verified.CreatedAt = old
	for _, p := range []*models.Profile{stale, paid, verified} {
		if err := db.Create(p).Error; err != nil {
			t.Fatal(err)
		}
	}
	seedProfile(t, db, models.AccountUnverified)

	db.Create(&models.Payment{ID: uuid.NewString(), Reference: "FQ-paid", UserID: paid.ID, Amount: 1, Currency: "NGN", Status: models.PaymentSuccess})
	db.Create(&models.Payment{ID: uuid.NewString(), Reference: "FQ-pending", UserID: stale.ID, Amount: 1, Currency: "NGN", Status: models.PaymentPending})
	db.Create(&models.Ticket{ID: uuid.NewString(), UserID: stale.ID, Title: "help", Description: "x", Status: models.TicketOpen})

	n, err := svc.SweepUnverified(ctx, 48*time.Hour)
	if err != nil {
		t.Fatalf("SweepUnverified: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted = %d, want 1", n)
	}

	var remaining []string
	db.Model(&models.Profile{}).Pluck("id", &remaining)
	if len(remaining) != 3 {
		t.Fatalf("remaining profiles = %d, want 3", len(remaining))
	}
	for _, id := range remaining {
		if id == stale.ID {
			t.Fatal("stale profile survived")
		}
	}
	var orphans int64
	db.Model(&models.Ticket{}).Where("user_id = ?", stale.ID).Count(&orphans)
	if orphans != 0 {
		t.Fatal("owned tickets were not removed")
	}
}

func TestSweepSparesProfileConfirmedMidSweep(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProfileService(db, testLogger())
	ctx := context.Background()

	p := &models.Profile{ID: uuid.NewString(), Email: "late@example.com", Role: models.RoleUser, AccountStatus: models.AccountUnverified}
	p.CreatedAt = time.Now().UTC().Add(-72 * time.Hour)
	if err := db.Create(p).Error; err != nil {
		t.Fatal(err)
	}
	ticket := &models.Ticket{ID: uuid.NewString(), UserID: p.ID, Title: "help", Description: "x", Status: models.TicketOpen}
	if err := db.Create(ticket).Error; err != nil {
		t.Fatal(err)
	}

	// A charge lands between picking the candidates and deleting them.
	fired := false
	err := db.Callback().Delete().Before("gorm:delete").Register("test:confirm_mid_sweep", func(d *gorm.DB) {
		if fired || d.Statement.Table != "profiles" {
			return
		}
		fired = true
		d.Session(&gorm.Session{NewDB: true}).Model(&models.Profile{}).
			Where("id = ?", p.ID).
			Update("account_status", models.AccountPaymentVerified)
	})
	if err != nil {
		t.Fatal(err)
	}

	n, err := svc.SweepUnverified(ctx, 48*time.Hour)
	if err != nil {
		t.Fatalf("SweepUnverified: %v", err)
	}
	if !fired {
		t.Fatal("delete callback did not run")
	}
	if n != 0 {
		t.Fatalf("deleted = %d, want 0", n)
	}
	if got := reloadProfile(t, db, p.ID); got.AccountStatus != models.AccountPaymentVerified {
		t.Fatalf("status = %s, want payment_verified", got.AccountStatus)
	}
	var tickets int64
	db.Model(&models.Ticket{}).Where("user_id = ?", p.ID).Count(&tickets)
	if tickets != 1 {
		t.Fatalf("tickets = %d, want 1", tickets)
	}
}

func TestEarnings(t *testing.T) {
	db := setupTestDB(t)
	subs := NewSubmissionService(db, false, 50, testLogger())
	review := NewReviewService(db, "USD", testLogger())
	profiles := NewProfileService(db, testLogger())
	qs := seedQuestions(t, db, nil, 1)
	user := seedProfile(t, db, models.AccountQualified)
	ctx := context.Background()

	a := submitFor(t, subs, user.ID, seedPlatform(t, db, "a.example", 2, false), qs)
	b := submitFor(t, subs, user.ID, seedPlatform(t, db, "b.example", 3, false), qs)
	submitFor(t, subs, user.ID, seedPlatform(t, db, "c.example", 7, false), qs)
	for _, id := range []string{a.ID, b.ID} {
		if _, err := review.Approve(ctx, id, "", nil); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := review.MarkPaid(ctx, b.ID, ""); err != nil {
		t.Fatal(err)
	}

	sum, err := profiles.Earnings(ctx, user.ID)
	if err != nil {
		t.Fatalf("Earnings: %v", err)
	}
	if sum.ApprovedCount != 1 || sum.ApprovedAmount != 2 || sum.PaidCount != 1 || sum.PaidAmount != 3 || sum.PendingCount != 1 || sum.TotalEarned != 3 {
		t.Fatalf("unexpected summary %+v", sum)
	}
}
