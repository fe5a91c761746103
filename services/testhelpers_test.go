package services

import (
	"testing"
	"time"

	"feedquire/logger"
	"feedquire/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB opens a private in-memory SQLite database with every model migrated.
// A single connection keeps the in-memory database shared across queries.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func testLogger() *logger.Logger { return logger.Nop() }

func seedProfile(t *testing.T, db *gorm.DB, status models.AccountStatus) *models.Profile {
	t.Helper()
	p := &models.Profile{
		ID:            uuid.NewString(),
		Email:         uuid.NewString()[:8] + "@example.com",
		DisplayName:   "tester",
		Role:          models.RoleUser,
		AccountStatus: status,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	return p
}

func seedPlatform(t *testing.T, db *gorm.DB, domain string, amount float64, assessment bool) *models.AIPlatform {
	t.Helper()
	p := &models.AIPlatform{
		ID:           uuid.NewString(),
		Slug:         uuid.NewString(),
		Domain:       domain,
		Amount:       amount,
		Status:       models.PlatformActive,
		IsAssessment: assessment,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed platform: %v", err)
	}
	return p
}

// seedQuestions creates n questions in one section, ordered 1..n.
func seedQuestions(t *testing.T, db *gorm.DB, platformID *string, n int) []models.FeedbackQuestion {
	t.Helper()
	out := make([]models.FeedbackQuestion, 0, n)
	for i := 1; i <= n; i++ {
		q := models.FeedbackQuestion{
			ID:            uuid.NewString(),
			PlatformID:    platformID,
			SectionNumber: 1,
			SectionTitle:  "General",
			Text:          "Question",
			Order:         i,
		}
		if err := db.Create(&q).Error; err != nil {
			t.Fatalf("seed question: %v", err)
		}
		out = append(out, q)
	}
	return out
}

func answersFor(qs []models.FeedbackQuestion, text string) []Answer {
	out := make([]Answer, 0, len(qs))
	for _, q := range qs {
		out = append(out, Answer{QuestionID: q.ID, Text: text})
	}
	return out
}

func reloadProfile(t *testing.T, db *gorm.DB, id string) *models.Profile {
	t.Helper()
	var p models.Profile
	if err := db.First(&p, "id = ?", id).Error; err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	return &p
}
