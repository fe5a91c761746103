package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"feedquire/logger"
	"feedquire/models"
	"feedquire/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubmissionService struct {
	DB  *gorm.DB
	log *logger.Logger
	now func() time.Time

	// PersistAllResponses stores every answer instead of only the final question's.
	PersistAllResponses bool
	MaxWords            int
}

func NewSubmissionService(db *gorm.DB, persistAll bool, maxWords int, log *logger.Logger) *SubmissionService {
	if maxWords <= 0 {
		maxWords = 50
	}
	return &SubmissionService{
		DB:                  db,
		log:                 log.With("service", "SubmissionService"),
		now:                 func() time.Time { return time.Now().UTC() },
		PersistAllResponses: persistAll,
		MaxWords:            maxWords,
	}
}

type Answer struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
}

type SubmissionInput struct {
	Answers              []Answer `json:"answers"`
	CompletionPercentage int      `json:"completion_percentage"`
}

// SubmitAssessment upserts the caller's assessment submission. Only payment-verified
// accounts may submit; a reviewed assessment cannot be replaced.
func (s *SubmissionService) SubmitAssessment(ctx context.Context, userID string, in SubmissionInput) (*models.FeedbackSubmission, error) {
	var sub models.FeedbackSubmission
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := loadProfile(tx, userID)
		if err != nil {
			return err
		}
		switch profile.AccountStatus {
		case models.AccountPaymentVerified:
		case models.AccountUnverified:
			return forbidden("activation payment required before the assessment")
		case models.AccountQualified:
			return conflict("account is already qualified")
		default:
			return forbidden("account is " + string(profile.AccountStatus))
		}

		platform, err := assessmentPlatform(tx)
		if err != nil {
			return err
		}
		questions, err := questionsFor(tx, platform.ID)
		if err != nil {
			return err
		}
		responses, completion, err := s.prepareResponses(questions, in)
		if err != nil {
			return err
		}

		now := s.now()
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND platform_id = ?", userID, platform.ID).
			First(&sub).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			sub = models.FeedbackSubmission{
				ID:                   uuid.NewString(),
				UserID:               userID,
				PlatformID:           platform.ID,
				Status:               models.SubmissionSubmitted,
				CompletionPercentage: completion,
				SubmittedAt:          &now,
			}
			if err := tx.Create(&sub).Error; err != nil {
				return fmt.Errorf("create assessment submission: %w", err)
			}
		case err != nil:
			return err
		case sub.Status == models.SubmissionSubmitted || sub.Status == models.SubmissionInProgress:
			if err := tx.Where("submission_id = ?", sub.ID).Delete(&models.SubmissionResponse{}).Error; err != nil {
				return fmt.Errorf("clear previous responses: %w", err)
			}
			sub.Status = models.SubmissionSubmitted
			sub.CompletionPercentage = completion
			sub.SubmittedAt = &now
			if err := tx.Model(&sub).Updates(map[string]interface{}{
				"status":                sub.Status,
				"completion_percentage": completion,
				"submitted_at":          now,
			}).Error; err != nil {
				return fmt.Errorf("update assessment submission: %w", err)
			}
		default:
			return conflict("assessment already " + string(sub.Status))
		}

		return saveResponses(tx, sub.ID, responses)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("📝 assessment submitted", "user_id", userID, "submission_id", sub.ID)
	recordActivity(ctx, s.DB, s.log, userID, "assessment_submitted", nil)
	return s.GetSubmission(ctx, sub.ID)
}

// SubmitTask creates the caller's single submission for a regular task platform.
func (s *SubmissionService) SubmitTask(ctx context.Context, userID, platformID string, in SubmissionInput) (*models.FeedbackSubmission, error) {
	if err := checkID(platformID, "platform"); err != nil {
		return nil, err
	}
	var sub models.FeedbackSubmission
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := loadProfile(tx, userID)
		if err != nil {
			return err
		}
		if profile.AccountStatus != models.AccountQualified {
			return forbidden("tasks unlock after the assessment is approved")
		}

		var platform models.AIPlatform
		if err := tx.First(&platform, "id = ?", platformID).Error; err != nil {
			return notFoundOr(err, "platform")
		}
		if platform.IsAssessment {
			return invalidInput("use the assessment endpoint for the assessment platform")
		}
		if platform.Status != models.PlatformActive {
			return conflict("platform is " + string(platform.Status))
		}

		var existing int64
		if err := tx.Model(&models.FeedbackSubmission{}).
			Where("user_id = ? AND platform_id = ?", userID, platformID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return conflict("a submission for this platform already exists")
		}

		questions, err := questionsFor(tx, platformID)
		if err != nil {
			return err
		}
		responses, completion, err := s.prepareResponses(questions, in)
		if err != nil {
			return err
		}

		now := s.now()
		sub = models.FeedbackSubmission{
			ID:                   uuid.NewString(),
			UserID:               userID,
			PlatformID:           platformID,
			Status:               models.SubmissionSubmitted,
			CompletionPercentage: completion,
			SubmittedAt:          &now,
		}
		if err := tx.Create(&sub).Error; err != nil {
			if isDuplicate(err) {
				return conflict("a submission for this platform already exists")
			}
			return fmt.Errorf("create submission: %w", err)
		}
		return saveResponses(tx, sub.ID, responses)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("📝 task submitted", "user_id", userID, "platform_id", platformID, "submission_id", sub.ID)
	recordActivity(ctx, s.DB, s.log, userID, "task_submitted", nil)
	return s.GetSubmission(ctx, sub.ID)
}

// prepareResponses validates answers and selects the rows to persist. Unless
// PersistAllResponses is set, only the last question (by section, then order) is kept.
func (s *SubmissionService) prepareResponses(questions []models.FeedbackQuestion, in SubmissionInput) ([]models.SubmissionResponse, int, error) {
	if len(questions) == 0 {
		return nil, 0, conflict("questionnaire is not configured")
	}
	known := make(map[string]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}

	answers := make(map[string]string, len(in.Answers))
	for _, a := range in.Answers {
		if !known[a.QuestionID] {
			return nil, 0, invalidInput("question %q is not part of this questionnaire", a.QuestionID)
		}
		text := strings.TrimSpace(a.Text)
		if n := utils.WordCount(text); n > s.MaxWords {
			return nil, 0, invalidInput("answer to %q has %d words (max %d)", a.QuestionID, n, s.MaxWords)
		}
		if text != "" {
			answers[a.QuestionID] = text
		}
	}

	last := questions[len(questions)-1]
	if _, ok := answers[last.ID]; !ok {
		return nil, 0, invalidInput("the final question must be answered")
	}

	completion := in.CompletionPercentage
	if completion <= 0 {
		completion = len(answers) * 100 / len(questions)
	}
	if completion > 100 {
		completion = 100
	}

	selected := []models.FeedbackQuestion{last}
	if s.PersistAllResponses {
		selected = questions
	}
	var out []models.SubmissionResponse
	for _, q := range selected {
		text, ok := answers[q.ID]
		if !ok {
			continue
		}
		out = append(out, models.SubmissionResponse{
			ID:           uuid.NewString(),
			QuestionID:   q.ID,
			ResponseText: text,
		})
	}
	return out, completion, nil
}

func saveResponses(tx *gorm.DB, submissionID string, responses []models.SubmissionResponse) error {
	if len(responses) == 0 {
		return nil
	}
	for i := range responses {
		responses[i].SubmissionID = submissionID
	}
	if err := tx.Create(&responses).Error; err != nil {
		return fmt.Errorf("save responses: %w", err)
	}
	return nil
}

func loadProfile(tx *gorm.DB, userID string) (*models.Profile, error) {
	var p models.Profile
	if err := tx.First(&p, "id = ?", userID).Error; err != nil {
		return nil, notFoundOr(err, "profile")
	}
	return &p, nil
}

// MySubmissions lists the caller's submissions, newest first, without reserved in_progress rows.
func (s *SubmissionService) MySubmissions(ctx context.Context, userID string) ([]models.FeedbackSubmission, error) {
	var subs []models.FeedbackSubmission
	if err := s.DB.WithContext(ctx).
		Preload("Platform").
		Where("user_id = ? AND status <> ?", userID, models.SubmissionInProgress).
		Order("created_at DESC").
		Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

func (s *SubmissionService) GetSubmission(ctx context.Context, id string) (*models.FeedbackSubmission, error) {
	if err := checkID(id, "submission"); err != nil {
		return nil, err
	}
	var sub models.FeedbackSubmission
	if err := s.DB.WithContext(ctx).
		Preload("Platform").
		Preload("Responses").
		First(&sub, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "submission")
	}
	return &sub, nil
}

// SubmissionFor returns the caller's submission for a platform, or nil when there is none.
func (s *SubmissionService) SubmissionFor(ctx context.Context, userID, platformID string) (*models.FeedbackSubmission, error) {
	var sub models.FeedbackSubmission
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND platform_id = ?", userID, platformID).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}
	return &sub, nil
}
