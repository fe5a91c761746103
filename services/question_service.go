package services

import (
	"context"
	"fmt"
	"strings"

	"feedquire/logger"
	"feedquire/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QuestionService struct {
	DB  *gorm.DB
	log *logger.Logger
}

func NewQuestionService(db *gorm.DB, log *logger.Logger) *QuestionService {
	return &QuestionService{DB: db, log: log.With("service", "QuestionService")}
}

type QuestionInput struct {
	PlatformID    *string `json:"platform_id"`
	SectionNumber *int    `json:"section_number"`
	SectionTitle  *string `json:"section_title"`
	Text          *string `json:"text"`
	Order         *int    `json:"order"`
}

func (s *QuestionService) CreateQuestion(ctx context.Context, in QuestionInput) (*models.FeedbackQuestion, error) {
	if in.Text == nil || strings.TrimSpace(*in.Text) == "" {
		return nil, invalidInput("text is required")
	}
	q := &models.FeedbackQuestion{
		ID:            uuid.NewString(),
		SectionNumber: 1,
		Text:          strings.TrimSpace(*in.Text),
	}
	if in.PlatformID != nil && *in.PlatformID != "" {
		if err := checkID(*in.PlatformID, "platform"); err != nil {
			return nil, err
		}
		if err := s.DB.WithContext(ctx).First(&models.AIPlatform{}, "id = ?", *in.PlatformID).Error; err != nil {
			return nil, notFoundOr(err, "platform")
		}
		pid := *in.PlatformID
		q.PlatformID = &pid
	}
	if in.SectionNumber != nil {
		if *in.SectionNumber < 1 {
			return nil, invalidInput("section_number must be at least 1")
		}
		q.SectionNumber = *in.SectionNumber
	}
	if in.SectionTitle != nil {
		q.SectionTitle = strings.TrimSpace(*in.SectionTitle)
	}
	if in.Order != nil {
		q.Order = *in.Order
	}
	if err := s.DB.WithContext(ctx).Create(q).Error; err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

func (s *QuestionService) UpdateQuestion(ctx context.Context, id string, in QuestionInput) (*models.FeedbackQuestion, error) {
	updates := map[string]interface{}{}
	if in.Text != nil {
		text := strings.TrimSpace(*in.Text)
		if text == "" {
			return nil, invalidInput("text cannot be empty")
		}
		updates["text"] = text
	}
	if in.SectionNumber != nil {
		if *in.SectionNumber < 1 {
			return nil, invalidInput("section_number must be at least 1")
		}
		updates["section_number"] = *in.SectionNumber
	}
	if in.SectionTitle != nil {
		updates["section_title"] = strings.TrimSpace(*in.SectionTitle)
	}
	if in.Order != nil {
		updates["sort_order"] = *in.Order
	}

	if err := checkID(id, "question"); err != nil {
		return nil, err
	}
	var q models.FeedbackQuestion
	if err := s.DB.WithContext(ctx).First(&q, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "question")
	}
	if len(updates) > 0 {
		if err := s.DB.WithContext(ctx).Model(&q).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update question: %w", err)
		}
		if err := s.DB.WithContext(ctx).First(&q, "id = ?", id).Error; err != nil {
			return nil, err
		}
	}
	return &q, nil
}

func (s *QuestionService) DeleteQuestion(ctx context.Context, id string) error {
	if err := checkID(id, "question"); err != nil {
		return err
	}
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.FeedbackQuestion{})
	if res.Error != nil {
		return fmt.Errorf("delete question: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("question")
	}
	return nil
}

// QuestionsFor returns the platform's questionnaire, or the shared one when it has none.
// An empty platformID asks for the shared questionnaire.
func (s *QuestionService) QuestionsFor(ctx context.Context, platformID string) ([]models.FeedbackQuestion, error) {
	if platformID != "" {
		if err := checkID(platformID, "platform"); err != nil {
			return nil, err
		}
	}
	return questionsFor(s.DB.WithContext(ctx), platformID)
}

func questionsFor(db *gorm.DB, platformID string) ([]models.FeedbackQuestion, error) {
	var qs []models.FeedbackQuestion
	if platformID != "" {
		if err := db.Where("platform_id = ?", platformID).
			Order("section_number ASC, sort_order ASC, created_at ASC").
			Find(&qs).Error; err != nil {
			return nil, fmt.Errorf("load questions: %w", err)
		}
		if len(qs) > 0 {
			return qs, nil
		}
	}
	if err := db.Where("platform_id IS NULL").
		Order("section_number ASC, sort_order ASC, created_at ASC").
		Find(&qs).Error; err != nil {
		return nil, fmt.Errorf("load shared questions: %w", err)
	}
	return qs, nil
}

type QuestionSection struct {
	Number    int                       `json:"number"`
	Title     string                    `json:"title"`
	Questions []models.FeedbackQuestion `json:"questions"`
}

// GroupBySection expects questions already ordered by section.
func GroupBySection(qs []models.FeedbackQuestion) []QuestionSection {
	var sections []QuestionSection
	for _, q := range qs {
		n := len(sections)
		if n == 0 || sections[n-1].Number != q.SectionNumber {
			sections = append(sections, QuestionSection{Number: q.SectionNumber, Title: q.SectionTitle})
			n++
		}
		if sections[n-1].Title == "" {
			sections[n-1].Title = q.SectionTitle
		}
		sections[n-1].Questions = append(sections[n-1].Questions, q)
	}
	return sections
}
