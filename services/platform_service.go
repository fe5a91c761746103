package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"

	"feedquire/logger"
	"feedquire/models"
	"feedquire/utils"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PlatformService struct {
	DB    *gorm.DB
	Store utils.ObjectStore // nil disables logo uploads
	log   *logger.Logger
}

func NewPlatformService(db *gorm.DB, store utils.ObjectStore, log *logger.Logger) *PlatformService {
	return &PlatformService{DB: db, Store: store, log: log.With("service", "PlatformService")}
}

// PlatformInput is used for create (Domain required) and partial update.
type PlatformInput struct {
	Domain       *string                `json:"domain"`
	Description  *string                `json:"description"`
	Amount       *float64               `json:"amount"`
	Status       *models.PlatformStatus `json:"status"`
	IsAssessment *bool                  `json:"is_assessment"`
}

func (in PlatformInput) validate() error {
	if in.Domain != nil && strings.TrimSpace(*in.Domain) == "" {
		return invalidInput("domain cannot be empty")
	}
	if in.Amount != nil && *in.Amount < 0 {
		return invalidInput("amount must not be negative")
	}
	if in.Status != nil && !in.Status.Valid() {
		return invalidInput("unknown platform status %q", *in.Status)
	}
	return nil
}

func (s *PlatformService) CreatePlatform(ctx context.Context, in PlatformInput) (*models.AIPlatform, error) {
	if in.Domain == nil {
		return nil, invalidInput("domain is required")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &models.AIPlatform{
		ID:     uuid.NewString(),
		Domain: strings.TrimSpace(*in.Domain),
		Status: models.PlatformActive,
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Amount != nil {
		p.Amount = *in.Amount
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.IsAssessment != nil {
		p.IsAssessment = *in.IsAssessment
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if p.Slug, err = uniqueSlug(tx, p.Domain, ""); err != nil {
			return err
		}
		if p.IsAssessment {
			if err := clearAssessmentFlag(tx, p.ID); err != nil {
				return err
			}
		}
		return tx.Create(p).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("✅ platform created", "platform_id", p.ID, "slug", p.Slug, "assessment", p.IsAssessment)
	return p, nil
}

func (s *PlatformService) UpdatePlatform(ctx context.Context, id string, in PlatformInput) (*models.AIPlatform, error) {
	if err := checkID(id, "platform"); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	var p models.AIPlatform
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "platform")
		}
		updates := map[string]interface{}{}
		if in.Domain != nil {
			domain := strings.TrimSpace(*in.Domain)
			if domain != p.Domain {
				newSlug, err := uniqueSlug(tx, domain, p.ID)
				if err != nil {
					return err
				}
				updates["domain"], updates["slug"] = domain, newSlug
			}
		}
		if in.Description != nil {
			updates["description"] = strings.TrimSpace(*in.Description)
		}
		if in.Amount != nil {
			updates["amount"] = *in.Amount
		}
		if in.Status != nil {
			updates["status"] = *in.Status
		}
		if in.IsAssessment != nil {
			if *in.IsAssessment {
				if err := clearAssessmentFlag(tx, p.ID); err != nil {
					return err
				}
			}
			updates["is_assessment"] = *in.IsAssessment
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&p).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&p, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePlatform refuses platforms that already carry submissions.
func (s *PlatformService) DeletePlatform(ctx context.Context, id string) error {
	if err := checkID(id, "platform"); err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.FeedbackSubmission{}).Where("platform_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return conflict("platform has submissions; pause or complete it instead")
		}
		if err := tx.Where("platform_id = ?", id).Delete(&models.FeedbackQuestion{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.AIPlatform{})
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
				return conflict("platform is still referenced")
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound("platform")
		}
		return nil
	})
}

func (s *PlatformService) GetPlatform(ctx context.Context, id string) (*models.AIPlatform, error) {
	if err := checkID(id, "platform"); err != nil {
		return nil, err
	}
	var p models.AIPlatform
	if err := s.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "platform")
	}
	return &p, nil
}

func (s *PlatformService) ListPlatforms(ctx context.Context, status models.PlatformStatus) ([]models.AIPlatform, error) {
	q := s.DB.WithContext(ctx).Order("is_assessment DESC, domain ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var platforms []models.AIPlatform
	if err := q.Find(&platforms).Error; err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	return platforms, nil
}

// TaskPlatform is an active task with the caller's own submission state, if any.
type TaskPlatform struct {
	models.AIPlatform
	MySubmissionID     *string                  `json:"my_submission_id,omitempty"`
	MySubmissionStatus *models.SubmissionStatus `json:"my_submission_status,omitempty"`
}

func (s *PlatformService) ListTaskPlatforms(ctx context.Context, userID string) ([]TaskPlatform, error) {
	var platforms []models.AIPlatform
	if err := s.DB.WithContext(ctx).
		Where("status = ? AND is_assessment = ?", models.PlatformActive, false).
		Order("amount DESC, domain ASC").
		Find(&platforms).Error; err != nil {
		return nil, fmt.Errorf("list task platforms: %w", err)
	}

	var mine []models.FeedbackSubmission
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? AND status <> ?", userID, models.SubmissionInProgress).
		Find(&mine).Error; err != nil {
		return nil, fmt.Errorf("list own submissions: %w", err)
	}
	byPlatform := make(map[string]models.FeedbackSubmission, len(mine))
	for _, sub := range mine {
		byPlatform[sub.PlatformID] = sub
	}

	out := make([]TaskPlatform, 0, len(platforms))
	for _, p := range platforms {
		tp := TaskPlatform{AIPlatform: p}
		if sub, ok := byPlatform[p.ID]; ok {
			id, status := sub.ID, sub.Status
			tp.MySubmissionID, tp.MySubmissionStatus = &id, &status
		}
		out = append(out, tp)
	}
	return out, nil
}

// AssessmentPlatform returns the onboarding gate singleton.
func (s *PlatformService) AssessmentPlatform(ctx context.Context) (*models.AIPlatform, error) {
	return assessmentPlatform(s.DB.WithContext(ctx))
}

func assessmentPlatform(db *gorm.DB) (*models.AIPlatform, error) {
	var p models.AIPlatform
	if err := db.Where("is_assessment = ?", true).First(&p).Error; err != nil {
		return nil, notFoundOr(err, "assessment platform")
	}
	return &p, nil
}

func (s *PlatformService) SetLogo(ctx context.Context, id string, fh *multipart.FileHeader) (*models.AIPlatform, error) {
	if s.Store == nil {
		return nil, unavailable("uploads are not configured")
	}
	p, err := s.GetPlatform(ctx, id)
	if err != nil {
		return nil, err
	}
	url, err := utils.UploadFileHeader(ctx, s.Store, fh, "logos")
	if err != nil {
		return nil, invalidInput("logo upload failed: %v", err)
	}
	if err := s.DB.WithContext(ctx).Model(p).Update("logo_url", url).Error; err != nil {
		return nil, fmt.Errorf("save logo url: %w", err)
	}
	p.LogoURL = url
	return p, nil
}

func clearAssessmentFlag(tx *gorm.DB, keepID string) error {
	return tx.Model(&models.AIPlatform{}).
		Where("is_assessment = ? AND id <> ?", true, keepID).
		Update("is_assessment", false).Error
}

// uniqueSlug derives a slug from domain, suffixing -2, -3, ... on collision.
func uniqueSlug(tx *gorm.DB, domain, selfID string) (string, error) {
	base := slug.Make(domain)
	if base == "" {
		base = "platform"
	}
	candidate := base
	for i := 2; ; i++ {
		var count int64
		q := tx.Model(&models.AIPlatform{}).Where("slug = ?", candidate)
		if selfID != "" {
			q = q.Where("id <> ?", selfID)
		}
		if err := q.Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
}
