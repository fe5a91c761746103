package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"
	"time"
	"unicode/utf8"

	"feedquire/logger"
	"feedquire/models"
	"feedquire/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TicketService struct {
	DB    *gorm.DB
	Store utils.ObjectStore
	log   *logger.Logger
	now   func() time.Time
}

func NewTicketService(db *gorm.DB, store utils.ObjectStore, log *logger.Logger) *TicketService {
	return &TicketService{
		DB:    db,
		Store: store,
		log:   log.With("service", "TicketService"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type TicketInput struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
}

func (s *TicketService) CreateTicket(ctx context.Context, userID string, in TicketInput, attachment *multipart.FileHeader) (*models.Ticket, error) {
	title := strings.TrimSpace(in.Title)
	if n := utf8.RuneCountInString(title); n < 3 || n > 120 {
		return nil, invalidInput("title must be between 3 and 120 characters")
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, invalidInput("description is required")
	}

	t := &models.Ticket{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: description,
		Status:      models.TicketOpen,
	}
	if attachment != nil {
		if s.Store == nil {
			return nil, unavailable("attachments are not configured")
		}
		url, err := utils.UploadFileHeader(ctx, s.Store, attachment, "tickets/"+userID)
		if err != nil {
			return nil, invalidInput("attachment upload failed: %v", err)
		}
		t.AttachmentURL = url
	}

	if err := s.DB.WithContext(ctx).Create(t).Error; err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	s.log.Info("🎫 ticket opened", "ticket_id", t.ID, "user_id", userID)
	return t, nil
}

func (s *TicketService) MyTickets(ctx context.Context, userID string) ([]models.Ticket, error) {
	var out []models.Ticket
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return out, nil
}

func (s *TicketService) ListTickets(ctx context.Context, status models.TicketStatus) ([]models.Ticket, error) {
	q := s.DB.WithContext(ctx).Model(&models.Ticket{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Ticket
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return out, nil
}

// Reply stores the operator's answer and closes the ticket.
func (s *TicketService) Reply(ctx context.Context, id, reply string) (*models.Ticket, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, invalidInput("reply is required")
	}
	return s.close(ctx, id, reply)
}

// Resolve closes the ticket without a reply.
func (s *TicketService) Resolve(ctx context.Context, id string) (*models.Ticket, error) {
	return s.close(ctx, id, "")
}

func (s *TicketService) close(ctx context.Context, id, reply string) (*models.Ticket, error) {
	if err := checkID(id, "ticket"); err != nil {
		return nil, err
	}
	var t models.Ticket
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "ticket")
		}
		if t.Status == models.TicketClosed {
			return invalidTransition(string(t.Status), string(models.TicketClosed))
		}
		updates := map[string]interface{}{"status": models.TicketClosed}
		t.Status = models.TicketClosed
		if reply != "" {
			now := s.now()
			updates["admin_reply"] = reply
			updates["replied_at"] = now
			t.AdminReply = reply
			t.RepliedAt = &now
		}
		return tx.Model(&models.Ticket{}).Where("id = ?", t.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("🎫 ticket closed", "ticket_id", id, "replied", reply != "")
	return &t, nil
}
