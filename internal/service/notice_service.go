package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hostelhq/hostel-api/internal/models"
	appErrors "github.com/hostelhq/hostel-api/pkg/errors"
)

type noticeRepository interface {
	List(ctx context.Context, filter models.NoticeFilter) ([]models.Notice, int, error)
	FindByID(ctx context.Context, id string) (*models.Notice, error)
	Create(ctx context.Context, notice *models.Notice) error
	Update(ctx context.Context, notice *models.Notice) error
	Publish(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// NoticeRequest is the payload for creating or editing a notice.
type NoticeRequest struct {
	Title     string                `json:"title" validate:"required"`
	Content   string                `json:"content" validate:"required"`
	Category  models.NoticeCategory `json:"category" validate:"required,oneof=GENERAL IMPORTANT URGENT ACADEMIC MAINTENANCE"`
	Priority  models.NoticePriority `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH URGENT"`
	ExpiresAt *time.Time            `json:"expires_at"`
}

// NoticeService manages hostel announcements.
type NoticeService struct {
	notices   noticeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNoticeService constructs a NoticeService.
func NewNoticeService(notices noticeRepository, validate *validator.Validate, logger *zap.Logger) *NoticeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &NoticeService{notices: notices, validator: validate, logger: logger}
}

// List returns notices. Students only see published, unexpired notices.
func (s *NoticeService) List(ctx context.Context, filter models.NoticeFilter) ([]models.Notice, *models.Pagination, error) {
	notices, total, err := s.notices.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notices")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return notices, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a notice by ID.
func (s *NoticeService) Get(ctx context.Context, id string) (*models.Notice, error) {
	notice, err := s.notices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notice")
	}
	return notice, nil
}

// Create drafts a new notice. Notices are unpublished until Publish.
func (s *NoticeService) Create(ctx context.Context, req NoticeRequest, createdBy string) (*models.Notice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notice payload")
	}

	notice := &models.Notice{
		Title:     req.Title,
		Content:   req.Content,
		Category:  req.Category,
		Priority:  req.Priority,
		CreatedBy: createdBy,
		IsActive:  true,
		ExpiresAt: req.ExpiresAt,
	}
	if err := s.notices.Create(ctx, notice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notice")
	}
	return notice, nil
}

// Update edits an existing notice.
func (s *NoticeService) Update(ctx context.Context, id string, req NoticeRequest) (*models.Notice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notice payload")
	}

	notice, err := s.notices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notice")
	}

	notice.Title = req.Title
	notice.Content = req.Content
	notice.Category = req.Category
	notice.Priority = req.Priority
	notice.ExpiresAt = req.ExpiresAt

	if err := s.notices.Update(ctx, notice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notice")
	}
	return notice, nil
}

// Publish makes a notice visible to students.
func (s *NoticeService) Publish(ctx context.Context, id string) (*models.Notice, error) {
	notice, err := s.notices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notice")
	}
	if notice.IsPublished {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "notice is already published")
	}

	now := time.Now().UTC()
	if err := s.notices.Publish(ctx, id, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish notice")
	}
	notice.IsPublished = true
	notice.PublishedAt = &now
	return notice, nil
}

// Delete removes a notice.
func (s *NoticeService) Delete(ctx context.Context, id string) error {
	if err := s.notices.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notice")
	}
	return nil
}
