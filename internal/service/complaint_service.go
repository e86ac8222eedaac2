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

type complaintRepository interface {
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, int, error)
	FindByID(ctx context.Context, id string) (*models.Complaint, error)
	Create(ctx context.Context, complaint *models.Complaint) error
	Assign(ctx context.Context, id, staffID string, at time.Time) error
	UpdateStatus(ctx context.Context, id string, status models.ComplaintStatus, notes string, resolvedAt *time.Time) error
}

// CreateComplaintRequest is the submission payload.
type CreateComplaintRequest struct {
	Category    models.ComplaintCategory `json:"category" validate:"required,oneof=MAINTENANCE SECURITY FACILITIES CLEANLINESS NOISE OTHER"`
	Priority    models.ComplaintPriority `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH URGENT"`
	Subject     string                   `json:"subject" validate:"required"`
	Description string                   `json:"description" validate:"required"`
	Location    string                   `json:"location"`
}

// AssignComplaintRequest assigns a complaint to a staff member.
type AssignComplaintRequest struct {
	StaffID string `json:"staff_id" validate:"required,uuid4"`
}

// ComplaintStatusRequest moves a complaint through its triage lifecycle.
type ComplaintStatusRequest struct {
	Status          models.ComplaintStatus `json:"status" validate:"required,oneof=IN_PROGRESS RESOLVED CLOSED REJECTED"`
	ResolutionNotes string                 `json:"resolution_notes"`
}

// ComplaintService manages the complaint triage workflow.
type ComplaintService struct {
	complaints complaintRepository
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewComplaintService constructs a ComplaintService.
func NewComplaintService(complaints complaintRepository, validate *validator.Validate, logger *zap.Logger) *ComplaintService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ComplaintService{complaints: complaints, validator: validate, logger: logger}
}

// List returns complaints matching the filter.
func (s *ComplaintService) List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, *models.Pagination, error) {
	complaints, total, err := s.complaints.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list complaints")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return complaints, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a complaint by ID. Students may only read their own.
func (s *ComplaintService) Get(ctx context.Context, id string, requesterID string, requesterRole models.UserRole) (*models.Complaint, error) {
	complaint, err := s.complaints.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint")
	}
	if requesterRole == models.RoleStudent && complaint.SubmittedBy != requesterID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "complaint belongs to another student")
	}
	return complaint, nil
}

// Submit files a new complaint for the authenticated user.
func (s *ComplaintService) Submit(ctx context.Context, userID string, req CreateComplaintRequest) (*models.Complaint, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid complaint payload")
	}

	complaint := &models.Complaint{
		SubmittedBy: userID,
		Category:    req.Category,
		Priority:    req.Priority,
		Subject:     req.Subject,
		Description: req.Description,
		Location:    req.Location,
		Status:      models.ComplaintStatusSubmitted,
	}
	if err := s.complaints.Create(ctx, complaint); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create complaint")
	}
	return complaint, nil
}

// Assign hands a complaint to a staff member and marks it in progress.
func (s *ComplaintService) Assign(ctx context.Context, id string, req AssignComplaintRequest) (*models.Complaint, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	complaint, err := s.complaints.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint")
	}
	if complaint.Status == models.ComplaintStatusResolved || complaint.Status == models.ComplaintStatusClosed {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "complaint is already closed")
	}

	now := time.Now().UTC()
	if err := s.complaints.Assign(ctx, id, req.StaffID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign complaint")
	}

	complaint.AssignedTo = &req.StaffID
	complaint.AssignedAt = &now
	complaint.Status = models.ComplaintStatusInProgress
	return complaint, nil
}

// UpdateStatus moves a complaint along its lifecycle, stamping the resolution
// time when it reaches a terminal state.
func (s *ComplaintService) UpdateStatus(ctx context.Context, id string, req ComplaintStatusRequest) (*models.Complaint, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	complaint, err := s.complaints.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint")
	}

	var resolvedAt *time.Time
	if req.Status == models.ComplaintStatusResolved || req.Status == models.ComplaintStatusClosed {
		now := time.Now().UTC()
		resolvedAt = &now
	}

	if err := s.complaints.UpdateStatus(ctx, id, req.Status, req.ResolutionNotes, resolvedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update complaint status")
	}

	complaint.Status = req.Status
	complaint.ResolutionNotes = req.ResolutionNotes
	complaint.ResolvedAt = resolvedAt
	return complaint, nil
}
