package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hostelhq/hostel-api/internal/models"
	appErrors "github.com/hostelhq/hostel-api/pkg/errors"
)

type allocationRepository interface {
	List(ctx context.Context, filter models.AllocationFilter) ([]models.AllocationDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.RoomAllocation, error)
	FindDetailByID(ctx context.Context, id string) (*models.AllocationDetail, error)
	FindActiveByStudent(ctx context.Context, studentID string) (*models.AllocationDetail, error)
	ExistsActiveByStudent(ctx context.Context, studentID, excludeID string) (bool, error)
	Create(ctx context.Context, allocation *models.RoomAllocation) error
	SetActive(ctx context.Context, id string, isActive bool, checkoutAt *time.Time, checkoutReason string) (*models.RoomAllocation, error)
	Delete(ctx context.Context, id string) error
}

type allocationRoomRepository interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

type allocationStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type allocationAuditor interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

type allocationCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CreateAllocationRequest is the payload for direct staff placement.
type CreateAllocationRequest struct {
	StudentID string `json:"student_id" validate:"required,uuid4"`
	RoomID    string `json:"room_id" validate:"required,uuid4"`
	Notes     string `json:"notes"`
}

// CheckoutRequest ends an active allocation.
type CheckoutRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// AllocationService orchestrates direct room placements. Occupancy and the
// student flag move inside the repository transactions; this layer adds the
// business pre-checks, auditing and cache invalidation.
type AllocationService struct {
	allocations allocationRepository
	rooms       allocationRoomRepository
	students    allocationStudentRepository
	auditor     allocationAuditor
	cache       allocationCacheInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAllocationService constructs an AllocationService.
func NewAllocationService(allocations allocationRepository, rooms allocationRoomRepository, students allocationStudentRepository, auditor allocationAuditor, cache allocationCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *AllocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AllocationService{allocations: allocations, rooms: rooms, students: students, auditor: auditor, cache: cache, validator: validate, logger: logger}
}

// List returns allocations matching the filter.
func (s *AllocationService) List(ctx context.Context, filter models.AllocationFilter) ([]models.AllocationDetail, *models.Pagination, error) {
	allocations, total, err := s.allocations.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list allocations")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return allocations, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single allocation with context.
func (s *AllocationService) Get(ctx context.Context, id string) (*models.AllocationDetail, error) {
	allocation, err := s.allocations.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "allocation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation")
	}
	return allocation, nil
}

// Create places a student into a room. The student must not already hold an
// active allocation, the room must be open and the capacity check runs again
// inside the creation transaction under a row lock.
func (s *AllocationService) Create(ctx context.Context, req CreateAllocationRequest, allocatedBy string) (*models.RoomAllocation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid allocation payload")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	room, err := s.rooms.FindByID(ctx, req.RoomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	if !room.IsAvailable {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "room is not open for placements")
	}
	if room.IsFull() {
		return nil, appErrors.Clone(appErrors.ErrRoomFull, "room has no available beds")
	}

	hasActive, err := s.allocations.ExistsActiveByStudent(ctx, req.StudentID, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active allocation")
	}
	if hasActive {
		return nil, appErrors.Clone(appErrors.ErrAlreadyAllocated, "student already holds an active allocation")
	}

	allocation := &models.RoomAllocation{
		StudentID:   req.StudentID,
		RoomID:      req.RoomID,
		IsActive:    true,
		AllocatedBy: allocatedBy,
		AllocatedAt: time.Now().UTC(),
		Notes:       req.Notes,
	}
	if err := s.allocations.Create(ctx, allocation); err != nil {
		return nil, s.normalize(err, "failed to create allocation")
	}

	s.audit(ctx, allocatedBy, allocation.ID, []byte(fmt.Sprintf(`{"student_id":%q,"room_id":%q,"active":true}`, req.StudentID, req.RoomID)))
	s.invalidateDashboards(ctx)
	return allocation, nil
}

// Checkout deactivates an active allocation, freeing the bed.
func (s *AllocationService) Checkout(ctx context.Context, id string, req CheckoutRequest, actorID string) (*models.RoomAllocation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid checkout payload")
	}

	now := time.Now().UTC()
	allocation, err := s.allocations.SetActive(ctx, id, false, &now, req.Reason)
	if err != nil {
		return nil, s.normalize(err, "failed to checkout allocation")
	}

	s.audit(ctx, actorID, id, []byte(fmt.Sprintf(`{"active":false,"reason":%q}`, req.Reason)))
	s.invalidateDashboards(ctx)
	return allocation, nil
}

// Reactivate re-opens a checked-out allocation, claiming a bed again. The
// one-active-per-student rule is re-checked.
func (s *AllocationService) Reactivate(ctx context.Context, id string, actorID string) (*models.RoomAllocation, error) {
	current, err := s.allocations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "allocation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation")
	}

	hasActive, err := s.allocations.ExistsActiveByStudent(ctx, current.StudentID, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active allocation")
	}
	if hasActive {
		return nil, appErrors.Clone(appErrors.ErrAlreadyAllocated, "student already holds another active allocation")
	}

	allocation, err := s.allocations.SetActive(ctx, id, true, nil, "")
	if err != nil {
		return nil, s.normalize(err, "failed to reactivate allocation")
	}

	s.audit(ctx, actorID, id, []byte(`{"active":true}`))
	s.invalidateDashboards(ctx)
	return allocation, nil
}

// Delete removes an allocation record. Deleting an active allocation also
// frees the bed inside the repository transaction.
func (s *AllocationService) Delete(ctx context.Context, id string, actorID string) error {
	if err := s.allocations.Delete(ctx, id); err != nil {
		return s.normalize(err, "failed to delete allocation")
	}
	s.audit(ctx, actorID, id, []byte(`{"deleted":true}`))
	s.invalidateDashboards(ctx)
	return nil
}

// normalize passes typed domain errors through untouched so conflicts like a
// full room keep their status, wrapping everything else as internal.
func (s *AllocationService) normalize(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "allocation not found")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *AllocationService) audit(ctx context.Context, actorID, allocationID string, payload []byte) {
	entry := &models.AuditLog{
		Action:     models.AuditActionAllocationChange,
		Resource:   "allocation",
		ResourceID: &allocationID,
		NewValues:  payload,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if err := s.auditor.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record allocation audit log", zap.Error(err))
	}
}

func (s *AllocationService) invalidateDashboards(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}
