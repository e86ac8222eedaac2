package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hostelhq/hostel-api/internal/models"
	appErrors "github.com/hostelhq/hostel-api/pkg/errors"
)

type applicationRepository interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.RoomApplication, error)
	FindDetailByID(ctx context.Context, id string) (*models.ApplicationDetail, error)
	ExistsPending(ctx context.Context, studentID, roomID string) (bool, error)
	ExistsApprovedByStudent(ctx context.Context, studentID string) (bool, error)
	Create(ctx context.Context, application *models.RoomApplication) error
	UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, reviewedBy *string, adminNotes string) (*models.RoomApplication, error)
	Delete(ctx context.Context, id string) error
}

type applicationRoomRepository interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

type applicationStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
}

type applicationAuditor interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

type applicationCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CreateApplicationRequest is the payload for submitting an application.
type CreateApplicationRequest struct {
	RoomID      string `json:"room_id" validate:"required,uuid4"`
	Preferences string `json:"preferences"`
}

// ReviewApplicationRequest is the staff decision payload.
type ReviewApplicationRequest struct {
	Status     models.ApplicationStatus `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	AdminNotes string                   `json:"admin_notes"`
}

// ApplicationService orchestrates the application workflow: submission with
// eligibility checks, priority scoring, review decisions and withdrawal.
type ApplicationService struct {
	applications applicationRepository
	rooms        applicationRoomRepository
	students     applicationStudentRepository
	auditor      applicationAuditor
	cache        applicationCacheInvalidator
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewApplicationService constructs an ApplicationService.
func NewApplicationService(applications applicationRepository, rooms applicationRoomRepository, students applicationStudentRepository, auditor applicationAuditor, cache applicationCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ApplicationService{applications: applications, rooms: rooms, students: students, auditor: auditor, cache: cache, validator: validate, logger: logger}
}

// List returns applications matching the filter.
func (s *ApplicationService) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, *models.Pagination, error) {
	applications, total, err := s.applications.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return applications, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single application. Students may only read their own.
func (s *ApplicationService) Get(ctx context.Context, id, userID string, role models.UserRole) (*models.ApplicationDetail, error) {
	application, err := s.applications.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}

	if role == models.RoleStudent {
		student, err := s.students.FindByUserID(ctx, userID)
		if err != nil || student.ID != application.StudentID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "application belongs to another student")
		}
	}
	return application, nil
}

// Submit files an application for the student owning the given user account.
// A student may not have a second pending application for the same room, may
// not apply while holding an approved application, and full rooms are
// rejected up front.
func (s *ApplicationService) Submit(ctx context.Context, userID string, req CreateApplicationRequest) (*models.RoomApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}

	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
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
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "room is not accepting applications")
	}
	if room.IsFull() {
		return nil, appErrors.Clone(appErrors.ErrRoomFull, "room has no available beds")
	}

	pending, err := s.applications.ExistsPending(ctx, student.ID, req.RoomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending applications")
	}
	if pending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a pending application for this room already exists")
	}

	approved, err := s.applications.ExistsApprovedByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check approved applications")
	}
	if approved {
		return nil, appErrors.Clone(appErrors.ErrAlreadyAllocated, "student already has an approved application")
	}

	application := &models.RoomApplication{
		StudentID:     student.ID,
		RoomID:        req.RoomID,
		Preferences:   req.Preferences,
		Status:        models.ApplicationStatusPending,
		PriorityScore: PriorityScore(student.AcademicLevel, student.AcademicYear),
	}
	if err := s.applications.Create(ctx, application); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}

	return application, nil
}

// Review applies a staff decision. Approving claims a bed atomically with the
// status write; the capacity guard inside the transaction turns approvals of
// full rooms into a conflict.
func (s *ApplicationService) Review(ctx context.Context, id string, req ReviewApplicationRequest, reviewerID string) (*models.RoomApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	current, err := s.applications.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	if current.Status == models.ApplicationStatusWithdrawn {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "withdrawn applications cannot be reviewed")
	}

	application, err := s.applications.UpdateStatus(ctx, id, req.Status, &reviewerID, req.AdminNotes)
	if err != nil {
		return nil, s.normalize(err, "failed to update application status")
	}

	s.audit(ctx, reviewerID, id, []byte(fmt.Sprintf(`{"from":%q,"to":%q}`, current.Status, req.Status)))
	s.invalidateDashboards(ctx)
	return application, nil
}

// Withdraw lets the owning student retract an application. Withdrawing an
// approved application releases the claimed bed.
func (s *ApplicationService) Withdraw(ctx context.Context, id string, userID string) (*models.RoomApplication, error) {
	current, err := s.applications.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}

	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if current.StudentID != student.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "application belongs to another student")
	}
	if current.Status == models.ApplicationStatusRejected || current.Status == models.ApplicationStatusWithdrawn {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "application is already closed")
	}

	application, err := s.applications.UpdateStatus(ctx, id, models.ApplicationStatusWithdrawn, nil, current.AdminNotes)
	if err != nil {
		return nil, s.normalize(err, "failed to withdraw application")
	}

	s.invalidateDashboards(ctx)
	return application, nil
}

// Delete removes an application record. Removing an approved application
// releases the claimed bed inside the repository transaction.
func (s *ApplicationService) Delete(ctx context.Context, id string, actorID string) error {
	if err := s.applications.Delete(ctx, id); err != nil {
		return s.normalize(err, "failed to delete application")
	}
	s.audit(ctx, actorID, id, []byte(`{"deleted":true}`))
	s.invalidateDashboards(ctx)
	return nil
}

// PriorityScore ranks an application from the student's academic standing.
// Higher levels and later cohorts score higher, with the seniority component
// capped at 20 points.
func PriorityScore(level models.AcademicLevel, academicYear int) int {
	score := 50
	switch level {
	case models.AcademicLevelPhD:
		score += 30
	case models.AcademicLevelPostgraduate:
		score += 20
	case models.AcademicLevelGraduate:
		score += 10
	}
	seniority := academicYear - 2020
	if seniority < 0 {
		seniority = 0
	}
	if seniority > 20 {
		seniority = 20
	}
	return score + seniority
}

func (s *ApplicationService) normalize(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "application not found")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *ApplicationService) audit(ctx context.Context, actorID, applicationID string, payload []byte) {
	entry := &models.AuditLog{
		Action:     models.AuditActionApplicationReview,
		Resource:   "application",
		ResourceID: &applicationID,
		NewValues:  payload,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if err := s.auditor.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record application audit log", zap.Error(err))
	}
}

func (s *ApplicationService) invalidateDashboards(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}
