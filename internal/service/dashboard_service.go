package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hostelhq/hostel-api/internal/models"
	appErrors "github.com/hostelhq/hostel-api/pkg/errors"
)

type dashboardRoomRepository interface {
	OccupancyStats(ctx context.Context) (*models.OccupancyStats, error)
}

type dashboardStudentRepository interface {
	Count(ctx context.Context) (int, error)
	CountAllocated(ctx context.Context) (int, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
}

type dashboardApplicationRepository interface {
	CountByStatus(ctx context.Context, status models.ApplicationStatus) (int, error)
	CountByStudentAndStatus(ctx context.Context, studentID string, status models.ApplicationStatus) (int, error)
}

type dashboardComplaintRepository interface {
	CountOpen(ctx context.Context) (int, error)
	CountOpenByUser(ctx context.Context, userID string) (int, error)
}

type dashboardAllocationRepository interface {
	FindActiveByStudent(ctx context.Context, studentID string) (*models.AllocationDetail, error)
}

// DashboardService aggregates the staff and student dashboard payloads,
// serving from cache when possible.
type DashboardService struct {
	rooms        dashboardRoomRepository
	students     dashboardStudentRepository
	applications dashboardApplicationRepository
	complaints   dashboardComplaintRepository
	allocations  dashboardAllocationRepository
	cache        *CacheService
	cacheTTL     time.Duration
	logger       *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(rooms dashboardRoomRepository, students dashboardStudentRepository, applications dashboardApplicationRepository, complaints dashboardComplaintRepository, allocations dashboardAllocationRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{
		rooms:        rooms,
		students:     students,
		applications: applications,
		complaints:   complaints,
		allocations:  allocations,
		cache:        cache,
		cacheTTL:     cacheTTL,
		logger:       logger,
	}
}

// Summary returns the staff dashboard aggregates.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	const cacheKey = "dashboard:summary"
	if s.cache.Enabled() {
		var cached models.DashboardSummary
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	occupancy, err := s.rooms.OccupancyStats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load occupancy stats")
	}
	totalStudents, err := s.students.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	allocated, err := s.students.CountAllocated(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count allocated students")
	}
	pending, err := s.applications.CountByStatus(ctx, models.ApplicationStatusPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending applications")
	}
	openComplaints, err := s.complaints.CountOpen(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count open complaints")
	}

	summary := &models.DashboardSummary{
		Occupancy:           *occupancy,
		TotalStudents:       totalStudents,
		AllocatedStudents:   allocated,
		PendingApplications: pending,
		OpenComplaints:      openComplaints,
		GeneratedAt:         time.Now().UTC(),
	}

	if err := s.cache.Set(ctx, cacheKey, summary, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache dashboard summary", zap.Error(err))
	}
	return summary, nil
}

// StudentSummary returns the student-facing dashboard for a user account.
func (s *DashboardService) StudentSummary(ctx context.Context, userID string) (*models.StudentDashboard, error) {
	cacheKey := fmt.Sprintf("dashboard:student:%s", userID)
	if s.cache.Enabled() {
		var cached models.StudentDashboard
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	dashboard := &models.StudentDashboard{
		Profile:     &student.StudentProfile,
		GeneratedAt: time.Now().UTC(),
	}

	allocation, err := s.allocations.FindActiveByStudent(ctx, student.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active allocation")
	}
	if err == nil {
		dashboard.CurrentAllocation = allocation
	}

	pending, err := s.applications.CountByStudentAndStatus(ctx, student.ID, models.ApplicationStatusPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending applications")
	}
	dashboard.PendingApplications = pending

	openComplaints, err := s.complaints.CountOpenByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count open complaints")
	}
	dashboard.OpenComplaints = openComplaints

	occupancy, err := s.rooms.OccupancyStats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load occupancy stats")
	}
	dashboard.AvailableRooms = occupancy.AvailableRooms

	if err := s.cache.Set(ctx, cacheKey, dashboard, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache student dashboard", zap.Error(err))
	}
	return dashboard, nil
}
