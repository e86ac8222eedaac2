package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hostelhq/hostel-api/internal/models"
	appErrors "github.com/hostelhq/hostel-api/pkg/errors"
)

const testRoomID = "2b8f0a4e-9d3c-4f6a-8b1e-7c5d9e0f1a2b"

type mockApplicationRepo struct {
	list         []models.ApplicationDetail
	total        int
	byID         *models.RoomApplication
	byIDErr      error
	detail       *models.ApplicationDetail
	detailErr    error
	pending      bool
	approved     bool
	createErr    error
	created      *models.RoomApplication
	updated      *models.RoomApplication
	updateErr    error
	updateCalls  int
	lastStatus   models.ApplicationStatus
	lastReviewer *string
	deleteErr    error
	deleted      []string
}

func (m *mockApplicationRepo) List(_ context.Context, _ models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	return m.list, m.total, nil
}

func (m *mockApplicationRepo) FindByID(_ context.Context, _ string) (*models.RoomApplication, error) {
	if m.byIDErr != nil {
		return nil, m.byIDErr
	}
	return m.byID, nil
}

func (m *mockApplicationRepo) FindDetailByID(_ context.Context, _ string) (*models.ApplicationDetail, error) {
	if m.detailErr != nil {
		return nil, m.detailErr
	}
	return m.detail, nil
}

func (m *mockApplicationRepo) ExistsPending(_ context.Context, _, _ string) (bool, error) {
	return m.pending, nil
}

func (m *mockApplicationRepo) ExistsApprovedByStudent(_ context.Context, _ string) (bool, error) {
	return m.approved, nil
}

func (m *mockApplicationRepo) Create(_ context.Context, application *models.RoomApplication) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = application
	return nil
}

func (m *mockApplicationRepo) UpdateStatus(_ context.Context, id string, status models.ApplicationStatus, reviewedBy *string, adminNotes string) (*models.RoomApplication, error) {
	m.updateCalls++
	m.lastStatus = status
	m.lastReviewer = reviewedBy
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	if m.updated != nil {
		return m.updated, nil
	}
	return &models.RoomApplication{ID: id, Status: status, ReviewedBy: reviewedBy, AdminNotes: adminNotes}, nil
}

func (m *mockApplicationRepo) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}

type mockRoomFinder struct {
	room *models.Room
	err  error
}

func (m *mockRoomFinder) FindByID(_ context.Context, _ string) (*models.Room, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.room, nil
}

type mockStudentFinder struct {
	detail *models.StudentDetail
	err    error
}

func (m *mockStudentFinder) FindByID(_ context.Context, _ string) (*models.StudentDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.detail, nil
}

func (m *mockStudentFinder) FindByUserID(_ context.Context, _ string) (*models.StudentDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.detail, nil
}

type mockAuditor struct {
	entries []*models.AuditLog
}

func (m *mockAuditor) CreateAuditLog(_ context.Context, entry *models.AuditLog) error {
	m.entries = append(m.entries, entry)
	return nil
}

type mockCacheInvalidator struct {
	patterns []string
}

func (m *mockCacheInvalidator) DeleteByPattern(_ context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func testStudentDetail() *models.StudentDetail {
	return &models.StudentDetail{
		StudentProfile: models.StudentProfile{
			ID:            "student-1",
			UserID:        "user-1",
			StudentNumber: "STU0001",
			AcademicLevel: models.AcademicLevelGraduate,
			AcademicYear:  2024,
		},
		FullName: "Ada Obi",
	}
}

func testRoom(capacity, occupancy int) *models.Room {
	return &models.Room{
		ID:               testRoomID,
		RoomNumber:       "A101",
		Block:            "A",
		Capacity:         capacity,
		CurrentOccupancy: occupancy,
		IsAvailable:      true,
	}
}

func newApplicationService(apps *mockApplicationRepo, rooms *mockRoomFinder, students *mockStudentFinder) (*ApplicationService, *mockAuditor, *mockCacheInvalidator) {
	auditor := &mockAuditor{}
	cache := &mockCacheInvalidator{}
	svc := NewApplicationService(apps, rooms, students, auditor, cache, nil, zap.NewNop())
	return svc, auditor, cache
}

func TestPriorityScore(t *testing.T) {
	cases := []struct {
		name  string
		level models.AcademicLevel
		year  int
		want  int
	}{
		{"undergraduate base", models.AcademicLevelUndergraduate, 2020, 50},
		{"graduate bonus", models.AcademicLevelGraduate, 2020, 60},
		{"postgraduate bonus", models.AcademicLevelPostgraduate, 2020, 70},
		{"phd bonus", models.AcademicLevelPhD, 2020, 80},
		{"seniority added", models.AcademicLevelGraduate, 2024, 64},
		{"seniority capped", models.AcademicLevelUndergraduate, 2050, 70},
		{"early cohort clamped", models.AcademicLevelUndergraduate, 2015, 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PriorityScore(tc.level, tc.year))
		})
	}
}

func TestApplicationServiceSubmit(t *testing.T) {
	apps := &mockApplicationRepo{}
	svc, _, _ := newApplicationService(apps, &mockRoomFinder{room: testRoom(2, 0)}, &mockStudentFinder{detail: testStudentDetail()})

	application, err := svc.Submit(context.Background(), "user-1", CreateApplicationRequest{RoomID: testRoomID, Preferences: "near window"})
	require.NoError(t, err)
	require.NotNil(t, apps.created)
	assert.Equal(t, "student-1", application.StudentID)
	assert.Equal(t, models.ApplicationStatusPending, application.Status)
	assert.Equal(t, 64, application.PriorityScore)
}

func TestApplicationServiceSubmitFullRoom(t *testing.T) {
	apps := &mockApplicationRepo{}
	svc, _, _ := newApplicationService(apps, &mockRoomFinder{room: testRoom(2, 2)}, &mockStudentFinder{detail: testStudentDetail()})

	_, err := svc.Submit(context.Background(), "user-1", CreateApplicationRequest{RoomID: testRoomID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRoomFull.Code, appErrors.FromError(err).Code)
	assert.Nil(t, apps.created)
}

func TestApplicationServiceSubmitClosedRoom(t *testing.T) {
	room := testRoom(2, 0)
	room.IsAvailable = false
	svc, _, _ := newApplicationService(&mockApplicationRepo{}, &mockRoomFinder{room: room}, &mockStudentFinder{detail: testStudentDetail()})

	_, err := svc.Submit(context.Background(), "user-1", CreateApplicationRequest{RoomID: testRoomID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceSubmitDuplicatePending(t *testing.T) {
	apps := &mockApplicationRepo{pending: true}
	svc, _, _ := newApplicationService(apps, &mockRoomFinder{room: testRoom(2, 0)}, &mockStudentFinder{detail: testStudentDetail()})

	_, err := svc.Submit(context.Background(), "user-1", CreateApplicationRequest{RoomID: testRoomID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceSubmitAlreadyApproved(t *testing.T) {
	apps := &mockApplicationRepo{approved: true}
	svc, _, _ := newApplicationService(apps, &mockRoomFinder{room: testRoom(2, 0)}, &mockStudentFinder{detail: testStudentDetail()})

	_, err := svc.Submit(context.Background(), "user-1", CreateApplicationRequest{RoomID: testRoomID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyAllocated.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceSubmitInvalidPayload(t *testing.T) {
	svc, _, _ := newApplicationService(&mockApplicationRepo{}, &mockRoomFinder{}, &mockStudentFinder{detail: testStudentDetail()})

	_, err := svc.Submit(context.Background(), "user-1", CreateApplicationRequest{RoomID: "not-a-uuid"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceSubmitMissingProfile(t *testing.T) {
	svc, _, _ := newApplicationService(&mockApplicationRepo{}, &mockRoomFinder{room: testRoom(2, 0)}, &mockStudentFinder{err: sql.ErrNoRows})

	_, err := svc.Submit(context.Background(), "user-1", CreateApplicationRequest{RoomID: testRoomID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceReview(t *testing.T) {
	apps := &mockApplicationRepo{byID: &models.RoomApplication{ID: "app-1", StudentID: "student-1", RoomID: testRoomID, Status: models.ApplicationStatusPending}}
	svc, auditor, cache := newApplicationService(apps, &mockRoomFinder{}, &mockStudentFinder{})

	application, err := svc.Review(context.Background(), "app-1", ReviewApplicationRequest{Status: models.ApplicationStatusApproved, AdminNotes: "fits quota"}, "staff-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApproved, application.Status)
	require.NotNil(t, apps.lastReviewer)
	assert.Equal(t, "staff-1", *apps.lastReviewer)
	require.Len(t, auditor.entries, 1)
	assert.Equal(t, models.AuditActionApplicationReview, auditor.entries[0].Action)
	assert.Contains(t, cache.patterns, "dashboard:*")
}

func TestApplicationServiceReviewRoomFullPassthrough(t *testing.T) {
	apps := &mockApplicationRepo{
		byID:      &models.RoomApplication{ID: "app-1", Status: models.ApplicationStatusPending},
		updateErr: appErrors.ErrRoomFull,
	}
	svc, _, _ := newApplicationService(apps, &mockRoomFinder{}, &mockStudentFinder{})

	_, err := svc.Review(context.Background(), "app-1", ReviewApplicationRequest{Status: models.ApplicationStatusApproved}, "staff-1")
	require.ErrorIs(t, err, appErrors.ErrRoomFull)
}

func TestApplicationServiceReviewWithdrawnApplication(t *testing.T) {
	apps := &mockApplicationRepo{byID: &models.RoomApplication{ID: "app-1", Status: models.ApplicationStatusWithdrawn}}
	svc, _, _ := newApplicationService(apps, &mockRoomFinder{}, &mockStudentFinder{})

	_, err := svc.Review(context.Background(), "app-1", ReviewApplicationRequest{Status: models.ApplicationStatusRejected}, "staff-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Zero(t, apps.updateCalls)
}

func TestApplicationServiceReviewInvalidStatus(t *testing.T) {
	apps := &mockApplicationRepo{byID: &models.RoomApplication{ID: "app-1", Status: models.ApplicationStatusPending}}
	svc, _, _ := newApplicationService(apps, &mockRoomFinder{}, &mockStudentFinder{})

	_, err := svc.Review(context.Background(), "app-1", ReviewApplicationRequest{Status: models.ApplicationStatusWithdrawn}, "staff-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceGetStudentReadsOwn(t *testing.T) {
	detail := &models.ApplicationDetail{RoomApplication: models.RoomApplication{ID: "app-1", StudentID: "student-1"}}
	apps := &mockApplicationRepo{detail: detail}
	svc, _, _ := newApplicationService(apps, &mockRoomFinder{}, &mockStudentFinder{detail: testStudentDetail()})

	got, err := svc.Get(context.Background(), "app-1", "user-1", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "app-1", got.ID)
}

func TestApplicationServiceGetForeignStudentBlocked(t *testing.T) {
	detail := &models.ApplicationDetail{RoomApplication: models.RoomApplication{ID: "app-1", StudentID: "student-2"}}
	apps := &mockApplicationRepo{detail: detail}
	svc, _, _ := newApplicationService(apps, &mockRoomFinder{}, &mockStudentFinder{detail: testStudentDetail()})

	_, err := svc.Get(context.Background(), "app-1", "user-1", models.RoleStudent)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceGetStaffReadsAny(t *testing.T) {
	detail := &models.ApplicationDetail{RoomApplication: models.RoomApplication{ID: "app-1", StudentID: "student-2"}}
	apps := &mockApplicationRepo{detail: detail}
	svc, _, _ := newApplicationService(apps, &mockRoomFinder{}, &mockStudentFinder{})

	got, err := svc.Get(context.Background(), "app-1", "staff-9", models.RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, "app-1", got.ID)
}

func TestApplicationServiceWithdraw(t *testing.T) {
	apps := &mockApplicationRepo{byID: &models.RoomApplication{ID: "app-1", StudentID: "student-1", Status: models.ApplicationStatusApproved}}
	svc, _, cache := newApplicationService(apps, &mockRoomFinder{}, &mockStudentFinder{detail: testStudentDetail()})

	application, err := svc.Withdraw(context.Background(), "app-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusWithdrawn, application.Status)
	assert.Nil(t, apps.lastReviewer)
	assert.Contains(t, cache.patterns, "dashboard:*")
}

func TestApplicationServiceWithdrawForeignApplication(t *testing.T) {
	apps := &mockApplicationRepo{byID: &models.RoomApplication{ID: "app-1", StudentID: "student-2", Status: models.ApplicationStatusPending}}
	svc, _, _ := newApplicationService(apps, &mockRoomFinder{}, &mockStudentFinder{detail: testStudentDetail()})

	_, err := svc.Withdraw(context.Background(), "app-1", "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Zero(t, apps.updateCalls)
}

func TestApplicationServiceWithdrawClosedApplication(t *testing.T) {
	apps := &mockApplicationRepo{byID: &models.RoomApplication{ID: "app-1", StudentID: "student-1", Status: models.ApplicationStatusRejected}}
	svc, _, _ := newApplicationService(apps, &mockRoomFinder{}, &mockStudentFinder{detail: testStudentDetail()})

	_, err := svc.Withdraw(context.Background(), "app-1", "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceDelete(t *testing.T) {
	apps := &mockApplicationRepo{}
	svc, auditor, cache := newApplicationService(apps, &mockRoomFinder{}, &mockStudentFinder{})

	err := svc.Delete(context.Background(), "app-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"app-1"}, apps.deleted)
	require.Len(t, auditor.entries, 1)
	assert.Contains(t, cache.patterns, "dashboard:*")
}
