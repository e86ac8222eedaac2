package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hostelhq/hostel-api/internal/models"
	appErrors "github.com/hostelhq/hostel-api/pkg/errors"
)

type stubCacheRepo struct {
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, _ string) error {
	s.store = nil
	return nil
}

type mockDashboardRooms struct {
	stats *models.OccupancyStats
	calls int
}

func (m *mockDashboardRooms) OccupancyStats(_ context.Context) (*models.OccupancyStats, error) {
	m.calls++
	return m.stats, nil
}

type mockDashboardStudents struct {
	total     int
	allocated int
	detail    *models.StudentDetail
	detailErr error
}

func (m *mockDashboardStudents) Count(_ context.Context) (int, error) {
	return m.total, nil
}

func (m *mockDashboardStudents) CountAllocated(_ context.Context) (int, error) {
	return m.allocated, nil
}

func (m *mockDashboardStudents) FindByUserID(_ context.Context, _ string) (*models.StudentDetail, error) {
	if m.detailErr != nil {
		return nil, m.detailErr
	}
	return m.detail, nil
}

type mockDashboardApplications struct {
	pending        int
	studentPending int
}

func (m *mockDashboardApplications) CountByStatus(_ context.Context, _ models.ApplicationStatus) (int, error) {
	return m.pending, nil
}

func (m *mockDashboardApplications) CountByStudentAndStatus(_ context.Context, _ string, _ models.ApplicationStatus) (int, error) {
	return m.studentPending, nil
}

type mockDashboardComplaints struct {
	open     int
	userOpen int
}

func (m *mockDashboardComplaints) CountOpen(_ context.Context) (int, error) {
	return m.open, nil
}

func (m *mockDashboardComplaints) CountOpenByUser(_ context.Context, _ string) (int, error) {
	return m.userOpen, nil
}

type mockDashboardAllocations struct {
	active *models.AllocationDetail
	err    error
}

func (m *mockDashboardAllocations) FindActiveByStudent(_ context.Context, _ string) (*models.AllocationDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.active, nil
}

func testOccupancyStats() *models.OccupancyStats {
	return &models.OccupancyStats{
		TotalRooms:     10,
		AvailableRooms: 4,
		TotalCapacity:  24,
		TotalOccupied:  18,
		OccupancyRate:  75,
	}
}

func TestDashboardServiceSummaryCaching(t *testing.T) {
	rooms := &mockDashboardRooms{stats: testOccupancyStats()}
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewDashboardService(rooms, &mockDashboardStudents{total: 40, allocated: 18}, &mockDashboardApplications{pending: 5}, &mockDashboardComplaints{open: 3}, &mockDashboardAllocations{}, cacheSvc, time.Minute, zap.NewNop())

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40, summary.TotalStudents)
	assert.Equal(t, 18, summary.AllocatedStudents)
	assert.Equal(t, 5, summary.PendingApplications)
	assert.Equal(t, 3, summary.OpenComplaints)
	assert.Equal(t, 1, rooms.calls)

	cached, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, summary.TotalStudents, cached.TotalStudents)
	assert.Equal(t, 1, rooms.calls)
}

func TestDashboardServiceSummaryWithoutCache(t *testing.T) {
	rooms := &mockDashboardRooms{stats: testOccupancyStats()}
	svc := NewDashboardService(rooms, &mockDashboardStudents{}, &mockDashboardApplications{}, &mockDashboardComplaints{}, &mockDashboardAllocations{}, nil, time.Minute, zap.NewNop())

	_, err := svc.Summary(context.Background())
	require.NoError(t, err)
	_, err = svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rooms.calls)
}

func TestDashboardServiceStudentSummary(t *testing.T) {
	students := &mockDashboardStudents{detail: testStudentDetail()}
	allocations := &mockDashboardAllocations{active: &models.AllocationDetail{
		RoomAllocation: models.RoomAllocation{ID: "alloc-1", IsActive: true},
		RoomNumber:     "A101",
	}}
	svc := NewDashboardService(&mockDashboardRooms{stats: testOccupancyStats()}, students, &mockDashboardApplications{studentPending: 1}, &mockDashboardComplaints{userOpen: 2}, allocations, nil, time.Minute, zap.NewNop())

	dashboard, err := svc.StudentSummary(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, dashboard.Profile)
	require.NotNil(t, dashboard.CurrentAllocation)
	assert.Equal(t, "A101", dashboard.CurrentAllocation.RoomNumber)
	assert.Equal(t, 1, dashboard.PendingApplications)
	assert.Equal(t, 2, dashboard.OpenComplaints)
	assert.Equal(t, 4, dashboard.AvailableRooms)
}

func TestDashboardServiceStudentSummaryNoAllocation(t *testing.T) {
	students := &mockDashboardStudents{detail: testStudentDetail()}
	svc := NewDashboardService(&mockDashboardRooms{stats: testOccupancyStats()}, students, &mockDashboardApplications{}, &mockDashboardComplaints{}, &mockDashboardAllocations{err: sql.ErrNoRows}, nil, time.Minute, zap.NewNop())

	dashboard, err := svc.StudentSummary(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, dashboard.CurrentAllocation)
}

func TestDashboardServiceStudentSummaryMissingProfile(t *testing.T) {
	students := &mockDashboardStudents{detailErr: sql.ErrNoRows}
	svc := NewDashboardService(&mockDashboardRooms{stats: testOccupancyStats()}, students, &mockDashboardApplications{}, &mockDashboardComplaints{}, &mockDashboardAllocations{}, nil, time.Minute, zap.NewNop())

	_, err := svc.StudentSummary(context.Background(), "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
