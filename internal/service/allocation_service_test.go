package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hostelhq/hostel-api/internal/models"
	appErrors "github.com/hostelhq/hostel-api/pkg/errors"
)

const testStudentID = "7d4e2c1a-3b5f-4a8c-9e0d-2f6b8c4a1d3e"

type mockAllocationRepo struct {
	list           []models.AllocationDetail
	total          int
	byID           *models.RoomAllocation
	byIDErr        error
	detail         *models.AllocationDetail
	detailErr      error
	activeDetail   *models.AllocationDetail
	activeErr      error
	hasActive      bool
	createErr      error
	created        *models.RoomAllocation
	setActiveErr   error
	setActiveCalls int
	lastActive     bool
	lastReason     string
	deleteErr      error
	deleted        []string
}

func (m *mockAllocationRepo) List(_ context.Context, _ models.AllocationFilter) ([]models.AllocationDetail, int, error) {
	return m.list, m.total, nil
}

func (m *mockAllocationRepo) FindByID(_ context.Context, _ string) (*models.RoomAllocation, error) {
	if m.byIDErr != nil {
		return nil, m.byIDErr
	}
	return m.byID, nil
}

func (m *mockAllocationRepo) FindDetailByID(_ context.Context, _ string) (*models.AllocationDetail, error) {
	if m.detailErr != nil {
		return nil, m.detailErr
	}
	return m.detail, nil
}

func (m *mockAllocationRepo) FindActiveByStudent(_ context.Context, _ string) (*models.AllocationDetail, error) {
	if m.activeErr != nil {
		return nil, m.activeErr
	}
	return m.activeDetail, nil
}

func (m *mockAllocationRepo) ExistsActiveByStudent(_ context.Context, _, _ string) (bool, error) {
	return m.hasActive, nil
}

func (m *mockAllocationRepo) Create(_ context.Context, allocation *models.RoomAllocation) error {
	if m.createErr != nil {
		return m.createErr
	}
	allocation.ID = "alloc-1"
	m.created = allocation
	return nil
}

func (m *mockAllocationRepo) SetActive(_ context.Context, id string, isActive bool, checkoutAt *time.Time, checkoutReason string) (*models.RoomAllocation, error) {
	m.setActiveCalls++
	m.lastActive = isActive
	m.lastReason = checkoutReason
	if m.setActiveErr != nil {
		return nil, m.setActiveErr
	}
	return &models.RoomAllocation{ID: id, IsActive: isActive, CheckoutAt: checkoutAt, CheckoutReason: checkoutReason}, nil
}

func (m *mockAllocationRepo) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func newAllocationService(allocations *mockAllocationRepo, rooms *mockRoomFinder, students *mockStudentFinder) (*AllocationService, *mockAuditor, *mockCacheInvalidator) {
	auditor := &mockAuditor{}
	cache := &mockCacheInvalidator{}
	svc := NewAllocationService(allocations, rooms, students, auditor, cache, nil, zap.NewNop())
	return svc, auditor, cache
}

func TestAllocationServiceCreate(t *testing.T) {
	allocations := &mockAllocationRepo{}
	svc, auditor, cache := newAllocationService(allocations, &mockRoomFinder{room: testRoom(2, 1)}, &mockStudentFinder{detail: testStudentDetail()})

	allocation, err := svc.Create(context.Background(), CreateAllocationRequest{StudentID: testStudentID, RoomID: testRoomID, Notes: "transfer"}, "staff-1")
	require.NoError(t, err)
	require.NotNil(t, allocations.created)
	assert.True(t, allocation.IsActive)
	assert.Equal(t, "staff-1", allocation.AllocatedBy)
	require.Len(t, auditor.entries, 1)
	assert.Equal(t, models.AuditActionAllocationChange, auditor.entries[0].Action)
	assert.Contains(t, cache.patterns, "dashboard:*")
}

func TestAllocationServiceCreateSecondActive(t *testing.T) {
	allocations := &mockAllocationRepo{hasActive: true}
	svc, _, _ := newAllocationService(allocations, &mockRoomFinder{room: testRoom(2, 0)}, &mockStudentFinder{detail: testStudentDetail()})

	_, err := svc.Create(context.Background(), CreateAllocationRequest{StudentID: testStudentID, RoomID: testRoomID}, "staff-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyAllocated.Code, appErrors.FromError(err).Code)
	assert.Nil(t, allocations.created)
}

func TestAllocationServiceCreateFullRoom(t *testing.T) {
	svc, _, _ := newAllocationService(&mockAllocationRepo{}, &mockRoomFinder{room: testRoom(1, 1)}, &mockStudentFinder{detail: testStudentDetail()})

	_, err := svc.Create(context.Background(), CreateAllocationRequest{StudentID: testStudentID, RoomID: testRoomID}, "staff-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRoomFull.Code, appErrors.FromError(err).Code)
}

func TestAllocationServiceCreateClosedRoom(t *testing.T) {
	room := testRoom(2, 0)
	room.IsAvailable = false
	svc, _, _ := newAllocationService(&mockAllocationRepo{}, &mockRoomFinder{room: room}, &mockStudentFinder{detail: testStudentDetail()})

	_, err := svc.Create(context.Background(), CreateAllocationRequest{StudentID: testStudentID, RoomID: testRoomID}, "staff-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestAllocationServiceCreateUnknownStudent(t *testing.T) {
	svc, _, _ := newAllocationService(&mockAllocationRepo{}, &mockRoomFinder{room: testRoom(2, 0)}, &mockStudentFinder{err: sql.ErrNoRows})

	_, err := svc.Create(context.Background(), CreateAllocationRequest{StudentID: testStudentID, RoomID: testRoomID}, "staff-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAllocationServiceCreateRaceLosesToCapacityGuard(t *testing.T) {
	// The repository re-checks capacity under a row lock; a losing racer
	// surfaces the conflict untouched.
	allocations := &mockAllocationRepo{createErr: appErrors.ErrRoomFull}
	svc, _, _ := newAllocationService(allocations, &mockRoomFinder{room: testRoom(2, 1)}, &mockStudentFinder{detail: testStudentDetail()})

	_, err := svc.Create(context.Background(), CreateAllocationRequest{StudentID: testStudentID, RoomID: testRoomID}, "staff-1")
	require.ErrorIs(t, err, appErrors.ErrRoomFull)
}

func TestAllocationServiceCheckout(t *testing.T) {
	allocations := &mockAllocationRepo{}
	svc, _, cache := newAllocationService(allocations, &mockRoomFinder{}, &mockStudentFinder{})

	allocation, err := svc.Checkout(context.Background(), "alloc-1", CheckoutRequest{Reason: "graduated"}, "staff-1")
	require.NoError(t, err)
	assert.False(t, allocation.IsActive)
	assert.Equal(t, "graduated", allocations.lastReason)
	assert.NotNil(t, allocation.CheckoutAt)
	assert.Contains(t, cache.patterns, "dashboard:*")
}

func TestAllocationServiceCheckoutRequiresReason(t *testing.T) {
	allocations := &mockAllocationRepo{}
	svc, _, _ := newAllocationService(allocations, &mockRoomFinder{}, &mockStudentFinder{})

	_, err := svc.Checkout(context.Background(), "alloc-1", CheckoutRequest{}, "staff-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Zero(t, allocations.setActiveCalls)
}

func TestAllocationServiceCheckoutUnknownAllocation(t *testing.T) {
	allocations := &mockAllocationRepo{setActiveErr: sql.ErrNoRows}
	svc, _, _ := newAllocationService(allocations, &mockRoomFinder{}, &mockStudentFinder{})

	_, err := svc.Checkout(context.Background(), "alloc-1", CheckoutRequest{Reason: "graduated"}, "staff-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAllocationServiceReactivate(t *testing.T) {
	allocations := &mockAllocationRepo{byID: &models.RoomAllocation{ID: "alloc-1", StudentID: testStudentID, IsActive: false}}
	svc, _, cache := newAllocationService(allocations, &mockRoomFinder{}, &mockStudentFinder{})

	allocation, err := svc.Reactivate(context.Background(), "alloc-1", "staff-1")
	require.NoError(t, err)
	assert.True(t, allocation.IsActive)
	assert.Nil(t, allocation.CheckoutAt)
	assert.Contains(t, cache.patterns, "dashboard:*")
}

func TestAllocationServiceReactivateBlockedByOtherActive(t *testing.T) {
	allocations := &mockAllocationRepo{
		byID:      &models.RoomAllocation{ID: "alloc-1", StudentID: testStudentID, IsActive: false},
		hasActive: true,
	}
	svc, _, _ := newAllocationService(allocations, &mockRoomFinder{}, &mockStudentFinder{})

	_, err := svc.Reactivate(context.Background(), "alloc-1", "staff-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyAllocated.Code, appErrors.FromError(err).Code)
	assert.Zero(t, allocations.setActiveCalls)
}

func TestAllocationServiceReactivateFullRoomPassthrough(t *testing.T) {
	allocations := &mockAllocationRepo{
		byID:         &models.RoomAllocation{ID: "alloc-1", StudentID: testStudentID, IsActive: false},
		setActiveErr: appErrors.ErrRoomFull,
	}
	svc, _, _ := newAllocationService(allocations, &mockRoomFinder{}, &mockStudentFinder{})

	_, err := svc.Reactivate(context.Background(), "alloc-1", "staff-1")
	require.ErrorIs(t, err, appErrors.ErrRoomFull)
}

func TestAllocationServiceDelete(t *testing.T) {
	allocations := &mockAllocationRepo{}
	svc, auditor, cache := newAllocationService(allocations, &mockRoomFinder{}, &mockStudentFinder{})

	err := svc.Delete(context.Background(), "alloc-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alloc-1"}, allocations.deleted)
	require.Len(t, auditor.entries, 1)
	assert.Contains(t, cache.patterns, "dashboard:*")
}
