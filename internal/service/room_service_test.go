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

type mockRoomRepo struct {
	rooms        []models.Room
	total        int
	byID         *models.Room
	byIDErr      error
	byNumber     *models.Room
	created      *models.Room
	updated      *models.Room
	availability map[string]bool
}

func (m *mockRoomRepo) List(_ context.Context, _ models.RoomFilter) ([]models.Room, int, error) {
	return m.rooms, m.total, nil
}

func (m *mockRoomRepo) FindByID(_ context.Context, _ string) (*models.Room, error) {
	if m.byIDErr != nil {
		return nil, m.byIDErr
	}
	return m.byID, nil
}

func (m *mockRoomRepo) FindByNumber(_ context.Context, _, _ string) (*models.Room, error) {
	if m.byNumber == nil {
		return nil, sql.ErrNoRows
	}
	return m.byNumber, nil
}

func (m *mockRoomRepo) Create(_ context.Context, room *models.Room) error {
	room.ID = "room-new"
	m.created = room
	return nil
}

func (m *mockRoomRepo) Update(_ context.Context, room *models.Room) error {
	m.updated = room
	return nil
}

func (m *mockRoomRepo) SetAvailability(_ context.Context, id string, available bool) error {
	if m.availability == nil {
		m.availability = make(map[string]bool)
	}
	m.availability[id] = available
	return nil
}

func validRoomRequest() CreateRoomRequest {
	return CreateRoomRequest{
		RoomNumber: "A101",
		Block:      "A",
		Floor:      1,
		RoomType:   models.RoomTypeDouble,
		Capacity:   2,
	}
}

func TestRoomServiceCreate(t *testing.T) {
	repo := &mockRoomRepo{}
	svc := NewRoomService(repo, nil, zap.NewNop())

	room, err := svc.Create(context.Background(), validRoomRequest())
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.True(t, room.IsAvailable)
	assert.Zero(t, room.CurrentOccupancy)
	assert.Equal(t, 2, room.AvailableBeds)
}

func TestRoomServiceCreateDuplicateNumber(t *testing.T) {
	repo := &mockRoomRepo{byNumber: &models.Room{ID: "room-1"}}
	svc := NewRoomService(repo, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), validRoomRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestRoomServiceUpdate(t *testing.T) {
	repo := &mockRoomRepo{byID: &models.Room{ID: "room-1", RoomNumber: "A101", Block: "A", Capacity: 2, CurrentOccupancy: 1}}
	svc := NewRoomService(repo, nil, zap.NewNop())

	room, err := svc.Update(context.Background(), "room-1", UpdateRoomRequest{
		RoomNumber:  "A101",
		Block:       "A",
		Floor:       1,
		RoomType:    models.RoomTypeTriple,
		Capacity:    3,
		IsAvailable: true,
	})
	require.NoError(t, err)
	require.NotNil(t, repo.updated)
	assert.Equal(t, 3, room.Capacity)
	assert.Equal(t, 1, room.CurrentOccupancy)
	assert.Equal(t, 2, room.AvailableBeds)
}

func TestRoomServiceUpdateCapacityBelowOccupancy(t *testing.T) {
	repo := &mockRoomRepo{byID: &models.Room{ID: "room-1", RoomNumber: "A101", Block: "A", Capacity: 4, CurrentOccupancy: 3}}
	svc := NewRoomService(repo, nil, zap.NewNop())

	_, err := svc.Update(context.Background(), "room-1", UpdateRoomRequest{
		RoomNumber: "A101",
		Block:      "A",
		RoomType:   models.RoomTypeDouble,
		Capacity:   2,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.updated)
}

func TestRoomServiceUpdateNotFound(t *testing.T) {
	repo := &mockRoomRepo{byIDErr: sql.ErrNoRows}
	svc := NewRoomService(repo, nil, zap.NewNop())

	_, err := svc.Update(context.Background(), "room-404", UpdateRoomRequest{
		RoomNumber: "A101",
		Block:      "A",
		RoomType:   models.RoomTypeDouble,
		Capacity:   2,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRoomServiceSetAvailability(t *testing.T) {
	repo := &mockRoomRepo{}
	svc := NewRoomService(repo, nil, zap.NewNop())

	require.NoError(t, svc.SetAvailability(context.Background(), "room-1", false))
	assert.False(t, repo.availability["room-1"])
}

func TestRoomServiceListDerivesCapacity(t *testing.T) {
	repo := &mockRoomRepo{
		rooms: []models.Room{
			{ID: "room-1", Capacity: 2, CurrentOccupancy: 2},
			{ID: "room-2", Capacity: 4, CurrentOccupancy: 1},
		},
		total: 2,
	}
	svc := NewRoomService(repo, nil, zap.NewNop())

	rooms, pagination, err := svc.List(context.Background(), models.RoomFilter{})
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.True(t, rooms[0].IsFull)
	assert.Zero(t, rooms[0].AvailableBeds)
	assert.False(t, rooms[1].IsFull)
	assert.Equal(t, 3, rooms[1].AvailableBeds)
	assert.Equal(t, 2, pagination.TotalCount)
}
