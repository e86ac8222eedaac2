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

type roomRepository interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	FindByNumber(ctx context.Context, block, roomNumber string) (*models.Room, error)
	Create(ctx context.Context, room *models.Room) error
	Update(ctx context.Context, room *models.Room) error
	SetAvailability(ctx context.Context, id string, available bool) error
}

// CreateRoomRequest is the payload for registering a room.
type CreateRoomRequest struct {
	RoomNumber  string          `json:"room_number" validate:"required"`
	Block       string          `json:"block" validate:"required"`
	Floor       int             `json:"floor" validate:"min=0"`
	RoomType    models.RoomType `json:"room_type" validate:"required,oneof=SINGLE DOUBLE TRIPLE DORMITORY"`
	Capacity    int             `json:"capacity" validate:"required,min=1"`
	HasBathroom bool            `json:"has_bathroom"`
	HasAC       bool            `json:"has_ac"`
}

// UpdateRoomRequest is the payload for editing a room.
type UpdateRoomRequest struct {
	RoomNumber  string          `json:"room_number" validate:"required"`
	Block       string          `json:"block" validate:"required"`
	Floor       int             `json:"floor" validate:"min=0"`
	RoomType    models.RoomType `json:"room_type" validate:"required,oneof=SINGLE DOUBLE TRIPLE DORMITORY"`
	Capacity    int             `json:"capacity" validate:"required,min=1"`
	HasBathroom bool            `json:"has_bathroom"`
	HasAC       bool            `json:"has_ac"`
	IsAvailable bool            `json:"is_available"`
}

// RoomService manages the room inventory. Occupancy is read-only here; the
// only writers are the allocation and application state machines.
type RoomService struct {
	rooms     roomRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRoomService constructs a RoomService.
func NewRoomService(rooms roomRepository, validate *validator.Validate, logger *zap.Logger) *RoomService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RoomService{rooms: rooms, validator: validate, logger: logger}
}

// List returns rooms matching the filter with derived capacity fields.
func (s *RoomService) List(ctx context.Context, filter models.RoomFilter) ([]models.RoomDetail, *models.Pagination, error) {
	rooms, total, err := s.rooms.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	details := make([]models.RoomDetail, 0, len(rooms))
	for _, room := range rooms {
		details = append(details, models.NewRoomDetail(room))
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return details, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a room by ID.
func (s *RoomService) Get(ctx context.Context, id string) (*models.RoomDetail, error) {
	room, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	detail := models.NewRoomDetail(*room)
	return &detail, nil
}

// Create registers a new room with zero occupancy.
func (s *RoomService) Create(ctx context.Context, req CreateRoomRequest) (*models.RoomDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}

	if _, err := s.rooms.FindByNumber(ctx, req.Block, req.RoomNumber); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("room %s already exists in block %s", req.RoomNumber, req.Block))
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room number")
	}

	room := &models.Room{
		RoomNumber:  req.RoomNumber,
		Block:       req.Block,
		Floor:       req.Floor,
		RoomType:    req.RoomType,
		Capacity:    req.Capacity,
		HasBathroom: req.HasBathroom,
		HasAC:       req.HasAC,
		IsAvailable: true,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}
	detail := models.NewRoomDetail(*room)
	return &detail, nil
}

// Update edits a room. Capacity may not drop below the current occupancy, so
// shrinking never strands already-placed students.
func (s *RoomService) Update(ctx context.Context, id string, req UpdateRoomRequest) (*models.RoomDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}

	room, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	if req.Capacity < room.CurrentOccupancy {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("capacity %d is below current occupancy %d", req.Capacity, room.CurrentOccupancy))
	}

	room.RoomNumber = req.RoomNumber
	room.Block = req.Block
	room.Floor = req.Floor
	room.RoomType = req.RoomType
	room.Capacity = req.Capacity
	room.HasBathroom = req.HasBathroom
	room.HasAC = req.HasAC
	room.IsAvailable = req.IsAvailable

	if err := s.rooms.Update(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update room")
	}
	detail := models.NewRoomDetail(*room)
	return &detail, nil
}

// SetAvailability opens or closes a room for new placements. Closing a room
// never evicts its current occupants.
func (s *RoomService) SetAvailability(ctx context.Context, id string, available bool) error {
	if err := s.rooms.SetAvailability(ctx, id, available); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update room availability")
	}
	return nil
}
