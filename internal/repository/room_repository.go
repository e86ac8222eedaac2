package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hostelhq/hostel-api/internal/models"
)

// RoomRepository handles database operations for rooms. It never writes
// current_occupancy; that column belongs to the occupancy engine.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository creates a new room repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

const roomColumns = `id, room_number, block, floor, room_type, capacity, current_occupancy, has_bathroom, has_ac, is_available, created_at, updated_at`

// List returns rooms filtered by the provided criteria, ordered by block,
// floor and room number.
func (r *RoomRepository) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(room_number ILIKE $%d OR block ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Block != "" {
		conditions = append(conditions, fmt.Sprintf("block = $%d", len(args)+1))
		args = append(args, filter.Block)
	}
	if filter.RoomType != "" {
		conditions = append(conditions, fmt.Sprintf("room_type = $%d", len(args)+1))
		args = append(args, filter.RoomType)
	}
	if filter.AvailableOnly {
		conditions = append(conditions, "is_available = TRUE AND current_occupancy < capacity")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM rooms%s ORDER BY block, floor, room_number LIMIT %d OFFSET %d`,
		roomColumns, clause, size, offset)

	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list rooms: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM rooms%s", clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count rooms: %w", err)
	}
	return rooms, total, nil
}

// FindByID retrieves a room by ID.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	query := fmt.Sprintf(`SELECT %s FROM rooms WHERE id = $1`, roomColumns)
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// FindByNumber retrieves a room by its block and number.
func (r *RoomRepository) FindByNumber(ctx context.Context, block, roomNumber string) (*models.Room, error) {
	query := fmt.Sprintf(`SELECT %s FROM rooms WHERE block = $1 AND room_number = $2`, roomColumns)
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, block, roomNumber); err != nil {
		return nil, err
	}
	return &room, nil
}

// Create inserts a new room with zero occupancy.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	const query = `INSERT INTO rooms (id, room_number, block, floor, room_type, capacity, has_bathroom, has_ac, is_available)
        VALUES (:id, :room_number, :block, :floor, :room_type, :capacity, :has_bathroom, :has_ac, :is_available)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

// Update modifies the editable room attributes.
func (r *RoomRepository) Update(ctx context.Context, room *models.Room) error {
	const query = `UPDATE rooms SET room_number = :room_number, block = :block, floor = :floor,
        room_type = :room_type, capacity = :capacity, has_bathroom = :has_bathroom, has_ac = :has_ac,
        is_available = :is_available, updated_at = NOW() WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, room)
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update room rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetAvailability toggles whether a room accepts new placements.
func (r *RoomRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	const query = `UPDATE rooms SET is_available = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, available)
	if err != nil {
		return fmt.Errorf("set room availability: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set room availability rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// OccupancyStats aggregates hostel-wide capacity usage.
func (r *RoomRepository) OccupancyStats(ctx context.Context) (*models.OccupancyStats, error) {
	const query = `SELECT COUNT(*) AS total_rooms,
        COUNT(*) FILTER (WHERE is_available AND current_occupancy < capacity) AS available_rooms,
        COALESCE(SUM(capacity), 0) AS total_capacity,
        COALESCE(SUM(current_occupancy), 0) AS total_occupied
        FROM rooms`
	var stats models.OccupancyStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("occupancy stats: %w", err)
	}
	if stats.TotalCapacity > 0 {
		stats.OccupancyRate = float64(stats.TotalOccupied) / float64(stats.TotalCapacity) * 100
	}
	return &stats, nil
}

// OccupancySummary returns per-room occupancy rows for reports, ordered by
// block, floor and room number.
func (r *RoomRepository) OccupancySummary(ctx context.Context) ([]models.RoomOccupancySummary, error) {
	const query = `SELECT room_number, block, floor, room_type, capacity, current_occupancy, is_available
        FROM rooms ORDER BY block, floor, room_number`
	var rows []models.RoomOccupancySummary
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("occupancy summary: %w", err)
	}
	return rows, nil
}
