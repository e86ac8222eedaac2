package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hostelhq/hostel-api/internal/models"
)

// AllocationRepository handles persistence of direct room allocations and the
// occupancy side effects of their lifecycle. Every transition runs as a
// single transaction: the previous persisted state is read under a row lock,
// compared against the incoming value, and the room/student mutations commit
// together with the record write or not at all.
type AllocationRepository struct {
	db *sqlx.DB
}

// NewAllocationRepository constructs the repository.
func NewAllocationRepository(db *sqlx.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

const allocationColumns = `id, student_id, room_id, is_active, allocated_by, allocated_at, checkout_at, checkout_reason, notes, created_at, updated_at`

// List returns allocations filtered by the provided criteria.
func (r *AllocationRepository) List(ctx context.Context, filter models.AllocationFilter) ([]models.AllocationDetail, int, error) {
	base := `FROM room_allocations a
LEFT JOIN student_profiles s ON s.id = a.student_id
LEFT JOIN users u ON u.id = s.user_id
LEFT JOIN rooms r ON r.id = a.room_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("a.room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("a.is_active = $%d", len(args)+1))
		args = append(args, *filter.IsActive)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"allocated_at": "a.allocated_at",
		"student_name": "u.full_name",
		"room_number":  "r.room_number",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "a.allocated_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT a.id, a.student_id, a.room_id, a.is_active, a.allocated_by, a.allocated_at,
        a.checkout_at, a.checkout_reason, a.notes, a.created_at, a.updated_at,
        s.student_number, u.full_name AS student_name, r.room_number, r.block
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var allocations []models.AllocationDetail
	if err := r.db.SelectContext(ctx, &allocations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list allocations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count allocations: %w", err)
	}
	return allocations, total, nil
}

// FindByID returns an allocation by its ID.
func (r *AllocationRepository) FindByID(ctx context.Context, id string) (*models.RoomAllocation, error) {
	query := fmt.Sprintf(`SELECT %s FROM room_allocations WHERE id = $1`, allocationColumns)
	var allocation models.RoomAllocation
	if err := r.db.GetContext(ctx, &allocation, query, id); err != nil {
		return nil, err
	}
	return &allocation, nil
}

// FindDetailByID returns an allocation with student and room context.
func (r *AllocationRepository) FindDetailByID(ctx context.Context, id string) (*models.AllocationDetail, error) {
	const query = `SELECT a.id, a.student_id, a.room_id, a.is_active, a.allocated_by, a.allocated_at,
        a.checkout_at, a.checkout_reason, a.notes, a.created_at, a.updated_at,
        s.student_number, u.full_name AS student_name, r.room_number, r.block
        FROM room_allocations a
        LEFT JOIN student_profiles s ON s.id = a.student_id
        LEFT JOIN users u ON u.id = s.user_id
        LEFT JOIN rooms r ON r.id = a.room_id
        WHERE a.id = $1`
	var detail models.AllocationDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindActiveByStudent returns the student's active allocation, if any.
func (r *AllocationRepository) FindActiveByStudent(ctx context.Context, studentID string) (*models.AllocationDetail, error) {
	const query = `SELECT a.id, a.student_id, a.room_id, a.is_active, a.allocated_by, a.allocated_at,
        a.checkout_at, a.checkout_reason, a.notes, a.created_at, a.updated_at,
        s.student_number, u.full_name AS student_name, r.room_number, r.block
        FROM room_allocations a
        LEFT JOIN student_profiles s ON s.id = a.student_id
        LEFT JOIN users u ON u.id = s.user_id
        LEFT JOIN rooms r ON r.id = a.room_id
        WHERE a.student_id = $1 AND a.is_active = TRUE
        ORDER BY a.allocated_at DESC LIMIT 1`
	var detail models.AllocationDetail
	if err := r.db.GetContext(ctx, &detail, query, studentID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsActiveByStudent checks whether the student already holds an active
// allocation, optionally excluding one record.
func (r *AllocationRepository) ExistsActiveByStudent(ctx context.Context, studentID, excludeID string) (bool, error) {
	query := "SELECT 1 FROM room_allocations WHERE student_id = $1 AND is_active = TRUE"
	args := []interface{}{studentID}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	query += " LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active allocation: %w", err)
	}
	return true, nil
}

// Create persists a new allocation. An active allocation claims a bed and
// marks the student allocated within the same transaction.
func (r *AllocationRepository) Create(ctx context.Context, allocation *models.RoomAllocation) (err error) {
	if allocation.ID == "" {
		allocation.ID = uuid.NewString()
	}
	if allocation.AllocatedAt.IsZero() {
		allocation.AllocatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin allocation transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertQuery = `INSERT INTO room_allocations (id, student_id, room_id, is_active, allocated_by, allocated_at, checkout_at, checkout_reason, notes)
        VALUES (:id, :student_id, :room_id, :is_active, :allocated_by, :allocated_at, :checkout_at, :checkout_reason, :notes)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, allocation); err != nil {
		return fmt.Errorf("create allocation: %w", err)
	}

	if allocation.IsActive {
		if err = incrementOccupancyTx(ctx, tx, allocation.RoomID); err != nil {
			return err
		}
		if err = markAllocatedTx(ctx, tx, allocation.StudentID); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit allocation: %w", err)
	}
	return nil
}

// SetActive toggles the allocation between active and inactive. The previous
// state is read under a row lock inside the transaction; an unchanged value
// is a no-op for occupancy. Deactivation records checkout details and frees
// the bed; reactivation claims a bed again.
func (r *AllocationRepository) SetActive(ctx context.Context, id string, isActive bool, checkoutAt *time.Time, checkoutReason string) (allocation *models.RoomAllocation, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin allocation transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.RoomAllocation
	lockQuery := fmt.Sprintf(`SELECT %s FROM room_allocations WHERE id = $1 FOR UPDATE`, allocationColumns)
	if err = tx.GetContext(ctx, &current, lockQuery, id); err != nil {
		return nil, err
	}

	if isActive {
		checkoutAt = nil
		checkoutReason = ""
	}
	const updateQuery = `UPDATE room_allocations SET is_active = $2, checkout_at = $3, checkout_reason = $4, updated_at = NOW() WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateQuery, id, isActive, checkoutAt, checkoutReason); err != nil {
		return nil, fmt.Errorf("update allocation: %w", err)
	}

	// Side effects fire only on the edge, after the record write so the
	// flag recompute sees the new state of this allocation.
	if current.IsActive != isActive {
		if isActive {
			if err = incrementOccupancyTx(ctx, tx, current.RoomID); err != nil {
				return nil, err
			}
			if err = markAllocatedTx(ctx, tx, current.StudentID); err != nil {
				return nil, err
			}
		} else {
			if err = decrementOccupancyTx(ctx, tx, current.RoomID); err != nil {
				return nil, err
			}
			if err = recomputeAllocatedTx(ctx, tx, current.StudentID); err != nil {
				return nil, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit allocation: %w", err)
	}

	current.IsActive = isActive
	current.CheckoutAt = checkoutAt
	current.CheckoutReason = checkoutReason
	return &current, nil
}

// Delete removes the allocation. Deleting an active allocation frees the bed
// and recomputes the student flag before the record disappears.
func (r *AllocationRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin allocation transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current struct {
		StudentID string `db:"student_id"`
		RoomID    string `db:"room_id"`
		IsActive  bool   `db:"is_active"`
	}
	const lockQuery = `SELECT student_id, room_id, is_active FROM room_allocations WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &current, lockQuery, id); err != nil {
		return err
	}

	const deleteQuery = `DELETE FROM room_allocations WHERE id = $1`
	if _, err = tx.ExecContext(ctx, deleteQuery, id); err != nil {
		return fmt.Errorf("delete allocation: %w", err)
	}

	if current.IsActive {
		if err = decrementOccupancyTx(ctx, tx, current.RoomID); err != nil {
			return err
		}
		if err = recomputeAllocatedTx(ctx, tx, current.StudentID); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit allocation delete: %w", err)
	}
	return nil
}
