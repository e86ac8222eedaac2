package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/hostelhq/hostel-api/pkg/errors"
)

// The occupancy ledger. Room.current_occupancy and the student is_allocated
// projection are mutated only through these helpers, always inside the
// transaction of the allocation or application transition that triggered
// them. Callers own the transaction; a returned error must roll it back.

type roomLedgerRow struct {
	Capacity  int `db:"capacity"`
	Occupancy int `db:"current_occupancy"`
}

// incrementOccupancyTx raises the room's occupancy by one. The room row is
// locked first so the capacity check and the write are one unit; a full room
// fails the whole transition.
func incrementOccupancyTx(ctx context.Context, tx *sqlx.Tx, roomID string) error {
	var room roomLedgerRow
	const lockQuery = `SELECT capacity, current_occupancy FROM rooms WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &room, lockQuery, roomID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return fmt.Errorf("lock room: %w", err)
	}
	if room.Occupancy >= room.Capacity {
		return appErrors.ErrRoomFull
	}
	const updateQuery = `UPDATE rooms SET current_occupancy = current_occupancy + 1, updated_at = NOW() WHERE id = $1`
	if _, err := tx.ExecContext(ctx, updateQuery, roomID); err != nil {
		return fmt.Errorf("increment occupancy: %w", err)
	}
	return nil
}

// decrementOccupancyTx lowers the room's occupancy by one, floored at zero.
// The clamp is deliberate: a double release must never drive the counter
// negative.
func decrementOccupancyTx(ctx context.Context, tx *sqlx.Tx, roomID string) error {
	const updateQuery = `UPDATE rooms SET current_occupancy = GREATEST(current_occupancy - 1, 0), updated_at = NOW() WHERE id = $1`
	result, err := tx.ExecContext(ctx, updateQuery, roomID)
	if err != nil {
		return fmt.Errorf("decrement occupancy: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "room not found")
	}
	return nil
}

// markAllocatedTx sets the student flag on the claim-gain path. Gaining a
// claim can only keep or set the flag true, so no recompute is needed.
func markAllocatedTx(ctx context.Context, tx *sqlx.Tx, studentID string) error {
	const updateQuery = `UPDATE student_profiles SET is_allocated = TRUE, updated_at = NOW() WHERE id = $1`
	if _, err := tx.ExecContext(ctx, updateQuery, studentID); err != nil {
		return fmt.Errorf("mark student allocated: %w", err)
	}
	return nil
}

// recomputeAllocatedTx recomputes the is_allocated projection after a claim
// is removed: true iff the student still holds any active allocation or any
// approved application.
func recomputeAllocatedTx(ctx context.Context, tx *sqlx.Tx, studentID string) error {
	const updateQuery = `UPDATE student_profiles SET is_allocated = (
        EXISTS (SELECT 1 FROM room_allocations WHERE student_id = $1 AND is_active = TRUE)
        OR EXISTS (SELECT 1 FROM room_applications WHERE student_id = $1 AND status = 'APPROVED')
    ), updated_at = NOW() WHERE id = $1`
	if _, err := tx.ExecContext(ctx, updateQuery, studentID); err != nil {
		return fmt.Errorf("recompute student allocation flag: %w", err)
	}
	return nil
}
