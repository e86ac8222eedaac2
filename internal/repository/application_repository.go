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

// ApplicationRepository handles persistence of room applications and the
// occupancy side effects of review decisions. Occupancy and the student flag
// move strictly on status edges: the previously persisted status is read
// under a row lock inside the same transaction as the write, so two
// concurrent reviews of one application cannot double-claim a bed.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const applicationColumns = `id, student_id, room_id, preferences, status, priority_score, reviewed_by, reviewed_at, admin_notes, applied_at, created_at, updated_at`

// List returns applications filtered by the provided criteria, ordered by
// priority then application time unless overridden.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	base := `FROM room_applications ap
LEFT JOIN student_profiles s ON s.id = ap.student_id
LEFT JOIN users u ON u.id = s.user_id
LEFT JOIN rooms r ON r.id = ap.room_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("ap.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("ap.room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("ap.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"applied_at":     "ap.applied_at",
		"priority_score": "ap.priority_score",
		"student_name":   "u.full_name",
	}
	orderBy := allowedSorts[filter.SortBy]
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	orderClause := fmt.Sprintf("%s %s", orderBy, order)
	if orderBy == "" {
		orderClause = "ap.priority_score DESC, ap.applied_at DESC"
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

	query := fmt.Sprintf(`SELECT ap.id, ap.student_id, ap.room_id, ap.preferences, ap.status, ap.priority_score,
        ap.reviewed_by, ap.reviewed_at, ap.admin_notes, ap.applied_at, ap.created_at, ap.updated_at,
        s.student_number, u.full_name AS student_name, r.room_number, r.block
        %s ORDER BY %s LIMIT %d OFFSET %d`, base+clause, orderClause, size, offset)

	var applications []models.ApplicationDetail
	if err := r.db.SelectContext(ctx, &applications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return applications, total, nil
}

// FindByID returns an application by its ID.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.RoomApplication, error) {
	query := fmt.Sprintf(`SELECT %s FROM room_applications WHERE id = $1`, applicationColumns)
	var application models.RoomApplication
	if err := r.db.GetContext(ctx, &application, query, id); err != nil {
		return nil, err
	}
	return &application, nil
}

// FindDetailByID returns an application with student and room context.
func (r *ApplicationRepository) FindDetailByID(ctx context.Context, id string) (*models.ApplicationDetail, error) {
	const query = `SELECT ap.id, ap.student_id, ap.room_id, ap.preferences, ap.status, ap.priority_score,
        ap.reviewed_by, ap.reviewed_at, ap.admin_notes, ap.applied_at, ap.created_at, ap.updated_at,
        s.student_number, u.full_name AS student_name, r.room_number, r.block
        FROM room_applications ap
        LEFT JOIN student_profiles s ON s.id = ap.student_id
        LEFT JOIN users u ON u.id = s.user_id
        LEFT JOIN rooms r ON r.id = ap.room_id
        WHERE ap.id = $1`
	var detail models.ApplicationDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsPending checks for a pending application on the (student, room) pair.
func (r *ApplicationRepository) ExistsPending(ctx context.Context, studentID, roomID string) (bool, error) {
	const query = `SELECT 1 FROM room_applications WHERE student_id = $1 AND room_id = $2 AND status = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, roomID, models.ApplicationStatusPending); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check pending application: %w", err)
	}
	return true, nil
}

// ExistsApprovedByStudent checks whether the student already has an approved
// application anywhere.
func (r *ApplicationRepository) ExistsApprovedByStudent(ctx context.Context, studentID string) (bool, error) {
	const query = `SELECT 1 FROM room_applications WHERE student_id = $1 AND status = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, models.ApplicationStatusApproved); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check approved application: %w", err)
	}
	return true, nil
}

// ExistsForPair checks for any application on the (student, room) pair.
func (r *ApplicationRepository) ExistsForPair(ctx context.Context, studentID, roomID string) (bool, error) {
	const query = `SELECT 1 FROM room_applications WHERE student_id = $1 AND room_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, roomID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check application pair: %w", err)
	}
	return true, nil
}

// CountByStatus returns the number of applications in the given status.
func (r *ApplicationRepository) CountByStatus(ctx context.Context, status models.ApplicationStatus) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM room_applications WHERE status = $1`, status); err != nil {
		return 0, fmt.Errorf("count applications by status: %w", err)
	}
	return count, nil
}

// CountByStudentAndStatus returns the student's applications in the given status.
func (r *ApplicationRepository) CountByStudentAndStatus(ctx context.Context, studentID string, status models.ApplicationStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM room_applications WHERE student_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, status); err != nil {
		return 0, fmt.Errorf("count student applications: %w", err)
	}
	return count, nil
}

// Create persists a new application. Applications start pending, so creation
// never touches occupancy.
func (r *ApplicationRepository) Create(ctx context.Context, application *models.RoomApplication) error {
	if application.ID == "" {
		application.ID = uuid.NewString()
	}
	if application.AppliedAt.IsZero() {
		application.AppliedAt = time.Now().UTC()
	}
	if application.Status == "" {
		application.Status = models.ApplicationStatusPending
	}
	const query = `INSERT INTO room_applications (id, student_id, room_id, preferences, status, priority_score, admin_notes, applied_at)
        VALUES (:id, :student_id, :room_id, :preferences, :status, :priority_score, :admin_notes, :applied_at)`
	if _, err := r.db.NamedExecContext(ctx, query, application); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// UpdateStatus applies a review decision. Side effects fire only when the
// status actually changes: any transition into APPROVED claims a bed and
// marks the student allocated; leaving APPROVED for REJECTED or WITHDRAWN
// frees the bed and recomputes the flag. Re-saving an unchanged status is a
// no-op for occupancy.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, reviewedBy *string, adminNotes string) (application *models.RoomApplication, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin application transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.RoomApplication
	lockQuery := fmt.Sprintf(`SELECT %s FROM room_applications WHERE id = $1 FOR UPDATE`, applicationColumns)
	if err = tx.GetContext(ctx, &current, lockQuery, id); err != nil {
		return nil, err
	}

	// A staff review stamps the reviewer fields; other transitions (a
	// student withdrawal) keep the existing review trail intact.
	now := time.Now().UTC()
	if reviewedBy != nil {
		const reviewQuery = `UPDATE room_applications SET status = $2, reviewed_by = $3, reviewed_at = $4, admin_notes = $5, updated_at = NOW() WHERE id = $1`
		if _, err = tx.ExecContext(ctx, reviewQuery, id, status, reviewedBy, now, adminNotes); err != nil {
			return nil, fmt.Errorf("update application status: %w", err)
		}
	} else {
		const statusQuery = `UPDATE room_applications SET status = $2, updated_at = NOW() WHERE id = $1`
		if _, err = tx.ExecContext(ctx, statusQuery, id, status); err != nil {
			return nil, fmt.Errorf("update application status: %w", err)
		}
	}

	if current.Status != status {
		switch {
		case status == models.ApplicationStatusApproved:
			if err = incrementOccupancyTx(ctx, tx, current.RoomID); err != nil {
				return nil, err
			}
			if err = markAllocatedTx(ctx, tx, current.StudentID); err != nil {
				return nil, err
			}
		case current.Status == models.ApplicationStatusApproved &&
			(status == models.ApplicationStatusRejected || status == models.ApplicationStatusWithdrawn):
			if err = decrementOccupancyTx(ctx, tx, current.RoomID); err != nil {
				return nil, err
			}
			if err = recomputeAllocatedTx(ctx, tx, current.StudentID); err != nil {
				return nil, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit application status: %w", err)
	}

	current.Status = status
	if reviewedBy != nil {
		current.ReviewedBy = reviewedBy
		current.ReviewedAt = &now
		current.AdminNotes = adminNotes
	}
	return &current, nil
}

// Delete removes the application. Deleting an approved application is
// equivalent to rejecting it first: the bed frees up and the student flag is
// recomputed, atomically with the delete.
func (r *ApplicationRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin application transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current struct {
		StudentID string                   `db:"student_id"`
		RoomID    string                   `db:"room_id"`
		Status    models.ApplicationStatus `db:"status"`
	}
	const lockQuery = `SELECT student_id, room_id, status FROM room_applications WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &current, lockQuery, id); err != nil {
		return err
	}

	const deleteQuery = `DELETE FROM room_applications WHERE id = $1`
	if _, err = tx.ExecContext(ctx, deleteQuery, id); err != nil {
		return fmt.Errorf("delete application: %w", err)
	}

	if current.Status == models.ApplicationStatusApproved {
		if err = decrementOccupancyTx(ctx, tx, current.RoomID); err != nil {
			return err
		}
		if err = recomputeAllocatedTx(ctx, tx, current.StudentID); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit application delete: %w", err)
	}
	return nil
}
