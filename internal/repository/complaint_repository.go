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

// ComplaintRepository handles database operations for complaints.
type ComplaintRepository struct {
	db *sqlx.DB
}

// NewComplaintRepository creates a new complaint repository.
func NewComplaintRepository(db *sqlx.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

const complaintColumns = `id, submitted_by, category, priority, subject, description, location, status,
        assigned_to, assigned_at, resolution_notes, resolved_at, created_at, updated_at`

// List returns complaints filtered by the provided criteria.
func (r *ComplaintRepository) List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, int, error) {
	var conditions []string
	var args []interface{}

	if filter.SubmittedBy != "" {
		conditions = append(conditions, fmt.Sprintf("submitted_by = $%d", len(args)+1))
		args = append(args, filter.SubmittedBy)
	}
	if filter.AssignedTo != "" {
		conditions = append(conditions, fmt.Sprintf("assigned_to = $%d", len(args)+1))
		args = append(args, filter.AssignedTo)
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at": "created_at",
		"priority":   "priority",
		"status":     "status",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "created_at"
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

	query := fmt.Sprintf(`SELECT %s FROM complaints%s ORDER BY %s %s LIMIT %d OFFSET %d`,
		complaintColumns, clause, orderBy, order, size, offset)

	var complaints []models.Complaint
	if err := r.db.SelectContext(ctx, &complaints, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list complaints: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM complaints%s", clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count complaints: %w", err)
	}
	return complaints, total, nil
}

// FindByID retrieves a complaint by ID.
func (r *ComplaintRepository) FindByID(ctx context.Context, id string) (*models.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE id = $1`, complaintColumns)
	var complaint models.Complaint
	if err := r.db.GetContext(ctx, &complaint, query, id); err != nil {
		return nil, err
	}
	return &complaint, nil
}

// Create inserts a new complaint in the SUBMITTED state.
func (r *ComplaintRepository) Create(ctx context.Context, complaint *models.Complaint) error {
	if complaint.ID == "" {
		complaint.ID = uuid.NewString()
	}
	if complaint.Status == "" {
		complaint.Status = models.ComplaintStatusSubmitted
	}
	const query = `INSERT INTO complaints (id, submitted_by, category, priority, subject, description, location, status)
        VALUES (:id, :submitted_by, :category, :priority, :subject, :description, :location, :status)`
	if _, err := r.db.NamedExecContext(ctx, query, complaint); err != nil {
		return fmt.Errorf("create complaint: %w", err)
	}
	return nil
}

// Assign sets the staff member handling a complaint and moves it in progress.
func (r *ComplaintRepository) Assign(ctx context.Context, id, staffID string, at time.Time) error {
	const query = `UPDATE complaints SET assigned_to = $2, assigned_at = $3, status = $4, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, staffID, at, models.ComplaintStatusInProgress)
	if err != nil {
		return fmt.Errorf("assign complaint: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("assign complaint rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus changes the complaint status, stamping resolution fields when
// the complaint is resolved or closed.
func (r *ComplaintRepository) UpdateStatus(ctx context.Context, id string, status models.ComplaintStatus, notes string, resolvedAt *time.Time) error {
	const query = `UPDATE complaints SET status = $2, resolution_notes = $3, resolved_at = $4, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, notes, resolvedAt)
	if err != nil {
		return fmt.Errorf("update complaint status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update complaint status rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountOpen returns the number of complaints not yet resolved, closed or
// rejected.
func (r *ComplaintRepository) CountOpen(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM complaints WHERE status IN ($1, $2)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, models.ComplaintStatusSubmitted, models.ComplaintStatusInProgress); err != nil {
		return 0, fmt.Errorf("count open complaints: %w", err)
	}
	return count, nil
}

// CountOpenByUser returns the submitter's open complaints.
func (r *ComplaintRepository) CountOpenByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM complaints WHERE submitted_by = $1 AND status IN ($2, $3)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, models.ComplaintStatusSubmitted, models.ComplaintStatusInProgress); err != nil {
		return 0, fmt.Errorf("count open complaints by user: %w", err)
	}
	return count, nil
}
