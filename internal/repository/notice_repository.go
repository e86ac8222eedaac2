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

// NoticeRepository handles database operations for hostel notices.
type NoticeRepository struct {
	db *sqlx.DB
}

// NewNoticeRepository creates a new notice repository.
func NewNoticeRepository(db *sqlx.DB) *NoticeRepository {
	return &NoticeRepository{db: db}
}

const noticeColumns = `id, title, content, category, priority, created_by, is_active, is_published, published_at, expires_at, created_at, updated_at`

// List returns notices, newest first. PublishedOnly also filters out expired
// and inactive notices, which is the student-facing view.
func (r *NoticeRepository) List(ctx context.Context, filter models.NoticeFilter) ([]models.Notice, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.PublishedOnly {
		conditions = append(conditions, "is_published = TRUE AND is_active = TRUE AND (expires_at IS NULL OR expires_at > NOW())")
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

	query := fmt.Sprintf(`SELECT %s FROM notices%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		noticeColumns, clause, size, offset)

	var notices []models.Notice
	if err := r.db.SelectContext(ctx, &notices, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notices: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM notices%s", clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count notices: %w", err)
	}
	return notices, total, nil
}

// FindByID retrieves a notice by ID.
func (r *NoticeRepository) FindByID(ctx context.Context, id string) (*models.Notice, error) {
	query := fmt.Sprintf(`SELECT %s FROM notices WHERE id = $1`, noticeColumns)
	var notice models.Notice
	if err := r.db.GetContext(ctx, &notice, query, id); err != nil {
		return nil, err
	}
	return &notice, nil
}

// Create inserts a new notice.
func (r *NoticeRepository) Create(ctx context.Context, notice *models.Notice) error {
	if notice.ID == "" {
		notice.ID = uuid.NewString()
	}
	const query = `INSERT INTO notices (id, title, content, category, priority, created_by, is_active, is_published, published_at, expires_at)
        VALUES (:id, :title, :content, :category, :priority, :created_by, :is_active, :is_published, :published_at, :expires_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notice); err != nil {
		return fmt.Errorf("create notice: %w", err)
	}
	return nil
}

// Update modifies a notice's content and scheduling fields.
func (r *NoticeRepository) Update(ctx context.Context, notice *models.Notice) error {
	const query = `UPDATE notices SET title = :title, content = :content, category = :category,
        priority = :priority, is_active = :is_active, expires_at = :expires_at, updated_at = NOW()
        WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, notice)
	if err != nil {
		return fmt.Errorf("update notice: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update notice rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Publish marks a notice published and stamps the publication time.
func (r *NoticeRepository) Publish(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE notices SET is_published = TRUE, published_at = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("publish notice: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("publish notice rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a notice.
func (r *NoticeRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notice: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete notice rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
