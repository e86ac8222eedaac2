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

// StudentRepository handles database operations for student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `s.id, s.user_id, s.student_number, s.department, s.faculty, s.academic_level, s.academic_year,
        s.semester, s.emergency_contact, s.emergency_contact_name, s.enrolled_at, s.is_allocated, s.created_at, s.updated_at`

// List returns student profiles with account info, filtered and paginated.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := `FROM student_profiles s JOIN users u ON u.id = s.user_id`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(u.full_name ILIKE $%d OR s.student_number ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("s.department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Faculty != "" {
		conditions = append(conditions, fmt.Sprintf("s.faculty = $%d", len(args)+1))
		args = append(args, filter.Faculty)
	}
	if filter.IsAllocated != nil {
		conditions = append(conditions, fmt.Sprintf("s.is_allocated = $%d", len(args)+1))
		args = append(args, *filter.IsAllocated)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"student_number": "s.student_number",
		"full_name":      "u.full_name",
		"enrolled_at":    "s.enrolled_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "s.student_number"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf(`SELECT %s, u.full_name, u.email %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		studentColumns, base+clause, orderBy, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID retrieves a student profile with account info.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s, u.full_name, u.email FROM student_profiles s JOIN users u ON u.id = s.user_id WHERE s.id = $1`, studentColumns)
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByUserID retrieves the student profile belonging to a user account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s, u.full_name, u.email FROM student_profiles s JOIN users u ON u.id = s.user_id WHERE s.user_id = $1`, studentColumns)
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByStudentNumber retrieves a profile by its student number.
func (r *StudentRepository) FindByStudentNumber(ctx context.Context, number string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s, u.full_name, u.email FROM student_profiles s JOIN users u ON u.id = s.user_id WHERE s.student_number = $1`, studentColumns)
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, number); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a new student profile. The allocation flag always starts
// false; only the occupancy engine may set it.
func (r *StudentRepository) Create(ctx context.Context, student *models.StudentProfile) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	const query = `INSERT INTO student_profiles (id, user_id, student_number, department, faculty, academic_level,
        academic_year, semester, emergency_contact, emergency_contact_name, enrolled_at)
        VALUES (:id, :user_id, :student_number, :department, :faculty, :academic_level,
        :academic_year, :semester, :emergency_contact, :emergency_contact_name, :enrolled_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student profile: %w", err)
	}
	return nil
}

// Update modifies the editable profile fields. is_allocated is deliberately
// absent from the column list.
func (r *StudentRepository) Update(ctx context.Context, student *models.StudentProfile) error {
	const query = `UPDATE student_profiles SET department = :department, faculty = :faculty,
        academic_level = :academic_level, academic_year = :academic_year, semester = :semester,
        emergency_contact = :emergency_contact, emergency_contact_name = :emergency_contact_name,
        updated_at = NOW() WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student profile: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student profile rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountAllocated returns the number of students flagged as allocated.
func (r *StudentRepository) CountAllocated(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM student_profiles WHERE is_allocated = TRUE`); err != nil {
		return 0, fmt.Errorf("count allocated students: %w", err)
	}
	return count, nil
}

// Count returns the total number of student profiles.
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM student_profiles`); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}
