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

type mockStudentRepo struct {
	students []models.StudentDetail
	total    int
	byID     *models.StudentDetail
	byIDErr  error
	updated  *models.StudentProfile
}

func (m *mockStudentRepo) List(_ context.Context, _ models.StudentFilter) ([]models.StudentDetail, int, error) {
	return m.students, m.total, nil
}

func (m *mockStudentRepo) FindByID(_ context.Context, _ string) (*models.StudentDetail, error) {
	if m.byIDErr != nil {
		return nil, m.byIDErr
	}
	return m.byID, nil
}

func (m *mockStudentRepo) FindByUserID(_ context.Context, _ string) (*models.StudentDetail, error) {
	if m.byIDErr != nil {
		return nil, m.byIDErr
	}
	return m.byID, nil
}

func (m *mockStudentRepo) Update(_ context.Context, student *models.StudentProfile) error {
	m.updated = student
	return nil
}

func TestStudentServiceUpdate(t *testing.T) {
	current := testStudentDetail()
	current.IsAllocated = true
	repo := &mockStudentRepo{byID: current}
	svc := NewStudentService(repo, nil, zap.NewNop())

	updated, err := svc.Update(context.Background(), "student-1", UpdateStudentRequest{
		Department:    "Physics",
		Faculty:       "Science",
		AcademicLevel: models.AcademicLevelPostgraduate,
		AcademicYear:  2025,
		Semester:      2,
	})
	require.NoError(t, err)
	require.NotNil(t, repo.updated)
	assert.Equal(t, "Physics", updated.Department)
	assert.Equal(t, models.AcademicLevelPostgraduate, updated.AcademicLevel)
	// The allocation flag is owned by the occupancy engine and survives
	// profile edits untouched.
	assert.True(t, updated.IsAllocated)
}

func TestStudentServiceUpdateInvalidLevel(t *testing.T) {
	repo := &mockStudentRepo{byID: testStudentDetail()}
	svc := NewStudentService(repo, nil, zap.NewNop())

	_, err := svc.Update(context.Background(), "student-1", UpdateStudentRequest{
		Department:    "Physics",
		Faculty:       "Science",
		AcademicLevel: "DIPLOMA",
		AcademicYear:  2025,
		Semester:      1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.updated)
}

func TestStudentServiceGetNotFound(t *testing.T) {
	repo := &mockStudentRepo{byIDErr: sql.ErrNoRows}
	svc := NewStudentService(repo, nil, zap.NewNop())

	_, err := svc.Get(context.Background(), "student-404")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceListPaginationClamps(t *testing.T) {
	repo := &mockStudentRepo{students: []models.StudentDetail{*testStudentDetail()}, total: 1}
	svc := NewStudentService(repo, nil, zap.NewNop())

	_, pagination, err := svc.List(context.Background(), models.StudentFilter{Page: -3, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
}
