package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/hostelhq/hostel-api/internal/models"
	appErrors "github.com/hostelhq/hostel-api/pkg/errors"
)

func newApplicationRepoMock(t *testing.T) (*ApplicationRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	repo := NewApplicationRepository(sqlx.NewDb(db, "sqlmock"))
	return repo, mock, func() { _ = db.Close() }
}

func applicationRows(a models.RoomApplication) *sqlmock.Rows {
	var reviewedBy interface{}
	if a.ReviewedBy != nil {
		reviewedBy = *a.ReviewedBy
	}
	var reviewedAt interface{}
	if a.ReviewedAt != nil {
		reviewedAt = *a.ReviewedAt
	}
	return sqlmock.NewRows([]string{
		"id", "student_id", "room_id", "preferences", "status", "priority_score",
		"reviewed_by", "reviewed_at", "admin_notes", "applied_at", "created_at", "updated_at",
	}).AddRow(a.ID, a.StudentID, a.RoomID, a.Preferences, string(a.Status), a.PriorityScore,
		reviewedBy, reviewedAt, a.AdminNotes, a.AppliedAt, a.CreatedAt, a.UpdatedAt)
}

func TestApplicationRepositoryCreateDefaults(t *testing.T) {
	repo, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO room_applications")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	application := &models.RoomApplication{
		StudentID:     "student-1",
		RoomID:        "room-1",
		PriorityScore: 64,
	}
	err := repo.Create(context.Background(), application)
	require.NoError(t, err)
	require.NotEmpty(t, application.ID)
	require.Equal(t, models.ApplicationStatusPending, application.Status)
	require.False(t, application.AppliedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryUpdateStatusApprove(t *testing.T) {
	repo, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()

	current := models.RoomApplication{
		ID:        "app-1",
		StudentID: "student-1",
		RoomID:    "room-1",
		Status:    models.ApplicationStatusPending,
	}
	reviewer := "staff-1"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM room_applications WHERE id = $1 FOR UPDATE")).
		WithArgs("app-1").
		WillReturnRows(applicationRows(current))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE room_applications SET status = $2")).
		WithArgs("app-1", "APPROVED", &reviewer, sqlmock.AnyArg(), "fits quota").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectRoomLock(mock, "room-1", 2, 0)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET current_occupancy = current_occupancy + 1")).
		WithArgs("room-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_profiles SET is_allocated = TRUE")).
		WithArgs("student-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := repo.UpdateStatus(context.Background(), "app-1", models.ApplicationStatusApproved, &reviewer, "fits quota")
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusApproved, updated.Status)
	require.NotNil(t, updated.ReviewedAt)
	require.Equal(t, &reviewer, updated.ReviewedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryUpdateStatusApproveRoomFull(t *testing.T) {
	repo, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()

	current := models.RoomApplication{
		ID:        "app-1",
		StudentID: "student-1",
		RoomID:    "room-1",
		Status:    models.ApplicationStatusPending,
	}
	reviewer := "staff-1"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM room_applications WHERE id = $1 FOR UPDATE")).
		WithArgs("app-1").
		WillReturnRows(applicationRows(current))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE room_applications SET status = $2")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectRoomLock(mock, "room-1", 2, 2)
	mock.ExpectRollback()

	_, err := repo.UpdateStatus(context.Background(), "app-1", models.ApplicationStatusApproved, &reviewer, "")
	require.ErrorIs(t, err, appErrors.ErrRoomFull)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryUpdateStatusRevokeApproval(t *testing.T) {
	repo, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()

	current := models.RoomApplication{
		ID:        "app-1",
		StudentID: "student-1",
		RoomID:    "room-1",
		Status:    models.ApplicationStatusApproved,
	}
	reviewer := "staff-1"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM room_applications WHERE id = $1 FOR UPDATE")).
		WithArgs("app-1").
		WillReturnRows(applicationRows(current))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE room_applications SET status = $2")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET current_occupancy = GREATEST(current_occupancy - 1, 0)")).
		WithArgs("room-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_profiles SET is_allocated = (")).
		WithArgs("student-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := repo.UpdateStatus(context.Background(), "app-1", models.ApplicationStatusRejected, &reviewer, "over quota")
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusRejected, updated.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryUpdateStatusWithdrawFromApproved(t *testing.T) {
	repo, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()

	current := models.RoomApplication{
		ID:        "app-1",
		StudentID: "student-1",
		RoomID:    "room-1",
		Status:    models.ApplicationStatusApproved,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM room_applications WHERE id = $1 FOR UPDATE")).
		WithArgs("app-1").
		WillReturnRows(applicationRows(current))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE room_applications SET status = $2")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET current_occupancy = GREATEST(current_occupancy - 1, 0)")).
		WithArgs("room-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_profiles SET is_allocated = (")).
		WithArgs("student-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := repo.UpdateStatus(context.Background(), "app-1", models.ApplicationStatusWithdrawn, nil, "")
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusWithdrawn, updated.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryWithdrawKeepsReviewTrail(t *testing.T) {
	repo, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()

	reviewer := "staff-1"
	reviewedAt := time.Now().UTC().Add(-time.Hour)
	current := models.RoomApplication{
		ID:         "app-1",
		StudentID:  "student-1",
		RoomID:     "room-1",
		Status:     models.ApplicationStatusApproved,
		ReviewedBy: &reviewer,
		ReviewedAt: &reviewedAt,
		AdminNotes: "fits quota",
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM room_applications WHERE id = $1 FOR UPDATE")).
		WithArgs("app-1").
		WillReturnRows(applicationRows(current))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE room_applications SET status = $2, updated_at = NOW() WHERE id = $1")).
		WithArgs("app-1", "WITHDRAWN").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET current_occupancy = GREATEST(current_occupancy - 1, 0)")).
		WithArgs("room-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_profiles SET is_allocated = (")).
		WithArgs("student-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := repo.UpdateStatus(context.Background(), "app-1", models.ApplicationStatusWithdrawn, nil, "")
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusWithdrawn, updated.Status)
	require.Equal(t, &reviewer, updated.ReviewedBy)
	require.NotNil(t, updated.ReviewedAt)
	require.Equal(t, "fits quota", updated.AdminNotes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryUpdateStatusUnchangedIsNoOp(t *testing.T) {
	repo, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()

	reviewer := "staff-1"
	current := models.RoomApplication{
		ID:         "app-1",
		StudentID:  "student-1",
		RoomID:     "room-1",
		Status:     models.ApplicationStatusApproved,
		ReviewedBy: &reviewer,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM room_applications WHERE id = $1 FOR UPDATE")).
		WithArgs("app-1").
		WillReturnRows(applicationRows(current))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE room_applications SET status = $2")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := repo.UpdateStatus(context.Background(), "app-1", models.ApplicationStatusApproved, &reviewer, "second save")
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusApproved, updated.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryUpdateStatusWithdrawFromPending(t *testing.T) {
	repo, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()

	current := models.RoomApplication{
		ID:        "app-1",
		StudentID: "student-1",
		RoomID:    "room-1",
		Status:    models.ApplicationStatusPending,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM room_applications WHERE id = $1 FOR UPDATE")).
		WithArgs("app-1").
		WillReturnRows(applicationRows(current))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE room_applications SET status = $2")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := repo.UpdateStatus(context.Background(), "app-1", models.ApplicationStatusWithdrawn, nil, "")
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusWithdrawn, updated.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryDeleteApproved(t *testing.T) {
	repo, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id, room_id, status FROM room_applications WHERE id = $1 FOR UPDATE")).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "room_id", "status"}).
			AddRow("student-1", "room-1", "APPROVED"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM room_applications WHERE id = $1")).
		WithArgs("app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET current_occupancy = GREATEST(current_occupancy - 1, 0)")).
		WithArgs("room-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_profiles SET is_allocated = (")).
		WithArgs("student-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "app-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryDeletePendingSkipsOccupancy(t *testing.T) {
	repo, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id, room_id, status FROM room_applications WHERE id = $1 FOR UPDATE")).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "room_id", "status"}).
			AddRow("student-1", "room-1", "PENDING"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM room_applications WHERE id = $1")).
		WithArgs("app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "app-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryExistsPending(t *testing.T) {
	repo, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM room_applications WHERE student_id = $1 AND room_id = $2 AND status = $3")).
		WithArgs("student-1", "room-1", "PENDING").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsPending(context.Background(), "student-1", "room-1")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryList(t *testing.T) {
	repo, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT ap.id, ap.student_id").
		WithArgs("PENDING").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "student_id", "room_id", "preferences", "status", "priority_score",
			"reviewed_by", "reviewed_at", "admin_notes", "applied_at", "created_at", "updated_at",
			"student_number", "student_name", "room_number", "block",
		}).AddRow("app-1", "student-1", "room-1", "", "PENDING", 80,
			nil, nil, "", now, now, now, "STU0001", "Ada Obi", "A101", "A"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("PENDING").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	applications, total, err := repo.List(context.Background(), models.ApplicationFilter{Status: models.ApplicationStatusPending})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, applications, 1)
	require.Equal(t, 80, applications[0].PriorityScore)
	require.NoError(t, mock.ExpectationsWereMet())
}
