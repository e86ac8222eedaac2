package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hostelhq/hostel-api/internal/models"
	appErrors "github.com/hostelhq/hostel-api/pkg/errors"
)

type mockReportRooms struct {
	rows  []models.RoomOccupancySummary
	stats *models.OccupancyStats
}

func (m *mockReportRooms) OccupancySummary(_ context.Context) ([]models.RoomOccupancySummary, error) {
	return m.rows, nil
}

func (m *mockReportRooms) OccupancyStats(_ context.Context) (*models.OccupancyStats, error) {
	return m.stats, nil
}

func testReportRooms() *mockReportRooms {
	return &mockReportRooms{
		rows: []models.RoomOccupancySummary{
			{RoomNumber: "A101", Block: "A", Floor: 1, RoomType: models.RoomTypeDouble, Capacity: 2, CurrentOccupancy: 2, IsAvailable: true},
			{RoomNumber: "A102", Block: "A", Floor: 1, RoomType: models.RoomTypeSingle, Capacity: 1, CurrentOccupancy: 0, IsAvailable: false},
			{RoomNumber: "B201", Block: "B", Floor: 2, RoomType: models.RoomTypeTriple, Capacity: 3, CurrentOccupancy: 1, IsAvailable: true},
		},
		stats: &models.OccupancyStats{TotalRooms: 3, AvailableRooms: 1, TotalCapacity: 6, TotalOccupied: 3, OccupancyRate: 50},
	}
}

func TestReportServiceOccupancyCSV(t *testing.T) {
	svc := NewReportService(testReportRooms(), zap.NewNop())
	svc.clock = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }

	file, err := svc.OccupancyReport(context.Background(), ReportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "occupancy-20260314-093000.csv", file.FileName)
	assert.Equal(t, "text/csv", file.ContentType)

	content := string(file.Content)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Block,Room,Floor,Type,Capacity,Occupied,Free,Status", strings.TrimSpace(lines[0]))
	assert.Contains(t, content, "A,A101,1,DOUBLE,2,2,0,full")
	assert.Contains(t, content, "A,A102,1,SINGLE,1,0,1,closed")
	assert.Contains(t, content, "B,B201,2,TRIPLE,3,1,2,open")
	assert.Contains(t, content, "TOTAL")
	assert.Contains(t, content, "50.0% occupied")
}

func TestReportServiceOccupancyPDF(t *testing.T) {
	svc := NewReportService(testReportRooms(), zap.NewNop())

	file, err := svc.OccupancyReport(context.Background(), ReportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasSuffix(file.FileName, ".pdf"))
	require.NotEmpty(t, file.Content)
	assert.True(t, strings.HasPrefix(string(file.Content), "%PDF"))
}

func TestReportServiceOccupancyUnknownFormat(t *testing.T) {
	svc := NewReportService(testReportRooms(), zap.NewNop())

	_, err := svc.OccupancyReport(context.Background(), "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceOccupancyFormatCaseInsensitive(t *testing.T) {
	svc := NewReportService(testReportRooms(), zap.NewNop())

	file, err := svc.OccupancyReport(context.Background(), "CSV")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
}
