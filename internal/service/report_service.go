package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hostelhq/hostel-api/internal/models"
	appErrors "github.com/hostelhq/hostel-api/pkg/errors"
	"github.com/hostelhq/hostel-api/pkg/export"
)

type reportRoomRepository interface {
	OccupancySummary(ctx context.Context) ([]models.RoomOccupancySummary, error)
	OccupancyStats(ctx context.Context) (*models.OccupancyStats, error)
}

// ReportFormat selects the rendering of a report.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportFile is a rendered report ready to be served as a download.
type ReportFile struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ReportService renders occupancy reports as CSV or PDF downloads.
type ReportService struct {
	rooms reportRoomRepository
	csv   *export.CSVExporter
	pdf   *export.PDFExporter
	clock func() time.Time

	logger *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(rooms reportRoomRepository, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		rooms:  rooms,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		clock:  func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// OccupancyReport renders the per-room occupancy table in the requested
// format, with a summary row appended.
func (s *ReportService) OccupancyReport(ctx context.Context, format ReportFormat) (*ReportFile, error) {
	format = ReportFormat(strings.ToLower(string(format)))
	if format != ReportFormatCSV && format != ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report format %q", format))
	}

	rows, err := s.rooms.OccupancySummary(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load occupancy summary")
	}
	stats, err := s.rooms.OccupancyStats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load occupancy stats")
	}

	table := export.Table{
		Columns: []string{"Block", "Room", "Floor", "Type", "Capacity", "Occupied", "Free", "Status"},
	}
	for _, room := range rows {
		status := "open"
		if !room.IsAvailable {
			status = "closed"
		} else if room.CurrentOccupancy >= room.Capacity {
			status = "full"
		}
		table.Rows = append(table.Rows, []string{
			room.Block,
			room.RoomNumber,
			strconv.Itoa(room.Floor),
			string(room.RoomType),
			strconv.Itoa(room.Capacity),
			strconv.Itoa(room.CurrentOccupancy),
			strconv.Itoa(room.Capacity - room.CurrentOccupancy),
			status,
		})
	}
	table.Rows = append(table.Rows, []string{
		"TOTAL",
		"",
		"",
		"",
		strconv.Itoa(stats.TotalCapacity),
		strconv.Itoa(stats.TotalOccupied),
		strconv.Itoa(stats.TotalCapacity - stats.TotalOccupied),
		fmt.Sprintf("%.1f%% occupied", stats.OccupancyRate),
	})

	stamp := s.clock().Format("20060102-150405")
	switch format {
	case ReportFormatPDF:
		content, err := s.pdf.Render(table, "Hostel Occupancy Report")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return &ReportFile{
			FileName:    fmt.Sprintf("occupancy-%s.pdf", stamp),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		content, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return &ReportFile{
			FileName:    fmt.Sprintf("occupancy-%s.csv", stamp),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	}
}
