package service

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-ledger/internal/models"
	"github.com/noah-isme/campus-ledger/pkg/export"
	appErrors "github.com/noah-isme/campus-ledger/pkg/errors"
)

// Export formats accepted by report endpoints.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

var contentTypes = map[string]string{
	FormatCSV:  "text/csv",
	FormatPDF:  "application/pdf",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ExportFile is a rendered report ready to stream to the caller.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders ledger reports into downloadable files.
type ExportService struct {
	renderers map[string]export.Renderer
	logger    *zap.Logger
	now       Clock
}

// NewExportService constructs an ExportService. Nil renderers fall back to
// the pkg/export implementations.
func NewExportService(logger *zap.Logger, clock Clock, csv, pdf, xlsx export.Renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = systemClock
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	return &ExportService{
		renderers: map[string]export.Renderer{FormatCSV: csv, FormatPDF: pdf, FormatXLSX: xlsx},
		logger:    logger,
		now:       clock,
	}
}

// FeeReport renders the category breakdown of a fee report followed by its
// monthly collection, closing with the report totals.
func (s *ExportService) FeeReport(report models.FeeReport, from, to, format string) (*ExportFile, error) {
	rows := make([][]string, 0, len(report.CategoryBreakdown)+len(report.MonthlyCollection))
	for _, category := range models.FeeCategories {
		totals, ok := report.CategoryBreakdown[category]
		if !ok {
			continue
		}
		rows = append(rows, []string{
			"category",
			string(category),
			strconv.Itoa(totals.Count),
			totals.Collected.StringFixed(2),
			totals.Pending.StringFixed(2),
		})
	}
	for _, month := range report.MonthlyCollection {
		rows = append(rows, []string{"month", month.Month, "", month.Amount.StringFixed(2), ""})
	}

	dataset := export.Dataset{
		Title:   fmt.Sprintf("Fee Report %s to %s", from, to),
		Headers: []string{"Section", "Key", "Count", "Collected", "Pending"},
		Rows:    rows,
		Totals:  []string{"total", "", "", report.TotalCollection.StringFixed(2), report.TotalPending.StringFixed(2)},
	}
	return s.render(dataset, "fees_"+from+"_"+to, format)
}

// ClassAttendanceReport renders one row per day.
func (s *ExportService) ClassAttendanceReport(classID string, report models.ClassAttendanceReport, format string) (*ExportFile, error) {
	rows := make([][]string, 0, len(report.DailyStats))
	for _, day := range report.DailyStats {
		rows = append(rows, []string{
			day.Date,
			strconv.Itoa(day.Present),
			strconv.Itoa(day.Late),
			strconv.Itoa(day.Absent),
			strconv.Itoa(day.Total),
			strconv.Itoa(day.Percentage),
		})
	}
	dataset := export.Dataset{
		Title:   fmt.Sprintf("Class %s Attendance", classID),
		Headers: []string{"Date", "Present", "Late", "Absent", "Total", "Attendance (%)"},
		Rows:    rows,
		Totals:  []string{"average", "", "", "", strconv.Itoa(report.TotalStudents), strconv.Itoa(report.AverageAttendance)},
	}
	return s.render(dataset, "attendance_class_"+classID, format)
}

// StudentAttendanceReport renders one row per month.
func (s *ExportService) StudentAttendanceReport(studentID string, report models.StudentAttendanceReport, format string) (*ExportFile, error) {
	rows := make([][]string, 0, len(report.MonthlyBreakdown))
	for _, month := range report.MonthlyBreakdown {
		rows = append(rows, []string{
			month.Month,
			strconv.Itoa(month.PresentDays),
			strconv.Itoa(month.LateDays),
			strconv.Itoa(month.AbsentDays),
			strconv.Itoa(month.TotalDays),
			strconv.Itoa(month.AttendedDays),
			strconv.Itoa(month.Percentage),
		})
	}
	stats := report.Stats
	dataset := export.Dataset{
		Title:   fmt.Sprintf("Student %s Attendance", studentID),
		Headers: []string{"Month", "Present", "Late", "Absent", "Total", "Attended", "Attendance (%)"},
		Rows:    rows,
		Totals: []string{
			"overall",
			strconv.Itoa(stats.PresentDays),
			strconv.Itoa(stats.LateDays),
			strconv.Itoa(stats.AbsentDays),
			strconv.Itoa(stats.TotalDays),
			strconv.Itoa(stats.PresentDays + stats.LateDays),
			strconv.Itoa(stats.AttendancePercentage),
		},
	}
	return s.render(dataset, "attendance_student_"+studentID, format)
}

func (s *ExportService) render(dataset export.Dataset, name, format string) (*ExportFile, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format "+format)
	}
	payload, err := renderer.Render(dataset)
	if err != nil {
		s.logger.Error("render export failed", zap.String("format", format), zap.String("report", name), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    s.buildFilename(name, format),
		ContentType: contentTypes[format],
		Payload:     payload,
	}, nil
}

func (s *ExportService) buildFilename(name, format string) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s.%s", sanitizeFilename(name), timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_", "\"", "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

