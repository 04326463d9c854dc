package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/campus-ledger/internal/dto"
	"github.com/noah-isme/campus-ledger/internal/models"
	"github.com/noah-isme/campus-ledger/internal/service"
	appErrors "github.com/noah-isme/campus-ledger/pkg/errors"
	"github.com/noah-isme/campus-ledger/pkg/response"
)

type feeReporter interface {
	GenerateFeeReport(ctx context.Context, from, to time.Time, category *models.FeeCategory) models.FeeReport
}

type attendanceReporter interface {
	GetClassAttendanceReport(ctx context.Context, classID, from, to string) models.ClassAttendanceReport
	GetStudentAttendanceReport(ctx context.Context, studentID, from, to string) models.StudentAttendanceReport
}

type reportExporter interface {
	FeeReport(report models.FeeReport, from, to, format string) (*service.ExportFile, error)
	ClassAttendanceReport(classID string, report models.ClassAttendanceReport, format string) (*service.ExportFile, error)
	StudentAttendanceReport(studentID string, report models.StudentAttendanceReport, format string) (*service.ExportFile, error)
}

// ReportHandler exposes fee and attendance reports as JSON or downloadable files.
type ReportHandler struct {
	fees       feeReporter
	attendance attendanceReporter
	exporter   reportExporter
	validator  *validator.Validate
}

// NewReportHandler constructs handler.
func NewReportHandler(fees feeReporter, attendance attendanceReporter, exporter reportExporter, validate *validator.Validate) *ReportHandler {
	if validate == nil {
		validate = service.NewValidator()
	}
	return &ReportHandler{fees: fees, attendance: attendance, exporter: exporter, validator: validate}
}

// FeeReport godoc
// @Summary Fee collection report
// @Description Covers fees created between from and to inclusive.
// @Tags Reports
// @Produce json
// @Param from query string true "YYYY-MM-DD"
// @Param to query string true "YYYY-MM-DD"
// @Param category query string false "Fee category"
// @Param format query string false "json|csv|pdf|xlsx"
// @Success 200 {object} response.Envelope
// @Router /reports/fees [get]
func (h *ReportHandler) FeeReport(c *gin.Context) {
	var q dto.FeeReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query"))
		return
	}
	if err := h.validator.Struct(q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report query"))
		return
	}
	start, end, err := service.ReportRange(q.From, q.To)
	if err != nil {
		response.Error(c, err)
		return
	}
	var category *models.FeeCategory
	if q.Category != "" {
		cat := models.FeeCategory(q.Category)
		category = &cat
	}

	report := h.fees.GenerateFeeReport(c.Request.Context(), start, end, category)
	if !wantsFile(q.Format) {
		response.JSON(c, http.StatusOK, report, map[string]interface{}{"from": q.From, "to": q.To, "category": q.Category})
		return
	}
	file, err := h.exporter.FeeReport(report, q.From, q.To, q.Format)
	h.send(c, file, err)
}

// ClassAttendanceReport godoc
// @Summary Daily attendance report for a class
// @Tags Reports
// @Produce json
// @Param classId path string true "Class ID or all"
// @Param from query string true "YYYY-MM-DD"
// @Param to query string true "YYYY-MM-DD"
// @Param format query string false "json|csv|pdf|xlsx"
// @Success 200 {object} response.Envelope
// @Router /reports/attendance/class/{classId} [get]
func (h *ReportHandler) ClassAttendanceReport(c *gin.Context) {
	q, ok := h.attendanceRange(c)
	if !ok {
		return
	}
	classID := c.Param("classId")
	report := h.attendance.GetClassAttendanceReport(c.Request.Context(), classID, q.From, q.To)
	if !wantsFile(q.Format) {
		response.JSON(c, http.StatusOK, report, map[string]interface{}{"from": q.From, "to": q.To})
		return
	}
	file, err := h.exporter.ClassAttendanceReport(classID, report, q.Format)
	h.send(c, file, err)
}

// StudentAttendanceReport godoc
// @Summary Attendance report for a student
// @Tags Reports
// @Produce json
// @Param id path string true "Student ID"
// @Param from query string true "YYYY-MM-DD"
// @Param to query string true "YYYY-MM-DD"
// @Param format query string false "json|csv|pdf|xlsx"
// @Success 200 {object} response.Envelope
// @Router /reports/attendance/students/{id} [get]
func (h *ReportHandler) StudentAttendanceReport(c *gin.Context) {
	q, ok := h.attendanceRange(c)
	if !ok {
		return
	}
	studentID := c.Param("id")
	report := h.attendance.GetStudentAttendanceReport(c.Request.Context(), studentID, q.From, q.To)
	if !wantsFile(q.Format) {
		response.JSON(c, http.StatusOK, report, map[string]interface{}{"from": q.From, "to": q.To})
		return
	}
	file, err := h.exporter.StudentAttendanceReport(studentID, report, q.Format)
	h.send(c, file, err)
}

func (h *ReportHandler) attendanceRange(c *gin.Context) (dto.AttendanceRangeQuery, bool) {
	var q dto.AttendanceRangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query"))
		return q, false
	}
	if err := h.validator.Struct(q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report query"))
		return q, false
	}
	if q.From == "" || q.To == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from and to are required"))
		return q, false
	}
	if q.To < q.From {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must not be after to"))
		return q, false
	}
	return q, true
}

func (h *ReportHandler) send(c *gin.Context, file *service.ExportFile, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Payload)
}

func wantsFile(format string) bool {
	return format != "" && format != service.FormatJSON
}
