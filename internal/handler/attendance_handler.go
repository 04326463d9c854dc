package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-ledger/internal/dto"
	"github.com/noah-isme/campus-ledger/internal/models"
	appErrors "github.com/noah-isme/campus-ledger/pkg/errors"
	"github.com/noah-isme/campus-ledger/pkg/response"
)

type attendanceService interface {
	MarkAttendance(ctx context.Context, req dto.MarkAttendanceRequest) error
	GetClassAttendance(ctx context.Context, classID, date string) []models.Attendance
	GetStudentAttendance(ctx context.Context, studentID, from, to string) []models.Attendance
	GetAttendanceStats(ctx context.Context, studentID, from, to string) models.AttendanceStats
	GetAttendanceRecord(ctx context.Context, id string) (*models.Attendance, error)
	UpdateAttendanceRecord(ctx context.Context, id string, req dto.UpdateAttendanceRequest) error
	DeleteAttendanceRecord(ctx context.Context, id string) error
}

// AttendanceHandler exposes the attendance ledger.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(svc attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Mark godoc
// @Summary Submit a class roster for one date
// @Description Resubmitting the same class and date overwrites earlier marks. markedBy defaults to the caller.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.MarkAttendanceRequest true "Roster"
// @Success 200 {object} response.Result
// @Router /attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req dto.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Failure(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	req.MarkedBy = actorOr(c, req.MarkedBy)
	if err := h.service.MarkAttendance(c.Request.Context(), req); err != nil {
		response.Failure(c, err)
		return
	}
	response.Success(c, http.StatusOK, "", gin.H{"classId": req.ClassID, "date": req.Date, "marked": len(req.Records)})
}

// Class godoc
// @Summary Class attendance on one date
// @Tags Attendance
// @Produce json
// @Param classId path string true "Class ID or all"
// @Param date query string true "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /attendance/class/{classId} [get]
func (h *AttendanceHandler) Class(c *gin.Context) {
	date := c.Query("date")
	if !validDate(date) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
		return
	}
	records := h.service.GetClassAttendance(c.Request.Context(), c.Param("classId"), date)
	response.JSON(c, http.StatusOK, records, map[string]interface{}{"total": len(records)})
}

// Student godoc
// @Summary A student's attendance, newest first
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /attendance/students/{id} [get]
func (h *AttendanceHandler) Student(c *gin.Context) {
	from, to, ok := optionalRange(c)
	if !ok {
		return
	}
	records := h.service.GetStudentAttendance(c.Request.Context(), c.Param("id"), from, to)
	response.JSON(c, http.StatusOK, records, map[string]interface{}{"total": len(records)})
}

// Stats godoc
// @Summary A student's attendance statistics
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /attendance/students/{id}/stats [get]
func (h *AttendanceHandler) Stats(c *gin.Context) {
	from, to, ok := optionalRange(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, h.service.GetAttendanceStats(c.Request.Context(), c.Param("id"), from, to))
}

// Get godoc
// @Summary Get one attendance mark
// @Tags Attendance
// @Produce json
// @Param id path string true "Attendance ID (studentId_date)"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id} [get]
func (h *AttendanceHandler) Get(c *gin.Context) {
	record, err := h.service.GetAttendanceRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// Update godoc
// @Summary Correct one attendance mark
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Attendance ID (studentId_date)"
// @Param payload body dto.UpdateAttendanceRequest true "Fields to change"
// @Success 200 {object} response.Result
// @Router /attendance/{id} [patch]
func (h *AttendanceHandler) Update(c *gin.Context) {
	var req dto.UpdateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Failure(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	if err := h.service.UpdateAttendanceRecord(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Failure(c, err)
		return
	}
	response.Success(c, http.StatusOK, c.Param("id"), nil)
}

// Delete godoc
// @Summary Delete one attendance mark
// @Tags Attendance
// @Produce json
// @Param id path string true "Attendance ID (studentId_date)"
// @Success 200 {object} response.Result
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteAttendanceRecord(c.Request.Context(), c.Param("id")); err != nil {
		response.Failure(c, err)
		return
	}
	response.Success(c, http.StatusOK, c.Param("id"), nil)
}

func validDate(raw string) bool {
	_, err := time.Parse(models.DateLayout, raw)
	return err == nil
}

// optionalRange reads from/to query bounds. Either may be empty; set values
// must be dates. It writes the error response itself.
func optionalRange(c *gin.Context) (string, string, bool) {
	from, to := c.Query("from"), c.Query("to")
	if (from != "" && !validDate(from)) || (to != "" && !validDate(to)) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from and to must be YYYY-MM-DD"))
		return "", "", false
	}
	return from, to, true
}
