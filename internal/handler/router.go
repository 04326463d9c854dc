package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-ledger/internal/middleware"
	"github.com/noah-isme/campus-ledger/internal/models"
)

// Routes bundles the handlers mounted under the API prefix.
type Routes struct {
	Fees       *FeeHandler
	Attendance *AttendanceHandler
	Reports    *ReportHandler
	Metrics    *MetricsHandler
	Tokens     middleware.TokenValidator

	// Audit receives one entry per successful mutation. Nil disables it.
	Audit *zap.Logger
}

// Register mounts every ledger endpoint on group behind JWT auth.
func (r Routes) Register(group *gin.RouterGroup) {
	admin := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty)
	staffOrSelf := middleware.RequireRolesOrSelf("id", models.RoleAdmin, models.RoleFaculty)
	audit := func(action string) gin.HandlerFunc { return middleware.Audit(r.Audit, action) }

	api := group.Group("")
	api.Use(middleware.JWT(r.Tokens))

	fees := api.Group("/fees")
	fees.GET("", staff, r.Fees.List)
	fees.POST("", admin, audit("fee.create"), r.Fees.Create)
	fees.POST("/bulk", admin, audit("fee.bulk_create"), r.Fees.BulkCreate)
	fees.GET("/stats", staff, r.Fees.Stats)
	fees.POST("/payments", admin, audit("fee.payment"), r.Fees.ProcessPayment)
	fees.POST("/overdue-sweep", admin, audit("fee.overdue_sweep"), r.Fees.OverdueSweep)
	fees.GET("/:id", staff, r.Fees.Get)
	fees.GET("/:id/payments", staff, r.Fees.Payments)
	fees.PATCH("/:id", admin, audit("fee.update"), r.Fees.Update)
	fees.DELETE("/:id", admin, audit("fee.delete"), r.Fees.Delete)

	api.GET("/students/:id/fees/stats", staffOrSelf, r.Fees.StudentStats)

	attendance := api.Group("/attendance")
	attendance.POST("", staff, audit("attendance.mark"), r.Attendance.Mark)
	attendance.GET("/class/:classId", staff, r.Attendance.Class)
	attendance.GET("/students/:id", staffOrSelf, r.Attendance.Student)
	attendance.GET("/students/:id/stats", staffOrSelf, r.Attendance.Stats)
	attendance.GET("/:id", staff, r.Attendance.Get)
	attendance.PATCH("/:id", staff, audit("attendance.update"), r.Attendance.Update)
	attendance.DELETE("/:id", staff, audit("attendance.delete"), r.Attendance.Delete)

	reports := api.Group("/reports")
	reports.GET("/fees", admin, r.Reports.FeeReport)
	reports.GET("/attendance/class/:classId", staff, r.Reports.ClassAttendanceReport)
	reports.GET("/attendance/students/:id", staffOrSelf, r.Reports.StudentAttendanceReport)

	if r.Metrics != nil {
		api.GET("/metrics/summary", admin, r.Metrics.Summary)
	}
}
