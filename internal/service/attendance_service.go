package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-ledger/internal/dto"
	"github.com/noah-isme/campus-ledger/internal/models"
	"github.com/noah-isme/campus-ledger/internal/reporting"
	"github.com/noah-isme/campus-ledger/internal/repository"
	"github.com/noah-isme/campus-ledger/internal/store"
	appErrors "github.com/noah-isme/campus-ledger/pkg/errors"
)

type attendanceRepository interface {
	Batch() store.Batch
	AddUpsert(b store.Batch, a models.Attendance)
	Get(ctx context.Context, id string) (*models.Attendance, error)
	ListByClassDate(ctx context.Context, classID, date string) ([]models.Attendance, error)
	ListByClassRange(ctx context.Context, classID, from, to string) ([]models.Attendance, error)
	ListByStudent(ctx context.Context, studentID, from, to string) ([]models.Attendance, error)
	Update(ctx context.Context, id string, patch repository.AttendanceUpdate) error
	Delete(ctx context.Context, id string) error
}

// AttendanceService coordinates attendance workflows.
type AttendanceService struct {
	repo      attendanceRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       Clock
	metrics   *MetricsService
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, validate *validator.Validate, logger *zap.Logger, clock Clock, metrics *MetricsService) *AttendanceService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = systemClock
	}
	return &AttendanceService{repo: repo, validator: validate, logger: logger, now: clock, metrics: metrics}
}

// MarkAttendance writes a class roster for one date in a single batch.
// Marks are keyed by student and date, so resubmitting a roster overwrites
// earlier marks instead of duplicating them.
func (s *AttendanceService) MarkAttendance(ctx context.Context, req dto.MarkAttendanceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationFailure(err, "invalid attendance payload")
	}
	seen := make(map[string]struct{}, len(req.Records))
	for _, record := range req.Records {
		if _, dup := seen[record.StudentID]; dup {
			return appErrors.Clone(appErrors.ErrValidation, "student "+record.StudentID+" appears more than once")
		}
		seen[record.StudentID] = struct{}{}
	}

	now := s.now()
	batch := s.repo.Batch()
	for _, record := range req.Records {
		s.repo.AddUpsert(batch, models.Attendance{
			ID:        models.AttendanceID(record.StudentID, req.Date),
			StudentID: record.StudentID,
			Date:      req.Date,
			Status:    models.AttendanceStatus(record.Status),
			ClassID:   req.ClassID,
			MarkedBy:  req.MarkedBy,
			MarkedAt:  now,
			UpdatedAt: now,
		})
	}

	err := batch.Commit(ctx)
	s.metrics.RecordMutation("mark_attendance", err)
	if err != nil {
		s.logger.Error("mark attendance failed",
			zap.String("class_id", req.ClassID),
			zap.String("date", req.Date),
			zap.Error(err),
		)
		return storeFailure(err, "failed to mark attendance")
	}
	for _, record := range req.Records {
		s.metrics.RecordAttendanceMark(record.Status)
	}
	s.logger.Info("attendance marked",
		zap.String("class_id", req.ClassID),
		zap.String("date", req.Date),
		zap.Int("students", len(req.Records)),
	)
	return nil
}

// GetClassAttendance returns the marks of one class on one date. Pass
// models.AllClasses to read every class.
func (s *AttendanceService) GetClassAttendance(ctx context.Context, classID, date string) []models.Attendance {
	records, err := s.repo.ListByClassDate(ctx, classID, date)
	return s.degrade(records, err, "class attendance query failed", zap.String("class_id", classID), zap.String("date", date))
}

// GetStudentAttendance returns a student's marks, newest first. The range
// applies only when both bounds are given.
func (s *AttendanceService) GetStudentAttendance(ctx context.Context, studentID, from, to string) []models.Attendance {
	records, err := s.repo.ListByStudent(ctx, studentID, from, to)
	return s.degrade(records, err, "student attendance query failed", zap.String("student_id", studentID))
}

// GetAttendanceStats counts a student's marks. Late marks count as half a day
// towards the percentage.
func (s *AttendanceService) GetAttendanceStats(ctx context.Context, studentID, from, to string) models.AttendanceStats {
	return reporting.BuildAttendanceStats(s.GetStudentAttendance(ctx, studentID, from, to))
}

// GetAttendanceRecord returns a single mark.
func (s *AttendanceService) GetAttendanceRecord(ctx context.Context, id string) (*models.Attendance, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, storeFailure(err, "attendance record not found")
	}
	return record, nil
}

// UpdateAttendanceRecord patches a single mark outside of roster submission.
func (s *AttendanceService) UpdateAttendanceRecord(ctx context.Context, id string, req dto.UpdateAttendanceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationFailure(err, "invalid attendance update")
	}
	if req.Empty() {
		return appErrors.Clone(appErrors.ErrValidation, "no fields to update")
	}
	patch := repository.AttendanceUpdate{
		ClassID:   req.ClassID,
		MarkedBy:  req.MarkedBy,
		UpdatedAt: s.now(),
	}
	if req.Status != nil {
		status := models.AttendanceStatus(*req.Status)
		patch.Status = &status
	}

	err := s.repo.Update(ctx, id, patch)
	s.metrics.RecordMutation("update_attendance", err)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("update attendance failed", zap.String("attendance_id", id), zap.Error(err))
		}
		return storeFailure(err, "failed to update attendance record")
	}
	return nil
}

// DeleteAttendanceRecord removes a single mark.
func (s *AttendanceService) DeleteAttendanceRecord(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	s.metrics.RecordMutation("delete_attendance", err)
	if err != nil {
		s.logger.Error("delete attendance failed", zap.String("attendance_id", id), zap.Error(err))
		return storeFailure(err, "failed to delete attendance record")
	}
	return nil
}

// GetClassAttendanceReport summarises a class per day over [from, to].
func (s *AttendanceService) GetClassAttendanceReport(ctx context.Context, classID, from, to string) models.ClassAttendanceReport {
	records, err := s.repo.ListByClassRange(ctx, classID, from, to)
	records = s.degrade(records, err, "class attendance report query failed", zap.String("class_id", classID))
	return reporting.BuildClassReport(records)
}

// GetStudentAttendanceReport combines a student's stats, marks and monthly
// breakdown over [from, to].
func (s *AttendanceService) GetStudentAttendanceReport(ctx context.Context, studentID, from, to string) models.StudentAttendanceReport {
	records := s.GetStudentAttendance(ctx, studentID, from, to)
	return models.StudentAttendanceReport{
		Stats:            reporting.BuildAttendanceStats(records),
		Records:          records,
		MonthlyBreakdown: reporting.BuildMonthlyBreakdown(records),
	}
}

func (s *AttendanceService) degrade(records []models.Attendance, err error, msg string, fields ...zap.Field) []models.Attendance {
	if err != nil {
		s.logger.Warn(msg, append(fields, zap.Error(err))...)
		return []models.Attendance{}
	}
	if records == nil {
		return []models.Attendance{}
	}
	return records
}
