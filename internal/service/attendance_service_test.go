package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-ledger/internal/dto"
	"github.com/noah-isme/campus-ledger/internal/models"
	"github.com/noah-isme/campus-ledger/internal/repository"
	"github.com/noah-isme/campus-ledger/internal/store"
	"github.com/noah-isme/campus-ledger/internal/store/memory"
	appErrors "github.com/noah-isme/campus-ledger/pkg/errors"
)

type attendanceFixture struct {
	store   *memory.Store
	clock   *fakeClock
	svc     *AttendanceService
	metrics *MetricsService
}

func newAttendanceFixture(t *testing.T) *attendanceFixture {
	t.Helper()
	s := memory.New()
	clock := &fakeClock{now: time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)}
	metrics := NewMetricsService()
	svc := NewAttendanceService(repository.NewAttendanceRepository(s), nil, nil, clock.Now, metrics)
	return &attendanceFixture{store: s, clock: clock, svc: svc, metrics: metrics}
}

func roster(classID, date string, marks ...string) dto.MarkAttendanceRequest {
	req := dto.MarkAttendanceRequest{ClassID: classID, Date: date, MarkedBy: "teacher-1"}
	for i := 0; i+1 < len(marks); i += 2 {
		req.Records = append(req.Records, dto.AttendanceMark{StudentID: marks[i], Status: marks[i+1]})
	}
	return req
}

func TestMarkAttendanceWritesRoster(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.MarkAttendance(ctx, roster("10A", "2025-03-03", "S1", "present", "S2", "late", "S3", "absent")))

	records := f.svc.GetClassAttendance(ctx, "10A", "2025-03-03")
	require.Len(t, records, 3)
	assert.Equal(t, "S1_2025-03-03", records[0].ID)
	assert.Equal(t, models.AttendanceStatusLate, records[1].Status)
	for _, r := range records {
		assert.Equal(t, f.clock.now, r.MarkedAt, "one timestamp per roster")
		assert.Equal(t, "teacher-1", r.MarkedBy)
	}
	assert.Equal(t, uint64(3), f.metrics.Snapshot().AttendanceMarks)
}

func TestMarkAttendanceOverwritesInsteadOfDuplicating(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.MarkAttendance(ctx, roster("10A", "2025-03-03", "S1", "absent")))
	f.clock.Advance(time.Hour)
	require.NoError(t, f.svc.MarkAttendance(ctx, roster("10A", "2025-03-03", "S1", "present")))

	assert.Equal(t, 1, f.store.Count(store.CollectionAttendance))
	record, err := f.svc.GetAttendanceRecord(ctx, "S1_2025-03-03")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, record.Status)
	assert.Equal(t, f.clock.now, record.MarkedAt)
}

func TestMarkAttendanceRejectsInvalidRoster(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()

	err := f.svc.MarkAttendance(ctx, roster("10A", "2025-03-03", "S1", "present", "S1", "absent"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	err = f.svc.MarkAttendance(ctx, roster("10A", "03/03/2025", "S1", "present"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	err = f.svc.MarkAttendance(ctx, roster("10A", "2025-03-03", "S1", "excused"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	err = f.svc.MarkAttendance(ctx, roster("10A", "2025-03-03"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	assert.Equal(t, 0, f.store.Count(store.CollectionAttendance))
}

func TestMarkAttendanceCommitFailure(t *testing.T) {
	f := newAttendanceFixture(t)
	f.store.Fail(memory.OpCommit, errors.New("unavailable"))

	err := f.svc.MarkAttendance(context.Background(), roster("10A", "2025-03-03", "S1", "present", "S2", "present"))
	assert.ErrorIs(t, err, appErrors.ErrStore)
	assert.Equal(t, 0, f.store.Count(store.CollectionAttendance))
	assert.Zero(t, f.metrics.Snapshot().AttendanceMarks)
}

func TestGetClassAttendanceAllClasses(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.MarkAttendance(ctx, roster("10A", "2025-03-03", "S1", "present")))
	require.NoError(t, f.svc.MarkAttendance(ctx, roster("10B", "2025-03-03", "S2", "absent")))
	require.NoError(t, f.svc.MarkAttendance(ctx, roster("10B", "2025-03-04", "S2", "present")))

	assert.Len(t, f.svc.GetClassAttendance(ctx, "10B", "2025-03-03"), 1)
	assert.Len(t, f.svc.GetClassAttendance(ctx, models.AllClasses, "2025-03-03"), 2)
	assert.Empty(t, f.svc.GetClassAttendance(ctx, "10C", "2025-03-03"))
}

func TestGetStudentAttendanceRange(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()
	for _, date := range []string{"2025-03-03", "2025-03-04", "2025-04-01"} {
		require.NoError(t, f.svc.MarkAttendance(ctx, roster("10A", date, "S1", "present")))
	}

	all := f.svc.GetStudentAttendance(ctx, "S1", "", "")
	require.Len(t, all, 3)
	assert.Equal(t, "2025-04-01", all[0].Date, "newest first")

	march := f.svc.GetStudentAttendance(ctx, "S1", "2025-03-01", "2025-03-31")
	assert.Len(t, march, 2)

	halfOpen := f.svc.GetStudentAttendance(ctx, "S1", "2025-03-04", "")
	assert.Len(t, halfOpen, 3, "a single bound is ignored")
}

func TestAttendanceStatsWeighsLateAsHalfDay(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()
	statuses := []string{"present", "present", "present", "present", "present", "present", "present", "present", "late", "absent"}
	for i, status := range statuses {
		require.NoError(t, f.svc.MarkAttendance(ctx, roster("10A", fmt.Sprintf("2025-03-%02d", i+1), "S1", status)))
	}

	stats := f.svc.GetAttendanceStats(ctx, "S1", "", "")
	assert.Equal(t, models.AttendanceStats{
		TotalDays:            10,
		PresentDays:          8,
		AbsentDays:           1,
		LateDays:             1,
		AttendancePercentage: 85,
	}, stats)
}

func TestAttendanceStatsWithoutMarks(t *testing.T) {
	f := newAttendanceFixture(t)
	assert.Equal(t, models.AttendanceStats{}, f.svc.GetAttendanceStats(context.Background(), "nobody", "", ""))
}

func TestAttendanceReadsDegradeOnStoreFailure(t *testing.T) {
	f := newAttendanceFixture(t)
	f.store.Fail(memory.OpQuery, errors.New("unavailable"))
	ctx := context.Background()

	assert.Equal(t, []models.Attendance{}, f.svc.GetClassAttendance(ctx, "10A", "2025-03-03"))
	assert.Equal(t, []models.Attendance{}, f.svc.GetStudentAttendance(ctx, "S1", "", ""))
	assert.Equal(t, models.AttendanceStats{}, f.svc.GetAttendanceStats(ctx, "S1", "", ""))
	report := f.svc.GetClassAttendanceReport(ctx, "10A", "2025-03-01", "2025-03-31")
	assert.Zero(t, report.TotalStudents)
	assert.Empty(t, report.DailyStats)
}

func TestUpdateAttendanceRecord(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.MarkAttendance(ctx, roster("10A", "2025-03-03", "S1", "absent")))

	f.clock.Advance(2 * time.Hour)
	late := "late"
	require.NoError(t, f.svc.UpdateAttendanceRecord(ctx, "S1_2025-03-03", dto.UpdateAttendanceRequest{Status: &late}))

	record, err := f.svc.GetAttendanceRecord(ctx, "S1_2025-03-03")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusLate, record.Status)
	assert.Equal(t, f.clock.now, record.UpdatedAt)
	assert.True(t, record.MarkedAt.Before(record.UpdatedAt))

	err = f.svc.UpdateAttendanceRecord(ctx, "S9_2025-03-03", dto.UpdateAttendanceRequest{Status: &late})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	err = f.svc.UpdateAttendanceRecord(ctx, "S1_2025-03-03", dto.UpdateAttendanceRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestDeleteAttendanceRecord(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.MarkAttendance(ctx, roster("10A", "2025-03-03", "S1", "present")))

	require.NoError(t, f.svc.DeleteAttendanceRecord(ctx, "S1_2025-03-03"))
	require.NoError(t, f.svc.DeleteAttendanceRecord(ctx, "S1_2025-03-03"))
	_, err := f.svc.GetAttendanceRecord(ctx, "S1_2025-03-03")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestClassAttendanceReport(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.MarkAttendance(ctx, roster("10A", "2025-03-03", "S1", "present", "S2", "present", "S3", "late", "S4", "absent")))
	require.NoError(t, f.svc.MarkAttendance(ctx, roster("10A", "2025-03-04", "S1", "present", "S2", "present")))
	require.NoError(t, f.svc.MarkAttendance(ctx, roster("10A", "2025-04-01", "S1", "absent")))
	require.NoError(t, f.svc.MarkAttendance(ctx, roster("10B", "2025-03-03", "S9", "absent")))

	report := f.svc.GetClassAttendanceReport(ctx, "10A", "2025-03-01", "2025-03-31")
	assert.Equal(t, 4, report.TotalStudents)
	require.Len(t, report.DailyStats, 2)
	assert.Equal(t, models.DailyAttendanceStats{Date: "2025-03-03", Present: 2, Late: 1, Absent: 1, Total: 4, Percentage: 63}, report.DailyStats[0])
	assert.Equal(t, 100, report.DailyStats[1].Percentage)
	assert.Equal(t, 82, report.AverageAttendance)

	school := f.svc.GetClassAttendanceReport(ctx, models.AllClasses, "2025-03-03", "2025-03-03")
	assert.Equal(t, 5, school.TotalStudents)
}

func TestStudentAttendanceReport(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.MarkAttendance(ctx, roster("10A", "2025-03-03", "S1", "present")))
	require.NoError(t, f.svc.MarkAttendance(ctx, roster("10A", "2025-03-04", "S1", "late")))
	require.NoError(t, f.svc.MarkAttendance(ctx, roster("10A", "2025-04-01", "S1", "absent")))
	require.NoError(t, f.svc.MarkAttendance(ctx, roster("10A", "2025-05-01", "S1", "present")))

	report := f.svc.GetStudentAttendanceReport(ctx, "S1", "2025-03-01", "2025-04-30")
	assert.Len(t, report.Records, 3)
	assert.Equal(t, 3, report.Stats.TotalDays)
	assert.Equal(t, 50, report.Stats.AttendancePercentage)

	require.Len(t, report.MonthlyBreakdown, 2)
	march := report.MonthlyBreakdown[0]
	assert.Equal(t, "2025-03", march.Month)
	assert.Equal(t, 2, march.AttendedDays, "late counts as attended")
	assert.Equal(t, 75, march.Percentage, "late weighs half in the percentage")
	assert.Equal(t, "2025-04", report.MonthlyBreakdown[1].Month)
	assert.Equal(t, 0, report.MonthlyBreakdown[1].Percentage)
}
