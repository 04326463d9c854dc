// Package reporting derives statistics from fee and attendance records.
//
// Every function is pure: callers load records from the ledgers and pass them
// in. Percentages are rounded half away from zero and a zero denominator
// always yields 0.
package reporting

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/campus-ledger/internal/models"
)

// MonthLayout is the key format used for monthly buckets.
const MonthLayout = "2006-01"

// Percentage returns round(part / whole * 100), or 0 when whole is 0.
func Percentage(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(whole)))
}

// WeightedAttendance returns the attendance percentage where a late mark
// counts as half a present day.
func WeightedAttendance(present, late, total int) int {
	if total <= 0 {
		return 0
	}
	// doubled to keep the half weight in integer arithmetic
	return int(math.Round(float64(2*present+late) * 50 / float64(total)))
}

// RoundMean returns the rounded arithmetic mean of values, 0 for none.
func RoundMean(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return int(math.Round(float64(sum) / float64(len(values))))
}

// MonthKey buckets a timestamp by its UTC calendar month.
func MonthKey(t time.Time) string {
	return t.UTC().Format(MonthLayout)
}

// MonthOfDate buckets a YYYY-MM-DD date by its month prefix.
func MonthOfDate(date string) string {
	if len(date) < len(MonthLayout) {
		return date
	}
	return date[:len(MonthLayout)]
}

// BuildFeeStats counts fees per status.
func BuildFeeStats(fees []models.Fee) models.FeeStats {
	stats := models.FeeStats{TotalFees: len(fees)}
	for _, fee := range fees {
		switch fee.Status {
		case models.FeeStatusPaid:
			stats.PaidFees++
		case models.FeeStatusPending:
			stats.PendingFees++
		case models.FeeStatusOverdue:
			stats.OverdueFees++
		}
	}
	stats.CollectionPercentage = Percentage(stats.PaidFees, stats.TotalFees)
	return stats
}

// BuildStudentFeeStats sums one student's fees per status. Paid fees count
// what was actually received.
func BuildStudentFeeStats(fees []models.Fee) models.StudentFeeStats {
	stats := models.StudentFeeStats{
		TotalAmount:   decimal.Zero,
		PaidAmount:    decimal.Zero,
		PendingAmount: decimal.Zero,
		OverdueAmount: decimal.Zero,
		Fees:          fees,
	}
	if stats.Fees == nil {
		stats.Fees = []models.Fee{}
	}
	for _, fee := range fees {
		stats.TotalAmount = stats.TotalAmount.Add(fee.Amount)
		switch fee.Status {
		case models.FeeStatusPaid:
			stats.PaidAmount = stats.PaidAmount.Add(fee.CollectedAmount())
		case models.FeeStatusPending:
			stats.PendingAmount = stats.PendingAmount.Add(fee.Amount)
		case models.FeeStatusOverdue:
			stats.OverdueAmount = stats.OverdueAmount.Add(fee.Amount)
		}
	}
	return stats
}

// BuildFeeReport aggregates collected and outstanding amounts. Monthly
// collection is keyed by the month the fee was paid, ascending.
func BuildFeeReport(fees []models.Fee) models.FeeReport {
	report := models.FeeReport{
		TotalCollection:   decimal.Zero,
		TotalPending:      decimal.Zero,
		CategoryBreakdown: make(map[models.FeeCategory]models.CategoryTotals),
		MonthlyCollection: []models.MonthlyCollection{},
	}
	monthly := make(map[string]decimal.Decimal)

	for _, fee := range fees {
		totals, ok := report.CategoryBreakdown[fee.Category]
		if !ok {
			totals = models.CategoryTotals{Collected: decimal.Zero, Pending: decimal.Zero}
		}
		totals.Count++

		if fee.IsPaid() {
			collected := fee.CollectedAmount()
			report.TotalCollection = report.TotalCollection.Add(collected)
			totals.Collected = totals.Collected.Add(collected)

			month := MonthKey(fee.Settlement.PaidAt)
			if sum, exists := monthly[month]; exists {
				monthly[month] = sum.Add(collected)
			} else {
				monthly[month] = collected
			}
		} else {
			report.TotalPending = report.TotalPending.Add(fee.Amount)
			totals.Pending = totals.Pending.Add(fee.Amount)
		}
		report.CategoryBreakdown[fee.Category] = totals
	}

	for month, amount := range monthly {
		report.MonthlyCollection = append(report.MonthlyCollection, models.MonthlyCollection{Month: month, Amount: amount})
	}
	sort.Slice(report.MonthlyCollection, func(i, j int) bool {
		return report.MonthlyCollection[i].Month < report.MonthlyCollection[j].Month
	})
	return report
}

type tally struct {
	present, absent, late int
}

func (t *tally) add(status models.AttendanceStatus) {
	switch status {
	case models.AttendanceStatusPresent:
		t.present++
	case models.AttendanceStatusAbsent:
		t.absent++
	case models.AttendanceStatusLate:
		t.late++
	}
}

func (t tally) total() int {
	return t.present + t.absent + t.late
}

// BuildAttendanceStats counts marks and applies the weighted percentage.
func BuildAttendanceStats(records []models.Attendance) models.AttendanceStats {
	var t tally
	for _, r := range records {
		t.add(r.Status)
	}
	return models.AttendanceStats{
		TotalDays:            t.total(),
		PresentDays:          t.present,
		AbsentDays:           t.absent,
		LateDays:             t.late,
		AttendancePercentage: WeightedAttendance(t.present, t.late, t.total()),
	}
}

// BuildDailyStats groups marks by date, ascending.
func BuildDailyStats(records []models.Attendance) []models.DailyAttendanceStats {
	byDate := make(map[string]*tally)
	for _, r := range records {
		t, ok := byDate[r.Date]
		if !ok {
			t = &tally{}
			byDate[r.Date] = t
		}
		t.add(r.Status)
	}

	daily := make([]models.DailyAttendanceStats, 0, len(byDate))
	for date, t := range byDate {
		daily = append(daily, models.DailyAttendanceStats{
			Date:       date,
			Present:    t.present,
			Absent:     t.absent,
			Late:       t.late,
			Total:      t.total(),
			Percentage: WeightedAttendance(t.present, t.late, t.total()),
		})
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })
	return daily
}

// BuildClassReport summarises a class over a range. The largest daily roster
// stands in for class size.
func BuildClassReport(records []models.Attendance) models.ClassAttendanceReport {
	daily := BuildDailyStats(records)
	report := models.ClassAttendanceReport{DailyStats: daily}
	percentages := make([]int, 0, len(daily))
	for _, day := range daily {
		if day.Total > report.TotalStudents {
			report.TotalStudents = day.Total
		}
		percentages = append(percentages, day.Percentage)
	}
	report.AverageAttendance = RoundMean(percentages)
	return report
}

// BuildMonthlyBreakdown buckets a student's marks by month, ascending.
// AttendedDays counts late marks in full; Percentage keeps the half weight.
func BuildMonthlyBreakdown(records []models.Attendance) []models.MonthlyAttendance {
	byMonth := make(map[string]*tally)
	for _, r := range records {
		month := MonthOfDate(r.Date)
		t, ok := byMonth[month]
		if !ok {
			t = &tally{}
			byMonth[month] = t
		}
		t.add(r.Status)
	}

	months := make([]models.MonthlyAttendance, 0, len(byMonth))
	for month, t := range byMonth {
		months = append(months, models.MonthlyAttendance{
			Month:        month,
			PresentDays:  t.present,
			LateDays:     t.late,
			AbsentDays:   t.absent,
			TotalDays:    t.total(),
			AttendedDays: t.present + t.late,
			Percentage:   WeightedAttendance(t.present, t.late, t.total()),
		})
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })
	return months
}
