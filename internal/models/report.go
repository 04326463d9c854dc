package models

import "github.com/shopspring/decimal"

// FeeStats summarises fee counts across the ledger.
type FeeStats struct {
	TotalFees            int `json:"totalFees"`
	PaidFees             int `json:"paidFees"`
	PendingFees          int `json:"pendingFees"`
	OverdueFees          int `json:"overdueFees"`
	CollectionPercentage int `json:"collectionPercentage"`
}

// StudentFeeStats summarises amounts owed and paid by one student.
type StudentFeeStats struct {
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	PendingAmount decimal.Decimal `json:"pendingAmount"`
	OverdueAmount decimal.Decimal `json:"overdueAmount"`
	Fees          []Fee           `json:"fees"`
}

// CategoryTotals aggregates one category inside a fee report.
type CategoryTotals struct {
	Collected decimal.Decimal `json:"collected"`
	Pending   decimal.Decimal `json:"pending"`
	Count     int             `json:"count"`
}

// MonthlyCollection is the amount collected in one calendar month (YYYY-MM).
type MonthlyCollection struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// FeeReport is the collection report for fees created in a date range.
type FeeReport struct {
	TotalCollection   decimal.Decimal                `json:"totalCollection"`
	TotalPending      decimal.Decimal                `json:"totalPending"`
	CategoryBreakdown map[FeeCategory]CategoryTotals `json:"categoryBreakdown"`
	MonthlyCollection []MonthlyCollection            `json:"monthlyCollection"`
}

// AttendanceStats summarises a student's marks.
type AttendanceStats struct {
	TotalDays            int `json:"totalDays"`
	PresentDays          int `json:"presentDays"`
	AbsentDays           int `json:"absentDays"`
	LateDays             int `json:"lateDays"`
	AttendancePercentage int `json:"attendancePercentage"`
}

// DailyAttendanceStats aggregates a class on a single date.
type DailyAttendanceStats struct {
	Date       string `json:"date"`
	Present    int    `json:"present"`
	Absent     int    `json:"absent"`
	Late       int    `json:"late"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

// ClassAttendanceReport aggregates a class across a date range.
type ClassAttendanceReport struct {
	TotalStudents     int                    `json:"totalStudents"`
	AverageAttendance int                    `json:"averageAttendance"`
	DailyStats        []DailyAttendanceStats `json:"dailyStats"`
}

// MonthlyAttendance is one month of a student's marks.
//
// AttendedDays counts late marks as full days while Percentage applies the
// half-weight rule used by AttendanceStats.
type MonthlyAttendance struct {
	Month        string `json:"month"`
	PresentDays  int    `json:"presentDays"`
	LateDays     int    `json:"lateDays"`
	AbsentDays   int    `json:"absentDays"`
	TotalDays    int    `json:"totalDays"`
	AttendedDays int    `json:"attendedDays"`
	Percentage   int    `json:"percentage"`
}

// StudentAttendanceReport combines a student's stats, marks and monthly breakdown.
type StudentAttendanceReport struct {
	Stats            AttendanceStats     `json:"stats"`
	Records          []Attendance        `json:"records"`
	MonthlyBreakdown []MonthlyAttendance `json:"monthlyBreakdown"`
}
