package models

import "time"

// DateLayout is the calendar date format used for attendance marks.
const DateLayout = "2006-01-02"

// AllClasses is the class id sentinel selecting every class.
const AllClasses = "all"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "late"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate:
		return true
	default:
		return false
	}
}

// Attendance is one mark for one student on one calendar date.
type Attendance struct {
	ID        string           `json:"id"`
	StudentID string           `json:"studentId"`
	Date      string           `json:"date"`
	Status    AttendanceStatus `json:"status"`
	ClassID   string           `json:"classId"`
	MarkedBy  string           `json:"markedBy"`
	MarkedAt  time.Time        `json:"markedAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// AttendanceID returns the deterministic record id for a student and date.
func AttendanceID(studentID, date string) string {
	return studentID + "_" + date
}
