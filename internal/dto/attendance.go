package dto

// AttendanceMark is one student's status inside a roster submission.
type AttendanceMark struct {
	StudentID string `json:"studentId" validate:"required"`
	Status    string `json:"status" validate:"required,attendance_status"`
}

// MarkAttendanceRequest submits a class roster for one date.
type MarkAttendanceRequest struct {
	ClassID  string           `json:"classId" validate:"required"`
	Date     string           `json:"date" validate:"required,calendar_date"`
	Records  []AttendanceMark `json:"records" validate:"required,min=1,dive"`
	MarkedBy string           `json:"markedBy" validate:"required"`
}

// UpdateAttendanceRequest patches a single mark. Student and date are part of
// the record id and cannot change.
type UpdateAttendanceRequest struct {
	Status   *string `json:"status,omitempty" validate:"omitempty,attendance_status"`
	ClassID  *string `json:"classId,omitempty" validate:"omitempty,min=1"`
	MarkedBy *string `json:"markedBy,omitempty" validate:"omitempty,min=1"`
}

// Empty reports whether the patch carries no fields.
func (r UpdateAttendanceRequest) Empty() bool {
	return r.Status == nil && r.ClassID == nil && r.MarkedBy == nil
}

// AttendanceRangeQuery optionally bounds attendance reads by date.
type AttendanceRangeQuery struct {
	From   string `form:"from" validate:"omitempty,calendar_date"`
	To     string `form:"to" validate:"omitempty,calendar_date"`
	Format string `form:"format" validate:"omitempty,oneof=json csv pdf xlsx"`
}
