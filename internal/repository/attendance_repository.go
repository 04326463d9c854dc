package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/campus-ledger/internal/models"
	"github.com/noah-isme/campus-ledger/internal/store"
)

// AttendanceRepository maps attendance marks to the attendance collection.
type AttendanceRepository struct {
	store store.Store
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(s store.Store) *AttendanceRepository {
	return &AttendanceRepository{store: s}
}

// AttendanceUpdate patches a single mark. Nil fields are left untouched.
type AttendanceUpdate struct {
	Status    *models.AttendanceStatus
	ClassID   *string
	MarkedBy  *string
	UpdatedAt time.Time
}

// Batch starts a new atomic batch on the underlying store.
func (r *AttendanceRepository) Batch() store.Batch {
	return r.store.Batch()
}

// AddUpsert queues a merge-upsert of a mark keyed by its deterministic id.
func (r *AttendanceRepository) AddUpsert(b store.Batch, a models.Attendance) {
	b.Set(store.CollectionAttendance, a.ID, EncodeAttendance(a), true)
}

// Get fetches a single mark.
func (r *AttendanceRepository) Get(ctx context.Context, id string) (*models.Attendance, error) {
	doc, err := r.store.Get(ctx, store.CollectionAttendance, id)
	if err != nil {
		return nil, err
	}
	a, err := DecodeAttendance(id, doc)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByClassDate returns a class roster for one date. The AllClasses sentinel
// returns every class on that date.
func (r *AttendanceRepository) ListByClassDate(ctx context.Context, classID, date string) ([]models.Attendance, error) {
	filters := []store.Filter{store.Where("date", store.OpEq, date)}
	if classID != models.AllClasses {
		filters = append(filters, store.Where("classId", store.OpEq, classID))
	}
	return r.list(ctx, store.Query{
		Filters: filters,
		OrderBy: []store.Order{{Field: "classId"}, {Field: "studentId"}},
	})
}

// ListByClassRange returns a class's marks within [from, to] by date. The
// AllClasses sentinel spans every class.
func (r *AttendanceRepository) ListByClassRange(ctx context.Context, classID, from, to string) ([]models.Attendance, error) {
	filters := []store.Filter{
		store.Where("date", store.OpGte, from),
		store.Where("date", store.OpLte, to),
	}
	if classID != models.AllClasses {
		filters = append(filters, store.Where("classId", store.OpEq, classID))
	}
	return r.list(ctx, store.Query{
		Filters: filters,
		OrderBy: []store.Order{{Field: "date"}, {Field: "studentId"}},
	})
}

// ListByStudent returns a student's marks, newest first. The range applies
// only when both bounds are set.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID, from, to string) ([]models.Attendance, error) {
	filters := []store.Filter{store.Where("studentId", store.OpEq, studentID)}
	if from != "" && to != "" {
		filters = append(filters,
			store.Where("date", store.OpGte, from),
			store.Where("date", store.OpLte, to),
		)
	}
	return r.list(ctx, store.Query{
		Filters: filters,
		OrderBy: []store.Order{{Field: "date", Desc: true}},
	})
}

// Update patches a mark. Returns store.ErrNotFound for unknown ids.
func (r *AttendanceRepository) Update(ctx context.Context, id string, patch AttendanceUpdate) error {
	fields := store.Document{"updatedAt": FormatTime(patch.UpdatedAt)}
	if patch.Status != nil {
		fields["status"] = string(*patch.Status)
	}
	if patch.ClassID != nil {
		fields["classId"] = *patch.ClassID
	}
	if patch.MarkedBy != nil {
		fields["markedBy"] = *patch.MarkedBy
	}
	return r.store.Update(ctx, store.CollectionAttendance, id, fields)
}

// Delete removes a mark. Unknown ids are not an error.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, store.CollectionAttendance, id)
}

func (r *AttendanceRepository) list(ctx context.Context, q store.Query) ([]models.Attendance, error) {
	snaps, err := r.store.Query(ctx, store.CollectionAttendance, q)
	if err != nil {
		return nil, err
	}
	out := make([]models.Attendance, 0, len(snaps))
	for _, snap := range snaps {
		a, err := DecodeAttendance(snap.ID, snap.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// EncodeAttendance converts a mark into its stored document.
func EncodeAttendance(a models.Attendance) store.Document {
	return store.Document{
		"studentId": a.StudentID,
		"date":      a.Date,
		"status":    string(a.Status),
		"classId":   a.ClassID,
		"markedBy":  a.MarkedBy,
		"markedAt":  FormatTime(a.MarkedAt),
		"updatedAt": FormatTime(a.UpdatedAt),
	}
}

// DecodeAttendance converts a stored document into a mark.
func DecodeAttendance(id string, doc store.Document) (models.Attendance, error) {
	a := models.Attendance{
		ID:        id,
		StudentID: doc.String("studentId"),
		Date:      doc.String("date"),
		Status:    models.AttendanceStatus(doc.String("status")),
		ClassID:   doc.String("classId"),
		MarkedBy:  doc.String("markedBy"),
	}
	if !a.Status.Valid() {
		return models.Attendance{}, fmt.Errorf("decode attendance %s: invalid status %q", id, a.Status)
	}
	var err error
	if a.MarkedAt, err = parseTime(doc, "markedAt"); err != nil {
		return models.Attendance{}, fmt.Errorf("decode attendance %s: %w", id, err)
	}
	if a.UpdatedAt, err = parseTime(doc, "updatedAt"); err != nil {
		return models.Attendance{}, fmt.Errorf("decode attendance %s: %w", id, err)
	}
	return a, nil
}
