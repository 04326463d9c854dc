package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/campus-ledger/internal/models"
	"github.com/noah-isme/campus-ledger/internal/store"
)

// FeeRepository maps fees to documents in the fees collection.
type FeeRepository struct {
	store store.Store
}

// NewFeeRepository constructs the repository.
func NewFeeRepository(s store.Store) *FeeRepository {
	return &FeeRepository{store: s}
}

// FeeUpdate patches descriptive fee fields. Nil fields are left untouched.
type FeeUpdate struct {
	Amount       *decimal.Decimal
	DueDate      *time.Time
	Description  *string
	Category     *models.FeeCategory
	Semester     *string
	AcademicYear *string
	UpdatedAt    time.Time
}

// Create inserts a new fee.
func (r *FeeRepository) Create(ctx context.Context, fee models.Fee) error {
	if err := r.store.Create(ctx, store.CollectionFees, fee.ID, EncodeFee(fee)); err != nil {
		return fmt.Errorf("create fee: %w", err)
	}
	return nil
}

// Get fetches a single fee.
func (r *FeeRepository) Get(ctx context.Context, id string) (*models.Fee, error) {
	doc, err := r.store.Get(ctx, store.CollectionFees, id)
	if err != nil {
		return nil, err
	}
	fee, err := DecodeFee(id, doc)
	if err != nil {
		return nil, err
	}
	return &fee, nil
}

// ListAll returns every fee, newest first.
func (r *FeeRepository) ListAll(ctx context.Context) ([]models.Fee, error) {
	return r.list(ctx, store.Query{OrderBy: []store.Order{{Field: "createdAt", Desc: true}}})
}

// ListByStudent returns a student's fees by due date.
func (r *FeeRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Fee, error) {
	return r.list(ctx, store.Query{
		Filters: []store.Filter{store.Where("studentId", store.OpEq, studentID)},
		OrderBy: []store.Order{{Field: "dueDate"}},
	})
}

// ListByStatus returns fees in a status by due date.
func (r *FeeRepository) ListByStatus(ctx context.Context, status models.FeeStatus) ([]models.Fee, error) {
	return r.list(ctx, store.Query{
		Filters: []store.Filter{store.Where("status", store.OpEq, string(status))},
		OrderBy: []store.Order{{Field: "dueDate"}},
	})
}

// ListByCategory returns fees in a category, newest first.
func (r *FeeRepository) ListByCategory(ctx context.Context, category models.FeeCategory) ([]models.Fee, error) {
	return r.list(ctx, store.Query{
		Filters: []store.Filter{store.Where("category", store.OpEq, string(category))},
		OrderBy: []store.Order{{Field: "createdAt", Desc: true}},
	})
}

// ListCreatedBetween returns fees created within [from, to], optionally in one category.
func (r *FeeRepository) ListCreatedBetween(ctx context.Context, from, to time.Time, category *models.FeeCategory) ([]models.Fee, error) {
	filters := []store.Filter{
		store.Where("createdAt", store.OpGte, FormatTime(from)),
		store.Where("createdAt", store.OpLte, FormatTime(to)),
	}
	if category != nil {
		filters = append(filters, store.Where("category", store.OpEq, string(*category)))
	}
	return r.list(ctx, store.Query{Filters: filters, OrderBy: []store.Order{{Field: "createdAt"}}})
}

// ListPendingDueBefore returns pending fees whose due date is strictly before now.
func (r *FeeRepository) ListPendingDueBefore(ctx context.Context, now time.Time) ([]models.Fee, error) {
	return r.list(ctx, store.Query{
		Filters: []store.Filter{
			store.Where("status", store.OpEq, string(models.FeeStatusPending)),
			store.Where("dueDate", store.OpLt, FormatTime(now)),
		},
		OrderBy: []store.Order{{Field: "dueDate"}},
	})
}

// Update applies a descriptive patch. Returns store.ErrNotFound for unknown ids.
func (r *FeeRepository) Update(ctx context.Context, id string, patch FeeUpdate) error {
	fields := store.Document{"updatedAt": FormatTime(patch.UpdatedAt)}
	if patch.Amount != nil {
		fields["amount"] = patch.Amount.String()
	}
	if patch.DueDate != nil {
		fields["dueDate"] = FormatTime(*patch.DueDate)
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.Category != nil {
		fields["category"] = string(*patch.Category)
	}
	if patch.Semester != nil {
		fields["semester"] = *patch.Semester
	}
	if patch.AcademicYear != nil {
		fields["academicYear"] = *patch.AcademicYear
	}
	return r.store.Update(ctx, store.CollectionFees, id, fields)
}

// Delete removes a fee. Unknown ids are not an error.
func (r *FeeRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, store.CollectionFees, id)
}

// Batch starts a new atomic batch on the underlying store.
func (r *FeeRepository) Batch() store.Batch {
	return r.store.Batch()
}

// AddCreate queues a new fee on b.
func (r *FeeRepository) AddCreate(b store.Batch, fee models.Fee) {
	b.Set(store.CollectionFees, fee.ID, EncodeFee(fee), false)
}

// AddSettle queues the paid transition on b. The batch fails with
// store.ErrPreconditionFailed if the fee was settled concurrently.
func (r *FeeRepository) AddSettle(b store.Batch, id string, settlement models.FeeSettlement, now time.Time) {
	fields := encodeSettlement(settlement)
	fields["status"] = string(models.FeeStatusPaid)
	fields["updatedAt"] = FormatTime(now)
	b.Update(store.CollectionFees, id, fields,
		store.Where("status", store.OpIn, []string{string(models.FeeStatusPending), string(models.FeeStatusOverdue)}))
}

// AddMarkOverdue queues the overdue transition on b, guarded on the fee still being pending.
func (r *FeeRepository) AddMarkOverdue(b store.Batch, id string, now time.Time) {
	b.Update(store.CollectionFees, id,
		store.Document{"status": string(models.FeeStatusOverdue), "updatedAt": FormatTime(now)},
		store.Where("status", store.OpEq, string(models.FeeStatusPending)))
}

func (r *FeeRepository) list(ctx context.Context, q store.Query) ([]models.Fee, error) {
	snaps, err := r.store.Query(ctx, store.CollectionFees, q)
	if err != nil {
		return nil, err
	}
	fees := make([]models.Fee, 0, len(snaps))
	for _, snap := range snaps {
		fee, err := DecodeFee(snap.ID, snap.Data)
		if err != nil {
			return nil, err
		}
		fees = append(fees, fee)
	}
	return fees, nil
}

// EncodeFee converts a fee into its stored document.
func EncodeFee(fee models.Fee) store.Document {
	doc := store.Document{
		"studentId":    fee.StudentID,
		"amount":       fee.Amount.String(),
		"dueDate":      FormatTime(fee.DueDate),
		"description":  fee.Description,
		"category":     string(fee.Category),
		"semester":     optionalString(fee.Semester),
		"academicYear": optionalString(fee.AcademicYear),
		"status":       string(fee.Status),
		"createdAt":    FormatTime(fee.CreatedAt),
		"updatedAt":    FormatTime(fee.UpdatedAt),
	}
	if fee.Settlement != nil {
		for k, v := range encodeSettlement(*fee.Settlement) {
			doc[k] = v
		}
	}
	return doc
}

func encodeSettlement(s models.FeeSettlement) store.Document {
	return store.Document{
		"paidAmount":    s.PaidAmount.String(),
		"paymentMethod": string(s.PaymentMethod),
		"paymentRef":    s.PaymentRef,
		"paidAt":        FormatTime(s.PaidAt),
		"receivedBy":    s.ReceivedBy,
		"remarks":       s.Remarks,
	}
}

// DecodeFee converts a stored document into a fee. Documents whose payment
// fields disagree with their status are rejected.
func DecodeFee(id string, doc store.Document) (models.Fee, error) {
	fee := models.Fee{
		ID:           id,
		StudentID:    doc.String("studentId"),
		Description:  doc.String("description"),
		Category:     models.FeeCategory(doc.String("category")),
		Semester:     doc.StringPtr("semester"),
		AcademicYear: doc.StringPtr("academicYear"),
		Status:       models.FeeStatus(doc.String("status")),
	}
	if !fee.Status.Valid() {
		return models.Fee{}, fmt.Errorf("decode fee %s: invalid status %q", id, fee.Status)
	}

	var err error
	if fee.Amount, err = parseDecimal(doc, "amount"); err != nil {
		return models.Fee{}, fmt.Errorf("decode fee %s: %w", id, err)
	}
	if fee.DueDate, err = parseTime(doc, "dueDate"); err != nil {
		return models.Fee{}, fmt.Errorf("decode fee %s: %w", id, err)
	}
	if fee.CreatedAt, err = parseTime(doc, "createdAt"); err != nil {
		return models.Fee{}, fmt.Errorf("decode fee %s: %w", id, err)
	}
	if fee.UpdatedAt, err = parseTime(doc, "updatedAt"); err != nil {
		return models.Fee{}, fmt.Errorf("decode fee %s: %w", id, err)
	}

	paidAt, err := optionalTime(doc, "paidAt")
	if err != nil {
		return models.Fee{}, fmt.Errorf("decode fee %s: %w", id, err)
	}
	_, hasPaidAmount := doc["paidAmount"].(string)
	settled := paidAt != nil && hasPaidAmount

	switch {
	case fee.Status == models.FeeStatusPaid && !settled:
		return models.Fee{}, fmt.Errorf("decode fee %s: paid without settlement", id)
	case fee.Status != models.FeeStatusPaid && (paidAt != nil || hasPaidAmount):
		return models.Fee{}, fmt.Errorf("decode fee %s: %s fee carries settlement", id, fee.Status)
	}

	if settled {
		paidAmount, err := parseDecimal(doc, "paidAmount")
		if err != nil {
			return models.Fee{}, fmt.Errorf("decode fee %s: %w", id, err)
		}
		fee.Settlement = &models.FeeSettlement{
			PaidAmount:    paidAmount,
			PaymentMethod: models.PaymentMethod(doc.String("paymentMethod")),
			PaymentRef:    doc.String("paymentRef"),
			PaidAt:        *paidAt,
			ReceivedBy:    doc.String("receivedBy"),
			Remarks:       doc.String("remarks"),
		}
	}
	return fee, nil
}
