package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/campus-ledger/internal/models"
	"github.com/noah-isme/campus-ledger/internal/store"
)

// PaymentRepository maps payment receipts to the payments collection.
type PaymentRepository struct {
	store store.Store
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(s store.Store) *PaymentRepository {
	return &PaymentRepository{store: s}
}

// AddCreate queues a receipt on b. Receipts are only written alongside the
// fee they settle.
func (r *PaymentRepository) AddCreate(b store.Batch, payment models.Payment) {
	b.Set(store.CollectionPayments, payment.ID, EncodePayment(payment), false)
}

// ListByFee returns the receipts recorded against a fee, oldest first.
func (r *PaymentRepository) ListByFee(ctx context.Context, feeID string) ([]models.Payment, error) {
	snaps, err := r.store.Query(ctx, store.CollectionPayments, store.Query{
		Filters: []store.Filter{store.Where("feeId", store.OpEq, feeID)},
		OrderBy: []store.Order{{Field: "createdAt"}},
	})
	if err != nil {
		return nil, err
	}
	payments := make([]models.Payment, 0, len(snaps))
	for _, snap := range snaps {
		payment, err := DecodePayment(snap.ID, snap.Data)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, nil
}

// EncodePayment converts a receipt into its stored document.
func EncodePayment(p models.Payment) store.Document {
	return store.Document{
		"feeId":         p.FeeID,
		"studentId":     p.StudentID,
		"amount":        p.Amount.String(),
		"paymentMethod": string(p.PaymentMethod),
		"paymentRef":    p.PaymentRef,
		"receivedBy":    p.ReceivedBy,
		"remarks":       p.Remarks,
		"createdAt":     FormatTime(p.CreatedAt),
	}
}

// DecodePayment converts a stored document into a receipt.
func DecodePayment(id string, doc store.Document) (models.Payment, error) {
	amount, err := parseDecimal(doc, "amount")
	if err != nil {
		return models.Payment{}, fmt.Errorf("decode payment %s: %w", id, err)
	}
	createdAt, err := parseTime(doc, "createdAt")
	if err != nil {
		return models.Payment{}, fmt.Errorf("decode payment %s: %w", id, err)
	}
	return models.Payment{
		ID:            id,
		FeeID:         doc.String("feeId"),
		StudentID:     doc.String("studentId"),
		Amount:        amount,
		PaymentMethod: models.PaymentMethod(doc.String("paymentMethod")),
		PaymentRef:    doc.String("paymentRef"),
		ReceivedBy:    doc.String("receivedBy"),
		Remarks:       doc.String("remarks"),
		CreatedAt:     createdAt,
	}, nil
}
