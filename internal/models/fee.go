package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeStatus is the lifecycle state of a fee.
type FeeStatus string

const (
	FeeStatusPending FeeStatus = "pending"
	FeeStatusPaid    FeeStatus = "paid"
	FeeStatusOverdue FeeStatus = "overdue"
)

// Valid returns true when the status is a supported value.
func (s FeeStatus) Valid() bool {
	switch s {
	case FeeStatusPending, FeeStatusPaid, FeeStatusOverdue:
		return true
	default:
		return false
	}
}

// FeeCategory groups fees for reporting.
type FeeCategory string

const (
	FeeCategoryTuition   FeeCategory = "tuition"
	FeeCategoryLibrary   FeeCategory = "library"
	FeeCategoryLab       FeeCategory = "lab"
	FeeCategoryExam      FeeCategory = "exam"
	FeeCategoryTransport FeeCategory = "transport"
	FeeCategoryHostel    FeeCategory = "hostel"
	FeeCategoryOther     FeeCategory = "other"
)

// FeeCategories lists every category in display order.
var FeeCategories = []FeeCategory{
	FeeCategoryTuition,
	FeeCategoryLibrary,
	FeeCategoryLab,
	FeeCategoryExam,
	FeeCategoryTransport,
	FeeCategoryHostel,
	FeeCategoryOther,
}

// Valid returns true when the category is a supported value.
func (c FeeCategory) Valid() bool {
	for _, candidate := range FeeCategories {
		if c == candidate {
			return true
		}
	}
	return false
}

// PaymentMethod describes how a payment was received.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodOnline       PaymentMethod = "online"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCheque       PaymentMethod = "cheque"
)

// Valid returns true when the method is a supported value.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodOnline, PaymentMethodBankTransfer, PaymentMethodCheque:
		return true
	default:
		return false
	}
}

// Fee is a financial obligation owed by one student.
//
// Settlement is set if and only if Status is FeeStatusPaid.
type Fee struct {
	ID           string          `json:"id"`
	StudentID    string          `json:"studentId"`
	Amount       decimal.Decimal `json:"amount"`
	DueDate      time.Time       `json:"dueDate"`
	Description  string          `json:"description"`
	Category     FeeCategory     `json:"category"`
	Semester     *string         `json:"semester,omitempty"`
	AcademicYear *string         `json:"academicYear,omitempty"`
	Status       FeeStatus       `json:"status"`
	Settlement   *FeeSettlement  `json:"settlement,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// FeeSettlement holds the receipt metadata stamped on a paid fee.
type FeeSettlement struct {
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	PaymentRef    string          `json:"paymentRef,omitempty"`
	PaidAt        time.Time       `json:"paidAt"`
	ReceivedBy    string          `json:"receivedBy"`
	Remarks       string          `json:"remarks,omitempty"`
}

// IsPaid reports whether the fee has been settled.
func (f Fee) IsPaid() bool {
	return f.Status == FeeStatusPaid && f.Settlement != nil
}

// CollectedAmount returns what was received for a paid fee: the paid amount
// when recorded, otherwise the fee amount. Unpaid fees collect nothing.
func (f Fee) CollectedAmount() decimal.Decimal {
	if !f.IsPaid() {
		return decimal.Zero
	}
	if f.Settlement.PaidAmount.IsZero() {
		return f.Amount
	}
	return f.Settlement.PaidAmount
}
