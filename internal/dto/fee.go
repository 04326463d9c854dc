package dto

import "github.com/shopspring/decimal"

// CreateFeeRequest payload for raising a new fee. DueDate accepts RFC3339 or YYYY-MM-DD.
type CreateFeeRequest struct {
	StudentID    string          `json:"studentId" validate:"required"`
	Amount       decimal.Decimal `json:"amount" validate:"required,gt=0"`
	DueDate      string          `json:"dueDate" validate:"required"`
	Description  string          `json:"description" validate:"max=500"`
	Category     string          `json:"category" validate:"required,fee_category"`
	Semester     *string         `json:"semester,omitempty"`
	AcademicYear *string         `json:"academicYear,omitempty"`
}

// BulkCreateFeesRequest wraps a set of fees written in one batch.
type BulkCreateFeesRequest struct {
	Fees []CreateFeeRequest `json:"fees" validate:"required,min=1,dive"`
}

// UpdateFeeRequest patches descriptive fee fields. Nil fields are left untouched.
type UpdateFeeRequest struct {
	Amount       *decimal.Decimal `json:"amount,omitempty" validate:"omitempty,gt=0"`
	DueDate      *string          `json:"dueDate,omitempty"`
	Description  *string          `json:"description,omitempty" validate:"omitempty,max=500"`
	Category     *string          `json:"category,omitempty" validate:"omitempty,fee_category"`
	Semester     *string          `json:"semester,omitempty"`
	AcademicYear *string          `json:"academicYear,omitempty"`
}

// Empty reports whether the patch carries no fields.
func (r UpdateFeeRequest) Empty() bool {
	return r.Amount == nil && r.DueDate == nil && r.Description == nil &&
		r.Category == nil && r.Semester == nil && r.AcademicYear == nil
}

// ProcessPaymentRequest records the settlement of a fee. PaidAmount defaults
// to the fee amount when omitted.
type ProcessPaymentRequest struct {
	FeeID         string           `json:"feeId" validate:"required"`
	PaidAmount    *decimal.Decimal `json:"paidAmount,omitempty" validate:"omitempty,gt=0"`
	PaymentMethod string           `json:"paymentMethod" validate:"required,payment_method"`
	PaymentRef    string           `json:"paymentRef" validate:"max=120"`
	ReceivedBy    string           `json:"receivedBy" validate:"required"`
	Remarks       string           `json:"remarks" validate:"max=500"`
}

// FeeReportQuery bounds a fee report by creation date.
type FeeReportQuery struct {
	From     string `form:"from" validate:"required,calendar_date"`
	To       string `form:"to" validate:"required,calendar_date"`
	Category string `form:"category" validate:"omitempty,fee_category"`
	Format   string `form:"format" validate:"omitempty,oneof=json csv pdf xlsx"`
}
