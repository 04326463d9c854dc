package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is the immutable receipt written when a fee is settled.
type Payment struct {
	ID            string          `json:"id"`
	FeeID         string          `json:"feeId"`
	StudentID     string          `json:"studentId"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	PaymentRef    string          `json:"paymentRef,omitempty"`
	ReceivedBy    string          `json:"receivedBy"`
	Remarks       string          `json:"remarks,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}
