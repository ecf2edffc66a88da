// Package domain contains the payment ledger models.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Payment is one amount received against a bill.
type Payment struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	BillID    snowflake.ID    `gorm:"not null;index" json:"bill_id"`
	Amount    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	PaidOn    time.Time       `gorm:"not null" json:"paid_on"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

var (
	ErrInvalidAmount = errors.New("invalid_amount")
	// ErrOverpayment rejects a payment that would push the cumulative total
	// past the bill amount by more than the configured tolerance.
	ErrOverpayment  = errors.New("overpayment")
	ErrAlreadyPaid  = errors.New("bill_already_paid")
	ErrBillNotFound = errors.New("bill_not_found")
)

type AddPaymentRequest struct {
	BillID string          `json:"bill_id"`
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
}

// Service is the payment ledger. All mutations are atomic per bill; the paid
// flag is recomputed from the cumulative payment sum on every write.
type Service interface {
	AddPayment(ctx context.Context, req AddPaymentRequest) (*Payment, error)
	// MarkBillPaid records a single payment equal to the remaining balance.
	MarkBillPaid(ctx context.Context, billID snowflake.ID, date time.Time) (*Payment, error)
	// OutstandingBalance is the bill total minus recorded payments, never
	// negative.
	OutstandingBalance(ctx context.Context, billID snowflake.ID) (decimal.Decimal, error)
}
