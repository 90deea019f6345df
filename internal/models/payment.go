package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentType string

const (
	PaymentRent    PaymentType = "rent"
	PaymentDeposit PaymentType = "deposit"
	PaymentLateFee PaymentType = "late_fee"
	PaymentDamage  PaymentType = "damage"
	PaymentUtility PaymentType = "utility"
	PaymentOther   PaymentType = "other"
)

type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "pending"
	PaymentProcessing    PaymentStatus = "processing"
	PaymentSucceeded     PaymentStatus = "succeeded"
	PaymentPartiallyPaid PaymentStatus = "partially_paid"
	PaymentFailed        PaymentStatus = "failed"
	PaymentRefunded      PaymentStatus = "refunded"
	PaymentCancelled     PaymentStatus = "cancelled"
)

// OpenPaymentStatuses still owe money and can become overdue.
var OpenPaymentStatuses = []PaymentStatus{PaymentPending, PaymentPartiallyPaid, PaymentFailed}

// Payment is a single charge together with its settlement state.
type Payment struct {
	Versioned

	ID                uuid.UUID        `json:"id"`
	OrganizationID    uuid.UUID        `json:"organization_id"`
	LeaseID           uuid.UUID        `json:"lease_id"`
	Type              PaymentType      `json:"type"`
	Amount            decimal.Decimal  `json:"amount"`
	AmountPaid        decimal.Decimal  `json:"amount_paid"`
	Status            PaymentStatus    `json:"status"`
	DueDate           *time.Time       `json:"due_date,omitempty"`
	PaidAt            *time.Time       `json:"paid_at,omitempty"`
	Method            *string          `json:"method,omitempty"`
	PeriodKey         *string          `json:"period_key,omitempty"`
	SourcePaymentID   *uuid.UUID       `json:"source_payment_id,omitempty"`
	ProcessorIntentID *string          `json:"processor_intent_id,omitempty"`
	ProcessorChargeID *string          `json:"processor_charge_id,omitempty"`
	ProcessorFee      *decimal.Decimal `json:"processor_fee,omitempty"`
	PlatformFee       *decimal.Decimal `json:"platform_fee,omitempty"`
	NetAmount         *decimal.Decimal `json:"net_amount,omitempty"`
	RefundedAmount    decimal.Decimal  `json:"refunded_amount"`
	FailureReason     *string          `json:"failure_reason,omitempty"`
	Notes             *string          `json:"notes,omitempty"`
	CancelledAt       *time.Time       `json:"cancelled_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func (p *Payment) GetID() string {
	return p.ID.String()
}

func (p *Payment) Outstanding() decimal.Decimal {
	return p.Amount.Sub(p.AmountPaid)
}

func (p *Payment) IsOpen() bool {
	for _, s := range OpenPaymentStatuses {
		if p.Status == s {
			return true
		}
	}
	return false
}

// IsOverdue is derived on every read: an open payment whose due date is
// strictly before the calendar date of asOf.
func (p *Payment) IsOverdue(asOf time.Time) bool {
	if p.DueDate == nil || !p.IsOpen() {
		return false
	}
	y, m, d := asOf.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	due := time.Date(p.DueDate.Year(), p.DueDate.Month(), p.DueDate.Day(), 0, 0, 0, 0, time.UTC)
	return due.Before(today)
}

// EffectiveDate is what range queries and stats bucket a payment by.
func (p *Payment) EffectiveDate() time.Time {
	if p.DueDate != nil {
		return *p.DueDate
	}
	return p.CreatedAt
}

type Receipt struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	PaymentID      uuid.UUID       `json:"payment_id"`
	ReceiptNumber  string          `json:"receipt_number"`
	Amount         decimal.Decimal `json:"amount"`
	IssuedAt       time.Time       `json:"issued_at"`
}
