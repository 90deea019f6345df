package dtos

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
)

// CreateChargeRequest creates an ad-hoc charge. When RecordedPaid is set the
// charge is stored as already settled offline.
type CreateChargeRequest struct {
	LeaseID      uuid.UUID          `json:"lease_id" validate:"required"`
	Type         models.PaymentType `json:"type" validate:"oneof=rent deposit late_fee damage utility other"`
	Amount       decimal.Decimal    `json:"amount" validate:"gt=0"`
	DueDate      *Date              `json:"due_date"`
	Method       *string            `json:"method" validate:"omitempty,max=64"`
	Notes        *string            `json:"notes" validate:"omitempty,max=1000"`
	RecordedPaid bool               `json:"recorded_paid"`
	PaidOn       *Date              `json:"paid_on"`
}

type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	PaidOn *Date           `json:"paid_on"`
	Method string          `json:"method" validate:"required,max=64"`
}

type StartProcessingRequest struct {
	ProcessorIntentID string `json:"processor_intent_id" validate:"required,max=255"`
}

type RefundPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Reason string          `json:"reason" validate:"max=500"`
}

type CancelPaymentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type PaymentResponse struct {
	*models.Payment
	Outstanding decimal.Decimal `json:"outstanding"`
	IsOverdue   bool            `json:"is_overdue"`
}

func NewPaymentResponse(p *models.Payment, asOf time.Time) PaymentResponse {
	return PaymentResponse{Payment: p, Outstanding: p.Outstanding(), IsOverdue: p.IsOverdue(asOf)}
}

type ListPaymentsResponse struct {
	Payments []PaymentResponse `json:"payments"`
	Count    int               `json:"count"`
}
