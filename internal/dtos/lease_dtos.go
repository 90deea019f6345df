package dtos

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
)

type CreateLeaseRequest struct {
	UnitID           *uuid.UUID              `json:"unit_id"`
	RentAmount       decimal.Decimal         `json:"rent_amount" validate:"gte=0"`
	DepositAmount    decimal.Decimal         `json:"deposit_amount" validate:"gte=0"`
	BillingDay       int                     `json:"billing_day" validate:"gte=1,lte=28"`
	BillingFrequency models.BillingFrequency `json:"billing_frequency" validate:"oneof=monthly weekly biweekly"`
	IsMonthToMonth   bool                    `json:"is_month_to_month"`
	StartDate        *Date                   `json:"start_date"`
	EndDate          *Date                   `json:"end_date"`
	NoticePeriodDays int                     `json:"notice_period_days" validate:"gte=0,lte=365"`
}

// UpdateLeaseRequest patches a draft lease; nil fields are left alone.
type UpdateLeaseRequest struct {
	UnitID           *uuid.UUID               `json:"unit_id"`
	RentAmount       *decimal.Decimal         `json:"rent_amount" validate:"omitempty,gte=0"`
	DepositAmount    *decimal.Decimal         `json:"deposit_amount" validate:"omitempty,gte=0"`
	BillingDay       *int                     `json:"billing_day" validate:"omitempty,gte=1,lte=28"`
	BillingFrequency *models.BillingFrequency `json:"billing_frequency" validate:"omitempty,oneof=monthly weekly biweekly"`
	IsMonthToMonth   *bool                    `json:"is_month_to_month"`
	StartDate        *Date                    `json:"start_date"`
	EndDate          *Date                    `json:"end_date"`
	NoticePeriodDays *int                     `json:"notice_period_days" validate:"omitempty,gte=0,lte=365"`
}

type AddLeaseTenantRequest struct {
	TenantID uuid.UUID         `json:"tenant_id" validate:"required"`
	Role     models.TenantRole `json:"role" validate:"oneof=primary co_tenant occupant"`
}

type TerminateLeaseRequest struct {
	Reason       string `json:"reason" validate:"required,max=500"`
	TerminatedOn *Date  `json:"terminated_on"`
}

type RenewLeaseRequest struct {
	NewEndDate     *Date            `json:"new_end_date"`
	NewRentAmount  *decimal.Decimal `json:"new_rent_amount" validate:"omitempty,gt=0"`
	IsMonthToMonth bool             `json:"is_month_to_month"`
}

type LeaseResponse struct {
	*models.Lease
	EffectiveStatus models.LeaseStatus    `json:"effective_status"`
	Tenants         []*models.LeaseTenant `json:"tenants"`
}

func NewLeaseResponse(l *models.Lease, tenants []*models.LeaseTenant, asOf time.Time) LeaseResponse {
	if tenants == nil {
		tenants = []*models.LeaseTenant{}
	}
	return LeaseResponse{Lease: l, EffectiveStatus: l.EffectiveStatus(asOf), Tenants: tenants}
}

type SetUnitAvailabilityRequest struct {
	Availability models.UnitAvailability `json:"availability" validate:"required"`
}
