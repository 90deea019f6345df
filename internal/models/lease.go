package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LeaseStatus string

const (
	LeaseDraft      LeaseStatus = "draft"
	LeaseActive     LeaseStatus = "active"
	LeaseExpiring   LeaseStatus = "expiring" // derived, never stored
	LeaseTerminated LeaseStatus = "terminated"
	LeaseExpired    LeaseStatus = "expired"
)

type BillingFrequency string

const (
	BillingMonthly  BillingFrequency = "monthly"
	BillingWeekly   BillingFrequency = "weekly"
	BillingBiweekly BillingFrequency = "biweekly"
)

type TenantRole string

const (
	TenantRolePrimary  TenantRole = "primary"
	TenantRoleCoTenant TenantRole = "co_tenant"
	TenantRoleOccupant TenantRole = "occupant"
)

// MinExpiringWindowDays is the shortest look-ahead for the derived expiring state.
const MinExpiringWindowDays = 60

type Lease struct {
	Versioned

	ID                uuid.UUID        `json:"id"`
	OrganizationID    uuid.UUID        `json:"organization_id"`
	UnitID            *uuid.UUID       `json:"unit_id,omitempty"`
	Status            LeaseStatus      `json:"status"`
	RentAmount        decimal.Decimal  `json:"rent_amount"`
	DepositAmount     decimal.Decimal  `json:"deposit_amount"`
	BillingDay        int              `json:"billing_day"`
	BillingFrequency  BillingFrequency `json:"billing_frequency"`
	IsMonthToMonth    bool             `json:"is_month_to_month"`
	StartDate         *time.Time       `json:"start_date,omitempty"`
	EndDate           *time.Time       `json:"end_date,omitempty"`
	NoticePeriodDays  int              `json:"notice_period_days"`
	TerminationReason *string          `json:"termination_reason,omitempty"`
	TerminatedAt      *time.Time       `json:"terminated_at,omitempty"`
	RenewedAt         *time.Time       `json:"renewed_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func (l *Lease) GetID() string {
	return l.ID.String()
}

// EffectiveStatus layers the derived expiring state over the stored status.
func (l *Lease) EffectiveStatus(asOf time.Time) LeaseStatus {
	if l.Status != LeaseActive || l.IsMonthToMonth || l.EndDate == nil {
		return l.Status
	}
	window := l.NoticePeriodDays
	if window < MinExpiringWindowDays {
		window = MinExpiringWindowDays
	}
	y, m, d := asOf.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	left := int(l.EndDate.Sub(today).Hours() / 24)
	if left >= 0 && left <= window {
		return LeaseExpiring
	}
	return l.Status
}

// Overlaps reports whether the lease term touches [from, to).
func (l *Lease) Overlaps(from, to time.Time) bool {
	if l.StartDate != nil && !l.StartDate.Before(to) {
		return false
	}
	if l.EndDate != nil && !l.IsMonthToMonth && l.EndDate.Before(from) {
		return false
	}
	return true
}

type Tenant struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	Email          *string   `json:"email,omitempty"`
	PhoneNumber    *string   `json:"phone_number,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// LeaseTenant is one roster entry joined with its tenant.
type LeaseTenant struct {
	LeaseID uuid.UUID  `json:"lease_id"`
	Tenant  Tenant     `json:"tenant"`
	Role    TenantRole `json:"role"`
}
