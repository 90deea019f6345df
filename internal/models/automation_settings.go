package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LateFeeType string

const (
	LateFeeFixed   LateFeeType = "fixed"
	LateFeePercent LateFeeType = "percent"
)

// AutomationSettings is the per-organization automation policy. It is
// replaced as a whole on every write and read as a snapshot per run.
type AutomationSettings struct {
	Versioned

	OrganizationID           uuid.UUID       `json:"organization_id"`
	Enabled                  bool            `json:"enabled"`
	RentReminderEnabled      bool            `json:"rent_reminder_enabled"`
	RentReminderDays         int             `json:"rent_reminder_days" validate:"gte=1,lte=14"`
	OverdueAlertsEnabled     bool            `json:"overdue_alerts_enabled"`
	LateFeesEnabled          bool            `json:"late_fees_enabled"`
	LateFeeGraceDays         int             `json:"late_fee_grace_days" validate:"gte=0,lte=30"`
	LateFeeType              LateFeeType     `json:"late_fee_type" validate:"oneof=fixed percent"`
	LateFeeAmount            decimal.Decimal `json:"late_fee_amount" validate:"gte=0"`
	LateFeePercent           decimal.Decimal `json:"late_fee_percent" validate:"gte=0,lte=25"`
	LeaseExpiryAlertsEnabled bool            `json:"lease_expiry_alerts_enabled"`
	MoveRemindersEnabled     bool            `json:"move_reminders_enabled"`
	UpdatedAt                time.Time       `json:"updated_at"`
}

func (s *AutomationSettings) GetID() string {
	return s.OrganizationID.String()
}

// DefaultAutomationSettings is what a new organization starts from.
// Everything is off until an administrator opts in.
func DefaultAutomationSettings(orgID uuid.UUID) *AutomationSettings {
	return &AutomationSettings{
		OrganizationID:   orgID,
		RentReminderDays: 3,
		LateFeeGraceDays: 5,
		LateFeeType:      LateFeeFixed,
		LateFeeAmount:    decimal.Zero,
		LateFeePercent:   decimal.Zero,
	}
}
