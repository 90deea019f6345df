package dtos

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
)

type UpsertAutomationSettingsRequest struct {
	Enabled                  bool               `json:"enabled"`
	RentReminderEnabled      bool               `json:"rent_reminder_enabled"`
	RentReminderDays         int                `json:"rent_reminder_days" validate:"gte=1,lte=14"`
	OverdueAlertsEnabled     bool               `json:"overdue_alerts_enabled"`
	LateFeesEnabled          bool               `json:"late_fees_enabled"`
	LateFeeGraceDays         int                `json:"late_fee_grace_days" validate:"gte=0,lte=30"`
	LateFeeType              models.LateFeeType `json:"late_fee_type" validate:"oneof=fixed percent"`
	LateFeeAmount            decimal.Decimal    `json:"late_fee_amount" validate:"gte=0"`
	LateFeePercent           decimal.Decimal    `json:"late_fee_percent" validate:"gte=0,lte=25"`
	LeaseExpiryAlertsEnabled bool               `json:"lease_expiry_alerts_enabled"`
	MoveRemindersEnabled     bool               `json:"move_reminders_enabled"`
}

func (r UpsertAutomationSettingsRequest) ToModel(orgID uuid.UUID) *models.AutomationSettings {
	return &models.AutomationSettings{
		OrganizationID:           orgID,
		Enabled:                  r.Enabled,
		RentReminderEnabled:      r.RentReminderEnabled,
		RentReminderDays:         r.RentReminderDays,
		OverdueAlertsEnabled:     r.OverdueAlertsEnabled,
		LateFeesEnabled:          r.LateFeesEnabled,
		LateFeeGraceDays:         r.LateFeeGraceDays,
		LateFeeType:              r.LateFeeType,
		LateFeeAmount:            r.LateFeeAmount,
		LateFeePercent:           r.LateFeePercent,
		LeaseExpiryAlertsEnabled: r.LeaseExpiryAlertsEnabled,
		MoveRemindersEnabled:     r.MoveRemindersEnabled,
	}
}

type RunAutomationsRequest struct {
	AsOf *time.Time `json:"as_of"`
}

type GenerateChargesRequest struct {
	Period string `json:"period" validate:"required"`
}
