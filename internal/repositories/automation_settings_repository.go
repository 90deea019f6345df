package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
)

type AutomationSettingsRepository interface {
	// GetByOrganizationID returns nil when the organization never saved settings.
	GetByOrganizationID(ctx context.Context, orgID uuid.UUID) (*models.AutomationSettings, error)
	// Upsert replaces the whole record; the latest write wins.
	Upsert(ctx context.Context, s *models.AutomationSettings) (*models.AutomationSettings, error)
}

type automationSettingsRepo struct {
	db DB
}

func NewAutomationSettingsRepository(db DB) AutomationSettingsRepository {
	return &automationSettingsRepo{db: db}
}

const settingsColumns = `
    organization_id, enabled,
    rent_reminder_enabled, rent_reminder_days,
    overdue_alerts_enabled,
    late_fees_enabled, late_fee_grace_days, late_fee_type, late_fee_amount, late_fee_percent,
    lease_expiry_alerts_enabled, move_reminders_enabled,
    row_version, updated_at
`

func scanSettings(row pgx.Row) (*models.AutomationSettings, error) {
	var s models.AutomationSettings
	err := row.Scan(
		&s.OrganizationID,
		&s.Enabled,
		&s.RentReminderEnabled,
		&s.RentReminderDays,
		&s.OverdueAlertsEnabled,
		&s.LateFeesEnabled,
		&s.LateFeeGraceDays,
		&s.LateFeeType,
		&s.LateFeeAmount,
		&s.LateFeePercent,
		&s.LeaseExpiryAlertsEnabled,
		&s.MoveRemindersEnabled,
		&s.RowVersion,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *automationSettingsRepo) GetByOrganizationID(ctx context.Context, orgID uuid.UUID) (*models.AutomationSettings, error) {
	return scanSettings(r.db.QueryRow(ctx,
		`SELECT `+settingsColumns+` FROM automation_settings WHERE organization_id=$1`, orgID))
}

func (r *automationSettingsRepo) Upsert(ctx context.Context, s *models.AutomationSettings) (*models.AutomationSettings, error) {
	row := r.db.QueryRow(ctx, `
        INSERT INTO automation_settings (
            organization_id, enabled,
            rent_reminder_enabled, rent_reminder_days,
            overdue_alerts_enabled,
            late_fees_enabled, late_fee_grace_days, late_fee_type, late_fee_amount, late_fee_percent,
            lease_expiry_alerts_enabled, move_reminders_enabled,
            row_version, updated_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,1,NOW())
        ON CONFLICT (organization_id) DO UPDATE SET
            enabled                     = EXCLUDED.enabled,
            rent_reminder_enabled       = EXCLUDED.rent_reminder_enabled,
            rent_reminder_days          = EXCLUDED.rent_reminder_days,
            overdue_alerts_enabled      = EXCLUDED.overdue_alerts_enabled,
            late_fees_enabled           = EXCLUDED.late_fees_enabled,
            late_fee_grace_days         = EXCLUDED.late_fee_grace_days,
            late_fee_type               = EXCLUDED.late_fee_type,
            late_fee_amount             = EXCLUDED.late_fee_amount,
            late_fee_percent            = EXCLUDED.late_fee_percent,
            lease_expiry_alerts_enabled = EXCLUDED.lease_expiry_alerts_enabled,
            move_reminders_enabled      = EXCLUDED.move_reminders_enabled,
            row_version                 = automation_settings.row_version + 1,
            updated_at                  = NOW()
        RETURNING `+settingsColumns,
		s.OrganizationID,
		s.Enabled,
		s.RentReminderEnabled,
		s.RentReminderDays,
		s.OverdueAlertsEnabled,
		s.LateFeesEnabled,
		s.LateFeeGraceDays,
		s.LateFeeType,
		s.LateFeeAmount,
		s.LateFeePercent,
		s.LeaseExpiryAlertsEnabled,
		s.MoveRemindersEnabled,
	)
	return scanSettings(row)
}
