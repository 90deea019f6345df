package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Developmizer/Rental-Gates-sub002/internal/dtos"
	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
	"github.com/Developmizer/Rental-Gates-sub002/internal/repositories"
	"github.com/Developmizer/Rental-Gates-sub002/internal/services"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

// SentinelOrganizationID marks that demo data has been seeded.
const SentinelOrganizationID = "bbbbbbbb-bbbb-4bbb-bbbb-bbbbbbbbbbb1"

// SeedAllTestData seeds one demo organization with a building, two units, a
// tenant and an active lease. It is idempotent on the sentinel organization.
func SeedAllTestData(
	ctx context.Context,
	orgRepo repositories.OrganizationRepository,
	unitRepo repositories.UnitRepository,
	tenantRepo repositories.TenantRepository,
	leases *services.LeaseService,
	settings *services.AutomationSettingsService,
) error {
	orgID := uuid.MustParse(SentinelOrganizationID)

	if existing, err := orgRepo.GetByID(ctx, orgID); err != nil {
		return fmt.Errorf("failed to check for sentinel organization: %w", err)
	} else if existing != nil {
		utils.Logger.Info("billing-service: Seed data already present; skipping seeding.")
		return nil
	}

	org := &models.Organization{
		ID:           orgID,
		Name:         "Demo Properties",
		BillingEmail: "billing@demo-properties.test",
		TimeZone:     models.DefaultOrganizationTimeZone,
	}
	if err := orgRepo.Create(ctx, org); err != nil {
		return fmt.Errorf("seed organization: %w", err)
	}

	building := &models.Building{ID: uuid.New(), OrganizationID: orgID, Name: "Maple Court", Address: utils.StrPtr("100 Maple Ct")}
	if err := orgRepo.CreateBuilding(ctx, building); err != nil {
		return fmt.Errorf("seed building: %w", err)
	}

	rent := decimal.RequireFromString("1450.00")
	var units []*models.Unit
	for _, number := range []string{"101", "102"} {
		u := &models.Unit{
			ID:             uuid.New(),
			OrganizationID: orgID,
			BuildingID:     building.ID,
			UnitNumber:     number,
			Availability:   models.UnitAvailable,
			RentAmount:     rent,
			DepositAmount:  rent,
		}
		if err := unitRepo.Create(ctx, u); err != nil {
			return fmt.Errorf("seed unit %s: %w", number, err)
		}
		units = append(units, u)
	}

	tenant := &models.Tenant{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           "Jordan Renter",
		Email:          utils.StrPtr("jordan@demo-properties.test"),
		PhoneNumber:    utils.StrPtr("+15555550100"),
	}
	if err := tenantRepo.Create(ctx, tenant); err != nil {
		return fmt.Errorf("seed tenant: %w", err)
	}

	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lease, err := leases.CreateDraft(ctx, orgID, dtos.CreateLeaseRequest{
		UnitID:           &units[0].ID,
		RentAmount:       rent,
		DepositAmount:    rent,
		BillingDay:       1,
		BillingFrequency: models.BillingMonthly,
		StartDate:        utils.Ptr(dtos.NewDate(start)),
		EndDate:          utils.Ptr(dtos.NewDate(start.AddDate(1, 0, -1))),
		NoticePeriodDays: 30,
	})
	if err != nil {
		return fmt.Errorf("seed lease: %w", err)
	}
	if err := leases.AddTenant(ctx, orgID, lease.ID, dtos.AddLeaseTenantRequest{
		TenantID: tenant.ID, Role: models.TenantRolePrimary,
	}); err != nil {
		return fmt.Errorf("seed lease tenant: %w", err)
	}
	if _, err := leases.Activate(ctx, orgID, lease.ID); err != nil {
		return fmt.Errorf("activate seeded lease: %w", err)
	}

	if _, err := settings.Upsert(ctx, orgID, dtos.UpsertAutomationSettingsRequest{
		Enabled:                  true,
		RentReminderEnabled:      true,
		RentReminderDays:         3,
		OverdueAlertsEnabled:     true,
		LateFeesEnabled:          true,
		LateFeeGraceDays:         5,
		LateFeeType:              models.LateFeeFixed,
		LateFeeAmount:            decimal.RequireFromString("50.00"),
		LeaseExpiryAlertsEnabled: true,
		MoveRemindersEnabled:     true,
	}); err != nil {
		return fmt.Errorf("seed automation settings: %w", err)
	}

	utils.Logger.Info("billing-service: Seeding completed successfully.")
	return nil
}
