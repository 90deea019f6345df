package services

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Developmizer/Rental-Gates-sub002/internal/dtos"
	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
	"github.com/Developmizer/Rental-Gates-sub002/internal/repositories"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

type AutomationSettingsService struct {
	repo     repositories.AutomationSettingsRepository
	validate *validator.Validate
}

func NewAutomationSettingsService(repo repositories.AutomationSettingsRepository) *AutomationSettingsService {
	return &AutomationSettingsService{repo: repo, validate: utils.NewValidator()}
}

// Get returns the stored settings, or the all-off defaults when the
// organization never saved any.
func (s *AutomationSettingsService) Get(ctx context.Context, orgID uuid.UUID) (*models.AutomationSettings, error) {
	settings, err := s.repo.GetByOrganizationID(ctx, orgID)
	if err != nil {
		return nil, storeErr("get automation settings", err)
	}
	if settings == nil {
		return models.DefaultAutomationSettings(orgID), nil
	}
	return settings, nil
}

// Upsert validates once at the boundary and replaces the record as a whole.
func (s *AutomationSettingsService) Upsert(
	ctx context.Context,
	orgID uuid.UUID,
	req dtos.UpsertAutomationSettingsRequest,
) (*models.AutomationSettings, error) {
	settings := req.ToModel(orgID)
	if err := s.validate.Struct(settings); err != nil {
		return nil, utils.ValidationFailure(err)
	}
	if err := checkMoney("late_fee_amount", settings.LateFeeAmount, true); err != nil {
		return nil, err
	}
	if settings.LateFeesEnabled && settings.LateFeeType == models.LateFeeFixed && !settings.LateFeeAmount.IsPositive() {
		return nil, utils.ValidationErrorf("late_fee_amount must be positive when fixed late fees are enabled")
	}
	if settings.LateFeesEnabled && settings.LateFeeType == models.LateFeePercent && !settings.LateFeePercent.IsPositive() {
		return nil, utils.ValidationErrorf("late_fee_percent must be positive when percent late fees are enabled")
	}

	saved, err := s.repo.Upsert(ctx, settings)
	if err != nil {
		return nil, storeErr("upsert automation settings", err)
	}
	utils.OrgLogger(orgID.String()).WithField("enabled", saved.Enabled).Info("Automation settings replaced")
	return saved, nil
}
