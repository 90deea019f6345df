package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Developmizer/Rental-Gates-sub002/internal/constants"
	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
	"github.com/Developmizer/Rental-Gates-sub002/internal/repositories"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

// TickResult summarizes one daily tick across organizations.
type TickResult struct {
	Organizations int      `json:"organizations"`
	Failed        []string `json:"failed"`
}

// SchedulerService drives the daily tick. Organizations are processed one at
// a time and a failure in one never stops the rest.
type SchedulerService struct {
	orgRepo     repositories.OrganizationRepository
	charges     *ChargeGeneratorService
	automations *AutomationService
}

func NewSchedulerService(
	orgRepo repositories.OrganizationRepository,
	charges *ChargeGeneratorService,
	automations *AutomationService,
) *SchedulerService {
	return &SchedulerService{orgRepo: orgRepo, charges: charges, automations: automations}
}

func (s *SchedulerService) RunDailyTick(ctx context.Context, now time.Time) (*TickResult, error) {
	orgs, err := s.orgRepo.ListAll(ctx)
	if err != nil {
		return nil, storeErr("list organizations", err)
	}

	res := &TickResult{Failed: []string{}}
	for _, org := range orgs {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Organizations++
		if err := s.RunForOrganization(ctx, org, now); err != nil {
			utils.OrgLogger(org.ID.String()).WithError(err).Error("Daily tick failed for organization")
			res.Failed = append(res.Failed, org.ID.String())
		}
	}
	utils.Logger.WithFields(logrus.Fields{
		"organizations": res.Organizations,
		"failed":        len(res.Failed),
	}).Info("Daily tick finished")
	return res, nil
}

// RunForOrganization generates rent for the current periods and for those
// starting within the lead window, then runs the automations. Dates are
// taken in the organization's time zone.
func (s *SchedulerService) RunForOrganization(ctx context.Context, org *models.Organization, now time.Time) error {
	local := now.In(org.Location())
	for _, key := range periodKeysToGenerate(local) {
		if _, err := s.charges.GenerateRentCharges(ctx, org.ID, key); err != nil {
			return err
		}
	}
	_, err := s.automations.RunDailyAutomations(ctx, org.ID, utils.DateOnly(local))
	return err
}

func periodKeysToGenerate(local time.Time) []string {
	ahead := local.AddDate(0, 0, constants.RentGenerationLeadDays)
	var keys []string
	seen := map[string]bool{}
	for _, kind := range []utils.PeriodKind{utils.PeriodMonth, utils.PeriodWeek} {
		for _, d := range []time.Time{local, ahead} {
			key := utils.PeriodForDate(kind, d).Key
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	return keys
}
