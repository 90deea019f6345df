package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
	"github.com/Developmizer/Rental-Gates-sub002/internal/repositories"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

// GenerationResult summarizes one generation pass for one organization.
type GenerationResult struct {
	OrganizationID uuid.UUID         `json:"organization_id"`
	PeriodKey      string            `json:"period_key,omitempty"`
	Created        int               `json:"created"`
	Skipped        int               `json:"skipped"`
	Payments       []*models.Payment `json:"payments"`
}

func newGenerationResult(orgID uuid.UUID, periodKey string) *GenerationResult {
	return &GenerationResult{OrganizationID: orgID, PeriodKey: periodKey, Payments: []*models.Payment{}}
}

// ChargeGeneratorService creates rent and late-fee charges. Every insert is
// keyed so that re-running a pass never produces a second row.
type ChargeGeneratorService struct {
	leaseRepo   repositories.LeaseRepository
	paymentRepo repositories.PaymentRepository
}

func NewChargeGeneratorService(
	leaseRepo repositories.LeaseRepository,
	paymentRepo repositories.PaymentRepository,
) *ChargeGeneratorService {
	return &ChargeGeneratorService{leaseRepo: leaseRepo, paymentRepo: paymentRepo}
}

// GenerateRentCharges creates one pending rent charge per active lease billed
// in the given period. Safe to call any number of times.
func (s *ChargeGeneratorService) GenerateRentCharges(
	ctx context.Context,
	orgID uuid.UUID,
	periodKey string,
) (*GenerationResult, error) {
	period, err := utils.ParsePeriodKey(periodKey)
	if err != nil {
		return nil, err
	}
	log := utils.OrgLogger(orgID.String()).WithField("period", period.Key)

	leases, err := s.leaseRepo.List(ctx, orgID, []models.LeaseStatus{models.LeaseActive}, nil)
	if err != nil {
		return nil, storeErr("list active leases", err)
	}

	res := newGenerationResult(orgID, period.Key)
	for _, lease := range leases {
		billing, ok := billingPeriodFor(lease, period)
		if !ok || !lease.Overlaps(billing.Start, billing.End) {
			continue
		}

		p := &models.Payment{
			ID:             uuid.New(),
			OrganizationID: orgID,
			LeaseID:        lease.ID,
			Type:           models.PaymentRent,
			Amount:         lease.RentAmount,
			AmountPaid:     decimal.Zero,
			Status:         models.PaymentPending,
			DueDate:        utils.Ptr(utils.DueDate(billing, lease.BillingDay)),
			PeriodKey:      utils.Ptr(period.Key),
			RefundedAmount: decimal.Zero,
		}
		created, err := s.paymentRepo.CreateIfNotExists(ctx, p)
		if err != nil {
			return res, storeErr("insert rent charge", err)
		}
		if !created {
			log.WithError(fmt.Errorf("%w: rent for lease %s", utils.ErrDuplicateSuppressed, lease.ID)).
				Debug("Rent charge already exists")
			res.Skipped++
			continue
		}
		p.RowVersion = 1
		res.Created++
		res.Payments = append(res.Payments, p)
	}

	log.Infof("Rent generation done: %d created, %d already present", res.Created, res.Skipped)
	return res, nil
}

// billingPeriodFor matches a lease's frequency against the requested period.
// Biweekly leases bill every other ISO week counted from their start week.
func billingPeriodFor(l *models.Lease, p utils.Period) (utils.Period, bool) {
	switch l.BillingFrequency {
	case models.BillingMonthly:
		return p, p.Kind == utils.PeriodMonth
	case models.BillingWeekly:
		return p, p.Kind == utils.PeriodWeek
	case models.BillingBiweekly:
		if p.Kind != utils.PeriodWeek || l.StartDate == nil {
			return utils.Period{}, false
		}
		return utils.BiweeklyPeriod(*l.StartDate, p)
	}
	return utils.Period{}, false
}

// GenerateLateFees charges one late fee per rent payment still unpaid past
// the grace period. The settings passed in are the snapshot for this run.
func (s *ChargeGeneratorService) GenerateLateFees(
	ctx context.Context,
	settings *models.AutomationSettings,
	asOf time.Time,
) (*GenerationResult, error) {
	res := newGenerationResult(settings.OrganizationID, "")
	if !settings.LateFeesEnabled {
		return res, nil
	}
	log := utils.OrgLogger(settings.OrganizationID.String())

	today := utils.DateOnly(asOf)
	cutoff := today.AddDate(0, 0, -settings.LateFeeGraceDays)
	candidates, err := s.paymentRepo.ListLateFeeCandidates(ctx, settings.OrganizationID, cutoff)
	if err != nil {
		return nil, storeErr("list late fee candidates", err)
	}

	for _, c := range candidates {
		amount := lateFeeAmount(settings, c.LeaseRentAmount)
		if !amount.IsPositive() {
			log.Debugf("Late fee for payment %s computes to zero, skipping", c.Payment.ID)
			continue
		}
		fee := &models.Payment{
			ID:              uuid.New(),
			OrganizationID:  settings.OrganizationID,
			LeaseID:         c.Payment.LeaseID,
			Type:            models.PaymentLateFee,
			Amount:          amount,
			AmountPaid:      decimal.Zero,
			Status:          models.PaymentPending,
			DueDate:         utils.Ptr(today),
			PeriodKey:       c.Payment.PeriodKey,
			SourcePaymentID: utils.Ptr(c.Payment.ID),
			RefundedAmount:  decimal.Zero,
		}
		created, err := s.paymentRepo.CreateIfNotExists(ctx, fee)
		if err != nil {
			return res, storeErr("insert late fee", err)
		}
		if !created {
			log.WithError(fmt.Errorf("%w: late fee for payment %s", utils.ErrDuplicateSuppressed, c.Payment.ID)).
				Debug("Late fee already exists")
			res.Skipped++
			continue
		}
		fee.RowVersion = 1
		res.Created++
		res.Payments = append(res.Payments, fee)
	}

	if res.Created > 0 {
		log.Infof("Created %d late fees", res.Created)
	}
	return res, nil
}

func lateFeeAmount(settings *models.AutomationSettings, rent decimal.Decimal) decimal.Decimal {
	if settings.LateFeeType == models.LateFeePercent {
		return utils.PercentOf(rent, settings.LateFeePercent)
	}
	return utils.RoundMoney(settings.LateFeeAmount)
}
