package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Developmizer/Rental-Gates-sub002/internal/dtos"
	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
	"github.com/Developmizer/Rental-Gates-sub002/internal/repositories"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

type LeaseService struct {
	leaseRepo            repositories.LeaseRepository
	tenantRepo           repositories.TenantRepository
	units                *UnitAvailabilityService
	payments             *PaymentService
	validate             *validator.Validate
	requirePrimaryTenant bool
	now                  func() time.Time
}

func NewLeaseService(
	leaseRepo repositories.LeaseRepository,
	tenantRepo repositories.TenantRepository,
	units *UnitAvailabilityService,
	payments *PaymentService,
	requirePrimaryTenant bool,
) *LeaseService {
	return &LeaseService{
		leaseRepo:            leaseRepo,
		tenantRepo:           tenantRepo,
		units:                units,
		payments:             payments,
		validate:             utils.NewValidator(),
		requirePrimaryTenant: requirePrimaryTenant,
		now:                  time.Now,
	}
}

/* ---------- reads ---------- */

func (s *LeaseService) Get(ctx context.Context, orgID, leaseID uuid.UUID) (*models.Lease, error) {
	l, err := s.leaseRepo.GetByID(ctx, leaseID)
	if err != nil {
		return nil, storeErr("get lease", err)
	}
	if l == nil || l.OrganizationID != orgID {
		return nil, utils.NotFoundf("lease %s", leaseID)
	}
	return l, nil
}

func (s *LeaseService) Roster(ctx context.Context, orgID, leaseID uuid.UUID) ([]*models.LeaseTenant, error) {
	if _, err := s.Get(ctx, orgID, leaseID); err != nil {
		return nil, err
	}
	tenants, err := s.leaseRepo.ListTenants(ctx, leaseID)
	return tenants, storeErr("list lease tenants", err)
}

func (s *LeaseService) List(ctx context.Context, orgID uuid.UUID, statuses []models.LeaseStatus) ([]*models.Lease, error) {
	leases, err := s.leaseRepo.List(ctx, orgID, statuses, nil)
	return leases, storeErr("list leases", err)
}

/* ---------- draft editing ---------- */

func (s *LeaseService) CreateDraft(ctx context.Context, orgID uuid.UUID, req dtos.CreateLeaseRequest) (*models.Lease, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}
	lease := &models.Lease{
		ID:               uuid.New(),
		OrganizationID:   orgID,
		UnitID:           req.UnitID,
		Status:           models.LeaseDraft,
		RentAmount:       req.RentAmount,
		DepositAmount:    req.DepositAmount,
		BillingDay:       req.BillingDay,
		BillingFrequency: req.BillingFrequency,
		IsMonthToMonth:   req.IsMonthToMonth,
		StartDate:        req.StartDate.Ptr(),
		EndDate:          req.EndDate.Ptr(),
		NoticePeriodDays: req.NoticePeriodDays,
	}
	if err := checkLeaseTerms(lease); err != nil {
		return nil, err
	}
	if lease.UnitID != nil {
		if _, err := s.units.Get(ctx, orgID, *lease.UnitID); err != nil {
			return nil, err
		}
	}
	if err := s.leaseRepo.Create(ctx, lease); err != nil {
		return nil, storeErr("create lease", err)
	}
	lease.RowVersion = 1
	utils.OrgLogger(orgID.String()).WithField("lease_id", lease.ID).Info("Draft lease created")
	return lease, nil
}

// UpdateDraft patches a draft lease. Any other status is immutable here.
func (s *LeaseService) UpdateDraft(
	ctx context.Context,
	orgID, leaseID uuid.UUID,
	req dtos.UpdateLeaseRequest,
) (*models.Lease, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}
	if req.UnitID != nil {
		if _, err := s.units.Get(ctx, orgID, *req.UnitID); err != nil {
			return nil, err
		}
	}

	var updated *models.Lease
	err := s.leaseRepo.UpdateWithRetry(ctx, leaseID, func(l *models.Lease) error {
		if l.OrganizationID != orgID {
			return utils.NotFoundf("lease %s", leaseID)
		}
		if l.Status != models.LeaseDraft {
			return utils.InvalidTransitionf("lease %s is %s; only draft leases are editable", leaseID, l.Status)
		}
		if req.UnitID != nil {
			l.UnitID = req.UnitID
		}
		if req.RentAmount != nil {
			l.RentAmount = *req.RentAmount
		}
		if req.DepositAmount != nil {
			l.DepositAmount = *req.DepositAmount
		}
		if req.BillingDay != nil {
			l.BillingDay = *req.BillingDay
		}
		if req.BillingFrequency != nil {
			l.BillingFrequency = *req.BillingFrequency
		}
		if req.IsMonthToMonth != nil {
			l.IsMonthToMonth = *req.IsMonthToMonth
		}
		if req.StartDate != nil {
			l.StartDate = req.StartDate.Ptr()
		}
		if req.EndDate != nil {
			l.EndDate = req.EndDate.Ptr()
		}
		if req.NoticePeriodDays != nil {
			l.NoticePeriodDays = *req.NoticePeriodDays
		}
		updated = l
		return checkLeaseTerms(l)
	})
	if err != nil {
		return nil, storeErr("update lease", err)
	}
	return updated, nil
}

func (s *LeaseService) AddTenant(ctx context.Context, orgID, leaseID uuid.UUID, req dtos.AddLeaseTenantRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return utils.ValidationFailure(err)
	}
	lease, err := s.Get(ctx, orgID, leaseID)
	if err != nil {
		return err
	}
	if lease.Status != models.LeaseDraft {
		return utils.InvalidTransitionf("roster of a %s lease cannot change", lease.Status)
	}
	tenant, err := s.tenantRepo.GetByID(ctx, req.TenantID)
	if err != nil {
		return storeErr("get tenant", err)
	}
	if tenant == nil || tenant.OrganizationID != orgID {
		return utils.NotFoundf("tenant %s", req.TenantID)
	}
	return storeErr("add lease tenant", s.leaseRepo.AddTenant(ctx, leaseID, req.TenantID, req.Role))
}

func (s *LeaseService) RemoveTenant(ctx context.Context, orgID, leaseID, tenantID uuid.UUID) error {
	lease, err := s.Get(ctx, orgID, leaseID)
	if err != nil {
		return err
	}
	if lease.Status != models.LeaseDraft {
		return utils.InvalidTransitionf("roster of a %s lease cannot change", lease.Status)
	}
	return storeErr("remove lease tenant", s.leaseRepo.RemoveTenant(ctx, leaseID, tenantID))
}

/* ---------- transitions ---------- */

// Activate moves a draft lease to active and occupies its unit. The
// activation rules are checked against the row being written, and the
// one-active-lease-per-unit index settles any race left after that. If the
// unit cannot be occupied the lease goes back to draft.
func (s *LeaseService) Activate(ctx context.Context, orgID, leaseID uuid.UUID) (*models.Lease, error) {
	if _, err := s.Get(ctx, orgID, leaseID); err != nil {
		return nil, err
	}

	var updated *models.Lease
	err := s.leaseRepo.UpdateWithRetry(ctx, leaseID, func(l *models.Lease) error {
		if l.Status != models.LeaseDraft {
			return utils.InvalidTransitionf("cannot activate a %s lease", l.Status)
		}
		if err := s.checkActivation(ctx, l); err != nil {
			return err
		}
		l.Status = models.LeaseActive
		updated = l
		return nil
	})
	if err != nil {
		return nil, storeErr("activate lease", err)
	}

	log := utils.OrgLogger(orgID.String()).WithField("lease_id", leaseID)
	if _, err := s.units.OnLeaseActivated(ctx, *updated.UnitID); err != nil {
		log.WithError(err).Errorf("Unit %s could not be marked occupied, reverting activation", *updated.UnitID)
		if rbErr := s.revertActivation(ctx, leaseID); rbErr != nil {
			log.WithError(rbErr).Error("Activation revert failed, unit occupancy left to the daily reconcile")
		}
		return nil, err
	}
	log.Info("Lease activated")
	return updated, nil
}

func (s *LeaseService) revertActivation(ctx context.Context, leaseID uuid.UUID) error {
	err := s.leaseRepo.UpdateWithRetry(ctx, leaseID, func(l *models.Lease) error {
		if l.Status != models.LeaseActive {
			return errNoChange
		}
		l.Status = models.LeaseDraft
		return nil
	})
	if errors.Is(err, errNoChange) {
		return nil
	}
	return storeErr("revert lease activation", err)
}

func (s *LeaseService) checkActivation(ctx context.Context, lease *models.Lease) error {
	if lease.UnitID == nil {
		return utils.PreconditionFailedf("lease has no unit assigned")
	}
	if !lease.RentAmount.IsPositive() {
		return utils.PreconditionFailedf("lease rent amount must be greater than zero")
	}
	if lease.StartDate == nil {
		return utils.PreconditionFailedf("lease has no start date")
	}

	roster, err := s.leaseRepo.ListTenants(ctx, lease.ID)
	if err != nil {
		return storeErr("list lease tenants", err)
	}
	if len(roster) == 0 {
		return utils.PreconditionFailedf("lease has no tenants")
	}
	if s.requirePrimaryTenant {
		hasPrimary := false
		for _, lt := range roster {
			if lt.Role == models.TenantRolePrimary {
				hasPrimary = true
				break
			}
		}
		if !hasPrimary {
			return utils.PreconditionFailedf("lease has no primary tenant")
		}
	}

	active, err := s.leaseRepo.List(ctx, lease.OrganizationID, []models.LeaseStatus{models.LeaseActive}, lease.UnitID)
	if err != nil {
		return storeErr("list active leases", err)
	}
	for _, other := range active {
		if other.ID != lease.ID {
			return utils.PreconditionFailedf("unit already has active lease %s", other.ID)
		}
	}
	return nil
}

// Terminate ends an active lease early. Open rent due after the termination
// date is cancelled and the unit released.
func (s *LeaseService) Terminate(
	ctx context.Context,
	orgID, leaseID uuid.UUID,
	req dtos.TerminateLeaseRequest,
) (*models.Lease, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := s.validate.Struct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}
	terminatedOn := utils.DateOnly(s.now())
	if t := req.TerminatedOn.Ptr(); t != nil {
		terminatedOn = *t
	}

	var updated *models.Lease
	err := s.leaseRepo.UpdateWithRetry(ctx, leaseID, func(l *models.Lease) error {
		if l.OrganizationID != orgID {
			return utils.NotFoundf("lease %s", leaseID)
		}
		if l.Status != models.LeaseActive {
			return utils.InvalidTransitionf("cannot terminate a %s lease", l.Status)
		}
		l.Status = models.LeaseTerminated
		l.TerminationReason = utils.Ptr(req.Reason)
		l.TerminatedAt = utils.Ptr(s.now().UTC())
		updated = l
		return nil
	})
	if err != nil {
		return nil, storeErr("terminate lease", err)
	}

	if err := s.afterLeaseEnded(ctx, updated, terminatedOn); err != nil {
		return updated, err
	}
	utils.OrgLogger(orgID.String()).WithField("lease_id", leaseID).Infof("Lease terminated: %s", req.Reason)
	return updated, nil
}

// Renew extends an active lease. A new rent amount only affects charges
// generated from now on.
func (s *LeaseService) Renew(
	ctx context.Context,
	orgID, leaseID uuid.UUID,
	req dtos.RenewLeaseRequest,
) (*models.Lease, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}
	newEnd := req.NewEndDate.Ptr()
	if newEnd == nil && !req.IsMonthToMonth {
		return nil, utils.ValidationErrorf("new_end_date is required unless the lease becomes month-to-month")
	}
	if req.NewRentAmount != nil && !utils.IsCents(*req.NewRentAmount) {
		return nil, utils.ValidationErrorf("new_rent_amount must have at most two decimal places")
	}

	var updated *models.Lease
	err := s.leaseRepo.UpdateWithRetry(ctx, leaseID, func(l *models.Lease) error {
		if l.OrganizationID != orgID {
			return utils.NotFoundf("lease %s", leaseID)
		}
		if l.Status != models.LeaseActive {
			return utils.InvalidTransitionf("cannot renew a %s lease", l.Status)
		}
		if newEnd != nil {
			if l.EndDate != nil && !newEnd.After(*l.EndDate) {
				return utils.ValidationErrorf("new end date must be after the current end date")
			}
			if l.StartDate != nil && !newEnd.After(*l.StartDate) {
				return utils.ValidationErrorf("new end date must be after the start date")
			}
			l.EndDate = newEnd
		}
		if req.NewRentAmount != nil {
			l.RentAmount = *req.NewRentAmount
		}
		l.IsMonthToMonth = req.IsMonthToMonth
		l.RenewedAt = utils.Ptr(s.now().UTC())
		updated = l
		return nil
	})
	if err != nil {
		return nil, storeErr("renew lease", err)
	}

	if updated.UnitID != nil {
		unit, err := s.units.Get(ctx, orgID, *updated.UnitID)
		if err != nil {
			return updated, err
		}
		if unit.Availability == models.UnitRenewalPending {
			if _, err := s.units.OnLeaseRenewed(ctx, unit.ID); err != nil {
				return updated, err
			}
		}
	}
	return updated, nil
}

// StartRenewal marks the unit of an active lease as renewal_pending.
func (s *LeaseService) StartRenewal(ctx context.Context, orgID, leaseID uuid.UUID) (*models.Unit, error) {
	lease, err := s.Get(ctx, orgID, leaseID)
	if err != nil {
		return nil, err
	}
	if lease.Status != models.LeaseActive || lease.UnitID == nil {
		return nil, utils.InvalidTransitionf("only an active lease with a unit can start renewal")
	}
	return s.units.MarkRenewalPending(ctx, *lease.UnitID)
}

// ExpireEndedLeases moves fixed-term active leases whose end date has passed
// to expired and releases their units.
func (s *LeaseService) ExpireEndedLeases(ctx context.Context, orgID uuid.UUID, asOf time.Time) (int, error) {
	today := utils.DateOnly(asOf)
	active, err := s.leaseRepo.List(ctx, orgID, []models.LeaseStatus{models.LeaseActive}, nil)
	if err != nil {
		return 0, storeErr("list active leases", err)
	}

	expired := 0
	for _, candidate := range active {
		if !endedBefore(candidate, today) {
			continue
		}
		var updated *models.Lease
		err := s.leaseRepo.UpdateWithRetry(ctx, candidate.ID, func(l *models.Lease) error {
			if l.Status != models.LeaseActive || !endedBefore(l, today) {
				return errNoChange
			}
			l.Status = models.LeaseExpired
			updated = l
			return nil
		})
		if errors.Is(err, errNoChange) {
			continue
		}
		if err != nil {
			return expired, storeErr("expire lease", err)
		}
		if err := s.afterLeaseEnded(ctx, updated, *updated.EndDate); err != nil {
			return expired, err
		}
		expired++
	}
	if expired > 0 {
		utils.OrgLogger(orgID.String()).Infof("Expired %d leases", expired)
	}
	return expired, nil
}

// ReconcileUnits repairs unit occupancy left out of step with the leases
// when a lease write landed but the unit write after it did not.
func (s *LeaseService) ReconcileUnits(ctx context.Context, orgID uuid.UUID, asOf time.Time) (int, error) {
	return s.units.Reconcile(ctx, orgID, asOf)
}

func endedBefore(l *models.Lease, today time.Time) bool {
	return !l.IsMonthToMonth && l.EndDate != nil && l.EndDate.Before(today)
}

func (s *LeaseService) afterLeaseEnded(ctx context.Context, l *models.Lease, endedOn time.Time) error {
	if _, err := s.payments.CancelOpenRentAfter(ctx, l.OrganizationID, l.ID, endedOn); err != nil {
		return err
	}
	if l.UnitID == nil {
		return nil
	}
	_, err := s.units.OnLeaseEnded(ctx, l.OrganizationID, *l.UnitID, l.ID, endedOn)
	return err
}

/* ---------- helpers ---------- */

func checkLeaseTerms(l *models.Lease) error {
	if err := checkMoney("rent_amount", l.RentAmount, true); err != nil {
		return err
	}
	if err := checkMoney("deposit_amount", l.DepositAmount, true); err != nil {
		return err
	}
	if l.BillingDay < 1 || l.BillingDay > 28 {
		return utils.ValidationErrorf("billing_day must be between 1 and 28")
	}
	switch l.BillingFrequency {
	case models.BillingMonthly, models.BillingWeekly, models.BillingBiweekly:
	default:
		return utils.ValidationErrorf("unknown billing_frequency %q", l.BillingFrequency)
	}
	if l.StartDate != nil && l.EndDate != nil && !l.EndDate.After(*l.StartDate) {
		return utils.ValidationErrorf("end_date must be after start_date")
	}
	return nil
}

func checkMoney(field string, d decimal.Decimal, allowZero bool) error {
	if d.IsNegative() {
		return utils.ValidationErrorf("%s must not be negative", field)
	}
	if !allowZero && d.IsZero() {
		return utils.ValidationErrorf("%s must be positive", field)
	}
	if !utils.IsCents(d) {
		return utils.ValidationErrorf("%s must have at most two decimal places", field)
	}
	return nil
}
