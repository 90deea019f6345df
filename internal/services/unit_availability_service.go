package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
	"github.com/Developmizer/Rental-Gates-sub002/internal/repositories"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

var unitTransitions = map[models.UnitAvailability][]models.UnitAvailability{
	models.UnitAvailable:      {models.UnitComingSoon, models.UnitUnlisted, models.UnitOccupied},
	models.UnitComingSoon:     {models.UnitAvailable, models.UnitUnlisted, models.UnitOccupied},
	models.UnitUnlisted:       {models.UnitAvailable, models.UnitComingSoon, models.UnitOccupied},
	models.UnitOccupied:       {models.UnitRenewalPending, models.UnitAvailable, models.UnitComingSoon, models.UnitUnlisted},
	models.UnitRenewalPending: {models.UnitOccupied, models.UnitAvailable, models.UnitComingSoon, models.UnitUnlisted},
}

// Operators may only pick listing states; occupancy follows leases.
var manualUnitTargets = map[models.UnitAvailability]bool{
	models.UnitAvailable:  true,
	models.UnitComingSoon: true,
	models.UnitUnlisted:   true,
}

type UnitAvailabilityService struct {
	unitRepo  repositories.UnitRepository
	leaseRepo repositories.LeaseRepository
}

func NewUnitAvailabilityService(
	unitRepo repositories.UnitRepository,
	leaseRepo repositories.LeaseRepository,
) *UnitAvailabilityService {
	return &UnitAvailabilityService{unitRepo: unitRepo, leaseRepo: leaseRepo}
}

func (s *UnitAvailabilityService) Get(ctx context.Context, orgID, unitID uuid.UUID) (*models.Unit, error) {
	u, err := s.unitRepo.GetByID(ctx, unitID)
	if err != nil {
		return nil, storeErr("get unit", err)
	}
	if u == nil || u.OrganizationID != orgID {
		return nil, utils.NotFoundf("unit %s", unitID)
	}
	return u, nil
}

// SetAvailability is the operator-facing transition. It is refused while a
// lease is active on the unit.
func (s *UnitAvailabilityService) SetAvailability(
	ctx context.Context,
	orgID, unitID uuid.UUID,
	target models.UnitAvailability,
) (*models.Unit, error) {
	if _, known := unitTransitions[target]; !known {
		return nil, utils.ValidationErrorf("unknown availability %q", target)
	}
	if !manualUnitTargets[target] {
		return nil, utils.InvalidTransitionf("%s is set by lease events only", target)
	}
	if _, err := s.Get(ctx, orgID, unitID); err != nil {
		return nil, err
	}

	active, err := s.leaseRepo.List(ctx, orgID, []models.LeaseStatus{models.LeaseActive}, &unitID)
	if err != nil {
		return nil, storeErr("list active leases", err)
	}
	if len(active) > 0 {
		return nil, utils.PreconditionFailedf("unit %s has an active lease", unitID)
	}
	return s.transition(ctx, unitID, target)
}

// OnLeaseActivated forces the unit to occupied.
func (s *UnitAvailabilityService) OnLeaseActivated(ctx context.Context, unitID uuid.UUID) (*models.Unit, error) {
	return s.transition(ctx, unitID, models.UnitOccupied)
}

// MarkRenewalPending flags an occupied unit while its lease is being renewed.
func (s *UnitAvailabilityService) MarkRenewalPending(ctx context.Context, unitID uuid.UUID) (*models.Unit, error) {
	return s.transition(ctx, unitID, models.UnitRenewalPending)
}

// OnLeaseRenewed returns a renewal_pending unit to occupied.
func (s *UnitAvailabilityService) OnLeaseRenewed(ctx context.Context, unitID uuid.UUID) (*models.Unit, error) {
	return s.transition(ctx, unitID, models.UnitOccupied)
}

// OnLeaseEnded releases the unit after termination or expiry. An unlisted
// unit stays unlisted; otherwise it becomes coming_soon when a later lease is
// already lined up, else available.
func (s *UnitAvailabilityService) OnLeaseEnded(
	ctx context.Context,
	orgID, unitID, endedLeaseID uuid.UUID,
	endedOn time.Time,
) (*models.Unit, error) {
	unit, err := s.Get(ctx, orgID, unitID)
	if err != nil {
		return nil, err
	}
	if unit.Availability == models.UnitUnlisted {
		utils.OrgLogger(orgID.String()).
			WithField("unit_id", unitID).
			Info("Lease ended on an unlisted unit; leaving it unlisted")
		return unit, nil
	}

	leases, err := s.leaseRepo.List(ctx, orgID, []models.LeaseStatus{models.LeaseDraft, models.LeaseActive}, &unitID)
	if err != nil {
		return nil, storeErr("list successor leases", err)
	}
	target := models.UnitAvailable
	endDay := utils.DateOnly(endedOn)
	for _, l := range leases {
		if l.ID != endedLeaseID && l.StartDate != nil && l.StartDate.After(endDay) {
			target = models.UnitComingSoon
			break
		}
	}
	return s.transition(ctx, unitID, target)
}

// Reconcile brings every unit of the organization back in line with its
// leases: a unit under an active lease is occupied, and an occupied unit
// without one is released as if its lease had ended on asOf. Units are read
// before leases so an activation racing the reconcile is never undone.
func (s *UnitAvailabilityService) Reconcile(ctx context.Context, orgID uuid.UUID, asOf time.Time) (int, error) {
	units, err := s.unitRepo.ListByOrganization(ctx, orgID)
	if err != nil {
		return 0, storeErr("list units", err)
	}
	active, err := s.leaseRepo.List(ctx, orgID, []models.LeaseStatus{models.LeaseActive}, nil)
	if err != nil {
		return 0, storeErr("list active leases", err)
	}
	leased := map[uuid.UUID]bool{}
	for _, l := range active {
		if l.UnitID != nil {
			leased[*l.UnitID] = true
		}
	}

	log := utils.OrgLogger(orgID.String())
	repaired := 0
	for _, u := range units {
		occupied := u.Availability == models.UnitOccupied || u.Availability == models.UnitRenewalPending
		var fixed *models.Unit
		switch {
		case leased[u.ID] && !occupied:
			fixed, err = s.OnLeaseActivated(ctx, u.ID)
		case !leased[u.ID] && occupied:
			fixed, err = s.releaseIfVacant(ctx, orgID, u.ID, asOf)
		default:
			continue
		}
		if err != nil {
			return repaired, err
		}
		if fixed != nil && fixed.Availability != u.Availability {
			log.WithField("unit_id", u.ID).
				Warnf("Repaired unit availability %s -> %s", u.Availability, fixed.Availability)
			repaired++
		}
	}
	return repaired, nil
}

// releaseIfVacant looks for an active lease once more right before releasing,
// since one may have been activated after the listing above.
func (s *UnitAvailabilityService) releaseIfVacant(
	ctx context.Context,
	orgID, unitID uuid.UUID,
	asOf time.Time,
) (*models.Unit, error) {
	active, err := s.leaseRepo.List(ctx, orgID, []models.LeaseStatus{models.LeaseActive}, &unitID)
	if err != nil {
		return nil, storeErr("list active leases", err)
	}
	if len(active) > 0 {
		return nil, nil
	}
	return s.OnLeaseEnded(ctx, orgID, unitID, uuid.Nil, asOf)
}

func (s *UnitAvailabilityService) transition(
	ctx context.Context,
	unitID uuid.UUID,
	target models.UnitAvailability,
) (*models.Unit, error) {
	var updated *models.Unit
	err := s.unitRepo.UpdateWithRetry(ctx, unitID, func(u *models.Unit) error {
		updated = u
		if u.Availability == target {
			return errNoChange
		}
		if err := utils.ValidateTransition(unitTransitions, u.Availability, target); err != nil {
			return err
		}
		u.Availability = target
		return nil
	})
	if errors.Is(err, errNoChange) {
		return updated, nil
	}
	if err != nil {
		return nil, storeErr("update unit availability", err)
	}
	return updated, nil
}
