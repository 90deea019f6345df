package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Developmizer/Rental-Gates-sub002/internal/dtos"
	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

func draftRequest(unitID *models.Unit) dtos.CreateLeaseRequest {
	return dtos.CreateLeaseRequest{
		UnitID:           &unitID.ID,
		RentAmount:       money("1500.00"),
		DepositAmount:    money("1500.00"),
		BillingDay:       1,
		BillingFrequency: models.BillingMonthly,
		StartDate:        utils.Ptr(dtos.NewDate(day(2025, 3, 1))),
		EndDate:          utils.Ptr(dtos.NewDate(day(2026, 2, 28))),
		NoticePeriodDays: 30,
	}
}

func TestActivateWithoutTenantsFailsAndStaysDraft(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(false)
	org := env.org("acme")
	unit := env.unit(org.ID, models.UnitAvailable)

	lease, err := env.leases.CreateDraft(ctx, org.ID, draftRequest(unit))
	require.NoError(t, err)

	_, err = env.leases.Activate(ctx, org.ID, lease.ID)
	require.ErrorIs(t, err, utils.ErrPreconditionFailed)

	stored, err := env.leases.Get(ctx, org.ID, lease.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeaseDraft, stored.Status)

	u, err := env.units.Get(ctx, org.ID, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UnitAvailable, u.Availability)
}

func TestActivateOccupiesUnit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(false)
	org := env.org("acme")
	unit := env.unit(org.ID, models.UnitComingSoon)
	tenant := env.tenant(org.ID, "jane")

	lease, err := env.leases.CreateDraft(ctx, org.ID, draftRequest(unit))
	require.NoError(t, err)
	require.NoError(t, env.leases.AddTenant(ctx, org.ID, lease.ID, dtos.AddLeaseTenantRequest{
		TenantID: tenant.ID, Role: models.TenantRoleCoTenant,
	}))

	active, err := env.leases.Activate(ctx, org.ID, lease.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeaseActive, active.Status)

	u, err := env.units.Get(ctx, org.ID, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UnitOccupied, u.Availability)

	// roster is frozen once active
	err = env.leases.RemoveTenant(ctx, org.ID, lease.ID, tenant.ID)
	assert.ErrorIs(t, err, utils.ErrInvalidStateTransition)

	_, err = env.leases.Activate(ctx, org.ID, lease.ID)
	assert.ErrorIs(t, err, utils.ErrInvalidStateTransition)
}

func TestActivateRequiresPrimaryTenantWhenConfigured(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(true)
	org := env.org("acme")
	unit := env.unit(org.ID, models.UnitAvailable)
	co := env.tenant(org.ID, "co")
	primary := env.tenant(org.ID, "primary")

	lease, err := env.leases.CreateDraft(ctx, org.ID, draftRequest(unit))
	require.NoError(t, err)
	require.NoError(t, env.leases.AddTenant(ctx, org.ID, lease.ID, dtos.AddLeaseTenantRequest{
		TenantID: co.ID, Role: models.TenantRoleCoTenant,
	}))

	_, err = env.leases.Activate(ctx, org.ID, lease.ID)
	require.ErrorIs(t, err, utils.ErrPreconditionFailed)

	require.NoError(t, env.leases.AddTenant(ctx, org.ID, lease.ID, dtos.AddLeaseTenantRequest{
		TenantID: primary.ID, Role: models.TenantRolePrimary,
	}))
	_, err = env.leases.Activate(ctx, org.ID, lease.ID)
	require.NoError(t, err)

	roster, err := env.leases.Roster(ctx, org.ID, lease.ID)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, models.TenantRolePrimary, roster[0].Role)
}

func TestActivateRejectsSecondActiveLeaseOnUnit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(false)
	org := env.org("acme")
	unit := env.unit(org.ID, models.UnitOccupied)
	env.lease(org.ID, &unit.ID, models.LeaseActive)

	lease, err := env.leases.CreateDraft(ctx, org.ID, draftRequest(unit))
	require.NoError(t, err)
	env.addTenant(lease.ID, env.tenant(org.ID, "late"), models.TenantRolePrimary)

	_, err = env.leases.Activate(ctx, org.ID, lease.ID)
	assert.ErrorIs(t, err, utils.ErrPreconditionFailed)
}

func TestActivationLosesToCompetingActivationAtWrite(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(false)
	org := env.org("acme")
	unit := env.unit(org.ID, models.UnitAvailable)

	first, err := env.leases.CreateDraft(ctx, org.ID, draftRequest(unit))
	require.NoError(t, err)
	second, err := env.leases.CreateDraft(ctx, org.ID, draftRequest(unit))
	require.NoError(t, err)
	env.addTenant(first.ID, env.tenant(org.ID, "ann"), models.TenantRolePrimary)
	env.addTenant(second.ID, env.tenant(org.ID, "bob"), models.TenantRolePrimary)

	// the first lease turns active after the second one passed its checks
	var once sync.Once
	env.store.beforeLeaseWrite = func(l models.Lease) {
		if l.ID != second.ID {
			return
		}
		once.Do(func() {
			env.store.mu.Lock()
			defer env.store.mu.Unlock()
			row := env.store.leases[first.ID]
			row.Status = models.LeaseActive
			row.RowVersion++
			env.store.leases[first.ID] = row
		})
	}

	_, err = env.leases.Activate(ctx, org.ID, second.ID)
	require.ErrorIs(t, err, utils.ErrPreconditionFailed)

	got, _ := env.leases.Get(ctx, org.ID, second.ID)
	assert.Equal(t, models.LeaseDraft, got.Status)
	got, _ = env.leases.Get(ctx, org.ID, first.ID)
	assert.Equal(t, models.LeaseActive, got.Status)
}

func TestConcurrentActivationsOnOneUnitHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(false)
	org := env.org("acme")
	unit := env.unit(org.ID, models.UnitAvailable)

	const drafts = 6
	leases := make([]*models.Lease, drafts)
	for i := range leases {
		l, err := env.leases.CreateDraft(ctx, org.ID, draftRequest(unit))
		require.NoError(t, err)
		env.addTenant(l.ID, env.tenant(org.ID, "tenant"), models.TenantRolePrimary)
		leases[i] = l
	}

	errs := make([]error, drafts)
	var wg sync.WaitGroup
	for i, l := range leases {
		wg.Add(1)
		go func(i int, l *models.Lease) {
			defer wg.Done()
			_, errs[i] = env.leases.Activate(ctx, org.ID, l.ID)
		}(i, l)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, utils.ErrPreconditionFailed)
	}
	assert.Equal(t, 1, wins)

	active, err := env.leases.List(ctx, org.ID, []models.LeaseStatus{models.LeaseActive})
	require.NoError(t, err)
	assert.Len(t, active, 1)
	u, _ := env.units.Get(ctx, org.ID, unit.ID)
	assert.Equal(t, models.UnitOccupied, u.Availability)
}

func TestActivationRechecksRosterOnRetry(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(false)
	org := env.org("acme")
	unit := env.unit(org.ID, models.UnitAvailable)
	tenant := env.tenant(org.ID, "jane")

	lease, err := env.leases.CreateDraft(ctx, org.ID, draftRequest(unit))
	require.NoError(t, err)
	env.addTenant(lease.ID, tenant, models.TenantRolePrimary)

	// a concurrent edit empties the roster and bumps the row before the write
	var once sync.Once
	env.store.beforeLeaseWrite = func(models.Lease) {
		once.Do(func() {
			env.store.mu.Lock()
			defer env.store.mu.Unlock()
			delete(env.store.leaseTenants[lease.ID], tenant.ID)
			row := env.store.leases[lease.ID]
			row.RowVersion++
			env.store.leases[lease.ID] = row
		})
	}

	_, err = env.leases.Activate(ctx, org.ID, lease.ID)
	require.ErrorIs(t, err, utils.ErrPreconditionFailed)
	got, _ := env.leases.Get(ctx, org.ID, lease.ID)
	assert.Equal(t, models.LeaseDraft, got.Status)
}

func TestActivationRevertsWhenUnitCannotBeOccupied(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(false)
	org := env.org("acme")
	unit := env.unit(org.ID, models.UnitAvailable)

	lease, err := env.leases.CreateDraft(ctx, org.ID, draftRequest(unit))
	require.NoError(t, err)
	env.addTenant(lease.ID, env.tenant(org.ID, "jane"), models.TenantRolePrimary)

	env.store.failUnitUpdate = errors.New("connection reset by peer")
	_, err = env.leases.Activate(ctx, org.ID, lease.ID)
	require.ErrorIs(t, err, utils.ErrDependencyUnavailable)

	got, _ := env.leases.Get(ctx, org.ID, lease.ID)
	assert.Equal(t, models.LeaseDraft, got.Status)
	u, _ := env.units.Get(ctx, org.ID, unit.ID)
	assert.Equal(t, models.UnitAvailable, u.Availability)

	env.store.failUnitUpdate = nil
	active, err := env.leases.Activate(ctx, org.ID, lease.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeaseActive, active.Status)
	u, _ = env.units.Get(ctx, org.ID, unit.ID)
	assert.Equal(t, models.UnitOccupied, u.Availability)
}

func TestCreateDraftValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(false)
	org := env.org("acme")
	unit := env.unit(org.ID, models.UnitAvailable)

	cases := map[string]func(*dtos.CreateLeaseRequest){
		"billing day too large": func(r *dtos.CreateLeaseRequest) { r.BillingDay = 29 },
		"negative rent":         func(r *dtos.CreateLeaseRequest) { r.RentAmount = money("-1.00") },
		"fractional cents":      func(r *dtos.CreateLeaseRequest) { r.RentAmount = money("100.005") },
		"unknown frequency":     func(r *dtos.CreateLeaseRequest) { r.BillingFrequency = "daily" },
		"end before start": func(r *dtos.CreateLeaseRequest) {
			r.EndDate = utils.Ptr(dtos.NewDate(day(2025, 2, 1)))
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := draftRequest(unit)
			mutate(&req)
			_, err := env.leases.CreateDraft(ctx, org.ID, req)
			assert.ErrorIs(t, err, utils.ErrValidation)
		})
	}

	other := env.org("other")
	_, err := env.leases.CreateDraft(ctx, other.ID, draftRequest(unit))
	assert.ErrorIs(t, err, utils.ErrNotFound, "unit belongs to another organization")
}

func TestUpdateDraftOnlyWhileDraft(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(false)
	org := env.org("acme")
	unit := env.unit(org.ID, models.UnitAvailable)

	lease, err := env.leases.CreateDraft(ctx, org.ID, draftRequest(unit))
	require.NoError(t, err)

	updated, err := env.leases.UpdateDraft(ctx, org.ID, lease.ID, dtos.UpdateLeaseRequest{
		RentAmount: utils.Ptr(money("1650.00")),
		BillingDay: utils.Ptr(5),
	})
	require.NoError(t, err)
	assert.True(t, money("1650.00").Equal(updated.RentAmount))
	assert.Equal(t, 5, updated.BillingDay)

	active := env.lease(org.ID, &unit.ID, models.LeaseActive)
	_, err = env.leases.UpdateDraft(ctx, org.ID, active.ID, dtos.UpdateLeaseRequest{BillingDay: utils.Ptr(3)})
	assert.ErrorIs(t, err, utils.ErrInvalidStateTransition)
}

func TestTerminateCancelsLaterRentAndReleasesUnit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(false)
	org := env.org("acme")
	unit := env.unit(org.ID, models.UnitOccupied)
	lease := env.lease(org.ID, &unit.ID, models.LeaseActive)

	march, err := env.payments.CreateCharge(ctx, org.ID, dtos.CreateChargeRequest{
		LeaseID: lease.ID, Type: models.PaymentRent, Amount: money("1500.00"),
		DueDate: utils.Ptr(dtos.NewDate(day(2025, 3, 1))),
	})
	require.NoError(t, err)
	april, err := env.payments.CreateCharge(ctx, org.ID, dtos.CreateChargeRequest{
		LeaseID: lease.ID, Type: models.PaymentRent, Amount: money("1500.00"),
		DueDate: utils.Ptr(dtos.NewDate(day(2025, 4, 1))),
	})
	require.NoError(t, err)

	_, err = env.leases.Terminate(ctx, org.ID, lease.ID, dtos.TerminateLeaseRequest{Reason: "  "})
	require.ErrorIs(t, err, utils.ErrValidation)

	terminated, err := env.leases.Terminate(ctx, org.ID, lease.ID, dtos.TerminateLeaseRequest{
		Reason:       "tenant relocated",
		TerminatedOn: utils.Ptr(dtos.NewDate(day(2025, 3, 15))),
	})
	require.NoError(t, err)
	assert.Equal(t, models.LeaseTerminated, terminated.Status)
	assert.Equal(t, "tenant relocated", utils.Val(terminated.TerminationReason))
	assert.NotNil(t, terminated.TerminatedAt)

	m, _ := env.payments.Get(ctx, org.ID, march.ID)
	a, _ := env.payments.Get(ctx, org.ID, april.ID)
	assert.Equal(t, models.PaymentPending, m.Status)
	assert.Equal(t, models.PaymentCancelled, a.Status)

	u, _ := env.units.Get(ctx, org.ID, unit.ID)
	assert.Equal(t, models.UnitAvailable, u.Availability)

	_, err = env.leases.Terminate(ctx, org.ID, lease.ID, dtos.TerminateLeaseRequest{Reason: "again"})
	assert.ErrorIs(t, err, utils.ErrInvalidStateTransition)
}

func TestLeaseEndWithSuccessorMarksUnitComingSoon(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(false)
	org := env.org("acme")
	unit := env.unit(org.ID, models.UnitOccupied)
	lease := env.lease(org.ID, &unit.ID, models.LeaseActive)
	env.lease(org.ID, &unit.ID, models.LeaseDraft, func(l *models.Lease) {
		l.StartDate = utils.Ptr(day(2025, 4, 1))
		l.EndDate = utils.Ptr(day(2026, 3, 31))
	})

	_, err := env.leases.Terminate(ctx, org.ID, lease.ID, dtos.TerminateLeaseRequest{
		Reason:       "early exit",
		TerminatedOn: utils.Ptr(dtos.NewDate(day(2025, 3, 15))),
	})
	require.NoError(t, err)

	u, _ := env.units.Get(ctx, org.ID, unit.ID)
	assert.Equal(t, models.UnitComingSoon, u.Availability)
}

func TestLeaseEndKeepsUnlistedUnitUnlisted(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(false)
	org := env.org("acme")
	unit := env.unit(org.ID, models.UnitUnlisted)
	lease := env.lease(org.ID, &unit.ID, models.LeaseActive)

	_, err := env.leases.Terminate(ctx, org.ID, lease.ID, dtos.TerminateLeaseRequest{Reason: "sold"})
	require.NoError(t, err)

	u, _ := env.units.Get(ctx, org.ID, unit.ID)
	assert.Equal(t, models.UnitUnlisted, u.Availability)
}

func TestRenewalCycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(false)
	org := env.org("acme")
	unit := env.unit(org.ID, models.UnitOccupied)
	lease := env.lease(org.ID, &unit.ID, models.LeaseActive)

	u, err := env.leases.StartRenewal(ctx, org.ID, lease.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UnitRenewalPending, u.Availability)

	_, err = env.leases.Renew(ctx, org.ID, lease.ID, dtos.RenewLeaseRequest{
		NewEndDate: utils.Ptr(dtos.NewDate(day(2025, 6, 30))),
	})
	require.ErrorIs(t, err, utils.ErrValidation, "new end must extend the term")

	renewed, err := env.leases.Renew(ctx, org.ID, lease.ID, dtos.RenewLeaseRequest{
		NewEndDate:    utils.Ptr(dtos.NewDate(day(2026, 12, 31))),
		NewRentAmount: utils.Ptr(money("1575.00")),
	})
	require.NoError(t, err)
	assert.Equal(t, models.LeaseActive, renewed.Status)
	assert.Equal(t, day(2026, 12, 31), *renewed.EndDate)
	assert.True(t, money("1575.00").Equal(renewed.RentAmount))
	assert.NotNil(t, renewed.RenewedAt)

	u, _ = env.units.Get(ctx, org.ID, unit.ID)
	assert.Equal(t, models.UnitOccupied, u.Availability)
}

func TestExpireEndedLeases(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(false)
	org := env.org("acme")
	unit := env.unit(org.ID, models.UnitOccupied)
	ended := env.lease(org.ID, &unit.ID, models.LeaseActive, func(l *models.Lease) {
		l.EndDate = utils.Ptr(day(2025, 3, 1))
	})
	monthToMonth := env.lease(org.ID, nil, models.LeaseActive, func(l *models.Lease) {
		l.EndDate = utils.Ptr(day(2025, 2, 1))
		l.IsMonthToMonth = true
	})
	endsToday := env.lease(org.ID, nil, models.LeaseActive, func(l *models.Lease) {
		l.EndDate = utils.Ptr(day(2025, 3, 7))
	})

	n, err := env.leases.ExpireEndedLeases(ctx, org.ID, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := env.leases.Get(ctx, org.ID, ended.ID)
	assert.Equal(t, models.LeaseExpired, got.Status)
	got, _ = env.leases.Get(ctx, org.ID, monthToMonth.ID)
	assert.Equal(t, models.LeaseActive, got.Status)
	got, _ = env.leases.Get(ctx, org.ID, endsToday.ID)
	assert.Equal(t, models.LeaseActive, got.Status)

	u, _ := env.units.Get(ctx, org.ID, unit.ID)
	assert.Equal(t, models.UnitAvailable, u.Availability)

	n, err = env.leases.ExpireEndedLeases(ctx, org.ID, fixedNow)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEffectiveStatusDerivesExpiring(t *testing.T) {
	env := newTestEnv(false)
	org := env.org("acme")
	l := env.lease(org.ID, nil, models.LeaseActive, func(l *models.Lease) {
		l.EndDate = utils.Ptr(day(2025, 4, 30))
	})
	assert.Equal(t, models.LeaseExpiring, l.EffectiveStatus(fixedNow))
	assert.Equal(t, models.LeaseActive, l.EffectiveStatus(day(2025, 1, 1)))
}
