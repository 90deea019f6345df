package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/shopspring/decimal"

	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
	"github.com/Developmizer/Rental-Gates-sub002/internal/repositories"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

// memStore backs every fake repository. It copies rows in and out and
// enforces the same unique keys as the SQL schema.
type memStore struct {
	mu           sync.Mutex
	orgs         map[uuid.UUID]models.Organization
	settings     map[uuid.UUID]models.AutomationSettings
	units        map[uuid.UUID]models.Unit
	tenants      map[uuid.UUID]models.Tenant
	leases       map[uuid.UUID]models.Lease
	leaseTenants map[uuid.UUID]map[uuid.UUID]models.TenantRole
	payments     map[uuid.UUID]models.Payment
	receipts     map[uuid.UUID]models.Receipt
	seq          int

	// failLeaseList makes lease listing fail for the given organizations.
	failLeaseList map[uuid.UUID]error
	// failUnitUpdate makes every unit write fail while set.
	failUnitUpdate error
	// beforeLeaseWrite runs ahead of each versioned lease write, outside the
	// lock, so a test can land a competing write in between.
	beforeLeaseWrite func(l models.Lease)
}

func newMemStore() *memStore {
	return &memStore{
		orgs:          map[uuid.UUID]models.Organization{},
		settings:      map[uuid.UUID]models.AutomationSettings{},
		units:         map[uuid.UUID]models.Unit{},
		tenants:       map[uuid.UUID]models.Tenant{},
		leases:        map[uuid.UUID]models.Lease{},
		leaseTenants:  map[uuid.UUID]map[uuid.UUID]models.TenantRole{},
		payments:      map[uuid.UUID]models.Payment{},
		receipts:      map[uuid.UUID]models.Receipt{},
		failLeaseList: map[uuid.UUID]error{},
	}
}

var errUniqueViolation = errors.New("duplicate key value violates unique constraint")

// activeLeaseTaken mirrors the partial unique index on active leases.
func (m *memStore) activeLeaseTaken(l models.Lease) error {
	if l.Status != models.LeaseActive || l.UnitID == nil {
		return nil
	}
	for _, other := range m.leases {
		if other.ID != l.ID && other.Status == models.LeaseActive &&
			other.UnitID != nil && *other.UnitID == *l.UnitID {
			return utils.PreconditionFailedf("unit %s already has an active lease", *l.UnitID)
		}
	}
	return nil
}

func updated(n int64) pgconn.CommandTag {
	return pgconn.CommandTag(fmt.Sprintf("UPDATE %d", n))
}

// creation timestamps advance so ordering is stable
func (m *memStore) tick() time.Time {
	m.seq++
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.seq) * time.Second)
}

/* ---------- organizations ---------- */

type fakeOrgRepo struct{ m *memStore }

func (r fakeOrgRepo) Create(_ context.Context, o *models.Organization) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	o.CreatedAt = r.m.tick()
	r.m.orgs[o.ID] = *o
	return nil
}

func (r fakeOrgRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Organization, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	o, ok := r.m.orgs[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r fakeOrgRepo) ListAll(_ context.Context) ([]*models.Organization, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Organization
	for _, o := range r.m.orgs {
		o := o
		out = append(out, &o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r fakeOrgRepo) CreateBuilding(_ context.Context, _ *models.Building) error { return nil }

/* ---------- settings ---------- */

type fakeSettingsRepo struct{ m *memStore }

func (r fakeSettingsRepo) GetByOrganizationID(_ context.Context, orgID uuid.UUID) (*models.AutomationSettings, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.settings[orgID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r fakeSettingsRepo) Upsert(_ context.Context, s *models.AutomationSettings) (*models.AutomationSettings, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *s
	cp.RowVersion = r.m.settings[s.OrganizationID].RowVersion + 1
	cp.UpdatedAt = r.m.tick()
	r.m.settings[s.OrganizationID] = cp
	return &cp, nil
}

/* ---------- units ---------- */

type fakeUnitRepo struct{ m *memStore }

func (r fakeUnitRepo) Create(_ context.Context, u *models.Unit) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u.RowVersion = 1
	r.m.units[u.ID] = *u
	return nil
}

func (r fakeUnitRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Unit, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.units[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r fakeUnitRepo) ListByOrganization(_ context.Context, orgID uuid.UUID) ([]*models.Unit, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Unit
	for _, u := range r.m.units {
		if u.OrganizationID == orgID {
			u := u
			out = append(out, &u)
		}
	}
	return out, nil
}

func (r fakeUnitRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Unit) error) error {
	get := func(ctx context.Context, _ string) (*models.Unit, error) { return r.GetByID(ctx, id) }
	put := func(_ context.Context, u *models.Unit, expected int64) (pgconn.CommandTag, error) {
		r.m.mu.Lock()
		defer r.m.mu.Unlock()
		if r.m.failUnitUpdate != nil {
			return nil, r.m.failUnitUpdate
		}
		if r.m.units[u.ID].RowVersion != expected {
			return updated(0), nil
		}
		cp := *u
		cp.RowVersion = expected + 1
		r.m.units[u.ID] = cp
		return updated(1), nil
	}
	return repositories.WithRetry[*models.Unit](ctx, 3, id.String(), get, put, mutate)
}

/* ---------- tenants ---------- */

type fakeTenantRepo struct{ m *memStore }

func (r fakeTenantRepo) Create(_ context.Context, t *models.Tenant) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.tenants[t.ID] = *t
	return nil
}

func (r fakeTenantRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.tenants[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

/* ---------- leases ---------- */

type fakeLeaseRepo struct{ m *memStore }

func (r fakeLeaseRepo) Create(_ context.Context, l *models.Lease) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.activeLeaseTaken(*l); err != nil {
		return err
	}
	cp := *l
	cp.RowVersion = 1
	cp.CreatedAt = r.m.tick()
	r.m.leases[l.ID] = cp
	return nil
}

func (r fakeLeaseRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Lease, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	l, ok := r.m.leases[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (r fakeLeaseRepo) List(
	_ context.Context,
	orgID uuid.UUID,
	statuses []models.LeaseStatus,
	unitID *uuid.UUID,
) ([]*models.Lease, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failLeaseList[orgID]; err != nil {
		return nil, err
	}
	var out []*models.Lease
	for _, l := range r.m.leases {
		if l.OrganizationID != orgID {
			continue
		}
		if len(statuses) > 0 && !containsStatus(statuses, l.Status) {
			continue
		}
		if unitID != nil && (l.UnitID == nil || *l.UnitID != *unitID) {
			continue
		}
		l := l
		out = append(out, &l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func containsStatus[S comparable](list []S, s S) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (r fakeLeaseRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Lease) error) error {
	get := func(ctx context.Context, _ string) (*models.Lease, error) { return r.GetByID(ctx, id) }
	put := func(_ context.Context, l *models.Lease, expected int64) (pgconn.CommandTag, error) {
		if hook := r.m.beforeLeaseWrite; hook != nil {
			hook(*l)
		}
		r.m.mu.Lock()
		defer r.m.mu.Unlock()
		if r.m.leases[l.ID].RowVersion != expected {
			return updated(0), nil
		}
		if err := r.m.activeLeaseTaken(*l); err != nil {
			return nil, err
		}
		cp := *l
		cp.RowVersion = expected + 1
		r.m.leases[l.ID] = cp
		return updated(1), nil
	}
	return repositories.WithRetry[*models.Lease](ctx, 3, id.String(), get, put, mutate)
}

func (r fakeLeaseRepo) AddTenant(_ context.Context, leaseID, tenantID uuid.UUID, role models.TenantRole) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.leaseTenants[leaseID] == nil {
		r.m.leaseTenants[leaseID] = map[uuid.UUID]models.TenantRole{}
	}
	r.m.leaseTenants[leaseID][tenantID] = role
	return nil
}

func (r fakeLeaseRepo) RemoveTenant(_ context.Context, leaseID, tenantID uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.leaseTenants[leaseID], tenantID)
	return nil
}

func (r fakeLeaseRepo) ListTenants(_ context.Context, leaseID uuid.UUID) ([]*models.LeaseTenant, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.LeaseTenant
	for tid, role := range r.m.leaseTenants[leaseID] {
		out = append(out, &models.LeaseTenant{LeaseID: leaseID, Tenant: r.m.tenants[tid], Role: role})
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i].Role == models.TenantRolePrimary) != (out[j].Role == models.TenantRolePrimary) {
			return out[i].Role == models.TenantRolePrimary
		}
		return out[i].Tenant.Name < out[j].Tenant.Name
	})
	return out, nil
}

/* ---------- payments ---------- */

type fakePaymentRepo struct {
	m *memStore

	// beforeUpdate runs between the read and the write of an update, once.
	beforeUpdate func()
}

// conflicts mirrors payments_generated_key_uidx and payments_late_fee_source_uidx.
func (m *memStore) conflicts(p *models.Payment) bool {
	for _, other := range m.payments {
		if p.PeriodKey != nil && other.PeriodKey != nil &&
			other.LeaseID == p.LeaseID && other.Type == p.Type && *other.PeriodKey == *p.PeriodKey {
			return true
		}
		if p.Type == models.PaymentLateFee && other.Type == models.PaymentLateFee &&
			p.SourcePaymentID != nil && other.SourcePaymentID != nil &&
			*p.SourcePaymentID == *other.SourcePaymentID {
			return true
		}
	}
	return false
}

func (r *fakePaymentRepo) insert(p *models.Payment) bool {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.conflicts(p) {
		return false
	}
	cp := *p
	cp.RowVersion = 1
	cp.CreatedAt = r.m.tick()
	p.CreatedAt = cp.CreatedAt
	r.m.payments[p.ID] = cp
	return true
}

func (r *fakePaymentRepo) Create(_ context.Context, p *models.Payment) error {
	if !r.insert(p) {
		return errUniqueViolation
	}
	return nil
}

func (r *fakePaymentRepo) CreateIfNotExists(_ context.Context, p *models.Payment) (bool, error) {
	return r.insert(p), nil
}

func (r *fakePaymentRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *fakePaymentRepo) GetByProcessorIntentID(_ context.Context, intentID string) (*models.Payment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.payments {
		if p.ProcessorIntentID != nil && *p.ProcessorIntentID == intentID {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *fakePaymentRepo) List(_ context.Context, f repositories.PaymentFilter) ([]*models.Payment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Payment
	for _, p := range r.m.payments {
		if p.OrganizationID != f.OrganizationID {
			continue
		}
		if f.LeaseID != nil && p.LeaseID != *f.LeaseID {
			continue
		}
		if len(f.Types) > 0 && !containsStatus(f.Types, p.Type) {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, p.Status) {
			continue
		}
		eff := utils.DateOnly(p.EffectiveDate())
		if f.From != nil && eff.Before(utils.DateOnly(*f.From)) {
			continue
		}
		if f.To != nil && eff.After(utils.DateOnly(*f.To)) {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		ei, ej := out[i].EffectiveDate(), out[j].EffectiveDate()
		if !ei.Equal(ej) {
			return ei.Before(ej)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *fakePaymentRepo) ListLateFeeCandidates(
	_ context.Context,
	orgID uuid.UUID,
	dueBefore time.Time,
) ([]*repositories.LateFeeCandidate, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	hasFee := map[uuid.UUID]bool{}
	for _, p := range r.m.payments {
		if p.Type == models.PaymentLateFee && p.SourcePaymentID != nil {
			hasFee[*p.SourcePaymentID] = true
		}
	}
	var out []*repositories.LateFeeCandidate
	for _, p := range r.m.payments {
		if p.OrganizationID != orgID || p.Type != models.PaymentRent || !p.IsOpen() ||
			p.DueDate == nil || !p.DueDate.Before(dueBefore) || hasFee[p.ID] {
			continue
		}
		p := p
		out = append(out, &repositories.LateFeeCandidate{
			Payment:         &p,
			LeaseRentAmount: r.m.leases[p.LeaseID].RentAmount,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Payment.DueDate.Before(*out[j].Payment.DueDate) })
	return out, nil
}

func (r *fakePaymentRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Payment) error) error {
	get := func(ctx context.Context, _ string) (*models.Payment, error) {
		p, err := r.GetByID(ctx, id)
		if hook := r.beforeUpdate; hook != nil {
			r.beforeUpdate = nil
			hook()
		}
		return p, err
	}
	put := func(_ context.Context, p *models.Payment, expected int64) (pgconn.CommandTag, error) {
		r.m.mu.Lock()
		defer r.m.mu.Unlock()
		if r.m.payments[p.ID].RowVersion != expected {
			return updated(0), nil
		}
		cp := *p
		cp.RowVersion = expected + 1
		r.m.payments[p.ID] = cp
		return updated(1), nil
	}
	return repositories.WithRetry[*models.Payment](ctx, 3, id.String(), get, put, mutate)
}

/* ---------- receipts ---------- */

type fakeReceiptRepo struct{ m *memStore }

func (r fakeReceiptRepo) CreateIfNotExists(_ context.Context, rc *models.Receipt) (*models.Receipt, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if existing, ok := r.m.receipts[rc.PaymentID]; ok {
		return &existing, nil
	}
	r.m.receipts[rc.PaymentID] = *rc
	cp := *rc
	return &cp, nil
}

func (r fakeReceiptRepo) GetByPaymentID(_ context.Context, paymentID uuid.UUID) (*models.Receipt, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rc, ok := r.m.receipts[paymentID]
	if !ok {
		return nil, nil
	}
	return &rc, nil
}

/* ---------- notifier ---------- */

type sentNotification struct {
	OrgID    uuid.UUID
	Template string
	Payload  NotificationPayload
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, orgID uuid.UUID, template string, payload NotificationPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotification{OrgID: orgID, Template: template, Payload: payload})
	return nil
}

func (n *recordingNotifier) byTemplate(template string) []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentNotification
	for _, s := range n.sent {
		if s.Template == template {
			out = append(out, s)
		}
	}
	return out
}

/* ---------- wiring ---------- */

type testEnv struct {
	store       *memStore
	notifier    *recordingNotifier
	paymentRepo *fakePaymentRepo

	units       *UnitAvailabilityService
	payments    *PaymentService
	leases      *LeaseService
	charges     *ChargeGeneratorService
	settings    *AutomationSettingsService
	automations *AutomationService
	stats       *StatsService
	receipts    *ReceiptService
	scheduler   *SchedulerService
}

var fixedNow = time.Date(2025, 3, 7, 15, 0, 0, 0, time.UTC)

func newTestEnv(requirePrimaryTenant bool) *testEnv {
	m := newMemStore()
	env := &testEnv{store: m, notifier: &recordingNotifier{}, paymentRepo: &fakePaymentRepo{m: m}}

	leaseRepo := fakeLeaseRepo{m: m}
	env.units = NewUnitAvailabilityService(fakeUnitRepo{m: m}, leaseRepo)
	env.payments = NewPaymentService(env.paymentRepo, leaseRepo)
	env.payments.now = func() time.Time { return fixedNow }
	env.leases = NewLeaseService(leaseRepo, fakeTenantRepo{m: m}, env.units, env.payments, requirePrimaryTenant)
	env.leases.now = func() time.Time { return fixedNow }
	env.charges = NewChargeGeneratorService(leaseRepo, env.paymentRepo)
	env.settings = NewAutomationSettingsService(fakeSettingsRepo{m: m})
	env.automations = NewAutomationService(
		fakeOrgRepo{m: m}, fakeSettingsRepo{m: m}, leaseRepo, env.paymentRepo,
		env.leases, env.charges, env.notifier,
	)
	env.stats = NewStatsService(env.paymentRepo)
	env.receipts = NewReceiptService(fakeReceiptRepo{m: m}, env.payments)
	env.receipts.now = func() time.Time { return fixedNow }
	env.scheduler = NewSchedulerService(fakeOrgRepo{m: m}, env.charges, env.automations)
	return env
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, mo time.Month, d int) time.Time { return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC) }

func (e *testEnv) org(name string) *models.Organization {
	o := &models.Organization{
		ID:           uuid.New(),
		Name:         name,
		BillingEmail: "billing@" + name + ".test",
		TimeZone:     "UTC",
	}
	_ = fakeOrgRepo{m: e.store}.Create(context.Background(), o)
	return o
}

func (e *testEnv) unit(orgID uuid.UUID, availability models.UnitAvailability) *models.Unit {
	u := &models.Unit{
		ID:             uuid.New(),
		OrganizationID: orgID,
		BuildingID:     uuid.New(),
		UnitNumber:     "101",
		Availability:   availability,
		RentAmount:     money("1500.00"),
		DepositAmount:  money("1500.00"),
	}
	_ = fakeUnitRepo{m: e.store}.Create(context.Background(), u)
	return u
}

func (e *testEnv) tenant(orgID uuid.UUID, name string) *models.Tenant {
	t := &models.Tenant{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           name,
		Email:          utils.Ptr(name + "@example.test"),
	}
	_ = fakeTenantRepo{m: e.store}.Create(context.Background(), t)
	return t
}

// lease stores a lease directly, bypassing the draft workflow.
func (e *testEnv) lease(orgID uuid.UUID, unitID *uuid.UUID, status models.LeaseStatus, mutate ...func(*models.Lease)) *models.Lease {
	l := &models.Lease{
		ID:               uuid.New(),
		OrganizationID:   orgID,
		UnitID:           unitID,
		Status:           status,
		RentAmount:       money("1500.00"),
		DepositAmount:    money("1500.00"),
		BillingDay:       1,
		BillingFrequency: models.BillingMonthly,
		StartDate:        utils.Ptr(day(2025, 1, 1)),
		EndDate:          utils.Ptr(day(2025, 12, 31)),
	}
	for _, fn := range mutate {
		fn(l)
	}
	_ = fakeLeaseRepo{m: e.store}.Create(context.Background(), l)
	return l
}

func (e *testEnv) addTenant(leaseID uuid.UUID, t *models.Tenant, role models.TenantRole) {
	_ = fakeLeaseRepo{m: e.store}.AddTenant(context.Background(), leaseID, t.ID, role)
}

func (e *testEnv) enableAutomation(orgID uuid.UUID, mutate func(*models.AutomationSettings)) {
	s := models.DefaultAutomationSettings(orgID)
	s.Enabled = true
	if mutate != nil {
		mutate(s)
	}
	_, _ = fakeSettingsRepo{m: e.store}.Upsert(context.Background(), s)
}

func (e *testEnv) storedPayments(orgID uuid.UUID, typ models.PaymentType) []*models.Payment {
	out, _ := e.paymentRepo.List(context.Background(), repositories.PaymentFilter{
		OrganizationID: orgID,
		Types:          []models.PaymentType{typ},
	})
	return out
}
