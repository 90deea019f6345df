package repositories

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

const (
	pgUniqueViolation     = "23505"
	leaseActivePerUnitIdx = "leases_one_active_per_unit"
)

type LeaseRepository interface {
	Create(ctx context.Context, l *models.Lease) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Lease, error)
	// List filters by organization and optionally by status and unit.
	List(ctx context.Context, orgID uuid.UUID, statuses []models.LeaseStatus, unitID *uuid.UUID) ([]*models.Lease, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Lease) error) error

	AddTenant(ctx context.Context, leaseID, tenantID uuid.UUID, role models.TenantRole) error
	RemoveTenant(ctx context.Context, leaseID, tenantID uuid.UUID) error
	ListTenants(ctx context.Context, leaseID uuid.UUID) ([]*models.LeaseTenant, error)
}

type leaseRepo struct {
	*BaseVersionedRepo[*models.Lease]
	db DB
}

func NewLeaseRepository(db DB) LeaseRepository {
	r := &leaseRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectLease()+" WHERE id=$1", scanLease)
	return r
}

/* ---------- create ---------- */

func (r *leaseRepo) Create(ctx context.Context, l *models.Lease) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO leases (
            id, organization_id, unit_id, status,
            rent_amount, deposit_amount, billing_day, billing_frequency,
            is_month_to_month, start_date, end_date, notice_period_days,
            row_version, created_at, updated_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,1,NOW(),NOW())
    `,
		l.ID, l.OrganizationID, l.UnitID, l.Status,
		l.RentAmount, l.DepositAmount, l.BillingDay, l.BillingFrequency,
		l.IsMonthToMonth, l.StartDate, l.EndDate, l.NoticePeriodDays,
	)
	return activeLeaseConflict(l, err)
}

/* ---------- reads ---------- */

func (r *leaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Lease, error) {
	return scanLease(r.db.QueryRow(ctx, baseSelectLease()+" WHERE id=$1", id))
}

func (r *leaseRepo) List(
	ctx context.Context,
	orgID uuid.UUID,
	statuses []models.LeaseStatus,
	unitID *uuid.UUID,
) ([]*models.Lease, error) {
	var sb strings.Builder
	sb.WriteString(baseSelectLease())
	sb.WriteString(" WHERE organization_id=$1")
	args := []any{orgID}
	idx := 2

	if len(statuses) > 0 {
		strs := make([]string, len(statuses))
		for i, s := range statuses {
			strs[i] = string(s)
		}
		sb.WriteString(" AND status = ANY($" + strconv.Itoa(idx) + ")")
		args = append(args, strs)
		idx++
	}
	if unitID != nil {
		sb.WriteString(" AND unit_id=$" + strconv.Itoa(idx))
		args = append(args, *unitID)
	}
	sb.WriteString(" ORDER BY start_date NULLS LAST, id")

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Lease
	for rows.Next() {
		l, err := scanLease(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

/* ---------- updates ---------- */

func (r *leaseRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Lease) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id.String(), mutate, r.updateIfVersion)
}

func (r *leaseRepo) updateIfVersion(ctx context.Context, l *models.Lease, expected int64) (pgconn.CommandTag, error) {
	tag, err := r.db.Exec(ctx, `
        UPDATE leases SET
            unit_id=$1,
            status=$2,
            rent_amount=$3,
            deposit_amount=$4,
            billing_day=$5,
            billing_frequency=$6,
            is_month_to_month=$7,
            start_date=$8,
            end_date=$9,
            notice_period_days=$10,
            termination_reason=$11,
            terminated_at=$12,
            renewed_at=$13,
            updated_at=NOW(),
            row_version=row_version+1
        WHERE id=$14 AND row_version=$15
    `,
		l.UnitID, l.Status, l.RentAmount, l.DepositAmount, l.BillingDay, l.BillingFrequency,
		l.IsMonthToMonth, l.StartDate, l.EndDate, l.NoticePeriodDays,
		l.TerminationReason, l.TerminatedAt, l.RenewedAt,
		l.ID, expected,
	)
	return tag, activeLeaseConflict(l, err)
}

// activeLeaseConflict turns a hit on the one-active-lease-per-unit index into
// a precondition failure. Other errors pass through untouched.
func activeLeaseConflict(l *models.Lease, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == leaseActivePerUnitIdx {
		return utils.PreconditionFailedf("unit %s already has an active lease", unitLabel(l))
	}
	return err
}

func unitLabel(l *models.Lease) string {
	if l.UnitID == nil {
		return "<none>"
	}
	return l.UnitID.String()
}

/* ---------- roster ---------- */

func (r *leaseRepo) AddTenant(ctx context.Context, leaseID, tenantID uuid.UUID, role models.TenantRole) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO lease_tenants (lease_id, tenant_id, role, created_at)
        VALUES ($1,$2,$3,NOW())
        ON CONFLICT (lease_id, tenant_id) DO UPDATE SET role = EXCLUDED.role
    `, leaseID, tenantID, role)
	return err
}

func (r *leaseRepo) RemoveTenant(ctx context.Context, leaseID, tenantID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM lease_tenants WHERE lease_id=$1 AND tenant_id=$2`, leaseID, tenantID)
	return err
}

func (r *leaseRepo) ListTenants(ctx context.Context, leaseID uuid.UUID) ([]*models.LeaseTenant, error) {
	rows, err := r.db.Query(ctx, `
        SELECT lt.lease_id, lt.role,
               t.id, t.organization_id, t.name, t.email, t.phone_number, t.created_at
        FROM lease_tenants lt
        JOIN tenants t ON t.id = lt.tenant_id
        WHERE lt.lease_id=$1
        ORDER BY CASE lt.role WHEN 'primary' THEN 0 WHEN 'co_tenant' THEN 1 ELSE 2 END, t.name
    `, leaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.LeaseTenant
	for rows.Next() {
		var lt models.LeaseTenant
		if err := rows.Scan(
			&lt.LeaseID, &lt.Role,
			&lt.Tenant.ID, &lt.Tenant.OrganizationID, &lt.Tenant.Name,
			&lt.Tenant.Email, &lt.Tenant.PhoneNumber, &lt.Tenant.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &lt)
	}
	return out, rows.Err()
}

/* ---------- helpers ---------- */

func baseSelectLease() string {
	return `
        SELECT id, organization_id, unit_id, status,
               rent_amount, deposit_amount, billing_day, billing_frequency,
               is_month_to_month, start_date, end_date, notice_period_days,
               termination_reason, terminated_at, renewed_at,
               row_version, created_at, updated_at
        FROM leases
    `
}

func scanLease(row pgx.Row) (*models.Lease, error) {
	var l models.Lease
	err := row.Scan(
		&l.ID, &l.OrganizationID, &l.UnitID, &l.Status,
		&l.RentAmount, &l.DepositAmount, &l.BillingDay, &l.BillingFrequency,
		&l.IsMonthToMonth, &l.StartDate, &l.EndDate, &l.NoticePeriodDays,
		&l.TerminationReason, &l.TerminatedAt, &l.RenewedAt,
		&l.RowVersion, &l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}
