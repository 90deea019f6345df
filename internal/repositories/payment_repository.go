package repositories

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/shopspring/decimal"

	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
)

// PaymentFilter narrows List. From/To bound the effective date
// (due_date, else the creation date) and are inclusive.
type PaymentFilter struct {
	OrganizationID uuid.UUID
	LeaseID        *uuid.UUID
	Types          []models.PaymentType
	Statuses       []models.PaymentStatus
	From           *time.Time
	To             *time.Time
}

// LateFeeCandidate is an unpaid rent charge joined with its lease's rent.
type LateFeeCandidate struct {
	Payment         *models.Payment
	LeaseRentAmount decimal.Decimal
}

type PaymentRepository interface {
	Create(ctx context.Context, p *models.Payment) error
	// CreateIfNotExists inserts unless a unique key (lease/type/period or
	// late-fee source) already holds a row. created is false on conflict.
	CreateIfNotExists(ctx context.Context, p *models.Payment) (created bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetByProcessorIntentID(ctx context.Context, intentID string) (*models.Payment, error)
	List(ctx context.Context, f PaymentFilter) ([]*models.Payment, error)
	ListLateFeeCandidates(ctx context.Context, orgID uuid.UUID, dueBefore time.Time) ([]*LateFeeCandidate, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Payment) error) error
}

type paymentRepo struct {
	*BaseVersionedRepo[*models.Payment]
	db DB
}

func NewPaymentRepository(db DB) PaymentRepository {
	r := &paymentRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectPayment()+" WHERE id=$1", scanPayment)
	return r
}

/* ---------- create ---------- */

const insertPayment = `
    INSERT INTO payments (
        id, organization_id, lease_id, type, amount, amount_paid, status,
        due_date, paid_at, method, period_key, source_payment_id, notes,
        row_version, created_at, updated_at
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,1,NOW(),NOW())
`

func (r *paymentRepo) insertArgs(p *models.Payment) []any {
	return []any{
		p.ID, p.OrganizationID, p.LeaseID, p.Type, p.Amount, p.AmountPaid, p.Status,
		p.DueDate, p.PaidAt, p.Method, p.PeriodKey, p.SourcePaymentID, p.Notes,
	}
}

func (r *paymentRepo) Create(ctx context.Context, p *models.Payment) error {
	_, err := r.db.Exec(ctx, insertPayment, r.insertArgs(p)...)
	return err
}

func (r *paymentRepo) CreateIfNotExists(ctx context.Context, p *models.Payment) (bool, error) {
	// No conflict target: either partial unique index may be the one hit.
	tag, err := r.db.Exec(ctx, insertPayment+" ON CONFLICT DO NOTHING", r.insertArgs(p)...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

/* ---------- reads ---------- */

func (r *paymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, baseSelectPayment()+" WHERE id=$1", id))
}

func (r *paymentRepo) GetByProcessorIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, baseSelectPayment()+" WHERE processor_intent_id=$1", intentID))
}

func (r *paymentRepo) List(ctx context.Context, f PaymentFilter) ([]*models.Payment, error) {
	var sb strings.Builder
	sb.WriteString(baseSelectPayment())
	sb.WriteString(" WHERE organization_id=$1")
	args := []any{f.OrganizationID}
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.LeaseID != nil {
		sb.WriteString(" AND lease_id=" + next(*f.LeaseID))
	}
	if len(f.Types) > 0 {
		strs := make([]string, len(f.Types))
		for i, t := range f.Types {
			strs[i] = string(t)
		}
		sb.WriteString(" AND type = ANY(" + next(strs) + ")")
	}
	if len(f.Statuses) > 0 {
		strs := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			strs[i] = string(s)
		}
		sb.WriteString(" AND status = ANY(" + next(strs) + ")")
	}
	if f.From != nil {
		sb.WriteString(" AND COALESCE(due_date, created_at::date) >= " + next(*f.From) + "::date")
	}
	if f.To != nil {
		sb.WriteString(" AND COALESCE(due_date, created_at::date) <= " + next(*f.To) + "::date")
	}
	sb.WriteString(" ORDER BY COALESCE(due_date, created_at::date), created_at, id")

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *paymentRepo) ListLateFeeCandidates(
	ctx context.Context,
	orgID uuid.UUID,
	dueBefore time.Time,
) ([]*LateFeeCandidate, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+paymentColumns("p.")+`, l.rent_amount
        FROM payments p
        JOIN leases l ON l.id = p.lease_id
        WHERE p.organization_id=$1
          AND p.type='rent'
          AND p.status = ANY($2)
          AND p.due_date < $3::date
          AND NOT EXISTS (
              SELECT 1 FROM payments f
              WHERE f.type='late_fee' AND f.source_payment_id = p.id
          )
        ORDER BY p.due_date, p.id
    `, orgID, []string{
		string(models.PaymentPending),
		string(models.PaymentPartiallyPaid),
		string(models.PaymentFailed),
	}, dueBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*LateFeeCandidate
	for rows.Next() {
		var c LateFeeCandidate
		p, err := scanPaymentWith(rows, &c.LeaseRentAmount)
		if err != nil {
			return nil, err
		}
		c.Payment = p
		out = append(out, &c)
	}
	return out, rows.Err()
}

/* ---------- updates ---------- */

func (r *paymentRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Payment) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id.String(), mutate, r.updateIfVersion)
}

// updateIfVersion writes every mutable column in one statement so a
// settlement's fee split lands atomically with its status.
func (r *paymentRepo) updateIfVersion(ctx context.Context, p *models.Payment, expected int64) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, `
        UPDATE payments SET
            amount_paid=$1,
            status=$2,
            paid_at=$3,
            method=$4,
            processor_intent_id=$5,
            processor_charge_id=$6,
            processor_fee=$7,
            platform_fee=$8,
            net_amount=$9,
            refunded_amount=$10,
            failure_reason=$11,
            notes=$12,
            cancelled_at=$13,
            updated_at=NOW(),
            row_version=row_version+1
        WHERE id=$14 AND row_version=$15
    `,
		p.AmountPaid, p.Status, p.PaidAt, p.Method,
		p.ProcessorIntentID, p.ProcessorChargeID,
		nullDecimal(p.ProcessorFee), nullDecimal(p.PlatformFee), nullDecimal(p.NetAmount),
		p.RefundedAmount, p.FailureReason, p.Notes, p.CancelledAt,
		p.ID, expected,
	)
}

/* ---------- helpers ---------- */

func paymentColumns(prefix string) string {
	cols := []string{
		"id", "organization_id", "lease_id", "type", "amount", "amount_paid", "status",
		"due_date", "paid_at", "method", "period_key", "source_payment_id",
		"processor_intent_id", "processor_charge_id", "processor_fee", "platform_fee", "net_amount",
		"refunded_amount", "failure_reason", "notes", "cancelled_at",
		"row_version", "created_at", "updated_at",
	}
	for i, c := range cols {
		cols[i] = prefix + c
	}
	return strings.Join(cols, ", ")
}

func baseSelectPayment() string {
	return "SELECT " + paymentColumns("") + " FROM payments"
}

func scanPayment(row pgx.Row) (*models.Payment, error) {
	p, err := scanPaymentWith(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func scanPaymentWith(row pgx.Row, extra ...any) (*models.Payment, error) {
	var p models.Payment
	var procFee, platFee, net decimal.NullDecimal
	dest := []any{
		&p.ID, &p.OrganizationID, &p.LeaseID, &p.Type, &p.Amount, &p.AmountPaid, &p.Status,
		&p.DueDate, &p.PaidAt, &p.Method, &p.PeriodKey, &p.SourcePaymentID,
		&p.ProcessorIntentID, &p.ProcessorChargeID, &procFee, &platFee, &net,
		&p.RefundedAmount, &p.FailureReason, &p.Notes, &p.CancelledAt,
		&p.RowVersion, &p.CreatedAt, &p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	p.ProcessorFee = decimalPtr(procFee)
	p.PlatformFee = decimalPtr(platFee)
	p.NetAmount = decimalPtr(net)
	return &p, nil
}
