package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
)

type OrganizationRepository interface {
	Create(ctx context.Context, o *models.Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	ListAll(ctx context.Context) ([]*models.Organization, error)
	CreateBuilding(ctx context.Context, b *models.Building) error
}

type organizationRepo struct {
	db DB
}

func NewOrganizationRepository(db DB) OrganizationRepository {
	return &organizationRepo{db: db}
}

const selectOrganization = `
    SELECT id, name, billing_email, phone_number, time_zone, created_at
    FROM organizations
`

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var o models.Organization
	if err := row.Scan(&o.ID, &o.Name, &o.BillingEmail, &o.PhoneNumber, &o.TimeZone, &o.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *organizationRepo) Create(ctx context.Context, o *models.Organization) error {
	if o.TimeZone == "" {
		o.TimeZone = models.DefaultOrganizationTimeZone
	}
	_, err := r.db.Exec(ctx, `
        INSERT INTO organizations (id, name, billing_email, phone_number, time_zone, created_at)
        VALUES ($1,$2,$3,$4,$5,NOW())
    `, o.ID, o.Name, o.BillingEmail, o.PhoneNumber, o.TimeZone)
	return err
}

func (r *organizationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	return scanOrganization(r.db.QueryRow(ctx, selectOrganization+` WHERE id=$1`, id))
}

func (r *organizationRepo) ListAll(ctx context.Context) ([]*models.Organization, error) {
	rows, err := r.db.Query(ctx, selectOrganization+` ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *organizationRepo) CreateBuilding(ctx context.Context, b *models.Building) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO buildings (id, organization_id, name, address, created_at)
        VALUES ($1,$2,$3,$4,NOW())
    `, b.ID, b.OrganizationID, b.Name, b.Address)
	return err
}
