package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
)

type TenantRepository interface {
	Create(ctx context.Context, t *models.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

type tenantRepo struct {
	db DB
}

func NewTenantRepository(db DB) TenantRepository {
	return &tenantRepo{db: db}
}

func (r *tenantRepo) Create(ctx context.Context, t *models.Tenant) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO tenants (id, organization_id, name, email, phone_number, created_at)
        VALUES ($1,$2,$3,$4,$5,NOW())
    `, t.ID, t.OrganizationID, t.Name, t.Email, t.PhoneNumber)
	return err
}

func (r *tenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var t models.Tenant
	err := r.db.QueryRow(ctx, `
        SELECT id, organization_id, name, email, phone_number, created_at
        FROM tenants WHERE id=$1
    `, id).Scan(&t.ID, &t.OrganizationID, &t.Name, &t.Email, &t.PhoneNumber, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
