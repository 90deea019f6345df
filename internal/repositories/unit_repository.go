package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
)

type UnitRepository interface {
	Create(ctx context.Context, u *models.Unit) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Unit, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Unit, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Unit) error) error
}

type unitRepo struct {
	*BaseVersionedRepo[*models.Unit]
	db DB
}

func NewUnitRepository(db DB) UnitRepository {
	r := &unitRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectUnit()+" WHERE id=$1", scanUnit)
	return r
}

/* ---------- create ---------- */

func (r *unitRepo) Create(ctx context.Context, u *models.Unit) error {
	if u.Availability == "" {
		u.Availability = models.UnitAvailable
	}
	_, err := r.db.Exec(ctx, `
        INSERT INTO units (
            id, organization_id, building_id, unit_number, availability,
            rent_amount, deposit_amount, row_version, created_at, updated_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,1,NOW(),NOW())
    `,
		u.ID, u.OrganizationID, u.BuildingID, u.UnitNumber, u.Availability,
		u.RentAmount, u.DepositAmount,
	)
	return err
}

/* ---------- reads ---------- */

func (r *unitRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	return scanUnit(r.db.QueryRow(ctx, baseSelectUnit()+" WHERE id=$1", id))
}

func (r *unitRepo) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Unit, error) {
	rows, err := r.db.Query(ctx, baseSelectUnit()+" WHERE organization_id=$1 ORDER BY unit_number", orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

/* ---------- updates ---------- */

func (r *unitRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Unit) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id.String(), mutate, r.updateIfVersion)
}

func (r *unitRepo) updateIfVersion(ctx context.Context, u *models.Unit, expected int64) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, `
        UPDATE units SET
            availability=$1,
            rent_amount=$2,
            deposit_amount=$3,
            updated_at=NOW(),
            row_version=row_version+1
        WHERE id=$4 AND row_version=$5
    `, u.Availability, u.RentAmount, u.DepositAmount, u.ID, expected)
}

/* ---------- helpers ---------- */

func baseSelectUnit() string {
	return `
        SELECT id, organization_id, building_id, unit_number, availability,
               rent_amount, deposit_amount, row_version, created_at, updated_at
        FROM units
    `
}

func scanUnit(row pgx.Row) (*models.Unit, error) {
	var u models.Unit
	err := row.Scan(
		&u.ID, &u.OrganizationID, &u.BuildingID, &u.UnitNumber, &u.Availability,
		&u.RentAmount, &u.DepositAmount, &u.RowVersion, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
