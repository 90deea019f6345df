package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
)

type ReceiptRepository interface {
	// CreateIfNotExists keeps receipts 1:1 with payments and returns the
	// stored receipt, whether it was just written or already there.
	CreateIfNotExists(ctx context.Context, rc *models.Receipt) (*models.Receipt, error)
	GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*models.Receipt, error)
}

type receiptRepo struct {
	db DB
}

func NewReceiptRepository(db DB) ReceiptRepository {
	return &receiptRepo{db: db}
}

func (r *receiptRepo) CreateIfNotExists(ctx context.Context, rc *models.Receipt) (*models.Receipt, error) {
	_, err := r.db.Exec(ctx, `
        INSERT INTO receipts (id, organization_id, payment_id, receipt_number, amount, issued_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (payment_id) DO NOTHING
    `, rc.ID, rc.OrganizationID, rc.PaymentID, rc.ReceiptNumber, rc.Amount, rc.IssuedAt)
	if err != nil {
		return nil, err
	}
	return r.GetByPaymentID(ctx, rc.PaymentID)
}

func (r *receiptRepo) GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*models.Receipt, error) {
	var rc models.Receipt
	err := r.db.QueryRow(ctx, `
        SELECT id, organization_id, payment_id, receipt_number, amount, issued_at
        FROM receipts WHERE payment_id=$1
    `, paymentID).Scan(&rc.ID, &rc.OrganizationID, &rc.PaymentID, &rc.ReceiptNumber, &rc.Amount, &rc.IssuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rc, nil
}
