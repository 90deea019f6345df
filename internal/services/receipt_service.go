package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Developmizer/Rental-Gates-sub002/internal/constants"
	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
	"github.com/Developmizer/Rental-Gates-sub002/internal/repositories"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

type ReceiptService struct {
	receiptRepo repositories.ReceiptRepository
	payments    *PaymentService
	now         func() time.Time
}

func NewReceiptService(receiptRepo repositories.ReceiptRepository, payments *PaymentService) *ReceiptService {
	return &ReceiptService{receiptRepo: receiptRepo, payments: payments, now: time.Now}
}

// IssueReceipt returns the receipt for a succeeded payment, creating it on
// first request. Repeated calls return the same receipt.
func (s *ReceiptService) IssueReceipt(ctx context.Context, orgID, paymentID uuid.UUID) (*models.Receipt, error) {
	p, err := s.payments.Get(ctx, orgID, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PaymentSucceeded {
		return nil, utils.PreconditionFailedf("payment %s is %s; receipts are issued for succeeded payments only", p.ID, p.Status)
	}

	issuedAt := s.now().UTC()
	rc, err := s.receiptRepo.CreateIfNotExists(ctx, &models.Receipt{
		ID:             uuid.New(),
		OrganizationID: orgID,
		PaymentID:      p.ID,
		ReceiptNumber:  receiptNumber(p, issuedAt),
		Amount:         p.AmountPaid,
		IssuedAt:       issuedAt,
	})
	if err != nil {
		return nil, storeErr("issue receipt", err)
	}
	return rc, nil
}

// receiptNumber is derived from the payment so a retried insert carries the
// same number.
func receiptNumber(p *models.Payment, issuedAt time.Time) string {
	when := issuedAt
	if p.PaidAt != nil {
		when = *p.PaidAt
	}
	short := strings.ToUpper(strings.ReplaceAll(p.ID.String(), "-", "")[:10])
	return fmt.Sprintf("%s-%s-%s", constants.ReceiptNumberPrefix, when.Format("200601"), short)
}
