package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
	"github.com/Developmizer/Rental-Gates-sub002/internal/repositories"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

// StatsService is read-only. Every figure is summed from the payment rows
// as they stand, so nothing can drift from the state machine.
type StatsService struct {
	paymentRepo repositories.PaymentRepository
}

func NewStatsService(paymentRepo repositories.PaymentRepository) *StatsService {
	return &StatsService{paymentRepo: paymentRepo}
}

func (s *StatsService) GetStats(
	ctx context.Context,
	orgID uuid.UUID,
	from, to, asOf time.Time,
) (*models.PaymentStats, error) {
	from, to = utils.DateOnly(from), utils.DateOnly(to)
	if to.Before(from) {
		return nil, utils.ValidationErrorf("range end %s is before start %s",
			to.Format(time.DateOnly), from.Format(time.DateOnly))
	}

	payments, err := s.paymentRepo.List(ctx, repositories.PaymentFilter{
		OrganizationID: orgID,
		From:           &from,
		To:             &to,
	})
	if err != nil {
		return nil, storeErr("list payments for stats", err)
	}
	return summarizePayments(orgID, from, to, asOf, payments), nil
}

func summarizePayments(orgID uuid.UUID, from, to, asOf time.Time, payments []*models.Payment) *models.PaymentStats {
	st := &models.PaymentStats{
		OrganizationID: orgID,
		From:           from,
		To:             to,
		AsOf:           asOf,
		Collected:      decimal.Zero,
		Pending:        decimal.Zero,
		Overdue:        decimal.Zero,
		Refunded:       decimal.Zero,
		PlatformFees:   decimal.Zero,
		CountByStatus:  map[models.PaymentStatus]int{},
	}
	for _, p := range payments {
		st.TotalCount++
		st.CountByStatus[p.Status]++
		st.Collected = st.Collected.Add(p.AmountPaid)
		st.Refunded = st.Refunded.Add(p.RefundedAmount)
		if p.PlatformFee != nil {
			st.PlatformFees = st.PlatformFees.Add(*p.PlatformFee)
		}
		switch {
		case p.IsOverdue(asOf):
			st.OverdueCount++
			st.Overdue = st.Overdue.Add(p.Outstanding())
		case p.IsOpen(), p.Status == models.PaymentProcessing:
			// in-flight processor payments still owe money until settled
			st.Pending = st.Pending.Add(p.Outstanding())
		}
	}
	return st
}
