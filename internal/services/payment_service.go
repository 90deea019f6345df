package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Developmizer/Rental-Gates-sub002/internal/constants"
	"github.com/Developmizer/Rental-Gates-sub002/internal/dtos"
	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
	"github.com/Developmizer/Rental-Gates-sub002/internal/repositories"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

var paymentTransitions = map[models.PaymentStatus][]models.PaymentStatus{
	models.PaymentPending: {
		models.PaymentProcessing, models.PaymentSucceeded, models.PaymentPartiallyPaid, models.PaymentCancelled,
	},
	models.PaymentProcessing: {
		models.PaymentSucceeded, models.PaymentPartiallyPaid, models.PaymentFailed, models.PaymentCancelled,
	},
	models.PaymentFailed: {
		models.PaymentProcessing, models.PaymentSucceeded, models.PaymentPartiallyPaid, models.PaymentCancelled,
	},
	models.PaymentPartiallyPaid: {
		models.PaymentPartiallyPaid, models.PaymentSucceeded, models.PaymentRefunded,
	},
	models.PaymentSucceeded: {models.PaymentRefunded},
	models.PaymentRefunded:  {},
	models.PaymentCancelled: {},
}

type PaymentService struct {
	paymentRepo repositories.PaymentRepository
	leaseRepo   repositories.LeaseRepository
	validate    *validator.Validate
	now         func() time.Time
}

func NewPaymentService(
	paymentRepo repositories.PaymentRepository,
	leaseRepo repositories.LeaseRepository,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		leaseRepo:   leaseRepo,
		validate:    utils.NewValidator(),
		now:         time.Now,
	}
}

/* ---------- reads ---------- */

func (s *PaymentService) Get(ctx context.Context, orgID, paymentID uuid.UUID) (*models.Payment, error) {
	p, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, storeErr("get payment", err)
	}
	if p == nil || p.OrganizationID != orgID {
		return nil, utils.NotFoundf("payment %s", paymentID)
	}
	return p, nil
}

// GetByProcessorIntent resolves a webhook back to its payment. The
// organization comes from the stored row.
func (s *PaymentService) GetByProcessorIntent(ctx context.Context, intentID string) (*models.Payment, error) {
	p, err := s.paymentRepo.GetByProcessorIntentID(ctx, intentID)
	if err != nil {
		return nil, storeErr("get payment by intent", err)
	}
	if p == nil {
		return nil, utils.NotFoundf("payment for intent %s", intentID)
	}
	return p, nil
}

func (s *PaymentService) List(ctx context.Context, f repositories.PaymentFilter) ([]*models.Payment, error) {
	out, err := s.paymentRepo.List(ctx, f)
	return out, storeErr("list payments", err)
}

/* ---------- creation ---------- */

// CreateCharge records an ad-hoc charge against a lease, optionally already
// settled offline.
func (s *PaymentService) CreateCharge(ctx context.Context, orgID uuid.UUID, req dtos.CreateChargeRequest) (*models.Payment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}
	if err := checkMoney("amount", req.Amount, false); err != nil {
		return nil, err
	}
	lease, err := s.leaseRepo.GetByID(ctx, req.LeaseID)
	if err != nil {
		return nil, storeErr("get lease", err)
	}
	if lease == nil || lease.OrganizationID != orgID {
		return nil, utils.NotFoundf("lease %s", req.LeaseID)
	}

	p := &models.Payment{
		ID:             uuid.New(),
		OrganizationID: orgID,
		LeaseID:        lease.ID,
		Type:           req.Type,
		Amount:         req.Amount,
		AmountPaid:     decimal.Zero,
		Status:         models.PaymentPending,
		DueDate:        req.DueDate.Ptr(),
		Method:         req.Method,
		Notes:          req.Notes,
		RefundedAmount: decimal.Zero,
	}
	if req.RecordedPaid {
		paidAt := s.now().UTC()
		if t := req.PaidOn.Ptr(); t != nil {
			paidAt = *t
		}
		p.Status = models.PaymentSucceeded
		p.AmountPaid = req.Amount
		p.PaidAt = &paidAt
	}

	if err := s.paymentRepo.Create(ctx, p); err != nil {
		return nil, storeErr("create payment", err)
	}
	p.RowVersion = 1
	utils.OrgLogger(orgID.String()).WithField("payment_id", p.ID).
		Infof("Created %s charge of %s (%s)", p.Type, p.Amount.StringFixed(2), p.Status)
	return p, nil
}

/* ---------- transitions ---------- */

// RecordManualPayment applies an offline payment. No processor fields are
// touched.
func (s *PaymentService) RecordManualPayment(
	ctx context.Context,
	orgID, paymentID uuid.UUID,
	req dtos.RecordPaymentRequest,
) (*models.Payment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}
	if err := checkMoney("amount", req.Amount, false); err != nil {
		return nil, err
	}
	paidAt := s.now().UTC()
	if t := req.PaidOn.Ptr(); t != nil {
		paidAt = *t
	}

	return s.update(ctx, orgID, paymentID, "record payment", func(p *models.Payment) error {
		if err := applyPayment(p, req.Amount); err != nil {
			return err
		}
		p.PaidAt = &paidAt
		p.Method = utils.Ptr(strings.TrimSpace(req.Method))
		p.FailureReason = nil
		return nil
	})
}

// StartProcessing attaches a processor intent to the payment.
func (s *PaymentService) StartProcessing(
	ctx context.Context,
	orgID, paymentID uuid.UUID,
	req dtos.StartProcessingRequest,
) (*models.Payment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}
	return s.update(ctx, orgID, paymentID, "start processing", func(p *models.Payment) error {
		if err := moveTo(p, models.PaymentProcessing); err != nil {
			return err
		}
		p.ProcessorIntentID = utils.Ptr(req.ProcessorIntentID)
		p.FailureReason = nil
		return nil
	})
}

// SettleProcessorPayment records a processor capture. The fee split and the
// status land in the same write. A capture must cover the whole outstanding
// balance so the split always accounts for the full payment amount.
func (s *PaymentService) SettleProcessorPayment(
	ctx context.Context,
	orgID, paymentID uuid.UUID,
	st Settlement,
) (*models.Payment, error) {
	split, err := utils.ComputeFeeSplit(st.AmountReceived, st.ProcessorFee)
	if err != nil {
		return nil, err
	}
	settledAt := st.SettledAt
	if settledAt.IsZero() {
		settledAt = s.now().UTC()
	}

	p, err := s.update(ctx, orgID, paymentID, "settle payment", func(p *models.Payment) error {
		if p.Status != models.PaymentProcessing && p.Status != models.PaymentFailed {
			return utils.InvalidTransitionf("payment %s is %s and cannot be settled by the processor", p.ID, p.Status)
		}
		if outstanding := p.Outstanding(); !st.AmountReceived.Equal(outstanding) {
			return utils.PreconditionFailedf("processor received %s for payment %s but %s is outstanding",
				st.AmountReceived.StringFixed(2), p.ID, outstanding.StringFixed(2))
		}
		if err := applyPayment(p, st.AmountReceived); err != nil {
			return err
		}
		p.PaidAt = &settledAt
		if p.Method == nil {
			p.Method = utils.Ptr(constants.ProcessorMethodCard)
		}
		if st.ChargeID != "" {
			p.ProcessorChargeID = utils.Ptr(st.ChargeID)
		}
		p.ProcessorFee = utils.Ptr(split.ProcessorFee)
		p.PlatformFee = utils.Ptr(split.PlatformFee)
		p.NetAmount = utils.Ptr(split.NetAmount)
		p.FailureReason = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	utils.OrgLogger(orgID.String()).WithField("payment_id", paymentID).
		Infof("Processor payment settled: %s (fee %s, platform %s, net %s)",
			st.AmountReceived.StringFixed(2), split.ProcessorFee.StringFixed(2),
			split.PlatformFee.StringFixed(2), split.NetAmount.StringFixed(2))
	return p, nil
}

func (s *PaymentService) FailProcessorPayment(
	ctx context.Context,
	orgID, paymentID uuid.UUID,
	reason string,
) (*models.Payment, error) {
	return s.update(ctx, orgID, paymentID, "fail payment", func(p *models.Payment) error {
		if err := moveTo(p, models.PaymentFailed); err != nil {
			return err
		}
		if reason = strings.TrimSpace(reason); reason != "" {
			p.FailureReason = utils.Ptr(reason)
		}
		return nil
	})
}

// Refund returns part or all of what was paid. A refunded payment is terminal.
func (s *PaymentService) Refund(
	ctx context.Context,
	orgID, paymentID uuid.UUID,
	req dtos.RefundPaymentRequest,
) (*models.Payment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}
	if err := checkMoney("amount", req.Amount, false); err != nil {
		return nil, err
	}
	return s.update(ctx, orgID, paymentID, "refund payment", func(p *models.Payment) error {
		if err := moveTo(p, models.PaymentRefunded); err != nil {
			return err
		}
		if req.Amount.GreaterThan(p.AmountPaid) {
			return utils.ValidationErrorf("refund %s exceeds amount paid %s",
				req.Amount.StringFixed(2), p.AmountPaid.StringFixed(2))
		}
		p.AmountPaid = p.AmountPaid.Sub(req.Amount)
		p.RefundedAmount = p.RefundedAmount.Add(req.Amount)
		if reason := strings.TrimSpace(req.Reason); reason != "" {
			p.Notes = utils.Ptr(reason)
		}
		return nil
	})
}

func (s *PaymentService) Cancel(
	ctx context.Context,
	orgID, paymentID uuid.UUID,
	req dtos.CancelPaymentRequest,
) (*models.Payment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}
	return s.update(ctx, orgID, paymentID, "cancel payment", func(p *models.Payment) error {
		if err := moveTo(p, models.PaymentCancelled); err != nil {
			return err
		}
		p.CancelledAt = utils.Ptr(s.now().UTC())
		if reason := strings.TrimSpace(req.Reason); reason != "" {
			p.Notes = utils.Ptr(reason)
		}
		return nil
	})
}

// CancelOpenRentAfter cancels pending rent on a lease that falls due after
// the given date. Rows that moved on concurrently are skipped.
func (s *PaymentService) CancelOpenRentAfter(
	ctx context.Context,
	orgID, leaseID uuid.UUID,
	after time.Time,
) (int, error) {
	from := utils.DateOnly(after).AddDate(0, 0, 1)
	pending, err := s.paymentRepo.List(ctx, repositories.PaymentFilter{
		OrganizationID: orgID,
		LeaseID:        &leaseID,
		Types:          []models.PaymentType{models.PaymentRent},
		Statuses:       []models.PaymentStatus{models.PaymentPending},
		From:           &from,
	})
	if err != nil {
		return 0, storeErr("list pending rent", err)
	}

	cancelled := 0
	for _, p := range pending {
		if p.DueDate == nil || !p.DueDate.After(utils.DateOnly(after)) {
			continue
		}
		_, err := s.Cancel(ctx, orgID, p.ID, dtos.CancelPaymentRequest{Reason: "lease ended"})
		if errors.Is(err, utils.ErrInvalidStateTransition) {
			continue
		}
		if err != nil {
			return cancelled, err
		}
		cancelled++
	}
	if cancelled > 0 {
		utils.OrgLogger(orgID.String()).WithField("lease_id", leaseID).
			Infof("Cancelled %d pending rent charges after lease end", cancelled)
	}
	return cancelled, nil
}

/* ---------- helpers ---------- */

// update runs mutate against the freshest row under optimistic locking.
// Whatever mutate rejects leaves the stored row untouched.
func (s *PaymentService) update(
	ctx context.Context,
	orgID, paymentID uuid.UUID,
	op string,
	mutate func(*models.Payment) error,
) (*models.Payment, error) {
	var out *models.Payment
	err := s.paymentRepo.UpdateWithRetry(ctx, paymentID, func(p *models.Payment) error {
		if p.OrganizationID != orgID {
			return utils.NotFoundf("payment %s", paymentID)
		}
		if err := mutate(p); err != nil {
			return err
		}
		if p.AmountPaid.IsNegative() || p.AmountPaid.GreaterThan(p.Amount) {
			return utils.ValidationErrorf("amount_paid %s out of range for amount %s",
				p.AmountPaid.StringFixed(2), p.Amount.StringFixed(2))
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, storeErr(op, err)
	}
	return out, nil
}

func moveTo(p *models.Payment, target models.PaymentStatus) error {
	if err := utils.ValidateTransition(paymentTransitions, p.Status, target); err != nil {
		return err
	}
	p.Status = target
	return nil
}

// applyPayment adds amount to what was paid and picks succeeded or
// partially_paid from the remainder.
func applyPayment(p *models.Payment, amount decimal.Decimal) error {
	paid := p.AmountPaid.Add(amount)
	target := models.PaymentPartiallyPaid
	if paid.GreaterThanOrEqual(p.Amount) {
		target = models.PaymentSucceeded
	}
	if err := moveTo(p, target); err != nil {
		return err
	}
	if paid.GreaterThan(p.Amount) {
		return utils.ValidationErrorf("payment of %s exceeds outstanding %s",
			amount.StringFixed(2), p.Outstanding().StringFixed(2))
	}
	p.AmountPaid = paid
	return nil
}
