package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Developmizer/Rental-Gates-sub002/internal/constants"
	"github.com/Developmizer/Rental-Gates-sub002/internal/dtos"
	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

// ProcessorEventService applies processor webhook outcomes to payments.
// Redelivered events are absorbed: a payment already past the event's
// transition is left alone and nil is returned.
type ProcessorEventService struct {
	payments *PaymentService
	client   ProcessorClient
}

func NewProcessorEventService(payments *PaymentService, client ProcessorClient) *ProcessorEventService {
	return &ProcessorEventService{payments: payments, client: client}
}

// HandleIntentSucceeded settles the payment behind intentID using the fee the
// processor reports for it.
func (s *ProcessorEventService) HandleIntentSucceeded(
	ctx context.Context,
	intentID string,
	metadata map[string]string,
) (*models.Payment, error) {
	p, err := s.resolve(ctx, intentID, metadata)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PaymentPending {
		// intent created outside StartProcessing
		if p, err = s.payments.StartProcessing(ctx, p.OrganizationID, p.ID,
			dtos.StartProcessingRequest{ProcessorIntentID: intentID}); err != nil {
			return nil, err
		}
	}

	st, err := s.client.SettlementDetails(ctx, intentID)
	if err != nil {
		return nil, err
	}
	settled, err := s.payments.SettleProcessorPayment(ctx, p.OrganizationID, p.ID, *st)
	if errors.Is(err, utils.ErrInvalidStateTransition) {
		utils.OrgLogger(p.OrganizationID.String()).WithField("payment_id", p.ID).
			Infof("Ignoring replayed success for intent %s: %v", intentID, err)
		return p, nil
	}
	if errors.Is(err, utils.ErrPreconditionFailed) {
		utils.OrgLogger(p.OrganizationID.String()).WithField("payment_id", p.ID).
			Warnf("Processor capture for intent %s needs review: %v", intentID, err)
	}
	return settled, err
}

func (s *ProcessorEventService) HandleIntentFailed(
	ctx context.Context,
	intentID string,
	metadata map[string]string,
	reason string,
) (*models.Payment, error) {
	p, err := s.resolve(ctx, intentID, metadata)
	if err != nil {
		return nil, err
	}
	failed, err := s.payments.FailProcessorPayment(ctx, p.OrganizationID, p.ID, reason)
	if errors.Is(err, utils.ErrInvalidStateTransition) {
		utils.OrgLogger(p.OrganizationID.String()).WithField("payment_id", p.ID).
			Infof("Ignoring failure for intent %s: %v", intentID, err)
		return p, nil
	}
	return failed, err
}

// resolve prefers the payment id stamped into intent metadata and falls back
// to the stored intent id.
func (s *ProcessorEventService) resolve(ctx context.Context, intentID string, metadata map[string]string) (*models.Payment, error) {
	paymentID, pErr := uuid.Parse(metadata[constants.StripeMetadataPaymentIDKey])
	orgID, oErr := uuid.Parse(metadata[constants.StripeMetadataOrganizationIDKey])
	if pErr != nil || oErr != nil {
		return s.payments.GetByProcessorIntent(ctx, intentID)
	}

	p, err := s.payments.Get(ctx, orgID, paymentID)
	if err != nil {
		return nil, err
	}
	if p.ProcessorIntentID != nil && *p.ProcessorIntentID != intentID {
		return nil, utils.PreconditionFailedf("payment %s belongs to intent %s, not %s", p.ID, *p.ProcessorIntentID, intentID)
	}
	return p, nil
}
