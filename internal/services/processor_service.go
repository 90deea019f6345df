package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"

	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

// Settlement is what the processor reports for a captured payment intent.
type Settlement struct {
	IntentID       string
	ChargeID       string
	AmountReceived decimal.Decimal
	ProcessorFee   decimal.Decimal
	SettledAt      time.Time
}

// ProcessorClient looks up settlement details. The engine only consumes the
// processor fee, it never computes it.
type ProcessorClient interface {
	SettlementDetails(ctx context.Context, intentID string) (*Settlement, error)
}

type StripeProcessorClient struct {
	timeout time.Duration
}

// NewStripeProcessorClient sets the global Stripe key once.
func NewStripeProcessorClient(secretKey string, timeout time.Duration) *StripeProcessorClient {
	stripe.Key = secretKey
	return &StripeProcessorClient{timeout: timeout}
}

func (c *StripeProcessorClient) SettlementDetails(ctx context.Context, intentID string) (*Settlement, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge.balance_transaction")

	pi, err := paymentintent.Get(intentID, params)
	if err != nil {
		return nil, utils.Unavailable("stripe payment intent lookup", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, utils.PreconditionFailedf("payment intent %s is %s", intentID, pi.Status)
	}
	if pi.LatestCharge == nil || pi.LatestCharge.BalanceTransaction == nil {
		return nil, utils.Unavailable("stripe payment intent lookup",
			fmt.Errorf("intent %s has no balance transaction yet", intentID))
	}

	ch := pi.LatestCharge
	settledAt := time.Unix(ch.Created, 0).UTC()
	return &Settlement{
		IntentID:       pi.ID,
		ChargeID:       ch.ID,
		AmountReceived: utils.CentsToDecimal(pi.AmountReceived),
		ProcessorFee:   utils.CentsToDecimal(ch.BalanceTransaction.Fee),
		SettledAt:      settledAt,
	}, nil
}
