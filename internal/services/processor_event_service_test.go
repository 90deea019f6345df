package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Developmizer/Rental-Gates-sub002/internal/constants"
	"github.com/Developmizer/Rental-Gates-sub002/internal/dtos"
	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

type stubProcessorClient struct {
	settlement *Settlement
	err        error
	calls      int
}

func (c *stubProcessorClient) SettlementDetails(_ context.Context, intentID string) (*Settlement, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	st := *c.settlement
	st.IntentID = intentID
	return &st, nil
}

func TestIntentSucceededSettlesByStoredIntent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(false)
	org := env.org("acme")
	lease := env.lease(org.ID, nil, models.LeaseActive)
	p := newCharge(t, env, org.ID, lease.ID, "1000.00", day(2025, 3, 1))
	_, err := env.payments.StartProcessing(ctx, org.ID, p.ID, dtos.StartProcessingRequest{ProcessorIntentID: "pi_1"})
	require.NoError(t, err)

	client := &stubProcessorClient{settlement: &Settlement{
		ChargeID: "ch_1", AmountReceived: money("1000.00"), ProcessorFee: money("29.30"), SettledAt: day(2025, 3, 2),
	}}
	events := NewProcessorEventService(env.payments, client)

	settled, err := events.HandleIntentSucceeded(ctx, "pi_1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSucceeded, settled.Status)
	assert.Equal(t, "25.00", settled.PlatformFee.StringFixed(2))
	assert.Equal(t, "945.70", settled.NetAmount.StringFixed(2))

	// redelivery is absorbed
	again, err := events.HandleIntentSucceeded(ctx, "pi_1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSucceeded, again.Status)
	assert.Equal(t, "1000.00", again.AmountPaid.StringFixed(2))
}

func TestIntentSucceededResolvesMetadataForPendingPayment(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(false)
	org := env.org("acme")
	lease := env.lease(org.ID, nil, models.LeaseActive)
	p := newCharge(t, env, org.ID, lease.ID, "500.00", day(2025, 3, 1))

	client := &stubProcessorClient{settlement: &Settlement{
		AmountReceived: money("500.00"), ProcessorFee: money("14.80"),
	}}
	events := NewProcessorEventService(env.payments, client)

	meta := map[string]string{
		constants.StripeMetadataPaymentIDKey:      p.ID.String(),
		constants.StripeMetadataOrganizationIDKey: org.ID.String(),
	}
	settled, err := events.HandleIntentSucceeded(ctx, "pi_meta", meta)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSucceeded, settled.Status)
	assert.Equal(t, "pi_meta", *settled.ProcessorIntentID)
	assert.True(t, settled.Outstanding().IsZero())
	assert.Equal(t, "12.50", settled.PlatformFee.StringFixed(2))

	_, err = events.HandleIntentSucceeded(ctx, "pi_other", meta)
	assert.ErrorIs(t, err, utils.ErrPreconditionFailed)
}

func TestIntentSucceededRejectsShortCapture(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(false)
	org := env.org("acme")
	lease := env.lease(org.ID, nil, models.LeaseActive)
	p := newCharge(t, env, org.ID, lease.ID, "500.00", day(2025, 3, 1))
	_, err := env.payments.StartProcessing(ctx, org.ID, p.ID, dtos.StartProcessingRequest{ProcessorIntentID: "pi_short"})
	require.NoError(t, err)

	events := NewProcessorEventService(env.payments, &stubProcessorClient{settlement: &Settlement{
		AmountReceived: money("200.00"), ProcessorFee: money("6.10"),
	}})
	_, err = events.HandleIntentSucceeded(ctx, "pi_short", nil)
	require.ErrorIs(t, err, utils.ErrPreconditionFailed)

	stored, _ := env.payments.Get(ctx, org.ID, p.ID)
	assert.Equal(t, models.PaymentProcessing, stored.Status)
	assert.True(t, stored.AmountPaid.IsZero())
	assert.Nil(t, stored.PlatformFee)
}

func TestIntentSucceededLeavesPaymentWhenProcessorIsDown(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(false)
	org := env.org("acme")
	lease := env.lease(org.ID, nil, models.LeaseActive)
	p := newCharge(t, env, org.ID, lease.ID, "500.00", day(2025, 3, 1))
	_, err := env.payments.StartProcessing(ctx, org.ID, p.ID, dtos.StartProcessingRequest{ProcessorIntentID: "pi_2"})
	require.NoError(t, err)

	events := NewProcessorEventService(env.payments, &stubProcessorClient{
		err: utils.Unavailable("stripe payment intent lookup", errors.New("timeout")),
	})
	_, err = events.HandleIntentSucceeded(ctx, "pi_2", nil)
	require.ErrorIs(t, err, utils.ErrDependencyUnavailable)

	stored, err := env.payments.Get(ctx, org.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentProcessing, stored.Status)
	assert.Nil(t, stored.PlatformFee)
}

func TestIntentFailedRecordsReason(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(false)
	org := env.org("acme")
	lease := env.lease(org.ID, nil, models.LeaseActive)
	p := newCharge(t, env, org.ID, lease.ID, "500.00", day(2025, 3, 1))
	_, err := env.payments.StartProcessing(ctx, org.ID, p.ID, dtos.StartProcessingRequest{ProcessorIntentID: "pi_3"})
	require.NoError(t, err)

	events := NewProcessorEventService(env.payments, &stubProcessorClient{})
	failed, err := events.HandleIntentFailed(ctx, "pi_3", nil, "card_declined")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, failed.Status)
	assert.Equal(t, "card_declined", *failed.FailureReason)

	_, err = events.HandleIntentFailed(ctx, "pi_unknown", nil, "card_declined")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}
