package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/Developmizer/Rental-Gates-sub002/internal/services"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

type StripeWebhookController struct {
	webhookSecret string
	events        *services.ProcessorEventService
}

func NewStripeWebhookController(webhookSecret string, events *services.ProcessorEventService) *StripeWebhookController {
	return &StripeWebhookController{webhookSecret: webhookSecret, events: events}
}

// WebhookHandler -> POST /api/v1/billing/stripe/webhook
func (c *StripeWebhookController) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	sigHeader := r.Header.Get("Stripe-Signature")
	if sigHeader == "" {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Missing Stripe-Signature header", nil)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Failed to read webhook body", nil, err)
		return
	}

	event, err := webhook.ConstructEvent(payload, sigHeader, c.webhookSecret)
	if err != nil {
		utils.Logger.WithError(err).Error("Stripe webhook signature verification failed")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			utils.Logger.WithError(err).Errorf("Could not parse stripe.PaymentIntent for event type %s", event.Type)
			break
		}
		_, err = c.events.HandleIntentSucceeded(r.Context(), pi.ID, pi.Metadata)
		if retry := c.outcome(event, err); retry {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	case stripe.EventTypePaymentIntentPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			utils.Logger.WithError(err).Errorf("Could not parse stripe.PaymentIntent for event type %s", event.Type)
			break
		}
		reason := string(pi.Status)
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			reason = pi.LastPaymentError.Msg
		}
		_, err = c.events.HandleIntentFailed(r.Context(), pi.ID, pi.Metadata, reason)
		if retry := c.outcome(event, err); retry {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	default:
		utils.Logger.Infof("Unhandled Stripe event type received in billing-service: %s", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

// outcome logs a handler error and reports whether Stripe should redeliver.
// Only dependency outages are retried; everything else would fail again.
func (c *StripeWebhookController) outcome(event stripe.Event, err error) bool {
	if err == nil {
		return false
	}
	entry := utils.Logger.WithError(err).WithField("event_id", event.ID)
	if errors.Is(err, utils.ErrDependencyUnavailable) {
		entry.Errorf("Stripe event %s deferred for redelivery", event.Type)
		return true
	}
	entry.Warnf("Stripe event %s not applied", event.Type)
	return false
}
