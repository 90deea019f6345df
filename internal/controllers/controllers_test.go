package controllers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
	"github.com/Developmizer/Rental-Gates-sub002/internal/routes"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

func TestPathUUIDRejectsMalformedIDs(t *testing.T) {
	var got uuid.UUID
	router := mux.NewRouter()
	router.HandleFunc(routes.Lease, func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, routes.VarLeaseID)
		if !ok {
			return
		}
		got = id
		w.WriteHeader(http.StatusNoContent)
	})

	leaseID := uuid.New()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/v1/orgs/%s/leases/%s", uuid.New(), leaseID), nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, leaseID, got)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/v1/orgs/%s/leases/not-a-uuid", uuid.New()), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), utils.ErrCodeInvalidPayload)
}

func TestDecodeJSONAllowsEmptyBody(t *testing.T) {
	var dst struct {
		Period string `json:"period"`
	}
	rec := httptest.NewRecorder()
	require.True(t, decodeJSON(rec, httptest.NewRequest(http.MethodPost, "/", nil), &dst))
	assert.Empty(t, dst.Period)

	require.True(t, decodeJSON(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"period":"2025-03"}`)), &dst))
	assert.Equal(t, "2025-03", dst.Period)

	rec = httptest.NewRecorder()
	assert.False(t, decodeJSON(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"period":`)), &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentFilterFromQuery(t *testing.T) {
	orgID := uuid.New()
	leaseID := uuid.New()
	r := httptest.NewRequest(http.MethodGet,
		"/payments?lease_id="+leaseID.String()+"&type=rent,late_fee&status=pending&status=failed&from=2025-03-01&to=2025-03-31", nil)

	f, err := paymentFilterFromQuery(r, orgID)
	require.NoError(t, err)
	assert.Equal(t, orgID, f.OrganizationID)
	assert.Equal(t, leaseID, *f.LeaseID)
	assert.Equal(t, []models.PaymentType{models.PaymentRent, models.PaymentLateFee}, f.Types)
	assert.Equal(t, []models.PaymentStatus{models.PaymentPending, models.PaymentFailed}, f.Statuses)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *f.From)
	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), *f.To)

	_, err = paymentFilterFromQuery(httptest.NewRequest(http.MethodGet, "/payments?from=2025-03-31&to=2025-03-01", nil), orgID)
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = paymentFilterFromQuery(httptest.NewRequest(http.MethodGet, "/payments?from=03/01/2025", nil), orgID)
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestStripeWebhookVerifiesSignature(t *testing.T) {
	const secret = "whsec_test"
	c := NewStripeWebhookController(secret, nil)

	rec := httptest.NewRecorder()
	c.WebhookHandler(rec, httptest.NewRequest(http.MethodPost, routes.BillingStripeWebhook, strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing signature header")

	body := fmt.Sprintf(`{"id":"evt_1","object":"event","type":"customer.created","api_version":%q,"data":{"object":{}}}`,
		stripe.APIVersion)

	req := httptest.NewRequest(http.MethodPost, routes.BillingStripeWebhook, strings.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rec = httptest.NewRecorder()
	c.WebhookHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "bad signature")

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: []byte(body), Secret: secret})
	req = httptest.NewRequest(http.MethodPost, routes.BillingStripeWebhook, strings.NewReader(body))
	req.Header.Set("Stripe-Signature", signed.Header)
	rec = httptest.NewRecorder()
	c.WebhookHandler(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "unhandled event types are acknowledged")
}
