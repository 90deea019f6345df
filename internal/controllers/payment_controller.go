package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Developmizer/Rental-Gates-sub002/internal/dtos"
	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
	"github.com/Developmizer/Rental-Gates-sub002/internal/repositories"
	"github.com/Developmizer/Rental-Gates-sub002/internal/routes"
	"github.com/Developmizer/Rental-Gates-sub002/internal/services"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

type PaymentController struct {
	paymentService *services.PaymentService
	receiptService *services.ReceiptService
	now            func() time.Time
}

func NewPaymentController(ps *services.PaymentService, rs *services.ReceiptService) *PaymentController {
	return &PaymentController{paymentService: ps, receiptService: rs, now: time.Now}
}

// POST /api/v1/orgs/{org_id}/payments
func (c *PaymentController) CreateChargeHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathUUID(w, r, routes.VarOrgID)
	if !ok {
		return
	}
	var req dtos.CreateChargeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := c.paymentService.CreateCharge(r.Context(), orgID, req)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dtos.NewPaymentResponse(p, c.now()))
}

// GET /api/v1/orgs/{org_id}/payments?lease_id=&type=&status=&from=&to=
func (c *PaymentController) ListPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathUUID(w, r, routes.VarOrgID)
	if !ok {
		return
	}
	filter, err := paymentFilterFromQuery(r, orgID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	payments, err := c.paymentService.List(r.Context(), filter)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	now := c.now()
	resp := dtos.ListPaymentsResponse{Payments: make([]dtos.PaymentResponse, 0, len(payments))}
	for _, p := range payments {
		resp.Payments = append(resp.Payments, dtos.NewPaymentResponse(p, now))
	}
	resp.Count = len(resp.Payments)
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// GET /api/v1/orgs/{org_id}/payments/{payment_id}
func (c *PaymentController) GetPaymentHandler(w http.ResponseWriter, r *http.Request) {
	orgID, paymentID, ok := paymentPath(w, r)
	if !ok {
		return
	}
	p, err := c.paymentService.Get(r.Context(), orgID, paymentID)
	c.respond(w, p, err)
}

// POST /api/v1/orgs/{org_id}/payments/{payment_id}/record
func (c *PaymentController) RecordPaymentHandler(w http.ResponseWriter, r *http.Request) {
	orgID, paymentID, ok := paymentPath(w, r)
	if !ok {
		return
	}
	var req dtos.RecordPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := c.paymentService.RecordManualPayment(r.Context(), orgID, paymentID, req)
	c.respond(w, p, err)
}

// POST /api/v1/orgs/{org_id}/payments/{payment_id}/process
func (c *PaymentController) StartProcessingHandler(w http.ResponseWriter, r *http.Request) {
	orgID, paymentID, ok := paymentPath(w, r)
	if !ok {
		return
	}
	var req dtos.StartProcessingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := c.paymentService.StartProcessing(r.Context(), orgID, paymentID, req)
	c.respond(w, p, err)
}

// POST /api/v1/orgs/{org_id}/payments/{payment_id}/refund
func (c *PaymentController) RefundPaymentHandler(w http.ResponseWriter, r *http.Request) {
	orgID, paymentID, ok := paymentPath(w, r)
	if !ok {
		return
	}
	var req dtos.RefundPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := c.paymentService.Refund(r.Context(), orgID, paymentID, req)
	c.respond(w, p, err)
}

// POST /api/v1/orgs/{org_id}/payments/{payment_id}/cancel
func (c *PaymentController) CancelPaymentHandler(w http.ResponseWriter, r *http.Request) {
	orgID, paymentID, ok := paymentPath(w, r)
	if !ok {
		return
	}
	var req dtos.CancelPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := c.paymentService.Cancel(r.Context(), orgID, paymentID, req)
	c.respond(w, p, err)
}

// POST /api/v1/orgs/{org_id}/payments/{payment_id}/receipt
func (c *PaymentController) IssueReceiptHandler(w http.ResponseWriter, r *http.Request) {
	orgID, paymentID, ok := paymentPath(w, r)
	if !ok {
		return
	}
	receipt, err := c.receiptService.IssueReceipt(r.Context(), orgID, paymentID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, receipt)
}

func (c *PaymentController) respond(w http.ResponseWriter, p *models.Payment, err error) {
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.NewPaymentResponse(p, c.now()))
}

func paymentPath(w http.ResponseWriter, r *http.Request) (orgID, paymentID uuid.UUID, ok bool) {
	if orgID, ok = pathUUID(w, r, routes.VarOrgID); !ok {
		return
	}
	paymentID, ok = pathUUID(w, r, routes.VarPaymentID)
	return
}

func paymentFilterFromQuery(r *http.Request, orgID uuid.UUID) (repositories.PaymentFilter, error) {
	f := repositories.PaymentFilter{OrganizationID: orgID}
	if raw := r.URL.Query().Get("lease_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, utils.ValidationErrorf("lease_id must be a UUID")
		}
		f.LeaseID = &id
	}
	for _, t := range queryList(r, "type") {
		f.Types = append(f.Types, models.PaymentType(t))
	}
	for _, s := range queryList(r, "status") {
		f.Statuses = append(f.Statuses, models.PaymentStatus(s))
	}
	var err error
	if f.From, err = queryDate(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(r, "to"); err != nil {
		return f, err
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, utils.ValidationErrorf("to must not be before from")
	}
	return f, nil
}
