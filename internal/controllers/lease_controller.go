package controllers

import (
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Developmizer/Rental-Gates-sub002/internal/dtos"
	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
	"github.com/Developmizer/Rental-Gates-sub002/internal/routes"
	"github.com/Developmizer/Rental-Gates-sub002/internal/services"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

type LeaseController struct {
	leaseService *services.LeaseService
	now          func() time.Time
}

func NewLeaseController(s *services.LeaseService) *LeaseController {
	return &LeaseController{leaseService: s, now: time.Now}
}

// POST /api/v1/orgs/{org_id}/leases
func (c *LeaseController) CreateLeaseHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathUUID(w, r, routes.VarOrgID)
	if !ok {
		return
	}
	var req dtos.CreateLeaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	lease, err := c.leaseService.CreateDraft(r.Context(), orgID, req)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dtos.NewLeaseResponse(lease, nil, c.now()))
}

// GET /api/v1/orgs/{org_id}/leases?status=active,expiring
func (c *LeaseController) ListLeasesHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathUUID(w, r, routes.VarOrgID)
	if !ok {
		return
	}

	var wanted []models.LeaseStatus
	for _, s := range queryList(r, "status") {
		wanted = append(wanted, models.LeaseStatus(s))
	}
	// expiring is derived from active leases, so it is filtered after the read
	stored := slices.Clone(wanted)
	if slices.Contains(wanted, models.LeaseExpiring) && !slices.Contains(wanted, models.LeaseActive) {
		stored = append(stored, models.LeaseActive)
	}

	leases, err := c.leaseService.List(r.Context(), orgID, stored)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	now := c.now()
	resp := make([]dtos.LeaseResponse, 0, len(leases))
	for _, l := range leases {
		lr := dtos.NewLeaseResponse(l, nil, now)
		if len(wanted) > 0 && !slices.Contains(wanted, lr.EffectiveStatus) && !slices.Contains(wanted, l.Status) {
			continue
		}
		resp = append(resp, lr)
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// GET /api/v1/orgs/{org_id}/leases/{lease_id}
func (c *LeaseController) GetLeaseHandler(w http.ResponseWriter, r *http.Request) {
	orgID, leaseID, ok := c.leasePath(w, r)
	if !ok {
		return
	}
	c.respondLease(w, r, orgID, leaseID, http.StatusOK)
}

// PATCH /api/v1/orgs/{org_id}/leases/{lease_id}
func (c *LeaseController) UpdateLeaseHandler(w http.ResponseWriter, r *http.Request) {
	orgID, leaseID, ok := c.leasePath(w, r)
	if !ok {
		return
	}
	var req dtos.UpdateLeaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := c.leaseService.UpdateDraft(r.Context(), orgID, leaseID, req); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	c.respondLease(w, r, orgID, leaseID, http.StatusOK)
}

// POST /api/v1/orgs/{org_id}/leases/{lease_id}/tenants
func (c *LeaseController) AddTenantHandler(w http.ResponseWriter, r *http.Request) {
	orgID, leaseID, ok := c.leasePath(w, r)
	if !ok {
		return
	}
	var req dtos.AddLeaseTenantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := c.leaseService.AddTenant(r.Context(), orgID, leaseID, req); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	c.respondLease(w, r, orgID, leaseID, http.StatusOK)
}

// DELETE /api/v1/orgs/{org_id}/leases/{lease_id}/tenants/{tenant_id}
func (c *LeaseController) RemoveTenantHandler(w http.ResponseWriter, r *http.Request) {
	orgID, leaseID, ok := c.leasePath(w, r)
	if !ok {
		return
	}
	tenantID, ok := pathUUID(w, r, routes.VarTenantID)
	if !ok {
		return
	}
	if err := c.leaseService.RemoveTenant(r.Context(), orgID, leaseID, tenantID); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/orgs/{org_id}/leases/{lease_id}/activate
func (c *LeaseController) ActivateLeaseHandler(w http.ResponseWriter, r *http.Request) {
	orgID, leaseID, ok := c.leasePath(w, r)
	if !ok {
		return
	}
	if _, err := c.leaseService.Activate(r.Context(), orgID, leaseID); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	c.respondLease(w, r, orgID, leaseID, http.StatusOK)
}

// POST /api/v1/orgs/{org_id}/leases/{lease_id}/terminate
func (c *LeaseController) TerminateLeaseHandler(w http.ResponseWriter, r *http.Request) {
	orgID, leaseID, ok := c.leasePath(w, r)
	if !ok {
		return
	}
	var req dtos.TerminateLeaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := c.leaseService.Terminate(r.Context(), orgID, leaseID, req); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	c.respondLease(w, r, orgID, leaseID, http.StatusOK)
}

// POST /api/v1/orgs/{org_id}/leases/{lease_id}/renew
func (c *LeaseController) RenewLeaseHandler(w http.ResponseWriter, r *http.Request) {
	orgID, leaseID, ok := c.leasePath(w, r)
	if !ok {
		return
	}
	var req dtos.RenewLeaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := c.leaseService.Renew(r.Context(), orgID, leaseID, req); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	c.respondLease(w, r, orgID, leaseID, http.StatusOK)
}

// POST /api/v1/orgs/{org_id}/leases/{lease_id}/start-renewal
func (c *LeaseController) StartRenewalHandler(w http.ResponseWriter, r *http.Request) {
	orgID, leaseID, ok := c.leasePath(w, r)
	if !ok {
		return
	}
	unit, err := c.leaseService.StartRenewal(r.Context(), orgID, leaseID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, unit)
}

func (c *LeaseController) leasePath(w http.ResponseWriter, r *http.Request) (orgID, leaseID uuid.UUID, ok bool) {
	if orgID, ok = pathUUID(w, r, routes.VarOrgID); !ok {
		return
	}
	leaseID, ok = pathUUID(w, r, routes.VarLeaseID)
	return
}

func (c *LeaseController) respondLease(w http.ResponseWriter, r *http.Request, orgID, leaseID uuid.UUID, status int) {
	lease, err := c.leaseService.Get(r.Context(), orgID, leaseID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	tenants, err := c.leaseService.Roster(r.Context(), orgID, leaseID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, status, dtos.NewLeaseResponse(lease, tenants, c.now()))
}
