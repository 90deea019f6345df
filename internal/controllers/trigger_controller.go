package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/Developmizer/Rental-Gates-sub002/internal/dtos"
	"github.com/Developmizer/Rental-Gates-sub002/internal/middleware"
	"github.com/Developmizer/Rental-Gates-sub002/internal/routes"
	"github.com/Developmizer/Rental-Gates-sub002/internal/services"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

// TriggerController exposes the scheduler entry points to external callers
// holding a trigger token.
type TriggerController struct {
	automations *services.AutomationService
	charges     *services.ChargeGeneratorService
	scheduler   *services.SchedulerService
	now         func() time.Time
}

func NewTriggerController(
	automations *services.AutomationService,
	charges *services.ChargeGeneratorService,
	scheduler *services.SchedulerService,
) *TriggerController {
	return &TriggerController{automations: automations, charges: charges, scheduler: scheduler, now: time.Now}
}

// POST /api/v1/internal/orgs/{org_id}/automations/run
func (c *TriggerController) RunAutomationsHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathUUID(w, r, routes.VarOrgID)
	if !ok {
		return
	}
	var req dtos.RunAutomationsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var asOf time.Time
	if req.AsOf != nil {
		asOf = *req.AsOf
	} else {
		today, err := c.automations.OrganizationToday(r.Context(), orgID, c.now())
		if err != nil {
			utils.HandleAppError(w, err)
			return
		}
		asOf = today
	}

	utils.OrgLogger(orgID.String()).Infof("Automation run triggered by %v", r.Context().Value(middleware.ContextKeyCaller))
	res, err := c.automations.RunDailyAutomations(r.Context(), orgID, utils.DateOnly(asOf))
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}

// POST /api/v1/internal/orgs/{org_id}/charges/generate
func (c *TriggerController) GenerateChargesHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathUUID(w, r, routes.VarOrgID)
	if !ok {
		return
	}
	var req dtos.GenerateChargesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Period) == "" {
		utils.HandleAppError(w, utils.ValidationErrorf("period is required"))
		return
	}

	utils.OrgLogger(orgID.String()).Infof("Charge generation for %s triggered by %v",
		req.Period, r.Context().Value(middleware.ContextKeyCaller))
	res, err := c.charges.GenerateRentCharges(r.Context(), orgID, strings.TrimSpace(req.Period))
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}

// POST /api/v1/internal/scheduler/tick
func (c *TriggerController) DailyTickHandler(w http.ResponseWriter, r *http.Request) {
	utils.Logger.Infof("Daily tick triggered by %v", r.Context().Value(middleware.ContextKeyCaller))
	res, err := c.scheduler.RunDailyTick(r.Context(), c.now())
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}
