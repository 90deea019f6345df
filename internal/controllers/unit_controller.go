package controllers

import (
	"net/http"

	"github.com/Developmizer/Rental-Gates-sub002/internal/dtos"
	"github.com/Developmizer/Rental-Gates-sub002/internal/routes"
	"github.com/Developmizer/Rental-Gates-sub002/internal/services"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

type UnitController struct {
	unitService *services.UnitAvailabilityService
}

func NewUnitController(s *services.UnitAvailabilityService) *UnitController {
	return &UnitController{unitService: s}
}

// GET /api/v1/orgs/{org_id}/units/{unit_id}
func (c *UnitController) GetUnitHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathUUID(w, r, routes.VarOrgID)
	if !ok {
		return
	}
	unitID, ok := pathUUID(w, r, routes.VarUnitID)
	if !ok {
		return
	}
	unit, err := c.unitService.Get(r.Context(), orgID, unitID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, unit)
}

// PUT /api/v1/orgs/{org_id}/units/{unit_id}/availability
func (c *UnitController) SetAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathUUID(w, r, routes.VarOrgID)
	if !ok {
		return
	}
	unitID, ok := pathUUID(w, r, routes.VarUnitID)
	if !ok {
		return
	}
	var req dtos.SetUnitAvailabilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	unit, err := c.unitService.SetAvailability(r.Context(), orgID, unitID, req.Availability)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, unit)
}
