package controllers

import (
	"net/http"

	"github.com/Developmizer/Rental-Gates-sub002/internal/dtos"
	"github.com/Developmizer/Rental-Gates-sub002/internal/routes"
	"github.com/Developmizer/Rental-Gates-sub002/internal/services"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

type AutomationSettingsController struct {
	settingsService *services.AutomationSettingsService
}

func NewAutomationSettingsController(s *services.AutomationSettingsService) *AutomationSettingsController {
	return &AutomationSettingsController{settingsService: s}
}

// GET /api/v1/orgs/{org_id}/automation-settings
func (c *AutomationSettingsController) GetSettingsHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathUUID(w, r, routes.VarOrgID)
	if !ok {
		return
	}
	settings, err := c.settingsService.Get(r.Context(), orgID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, settings)
}

// PUT /api/v1/orgs/{org_id}/automation-settings
func (c *AutomationSettingsController) UpsertSettingsHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathUUID(w, r, routes.VarOrgID)
	if !ok {
		return
	}
	var req dtos.UpsertAutomationSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	settings, err := c.settingsService.Upsert(r.Context(), orgID, req)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, settings)
}
