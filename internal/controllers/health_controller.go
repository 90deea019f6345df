package controllers

import (
	"context"
	"net/http"

	"github.com/Developmizer/Rental-Gates-sub002/internal/app"
	"github.com/Developmizer/Rental-Gates-sub002/internal/dtos"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

type HealthController struct {
	app *app.App
}

func NewHealthController(app *app.App) *HealthController {
	return &HealthController{app}
}

func (c *HealthController) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if err := c.app.DB.Ping(context.Background()); err != nil {
		utils.Logger.WithError(err).Error("billing-service DB unreachable")
		utils.RespondErrorWithCode(w, http.StatusServiceUnavailable, utils.ErrCodeDependencyUnavailable, "Database unreachable", nil, err)
		return
	}
	resp := dtos.HealthCheckResponse{Status: "OK"}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
