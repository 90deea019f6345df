package controllers

import (
	"net/http"
	"time"

	"github.com/Developmizer/Rental-Gates-sub002/internal/routes"
	"github.com/Developmizer/Rental-Gates-sub002/internal/services"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

type StatsController struct {
	statsService *services.StatsService
	now          func() time.Time
}

func NewStatsController(s *services.StatsService) *StatsController {
	return &StatsController{statsService: s, now: time.Now}
}

// GET /api/v1/orgs/{org_id}/stats?from=YYYY-MM-DD&to=YYYY-MM-DD
// Defaults to the current calendar month.
func (c *StatsController) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathUUID(w, r, routes.VarOrgID)
	if !ok {
		return
	}
	from, err := queryDate(r, "from")
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	now := c.now().UTC()
	if from == nil {
		from = utils.Ptr(time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC))
	}
	if to == nil {
		to = utils.Ptr(from.AddDate(0, 1, -1))
	}

	stats, err := c.statsService.GetStats(r.Context(), orgID, *from, *to, now)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, stats)
}
