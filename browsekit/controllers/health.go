package controllers

import (
	"net/http"
	"time"

	httputils "browsekit/browsekit/utils/http"
	"browsekit/browsekit/utils/types"
)

const ServiceName = "browserless-scraping-api"

type HealthController struct {
	now func() time.Time
}

func NewHealthController() *HealthController {
	return &HealthController{now: time.Now}
}

func (h *HealthController) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputils.WriteJSON(w, http.StatusOK, types.HealthResponse{
		Status:    "healthy",
		Service:   ServiceName,
		Timestamp: h.now().UTC(),
	})
}
