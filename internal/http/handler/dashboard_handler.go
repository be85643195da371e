package handler

import (
	"net/http"

	"github.com/sn-foods/commerce-api/internal/service"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	dashboardService *service.DashboardService
	logger           *zap.Logger
}

func NewDashboardHandler(dashboardService *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		logger:           logger,
	}
}

// @Summary Dashboard statistics
// @Description Aggregate counters for the back-office landing page
// @Tags Dashboard
// @Produce json
// @Success 200 {object} domain.DashboardStats
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /dashboard/stats [get]
func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboardService.GetStats(r.Context())
	if err != nil {
		h.logger.Error("failed to collect dashboard stats", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to collect dashboard stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
