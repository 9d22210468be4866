package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/taskbridge-backend/internal/http/handlers/common"
	"github.com/ignatzorin/taskbridge-backend/internal/service"
)

// StatsHandler отвечает за публичную статистику платформы.
type StatsHandler struct {
	profiles *service.ProfileService
}

// NewStatsHandler создаёт новый stats handler.
func NewStatsHandler(profiles *service.ProfileService) *StatsHandler {
	return &StatsHandler{profiles: profiles}
}

// PlatformStats обрабатывает GET /stats.
func (h *StatsHandler) PlatformStats(c *gin.Context) {
	stats, err := h.profiles.PlatformStats(c.Request.Context())
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
