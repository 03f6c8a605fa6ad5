package httpapi

import (
	"net/http"

	"voiceagent/internal/calls"
	"voiceagent/pkg/logger"

	"github.com/gin-gonic/gin"
)

func (h Handlers) DashboardStats(c *gin.Context) {
	stats, err := h.Stats.Dashboard(c.Request.Context())
	if err != nil {
		logger.FromGin(c).Error("dashboard stats failed", "err", err)
		fail(c, http.StatusInternalServerError, codeInternal, "stats failed")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h Handlers) DashboardRecent(c *gin.Context) {
	limit := intQuery(c, "limit", 10)
	if limit < 1 || limit > 100 {
		fail(c, http.StatusBadRequest, codeInvalidRequest, "invalid limit")
		return
	}

	rows, err := h.Stats.Recent(c.Request.Context(), limit)
	if err != nil {
		logger.FromGin(c).Error("recent calls failed", "err", err)
		fail(c, http.StatusInternalServerError, codeInternal, "recent calls failed")
		return
	}
	if rows == nil {
		rows = []calls.Call{}
	}
	c.JSON(http.StatusOK, gin.H{"calls": rows})
}
