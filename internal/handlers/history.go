package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	defaultHistoryHours = 24
	maxHistoryHours     = 24 * 30
	defaultHistoryLimit = 1000
	maxHistoryLimit     = 10000
	defaultAuditLimit   = 100
)

func parseHours(c *gin.Context) int {
	hours := defaultHistoryHours
	if s := c.Query("hours"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= maxHistoryHours {
			hours = v
		}
	}
	return hours
}

func parseLimit(c *gin.Context, def, max int) int {
	limit := def
	if s := c.Query("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= max {
			limit = v
		}
	}
	return limit
}

// @Summary      Sensor reading history
// @Tags         history
// @Produce      json
// @Param        hours      query  int     false  "Lookback window in hours (default 24)"
// @Param        sensor_id  query  string  false  "Restrict to one sensor"
// @Param        limit      query  int     false  "Max rows (default 1000)"
// @Success      200  {array}   models.SensorSample
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/history/sensors [get]
// @Security     BearerAuth
func (h *Handler) sensorHistory(c *gin.Context) {
	since := time.Now().UTC().Add(-time.Duration(parseHours(c)) * time.Hour)
	samples, err := h.repos.History.SensorHistory(c.Request.Context(),
		c.Query("sensor_id"), since, parseLimit(c, defaultHistoryLimit, maxHistoryLimit))
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load sensor history", "sensor_history_failed", err)
		return
	}
	c.JSON(http.StatusOK, samples)
}

// @Summary      Equipment state history
// @Tags         history
// @Produce      json
// @Param        hours  query  int  false  "Lookback window in hours (default 24)"
// @Param        limit  query  int  false  "Max rows (default 1000)"
// @Success      200  {array}   models.HVACSample
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/history/hvac [get]
// @Security     BearerAuth
func (h *Handler) hvacHistory(c *gin.Context) {
	since := time.Now().UTC().Add(-time.Duration(parseHours(c)) * time.Hour)
	samples, err := h.repos.History.HVACHistory(c.Request.Context(),
		since, parseLimit(c, defaultHistoryLimit, maxHistoryLimit))
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load hvac history", "hvac_history_failed", err)
		return
	}
	c.JSON(http.StatusOK, samples)
}

// @Summary      Setting change audit trail
// @Tags         history
// @Produce      json
// @Param        limit  query  int  false  "Max rows (default 100)"
// @Success      200  {array}   models.SettingChange
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/history/settings [get]
// @Security     BearerAuth
func (h *Handler) settingHistory(c *gin.Context) {
	changes, err := h.repos.Audit.List(c.Request.Context(), parseLimit(c, defaultAuditLimit, maxHistoryLimit))
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load audit trail", "setting_history_failed", err)
		return
	}
	c.JSON(http.StatusOK, changes)
}
