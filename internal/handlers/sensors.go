package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"zone_thermostat/internal/models"
)

type sensorRequest struct {
	Name      string `json:"name" binding:"required"`
	Enabled   *bool  `json:"enabled" binding:"required"`
	Monitored *bool  `json:"monitored" binding:"required"`
}

// @Summary      List registered sensors
// @Tags         sensors
// @Produce      json
// @Success      200  {array}   models.SensorConfig
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/sensors [get]
// @Security     BearerAuth
func (h *Handler) listSensors(c *gin.Context) {
	sensors, err := h.repos.Sensors.List(c.Request.Context(), false)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to list sensors", "list_sensors_failed", err)
		return
	}
	c.JSON(http.StatusOK, sensors)
}

// @Summary      Update a sensor registry entry
// @Description  The running engine picks the change up after a sensors/reload
// @Tags         sensors
// @Accept       json
// @Produce      json
// @Param        id    path  string         true  "Sensor ID"
// @Param        body  body  sensorRequest  true  "Sensor payload"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/sensors/{id} [put]
// @Security     BearerAuth
func (h *Handler) updateSensor(c *gin.Context) {
	var req sensorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	sc := models.SensorConfig{
		SensorID:  c.Param("id"),
		Name:      req.Name,
		Enabled:   *req.Enabled,
		Monitored: *req.Monitored,
	}
	if err := h.repos.Sensors.Update(c.Request.Context(), sc); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to update sensor", "update_sensor_failed", err, "sensor", sc.SensorID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}
