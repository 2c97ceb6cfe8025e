package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"zone_thermostat/internal/control"
	"zone_thermostat/internal/models"
)

const (
	statusOK      = "ok"
	statusApplied = "applied"
)

// logAndJSONError logs an internal failure and returns a sanitized message.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// respondWithStatus returns the command result plus the current snapshot.
func (h *Handler) respondWithStatus(c *gin.Context, status string, extra gin.H) {
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	resp["state"] = h.control.Status()
	c.JSON(http.StatusOK, resp)
}

// isValidationError separates caller mistakes from internal failures.
func isValidationError(err error) bool {
	return errors.Is(err, control.ErrTemperatureRange) ||
		errors.Is(err, control.ErrInvalidTempType) ||
		errors.Is(err, control.ErrInvalidMode)
}

func (h *Handler) commandError(c *gin.Context, err error, logKey string) {
	if isValidationError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logAndJSONError(c, http.StatusInternalServerError, "command failed", logKey, err)
}

type temperatureRequest struct {
	Type   string  `json:"type" binding:"required"` // heat | cool
	ValueC float64 `json:"value_c" binding:"required"`
}

type modeRequest struct {
	Mode string `json:"mode" binding:"required"` // heat | cool | auto | off
}

type fanRequest struct {
	On *bool `json:"on" binding:"required"`
}

type enabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Current thermostat status
// @Tags         thermostat
// @Produce      json
// @Success      200  {object}  models.Status
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/thermostat/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.control.Status())
}

// @Summary      Set a target temperature
// @Description  Valid range is 10-32°C; a manual change places schedules on hold
// @Tags         thermostat
// @Accept       json
// @Produce      json
// @Param        body  body  temperatureRequest  true  "Temperature payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/thermostat/temperature [post]
// @Security     BearerAuth
func (h *Handler) setTemperature(c *gin.Context) {
	var req temperatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	if err := h.control.SetTemperature(c.Request.Context(), models.StageType(req.Type), req.ValueC); err != nil {
		h.commandError(c, err, "set_temperature_failed")
		return
	}
	h.respondWithStatus(c, statusApplied, gin.H{"type": req.Type, "value_c": req.ValueC})
}

// @Summary      Set the operating mode
// @Tags         thermostat
// @Accept       json
// @Produce      json
// @Param        body  body  modeRequest  true  "Mode payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/thermostat/mode [post]
// @Security     BearerAuth
func (h *Handler) setMode(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	if err := h.control.SetMode(c.Request.Context(), models.Mode(req.Mode)); err != nil {
		h.commandError(c, err, "set_mode_failed")
		return
	}
	h.respondWithStatus(c, statusApplied, gin.H{"mode": req.Mode})
}

// @Summary      Set fan mode
// @Description  on=true runs the fan continuously; on=false returns it to automatic
// @Tags         thermostat
// @Accept       json
// @Produce      json
// @Param        body  body  fanRequest  true  "Fan payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/thermostat/fan [post]
// @Security     BearerAuth
func (h *Handler) setFan(c *gin.Context) {
	var req fanRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.On == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: expected {\"on\": bool}"})
		return
	}
	if err := h.control.SetFan(c.Request.Context(), *req.On); err != nil {
		h.commandError(c, err, "set_fan_failed")
		return
	}
	h.respondWithStatus(c, statusApplied, gin.H{"fan_on": *req.On})
}

// @Summary      Resume schedules
// @Description  Clears any manual hold
// @Tags         schedules
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/schedules/resume [post]
// @Security     BearerAuth
func (h *Handler) resumeSchedules(c *gin.Context) {
	if err := h.control.ResumeSchedules(c.Request.Context()); err != nil {
		h.commandError(c, err, "resume_schedules_failed")
		return
	}
	h.respondWithStatus(c, statusApplied, gin.H{})
}

// @Summary      Enable or disable the schedule system
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        body  body  enabledRequest  true  "Enabled payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/schedules/enabled [post]
// @Security     BearerAuth
func (h *Handler) setScheduleEnabled(c *gin.Context) {
	var req enabledRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: expected {\"enabled\": bool}"})
		return
	}
	if err := h.control.SetScheduleEnabled(c.Request.Context(), *req.Enabled); err != nil {
		h.commandError(c, err, "set_schedule_enabled_failed")
		return
	}
	h.respondWithStatus(c, statusApplied, gin.H{"enabled": *req.Enabled})
}

// @Summary      Reload the sensor registry
// @Tags         sensors
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/sensors/reload [post]
// @Security     BearerAuth
func (h *Handler) reloadSensors(c *gin.Context) {
	if err := h.control.ReloadSensors(c.Request.Context()); err != nil {
		h.commandError(c, err, "reload_sensors_failed")
		return
	}
	h.respondWithStatus(c, statusApplied, gin.H{})
}

// @Summary      Reload stage configuration
// @Tags         stages
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/stages/reload [post]
// @Security     BearerAuth
func (h *Handler) reloadStages(c *gin.Context) {
	if err := h.control.ReloadStages(c.Request.Context()); err != nil {
		h.commandError(c, err, "reload_stages_failed")
		return
	}
	h.respondWithStatus(c, statusApplied, gin.H{})
}
