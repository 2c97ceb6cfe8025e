package handlers

import (
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"

	"zone_thermostat/internal/models"
)

var timeOfDayPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

type scheduleRequest struct {
	Name        string   `json:"name" binding:"required"`
	Enabled     *bool    `json:"enabled"`
	DaysOfWeek  []int    `json:"days_of_week" binding:"required"`
	TimeOfDay   string   `json:"time_of_day" binding:"required"`
	TargetHeatC *float64 `json:"target_heat_c"`
	TargetCoolC *float64 `json:"target_cool_c"`
	Mode        *string  `json:"mode"`
}

func (req *scheduleRequest) validate() (models.ScheduleEntry, string) {
	if !timeOfDayPattern.MatchString(req.TimeOfDay) {
		return models.ScheduleEntry{}, "time_of_day must be HH:MM"
	}
	for _, d := range req.DaysOfWeek {
		if d < 0 || d > 6 {
			return models.ScheduleEntry{}, "days_of_week values must be 0-6"
		}
	}
	e := models.ScheduleEntry{
		Name:        req.Name,
		Enabled:     true,
		DaysOfWeek:  req.DaysOfWeek,
		TimeOfDay:   req.TimeOfDay,
		TargetHeatC: req.TargetHeatC,
		TargetCoolC: req.TargetCoolC,
	}
	if req.Enabled != nil {
		e.Enabled = *req.Enabled
	}
	if req.Mode != nil {
		m := models.Mode(*req.Mode)
		switch m {
		case models.ModeHeat, models.ModeCool, models.ModeAuto, models.ModeOff:
			e.Mode = &m
		default:
			return models.ScheduleEntry{}, "mode must be heat, cool, auto, or off"
		}
	}
	return e, ""
}

// @Summary      List schedules
// @Tags         schedules
// @Produce      json
// @Success      200  {array}   models.ScheduleEntry
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/schedules [get]
// @Security     BearerAuth
func (h *Handler) listSchedules(c *gin.Context) {
	entries, err := h.repos.Schedules.List(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to list schedules", "list_schedules_failed", err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// @Summary      Create a schedule
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        body  body  scheduleRequest  true  "Schedule payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/schedules [post]
// @Security     BearerAuth
func (h *Handler) createSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	entry, msg := req.validate()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	id, err := h.repos.Schedules.Create(c.Request.Context(), entry)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to create schedule", "create_schedule_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// @Summary      Update a schedule
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        id    path  int              true  "Schedule ID"
// @Param        body  body  scheduleRequest  true  "Schedule payload"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/schedules/{id} [put]
// @Security     BearerAuth
func (h *Handler) updateSchedule(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return
	}
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	entry, msg := req.validate()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	entry.ID = id
	if err := h.repos.Schedules.Update(c.Request.Context(), entry); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to update schedule", "update_schedule_failed", err, "id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Delete a schedule
// @Tags         schedules
// @Produce      json
// @Param        id  path  int  true  "Schedule ID"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/schedules/{id} [delete]
// @Security     BearerAuth
func (h *Handler) deleteSchedule(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return
	}
	if err := h.repos.Schedules.Delete(c.Request.Context(), id); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to delete schedule", "delete_schedule_failed", err, "id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}
