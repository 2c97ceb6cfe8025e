package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"zone_thermostat/internal/models"
)

type stageRequest struct {
	Type        string  `json:"stage_type" binding:"required"` // heat | cool
	Number      int     `json:"stage_number" binding:"required"`
	Pin         int     `json:"pin" binding:"required"`
	TempOffsetC float64 `json:"temp_offset_c"`
	MinDwell    int     `json:"min_dwell_s"`
	Enabled     *bool   `json:"enabled"`
	Description string  `json:"description"`
}

func (req *stageRequest) validate() (models.StageConfig, string) {
	t := models.StageType(req.Type)
	if t != models.StageHeat && t != models.StageCool {
		return models.StageConfig{}, "stage_type must be heat or cool"
	}
	if req.Number < 1 {
		return models.StageConfig{}, "stage_number must be >= 1"
	}
	if req.TempOffsetC < 0 {
		return models.StageConfig{}, "temp_offset_c must be >= 0"
	}
	if req.MinDwell < 0 {
		return models.StageConfig{}, "min_dwell_s must be >= 0"
	}
	st := models.StageConfig{
		Type:        t,
		Number:      req.Number,
		Pin:         req.Pin,
		TempOffsetC: req.TempOffsetC,
		MinDwell:    req.MinDwell,
		Enabled:     true,
		Description: req.Description,
	}
	if req.Enabled != nil {
		st.Enabled = *req.Enabled
	}
	return st, ""
}

// @Summary      List stage configuration
// @Tags         stages
// @Produce      json
// @Success      200  {array}   models.StageConfig
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/stages [get]
// @Security     BearerAuth
func (h *Handler) listStages(c *gin.Context) {
	stages, err := h.repos.Stages.List(c.Request.Context(), false)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to list stages", "list_stages_failed", err)
		return
	}
	c.JSON(http.StatusOK, stages)
}

// @Summary      Add a stage
// @Description  The running engine picks the change up after a stages/reload
// @Tags         stages
// @Accept       json
// @Produce      json
// @Param        body  body  stageRequest  true  "Stage payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/stages [post]
// @Security     BearerAuth
func (h *Handler) createStage(c *gin.Context) {
	var req stageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	st, msg := req.validate()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	id, err := h.repos.Stages.Create(c.Request.Context(), st)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to create stage", "create_stage_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// @Summary      Update a stage
// @Tags         stages
// @Accept       json
// @Produce      json
// @Param        id    path  int           true  "Stage ID"
// @Param        body  body  stageRequest  true  "Stage payload"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/stages/{id} [put]
// @Security     BearerAuth
func (h *Handler) updateStage(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stage id"})
		return
	}
	var req stageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	st, msg := req.validate()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	st.ID = id
	if err := h.repos.Stages.Update(c.Request.Context(), st); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to update stage", "update_stage_failed", err, "id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Delete a stage
// @Tags         stages
// @Produce      json
// @Param        id  path  int  true  "Stage ID"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/stages/{id} [delete]
// @Security     BearerAuth
func (h *Handler) deleteStage(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stage id"})
		return
	}
	if err := h.repos.Stages.Delete(c.Request.Context(), id); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to delete stage", "delete_stage_failed", err, "id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}
