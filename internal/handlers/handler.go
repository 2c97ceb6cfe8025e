package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"zone_thermostat/internal/logger"
	"zone_thermostat/internal/models"
	"zone_thermostat/internal/repository"
	"zone_thermostat/internal/service"
)

// ThermostatControl is the command API plus status snapshot exposed by the
// control engine. The HTTP layer is a thin consumer of it.
type ThermostatControl interface {
	SetTemperature(ctx context.Context, kind models.StageType, valueC float64) error
	SetMode(ctx context.Context, mode models.Mode) error
	SetFan(ctx context.Context, on bool) error
	ResumeSchedules(ctx context.Context) error
	SetScheduleEnabled(ctx context.Context, enabled bool) error
	ReloadSensors(ctx context.Context) error
	ReloadStages(ctx context.Context) error
	Status() models.Status
}

// Handler wires the HTTP layer to the control engine, repositories and
// auth.
type Handler struct {
	control  ThermostatControl
	repos    *repository.Repository
	services *service.Service
	log      *logger.Logger
}

func NewHandler(control ThermostatControl, repos *repository.Repository, services *service.Service, log *logger.Logger) *Handler {
	return &Handler{control: control, repos: repos, services: services, log: log}
}

// InitRoutes builds the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)

	auth := router.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}

	api := router.Group("/api/v1", h.userIdMiddleware)
	{
		thermostat := api.Group("/thermostat")
		{
			thermostat.GET("/status", h.getStatus)
			thermostat.POST("/temperature", h.setTemperature)
			thermostat.POST("/mode", h.setMode)
			thermostat.POST("/fan", h.setFan)
		}

		schedules := api.Group("/schedules")
		{
			schedules.GET("", h.listSchedules)
			schedules.POST("", h.createSchedule)
			schedules.PUT("/:id", h.updateSchedule)
			schedules.DELETE("/:id", h.deleteSchedule)
			schedules.POST("/resume", h.resumeSchedules)
			schedules.POST("/enabled", h.setScheduleEnabled)
		}

		sensors := api.Group("/sensors")
		{
			sensors.GET("", h.listSensors)
			sensors.PUT("/:id", h.updateSensor)
			sensors.POST("/reload", h.reloadSensors)
		}

		stages := api.Group("/stages")
		{
			stages.GET("", h.listStages)
			stages.POST("", h.createStage)
			stages.PUT("/:id", h.updateStage)
			stages.DELETE("/:id", h.deleteStage)
			stages.POST("/reload", h.reloadStages)
		}

		history := api.Group("/history")
		{
			history.GET("/sensors", h.sensorHistory)
			history.GET("/hvac", h.hvacHistory)
			history.GET("/settings", h.settingHistory)
		}
	}

	// Live status push over WebSocket, same port.
	router.GET("/ws", h.wsConnect)

	return router
}
