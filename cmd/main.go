package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zone_thermostat/internal/control"
	"zone_thermostat/internal/driver"
	"zone_thermostat/internal/handlers"
	"zone_thermostat/internal/logger"
	"zone_thermostat/internal/repository"
	"zone_thermostat/internal/repository/db"
	"zone_thermostat/internal/server"
	"zone_thermostat/internal/service"

	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

// @title           Zone Thermostat API
// @version         1.0
// @description     Closed-loop thermostat control with multi-stage HVAC sequencing.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	log := logger.Get(viper.GetString("log.level"))

	conn, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	repos := repository.NewRepository(conn)
	services := service.NewService(repos, service.AuthConfig{
		SigningKey: viper.GetString("auth.signing_key"),
		TokenTTL:   viper.GetString("auth.token_ttl"),
	})

	sensors, actuators := buildDriver(log)

	controller, err := control.New(controlConfig(), log, sensors, actuators, control.Stores{
		Settings:  repos.Settings,
		Schedules: repos.Schedules,
		Sensors:   repos.Sensors,
		Stages:    repos.Stages,
		History:   repos.History,
		Audit:     repos.Audit,
	})
	if err != nil {
		log.Fatalw("failed to start control engine", "err", err)
	}

	apiHandler := handlers.NewHandler(controller, repos, services, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go controller.Run(ctx)

	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	waitForShutdown(cancel, srv, controller, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")

	viper.SetDefault("port", "8080")
	viper.SetDefault("log.level", logger.InfoLevel)
	viper.SetDefault("db.path", "thermostat.db")
	viper.SetDefault("driver", "sim")
	viper.SetDefault("gpio.fan_pin", 22)

	viper.SetDefault("control.tick", "1s")
	viper.SetDefault("control.sensor_read_interval", "30s")
	viper.SetDefault("control.schedule_check_interval", "60s")
	viper.SetDefault("control.history_log_interval", "5m")
	viper.SetDefault("control.cleanup_interval", "24h")
	viper.SetDefault("control.hysteresis_c", 0.28)
	viper.SetDefault("control.anomaly_threshold_c", 1.67)
	viper.SetDefault("control.deviation_threshold_c", 2.78)
	viper.SetDefault("control.ignore_duration", "1h")
	viper.SetDefault("control.hold_hours", 2)
	viper.SetDefault("control.history_retention_days", 1825)
	viper.SetDefault("control.schedule_enabled", true)

	return viper.ReadInConfig()
}

func controlConfig() control.Config {
	return control.Config{
		Tick:                  viper.GetDuration("control.tick"),
		SensorReadInterval:    viper.GetDuration("control.sensor_read_interval"),
		ScheduleCheckInterval: viper.GetDuration("control.schedule_check_interval"),
		HistoryLogInterval:    viper.GetDuration("control.history_log_interval"),
		CleanupInterval:       viper.GetDuration("control.cleanup_interval"),
		HysteresisC:           viper.GetFloat64("control.hysteresis_c"),
		AnomalyThresholdC:     viper.GetFloat64("control.anomaly_threshold_c"),
		DeviationThresholdC:   viper.GetFloat64("control.deviation_threshold_c"),
		IgnoreDuration:        viper.GetDuration("control.ignore_duration"),
		HoldDuration:          time.Duration(viper.GetInt("control.hold_hours")) * time.Hour,
		HistoryRetentionDays:  viper.GetInt("control.history_retention_days"),
		FanPin:                viper.GetInt("gpio.fan_pin"),
		ScheduleEnabled:       viper.GetBool("control.schedule_enabled"),
	}
}

// buildDriver picks the sensor/actuator backends. Only simulated backends
// ship today; real bus drivers plug in behind the same interfaces.
func buildDriver(log *logger.Logger) (driver.SensorSource, driver.ActuatorSink) {
	kind := viper.GetString("driver")
	ids := viper.GetStringSlice("sensors.ids")
	if len(ids) == 0 {
		ids = []string{"sim-living-room", "sim-bedroom", "sim-hallway"}
	}

	switch kind {
	case "mock":
		log.Infow("using mock driver")
		return driver.NewMockSensors(), driver.NewMockActuators()
	default:
		log.Infow("using simulated driver", "sensors", len(ids))
		return driver.NewSimSensors(ids), driver.NewMockActuators()
	}
}

func openDB(log *logger.Logger) (*sql.DB, error) {
	path := viper.GetString("db.path")
	log.Infow("opening sqlite", "path", path)
	return db.InitDB(path)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown blocks on SIGINT/SIGTERM, stops the loop, drives every
// output line to its safe state and drains in-flight requests.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, controller *control.Controller, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down")

	cancel()
	controller.Shutdown()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
