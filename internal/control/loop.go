package control

import (
	"context"
	"time"

	"github.com/google/uuid"

	"zone_thermostat/internal/models"
)

// Run drives the control loop at the configured tick until ctx is
// canceled. Each tick checks whether enough wall-clock time has passed for
// each sub-task; schedule application in a tick is visible to the same
// tick's stage-control decision.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Tick)
	defer ticker.Stop()

	c.log.Infow("control loop started",
		"tick", c.cfg.Tick, "read_interval", c.cfg.SensorReadInterval)

	for {
		select {
		case <-ctx.Done():
			c.log.Infow("control loop stopped")
			return
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Tick runs one pass of the loop under the shared lock.
func (c *Controller) Tick(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()

	if now.Sub(c.lastScheduleCheck) >= c.cfg.ScheduleCheckInterval {
		c.checkSchedules(ctx, now)
		c.lastScheduleCheck = now
	}

	if now.Sub(c.lastSensorRead) >= c.cfg.SensorReadInterval {
		c.readCycle(ctx, now)
		c.lastSensorRead = now
	}
}

// readCycle runs the read → detect → aggregate → control chain, plus the
// slower history flush and retention cleanup when due. A failed or empty
// read skips stage control entirely rather than acting on absent data.
func (c *Controller) readCycle(ctx context.Context, now time.Time) {
	readings, err := c.sensors.ReadAll(ctx)
	if err != nil {
		c.log.Warnw("sensor read failed", "err", err)
		return
	}
	if len(readings) == 0 {
		c.log.Warnw("sensor read returned no readings")
		return
	}

	c.nameAndRegister(ctx, readings)
	c.updateSensorHistory(now, readings)
	c.detectAnomalies(now, readings)

	c.latest = readings
	temp, ok := systemTemperature(readings, func(id string) bool {
		return c.isQuarantined(now, id)
	})
	if ok {
		c.systemTemp = &temp
		c.controlStages(now, temp)
	} else {
		c.systemTemp = nil
		c.log.Errorw("no valid temperature readings, stage control skipped")
	}

	if now.Sub(c.lastHistoryLog) >= c.cfg.HistoryLogInterval {
		c.flushHistory(ctx, now, readings)
		c.lastHistoryLog = now
	}

	if now.Sub(c.lastCleanup) >= c.cfg.CleanupInterval {
		if err := c.store.History.Cleanup(ctx, c.cfg.HistoryRetentionDays); err != nil {
			c.log.Errorw("history cleanup failed", "err", err)
		}
		c.lastCleanup = now
	}
}

// nameAndRegister replaces sensor names with their registry entries and
// auto-registers sensors seen for the first time (enabled, unmonitored).
func (c *Controller) nameAndRegister(ctx context.Context, readings []models.SensorReading) {
	for i, r := range readings {
		name, known := c.sensorNames[r.SensorID]
		if known {
			readings[i].Name = name
			continue
		}
		suffix := r.SensorID
		if len(suffix) > 6 {
			suffix = suffix[len(suffix)-6:]
		}
		readings[i].Name = "Sensor " + suffix
		if err := c.store.Sensors.Register(ctx, models.SensorConfig{
			SensorID:  r.SensorID,
			Name:      readings[i].Name,
			Enabled:   true,
			Monitored: false,
		}); err != nil {
			c.log.Warnw("sensor auto-registration failed", "sensor", r.SensorID, "err", err)
			continue
		}
		c.sensorNames[r.SensorID] = readings[i].Name
		c.log.Infow("auto-registered new sensor", "sensor", r.SensorID, "name", readings[i].Name)
	}
}

func (c *Controller) flushHistory(ctx context.Context, now time.Time, readings []models.SensorReading) {
	samples := make([]models.SensorSample, 0, len(readings))
	for _, r := range readings {
		samples = append(samples, models.SensorSample{
			ID:           uuid.NewString(),
			SensorID:     r.SensorID,
			Name:         r.Name,
			TemperatureC: r.TemperatureC,
			Compromised:  c.isQuarantined(now, r.SensorID),
			RecordedAt:   now,
		})
	}
	if err := c.store.History.AppendSensorSamples(ctx, samples); err != nil {
		c.log.Warnw("sensor history write failed", "err", err)
	}

	var temp *float64
	if c.systemTemp != nil {
		v := *c.systemTemp
		temp = &v
	}
	sample := models.HVACSample{
		ID:          uuid.NewString(),
		SystemTempC: temp,
		TargetHeatC: c.setpoints.TargetHeatC,
		TargetCoolC: c.setpoints.TargetCoolC,
		Mode:        c.setpoints.Mode,
		FanMode:     c.setpoints.FanMode,
		HeatStages:  sortedStageNumbers(c.active[models.StageHeat]),
		CoolStages:  sortedStageNumbers(c.active[models.StageCool]),
		FanOn:       c.fanOn,
		RecordedAt:  now,
	}
	if err := c.store.History.AppendHVACSample(ctx, sample); err != nil {
		c.log.Warnw("hvac history write failed", "err", err)
	}
}
