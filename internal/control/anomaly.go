package control

import (
	"fmt"
	"time"

	"zone_thermostat/internal/models"
)

// Rolling per-sensor history window used for rapid-change comparison.
const (
	historyWindow   = 30 * time.Minute
	rapidChangeSpan = 5 * time.Minute
)

// updateSensorHistory appends the batch to each sensor's rolling window and
// drops entries older than historyWindow.
func (c *Controller) updateSensorHistory(now time.Time, readings []models.SensorReading) {
	cutoff := now.Add(-historyWindow)
	for _, r := range readings {
		entries := append(c.history[r.SensorID], r)
		keep := entries[:0]
		for _, e := range entries {
			if e.ObservedAt.After(cutoff) {
				keep = append(keep, e)
			}
		}
		c.history[r.SensorID] = keep
	}
}

// detectAnomalies quarantines monitored sensors that either changed too
// fast against their own history or drifted too far above the cross-sensor
// mean. Expired quarantine entries are purged first, every cycle.
func (c *Controller) detectAnomalies(now time.Time, readings []models.SensorReading) {
	c.purgeExpiredQuarantine(now)

	if len(readings) < 2 {
		return
	}

	var sum float64
	var n int
	for _, r := range readings {
		if !c.isQuarantined(now, r.SensorID) {
			sum += r.TemperatureC
			n++
		}
	}
	if n == 0 {
		return
	}
	mean := sum / float64(n)

	for _, r := range readings {
		if !c.monitored[r.SensorID] {
			continue
		}

		// Rapid-change check: compare against the most recent history
		// entry observed at least rapidChangeSpan ago.
		if old, ok := c.historyAtLeast(r.SensorID, now.Add(-rapidChangeSpan)); ok {
			delta := r.TemperatureC - old.TemperatureC
			if delta < 0 {
				delta = -delta
			}
			if delta > c.cfg.AnomalyThresholdC {
				c.quarantine(now, r.SensorID,
					fmt.Sprintf("rapid change: %.1f°C in %s", r.TemperatureC-old.TemperatureC, rapidChangeSpan))
			}
		}

		// Deviation check against the mean of non-quarantined readings.
		if r.TemperatureC-mean > c.cfg.DeviationThresholdC {
			c.quarantine(now, r.SensorID,
				fmt.Sprintf("deviation: %.1f°C above average", r.TemperatureC-mean))
		}
	}
}

// historyAtLeast returns the newest history entry observed at or before the
// given instant.
func (c *Controller) historyAtLeast(sensorID string, at time.Time) (models.SensorReading, bool) {
	var found models.SensorReading
	ok := false
	for _, e := range c.history[sensorID] {
		if !e.ObservedAt.After(at) {
			found = e
			ok = true
		}
	}
	return found, ok
}

// quarantine excludes a sensor until now+IgnoreDuration. Re-triggering an
// already quarantined sensor does not reset its timer.
func (c *Controller) quarantine(now time.Time, sensorID, reason string) {
	if _, exists := c.compromised[sensorID]; exists {
		return
	}
	c.compromised[sensorID] = now.Add(c.cfg.IgnoreDuration)
	c.log.Warnw("sensor quarantined", "sensor", c.displayName(sensorID), "reason", reason)
}

func (c *Controller) isQuarantined(now time.Time, sensorID string) bool {
	until, ok := c.compromised[sensorID]
	return ok && now.Before(until)
}

func (c *Controller) purgeExpiredQuarantine(now time.Time) {
	for id, until := range c.compromised {
		if !now.Before(until) {
			delete(c.compromised, id)
			c.log.Infow("sensor cleared from quarantine", "sensor", c.displayName(id))
		}
	}
}

func (c *Controller) displayName(sensorID string) string {
	if name, ok := c.sensorNames[sensorID]; ok {
		return name
	}
	return sensorID
}
