package control

import (
	"time"

	"zone_thermostat/internal/models"
)

// controlStages decides and applies the active stage sets for the current
// system temperature. Heat and cool are sequenced independently except for
// the mutual-exclusion rule; whichever type is deactivating is applied
// first so the other can engage on a later cycle once its counterpart has
// fully released.
func (c *Controller) controlStages(now time.Time, tempC float64) {
	if c.setpoints.Mode == models.ModeOff {
		c.applyStageSet(models.StageHeat, nil, now)
		c.applyStageSet(models.StageCool, nil, now)
		c.updateFan(now)
		return
	}

	heatDesired := map[int]bool{}
	coolDesired := map[int]bool{}

	if c.setpoints.Mode == models.ModeHeat || c.setpoints.Mode == models.ModeAuto {
		heatDesired = c.desiredStages(models.StageHeat, c.setpoints.TargetHeatC-tempC)
	}
	if c.setpoints.Mode == models.ModeCool || c.setpoints.Mode == models.ModeAuto {
		coolDesired = c.desiredStages(models.StageCool, tempC-c.setpoints.TargetCoolC)
	}

	// Last-line guard: the selection rule cannot demand both types at once
	// unless the setpoints themselves overlap.
	if anyOn(heatDesired) && anyOn(coolDesired) {
		c.log.Errorw("safety violation: heat and cool demanded simultaneously",
			"temp_c", tempC, "heat_c", c.setpoints.TargetHeatC, "cool_c", c.setpoints.TargetCoolC)
		return
	}

	if anyOn(heatDesired) {
		c.applyStageSet(models.StageCool, coolDesired, now)
		c.applyStageSet(models.StageHeat, heatDesired, now)
	} else {
		c.applyStageSet(models.StageHeat, heatDesired, now)
		c.applyStageSet(models.StageCool, coolDesired, now)
	}
	c.updateFan(now)
}

// desiredStages applies the stage-selection rule for one equipment type.
// demand is the heating deficit or cooling excess in °C. Within the
// hysteresis band the current set is kept as-is.
func (c *Controller) desiredStages(t models.StageType, demand float64) map[int]bool {
	current := c.active[t]

	switch {
	case demand > c.cfg.HysteresisC:
		desired := map[int]bool{}
		hasStageOne := false
		for _, st := range c.stagesOf(t) {
			if st.Number == 1 {
				hasStageOne = true
			}
			if demand >= st.TempOffsetC {
				desired[st.Number] = true
			}
		}
		// At least one stage engages before escalating: stage 1 is the
		// fallback when no configured offset is met.
		if !anyOn(desired) && hasStageOne {
			desired[1] = true
		}
		return desired
	case demand < -c.cfg.HysteresisC:
		return map[int]bool{}
	default:
		keep := make(map[int]bool, len(current))
		for n, on := range current {
			if on {
				keep[n] = true
			}
		}
		return keep
	}
}

// applyStageSet transitions one equipment type to the desired stage set,
// enforcing the exclusivity and dwell guards. A guard failure leaves the
// whole type untouched for this cycle.
func (c *Controller) applyStageSet(t models.StageType, desired map[int]bool, now time.Time) {
	current := c.active[t]
	if stageSetsEqual(current, desired) {
		return
	}

	if anyOn(desired) && anyOn(c.active[otherType(t)]) {
		c.log.Errorw("safety violation: refusing stage activation while opposite type is active",
			"type", t, "desired", sortedStageNumbers(desired))
		return
	}

	for _, st := range c.stagesOf(t) {
		dwell := time.Duration(st.MinDwell) * time.Second
		key := stageKey{t, st.Number}
		last, seen := c.lastTransition[key]
		if !seen {
			continue
		}
		// One timer gates both minimum run and minimum rest.
		if current[st.Number] && now.Sub(last) < dwell {
			c.log.Debugw("dwell time not met, stage update skipped",
				"type", t, "stage", st.Number, "since_change", now.Sub(last))
			return
		}
		if desired[st.Number] && !current[st.Number] && now.Sub(last) < dwell {
			c.log.Debugw("rest time not met, stage update skipped",
				"type", t, "stage", st.Number, "since_change", now.Sub(last))
			return
		}
	}

	next := make(map[int]bool)
	for _, st := range c.stagesOf(t) {
		want := desired[st.Number]
		if want {
			next[st.Number] = true
		}
		if want == current[st.Number] {
			continue
		}
		if err := c.actuators.SetLine(st.Pin, want); err != nil {
			// In-memory state keeps the intended value; the write is not
			// retried.
			c.log.Warnw("actuator write failed", "type", t, "stage", st.Number, "pin", st.Pin, "err", err)
		}
		c.lastTransition[stageKey{t, st.Number}] = now
	}
	c.active[t] = next
	c.log.Infow("stage state changed", "type", t, "active", sortedStageNumbers(next))
}

// updateFan derives the fan line: continuous mode forces it on, otherwise
// it tracks whether any stage of either type is active.
func (c *Controller) updateFan(now time.Time) {
	want := c.setpoints.FanMode == models.FanOn ||
		anyOn(c.active[models.StageHeat]) || anyOn(c.active[models.StageCool])
	if want == c.fanOn {
		return
	}
	if err := c.actuators.SetLine(c.cfg.FanPin, want); err != nil {
		c.log.Warnw("actuator write failed", "pin", c.cfg.FanPin, "err", err)
	}
	c.fanOn = want
	c.log.Infow("fan state changed", "on", want)
}

func otherType(t models.StageType) models.StageType {
	if t == models.StageHeat {
		return models.StageCool
	}
	return models.StageHeat
}

func anyOn(set map[int]bool) bool {
	for _, on := range set {
		if on {
			return true
		}
	}
	return false
}

func stageSetsEqual(a, b map[int]bool) bool {
	for n, on := range a {
		if on && !b[n] {
			return false
		}
	}
	for n, on := range b {
		if on && !a[n] {
			return false
		}
	}
	return true
}
