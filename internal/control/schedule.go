package control

import (
	"context"
	"time"

	"github.com/google/uuid"

	"zone_thermostat/internal/models"
)

// checkSchedules applies every schedule entry whose weekday and exact
// minute match now. Designed to be invoked once per minute; a minute missed
// while the process was down does not fire retroactively. A live hold
// suppresses application entirely; an expired hold is cleared first.
func (c *Controller) checkSchedules(ctx context.Context, now time.Time) {
	if !c.scheduleEnabled {
		return
	}
	if c.holdUntil != nil {
		if now.Before(*c.holdUntil) {
			c.log.Debugw("schedules on hold", "until", *c.holdUntil)
			return
		}
		c.holdUntil = nil
		c.log.Infow("schedule hold expired, resuming")
	}

	entries, err := c.store.Schedules.DueAt(ctx, now.Format("15:04"))
	if err != nil {
		c.log.Warnw("schedule lookup failed", "err", err)
		return
	}

	weekday := int(now.Weekday())
	applied := false
	for _, e := range entries {
		if !containsDay(e.DaysOfWeek, weekday) {
			continue
		}
		source := "schedule:" + e.Name
		c.log.Infow("applying schedule", "name", e.Name)

		if e.TargetHeatC != nil {
			c.auditIfChanged(ctx, now, "target_heat_c",
				formatTemp(c.setpoints.TargetHeatC), formatTemp(*e.TargetHeatC), source)
			c.setpoints.TargetHeatC = *e.TargetHeatC
			applied = true
		}
		if e.TargetCoolC != nil {
			c.auditIfChanged(ctx, now, "target_cool_c",
				formatTemp(c.setpoints.TargetCoolC), formatTemp(*e.TargetCoolC), source)
			c.setpoints.TargetCoolC = *e.TargetCoolC
			applied = true
		}
		if e.Mode != nil {
			c.auditIfChanged(ctx, now, "mode", string(c.setpoints.Mode), string(*e.Mode), source)
			c.setpoints.Mode = *e.Mode
			applied = true
		}
	}

	if applied {
		if err := c.store.Settings.Save(ctx, c.setpoints); err != nil {
			c.log.Warnw("persist setpoints failed", "err", err)
		}
		c.log.Infow("schedules applied",
			"heat_c", c.setpoints.TargetHeatC, "cool_c", c.setpoints.TargetCoolC, "mode", c.setpoints.Mode)
	}
}

// setHold suppresses schedule application after a manual override. A hold
// is pointless when no schedule could override the change, so it is only
// set when at least one entry exists.
func (c *Controller) setHold(ctx context.Context, now time.Time) {
	if c.cfg.HoldDuration <= 0 {
		return
	}
	n, err := c.store.Schedules.Count(ctx)
	if err != nil {
		c.log.Warnw("schedule count failed", "err", err)
		return
	}
	if n == 0 {
		return
	}
	until := now.Add(c.cfg.HoldDuration)
	c.holdUntil = &until
	c.log.Infow("schedule hold set", "until", until)
}

func (c *Controller) auditIfChanged(ctx context.Context, now time.Time, field, oldVal, newVal, source string) {
	if oldVal == newVal {
		return
	}
	if err := c.store.Audit.Append(ctx, models.SettingChange{
		ID:        uuid.NewString(),
		Field:     field,
		OldValue:  oldVal,
		NewValue:  newVal,
		Source:    source,
		ChangedAt: now,
	}); err != nil {
		c.log.Warnw("append audit record failed", "field", field, "err", err)
	}
}

func containsDay(days []int, weekday int) bool {
	for _, d := range days {
		if d == weekday {
			return true
		}
	}
	return false
}
