// Package control implements the closed-loop engine: sensor aggregation
// with quarantine, multi-stage equipment sequencing, schedule-and-hold
// handling and the command API. All mutable state lives behind one mutex
// shared by the loop and every command.
package control

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"zone_thermostat/internal/driver"
	"zone_thermostat/internal/logger"
	"zone_thermostat/internal/models"
)

// Config carries the tuning knobs of the control engine. All deltas are in
// Celsius.
type Config struct {
	Tick                  time.Duration
	SensorReadInterval    time.Duration
	ScheduleCheckInterval time.Duration
	HistoryLogInterval    time.Duration
	CleanupInterval       time.Duration
	HysteresisC           float64
	AnomalyThresholdC     float64
	DeviationThresholdC   float64
	IgnoreDuration        time.Duration
	HoldDuration          time.Duration
	HistoryRetentionDays  int
	FanPin                int
	ScheduleEnabled       bool
}

// Store interfaces consumed by the engine. The SQL implementations live in
// internal/repository; tests use in-memory fakes.

type SettingsStore interface {
	Load(ctx context.Context) (*models.Setpoints, error) // (nil, nil) when unset
	Save(ctx context.Context, sp models.Setpoints) error
}

type ScheduleStore interface {
	DueAt(ctx context.Context, timeOfDay string) ([]models.ScheduleEntry, error)
	Count(ctx context.Context) (int, error)
}

type SensorStore interface {
	ListEnabled(ctx context.Context) ([]models.SensorConfig, error)
	Register(ctx context.Context, sc models.SensorConfig) error
}

type StageStore interface {
	ListEnabled(ctx context.Context) ([]models.StageConfig, error)
}

type HistoryStore interface {
	AppendSensorSamples(ctx context.Context, samples []models.SensorSample) error
	AppendHVACSample(ctx context.Context, sample models.HVACSample) error
	Cleanup(ctx context.Context, retentionDays int) error
}

type AuditStore interface {
	Append(ctx context.Context, ch models.SettingChange) error
}

// Stores bundles the persistence dependencies of the controller.
type Stores struct {
	Settings  SettingsStore
	Schedules ScheduleStore
	Sensors   SensorStore
	Stages    StageStore
	History   HistoryStore
	Audit     AuditStore
}

// Validation errors returned synchronously to command callers.
var (
	ErrTemperatureRange = errors.New("temperature out of range (10-32°C)")
	ErrInvalidTempType  = errors.New("invalid temperature type: must be heat or cool")
	ErrInvalidMode      = errors.New("invalid mode: must be heat, cool, auto, or off")
)

const (
	minSetpointC = 10.0
	maxSetpointC = 32.0

	defaultTargetHeatC = 20.0
	defaultTargetCoolC = 23.3

	sourceAPI = "api"
)

type stageKey struct {
	Type   models.StageType
	Number int
}

// Controller owns all mutable thermostat state. Every exported method and
// every loop sub-task takes the mutex once for its whole read-modify-write.
type Controller struct {
	mu  sync.Mutex
	cfg Config
	log *logger.Logger
	now func() time.Time

	sensors   driver.SensorSource
	actuators driver.ActuatorSink
	store     Stores

	setpoints models.Setpoints

	// configuration snapshots, swapped atomically on reload
	stages      []models.StageConfig
	sensorNames map[string]string
	monitored   map[string]bool

	// sensor state
	history     map[string][]models.SensorReading
	compromised map[string]time.Time
	latest      []models.SensorReading
	systemTemp  *float64

	// equipment state
	active         map[models.StageType]map[int]bool
	lastTransition map[stageKey]time.Time
	fanOn          bool

	// schedule state
	scheduleEnabled bool
	holdUntil       *time.Time

	// sub-task cadence tracking
	lastScheduleCheck time.Time
	lastSensorRead    time.Time
	lastHistoryLog    time.Time
	lastCleanup       time.Time
}

// New loads persisted setpoints and configuration and returns a controller
// with all stages off. The store is the source of truth; config defaults
// apply only when nothing was persisted yet.
func New(cfg Config, log *logger.Logger, sensors driver.SensorSource, actuators driver.ActuatorSink, store Stores) (*Controller, error) {
	c := &Controller{
		cfg:       cfg,
		log:       log,
		now:       time.Now,
		sensors:   sensors,
		actuators: actuators,
		store:     store,

		sensorNames: make(map[string]string),
		monitored:   make(map[string]bool),
		history:     make(map[string][]models.SensorReading),
		compromised: make(map[string]time.Time),
		active: map[models.StageType]map[int]bool{
			models.StageHeat: {},
			models.StageCool: {},
		},
		lastTransition:  make(map[stageKey]time.Time),
		scheduleEnabled: cfg.ScheduleEnabled,
	}

	ctx := context.Background()

	sp, err := store.Settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load setpoints: %w", err)
	}
	if sp != nil {
		c.setpoints = *sp
		log.Infow("loaded persisted setpoints",
			"heat_c", sp.TargetHeatC, "cool_c", sp.TargetCoolC,
			"mode", sp.Mode, "fan_mode", sp.FanMode)
	} else {
		c.setpoints = models.Setpoints{
			TargetHeatC: defaultTargetHeatC,
			TargetCoolC: defaultTargetCoolC,
			Mode:        models.ModeHeat,
			FanMode:     models.FanAuto,
		}
	}

	if err := c.reloadSensorsLocked(ctx); err != nil {
		return nil, fmt.Errorf("load sensor registry: %w", err)
	}
	if err := c.reloadStagesLocked(ctx); err != nil {
		return nil, fmt.Errorf("load stage config: %w", err)
	}

	// History flush and retention cleanup start counting from boot.
	start := c.now()
	c.lastHistoryLog = start
	c.lastCleanup = start

	return c, nil
}

// SetTemperature validates and applies a new heat or cool target, persists
// it with an audit record, and places schedules on hold.
func (c *Controller) SetTemperature(ctx context.Context, kind models.StageType, valueC float64) error {
	if kind != models.StageHeat && kind != models.StageCool {
		return ErrInvalidTempType
	}
	if valueC < minSetpointC || valueC > maxSetpointC {
		return ErrTemperatureRange
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()

	var field string
	var old float64
	if kind == models.StageHeat {
		field, old = "target_heat_c", c.setpoints.TargetHeatC
		c.setpoints.TargetHeatC = valueC
	} else {
		field, old = "target_cool_c", c.setpoints.TargetCoolC
		c.setpoints.TargetCoolC = valueC
	}

	c.log.Infow("target temperature set", "type", kind, "value_c", valueC)
	c.persistSetpoints(ctx, now, field, formatTemp(old), formatTemp(valueC), sourceAPI)
	c.setHold(ctx, now)
	return nil
}

// SetMode validates and applies a new operating mode. Off drives all stage
// sets empty, subject to the usual dwell guards.
func (c *Controller) SetMode(ctx context.Context, mode models.Mode) error {
	switch mode {
	case models.ModeHeat, models.ModeCool, models.ModeAuto, models.ModeOff:
	default:
		return ErrInvalidMode
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()

	old := c.setpoints.Mode
	c.setpoints.Mode = mode
	c.log.Infow("mode set", "mode", mode)
	c.persistSetpoints(ctx, now, "mode", string(old), string(mode), sourceAPI)
	c.setHold(ctx, now)

	if mode == models.ModeOff {
		c.applyStageSet(models.StageHeat, nil, now)
		c.applyStageSet(models.StageCool, nil, now)
		c.updateFan(now)
	}
	return nil
}

// SetFan toggles between continuous and demand-driven fan operation and
// updates the fan line immediately.
func (c *Controller) SetFan(ctx context.Context, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()

	old := c.setpoints.FanMode
	if on {
		c.setpoints.FanMode = models.FanOn
	} else {
		c.setpoints.FanMode = models.FanAuto
	}
	c.log.Infow("fan mode set", "fan_mode", c.setpoints.FanMode)
	c.persistSetpoints(ctx, now, "fan_mode", string(old), string(c.setpoints.FanMode), sourceAPI)
	c.updateFan(now)
	return nil
}

// ResumeSchedules clears any active hold.
func (c *Controller) ResumeSchedules(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holdUntil = nil
	c.log.Infow("schedule hold cleared")
	return nil
}

// SetScheduleEnabled toggles the global schedule flag. Disabling also
// clears any active hold.
func (c *Controller) SetScheduleEnabled(ctx context.Context, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scheduleEnabled = enabled
	if !enabled {
		c.holdUntil = nil
	}
	c.log.Infow("schedule flag set", "enabled", enabled)
	return nil
}

// ReloadSensors re-reads the sensor registry from the store.
func (c *Controller) ReloadSensors(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reloadSensorsLocked(ctx); err != nil {
		return fmt.Errorf("reload sensors: %w", err)
	}
	c.log.Infow("sensor registry reloaded", "sensors", len(c.sensorNames), "monitored", len(c.monitored))
	return nil
}

// ReloadStages re-reads stage configuration from the store. Stages that
// disappeared from the configuration while active are commanded off.
func (c *Controller) ReloadStages(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	previous := c.stages
	if err := c.reloadStagesLocked(ctx); err != nil {
		return fmt.Errorf("reload stages: %w", err)
	}

	now := c.now()
	for _, st := range previous {
		if !c.active[st.Type][st.Number] || c.stageConfig(st.Type, st.Number) != nil {
			continue
		}
		if err := c.actuators.SetLine(st.Pin, false); err != nil {
			c.log.Warnw("actuator write failed", "pin", st.Pin, "err", err)
		}
		delete(c.active[st.Type], st.Number)
		c.lastTransition[stageKey{st.Type, st.Number}] = now
		c.log.Infow("deconfigured stage forced off", "type", st.Type, "stage", st.Number)
	}
	c.updateFan(now)
	c.log.Infow("stage configuration reloaded", "stages", len(c.stages))
	return nil
}

// Status returns a copy of the current state for the command surface.
func (c *Controller) Status() models.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()

	readings := make([]models.SensorReading, len(c.latest))
	copy(readings, c.latest)

	ids := make([]string, 0, len(c.compromised))
	for id, until := range c.compromised {
		if now.Before(until) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var temp *float64
	if c.systemTemp != nil {
		v := *c.systemTemp
		temp = &v
	}
	var hold *time.Time
	if c.holdUntil != nil {
		t := *c.holdUntil
		hold = &t
	}

	return models.Status{
		Mode:               c.setpoints.Mode,
		FanMode:            c.setpoints.FanMode,
		TargetHeatC:        c.setpoints.TargetHeatC,
		TargetCoolC:        c.setpoints.TargetCoolC,
		ActiveHeatStages:   sortedStageNumbers(c.active[models.StageHeat]),
		ActiveCoolStages:   sortedStageNumbers(c.active[models.StageCool]),
		FanOn:              c.fanOn,
		SystemTempC:        temp,
		Readings:           readings,
		CompromisedSensors: ids,
		ScheduleEnabled:    c.scheduleEnabled,
		HoldUntil:          hold,
		UpdatedAt:          now,
	}
}

// Shutdown commands every configured stage and the fan off. Dwell guards do
// not apply; this is the safe-state transition before the actuator driver
// is torn down.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, st := range c.stages {
		if err := c.actuators.SetLine(st.Pin, false); err != nil {
			c.log.Warnw("actuator write failed during shutdown", "pin", st.Pin, "err", err)
		}
	}
	if err := c.actuators.SetLine(c.cfg.FanPin, false); err != nil {
		c.log.Warnw("actuator write failed during shutdown", "pin", c.cfg.FanPin, "err", err)
	}
	c.active[models.StageHeat] = map[int]bool{}
	c.active[models.StageCool] = map[int]bool{}
	c.fanOn = false
	c.log.Infow("safe state reached: all stages and fan off")
}

// persistSetpoints writes the current setpoints and one audit record. Store
// failures are logged and do not fail the command; the in-memory state is
// authoritative until the next successful write.
func (c *Controller) persistSetpoints(ctx context.Context, now time.Time, field, oldVal, newVal, source string) {
	if err := c.store.Settings.Save(ctx, c.setpoints); err != nil {
		c.log.Warnw("persist setpoints failed", "err", err)
	}
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

func (c *Controller) reloadSensorsLocked(ctx context.Context) error {
	sensors, err := c.store.Sensors.ListEnabled(ctx)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(sensors))
	monitored := make(map[string]bool)
	for _, s := range sensors {
		names[s.SensorID] = s.Name
		if s.Monitored {
			monitored[s.SensorID] = true
		}
	}
	c.sensorNames = names
	c.monitored = monitored
	return nil
}

func (c *Controller) reloadStagesLocked(ctx context.Context) error {
	stages, err := c.store.Stages.ListEnabled(ctx)
	if err != nil {
		return err
	}
	sort.Slice(stages, func(i, j int) bool {
		if stages[i].Type != stages[j].Type {
			return stages[i].Type < stages[j].Type
		}
		return stages[i].Number < stages[j].Number
	})
	c.stages = stages
	return nil
}

func (c *Controller) stageConfig(t models.StageType, number int) *models.StageConfig {
	for i := range c.stages {
		if c.stages[i].Type == t && c.stages[i].Number == number {
			return &c.stages[i]
		}
	}
	return nil
}

func (c *Controller) stagesOf(t models.StageType) []models.StageConfig {
	out := make([]models.StageConfig, 0, len(c.stages))
	for _, st := range c.stages {
		if st.Type == t {
			out = append(out, st)
		}
	}
	return out
}

func sortedStageNumbers(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for n, on := range set {
		if on {
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}

func formatTemp(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
