package control

import (
	"context"
	"errors"
	"testing"
	"time"

	"zone_thermostat/internal/driver"
	"zone_thermostat/internal/logger"
	"zone_thermostat/internal/models"
)

var errBoom = errors.New("boom")

// ---- Store fakes ----

type fakeSettings struct {
	loaded  *models.Setpoints
	loadErr error
	saveErr error
	saves   []models.Setpoints
}

func (f *fakeSettings) Load(ctx context.Context) (*models.Setpoints, error) {
	return f.loaded, f.loadErr
}

func (f *fakeSettings) Save(ctx context.Context, sp models.Setpoints) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves = append(f.saves, sp)
	return nil
}

type fakeSchedules struct {
	entries  []models.ScheduleEntry
	dueErr   error
	countErr error
	dueCalls []string
}

func (f *fakeSchedules) DueAt(ctx context.Context, timeOfDay string) ([]models.ScheduleEntry, error) {
	f.dueCalls = append(f.dueCalls, timeOfDay)
	if f.dueErr != nil {
		return nil, f.dueErr
	}
	var out []models.ScheduleEntry
	for _, e := range f.entries {
		if e.Enabled && e.TimeOfDay == timeOfDay {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeSchedules) Count(ctx context.Context) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.entries), nil
}

type fakeSensorStore struct {
	list       []models.SensorConfig
	registered []models.SensorConfig
}

func (f *fakeSensorStore) ListEnabled(ctx context.Context) ([]models.SensorConfig, error) {
	return f.list, nil
}

func (f *fakeSensorStore) Register(ctx context.Context, sc models.SensorConfig) error {
	f.registered = append(f.registered, sc)
	return nil
}

type fakeStageStore struct {
	list []models.StageConfig
}

func (f *fakeStageStore) ListEnabled(ctx context.Context) ([]models.StageConfig, error) {
	return f.list, nil
}

type fakeHistory struct {
	sensorBatches [][]models.SensorSample
	hvacSamples   []models.HVACSample
	cleanups      []int
}

func (f *fakeHistory) AppendSensorSamples(ctx context.Context, samples []models.SensorSample) error {
	f.sensorBatches = append(f.sensorBatches, samples)
	return nil
}

func (f *fakeHistory) AppendHVACSample(ctx context.Context, sample models.HVACSample) error {
	f.hvacSamples = append(f.hvacSamples, sample)
	return nil
}

func (f *fakeHistory) Cleanup(ctx context.Context, retentionDays int) error {
	f.cleanups = append(f.cleanups, retentionDays)
	return nil
}

type fakeAudit struct {
	records []models.SettingChange
}

func (f *fakeAudit) Append(ctx context.Context, ch models.SettingChange) error {
	f.records = append(f.records, ch)
	return nil
}

// fakeSource serves readings with caller-controlled timestamps, so history
// windows line up with the fixture clock.
type fakeSource struct {
	readings []models.SensorReading
	err      error
}

func (f *fakeSource) ReadAll(ctx context.Context) ([]models.SensorReading, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.SensorReading, len(f.readings))
	copy(out, f.readings)
	return out, nil
}

// ---- Harness ----

type fixture struct {
	c         *Controller
	sensors   *fakeSource
	actuators *driver.MockActuators
	settings  *fakeSettings
	schedules *fakeSchedules
	sensorReg *fakeSensorStore
	stages    *fakeStageStore
	history   *fakeHistory
	audit     *fakeAudit
	clock     time.Time
}

const (
	heat1Pin = 17
	heat2Pin = 23
	cool1Pin = 27
	fanPin   = 22
)

func defaultStages() []models.StageConfig {
	return []models.StageConfig{
		{ID: 1, Type: models.StageHeat, Number: 1, Pin: heat1Pin, TempOffsetC: 0.28, MinDwell: 300, Enabled: true},
		{ID: 2, Type: models.StageHeat, Number: 2, Pin: heat2Pin, TempOffsetC: 1.67, MinDwell: 300, Enabled: true},
		{ID: 3, Type: models.StageCool, Number: 1, Pin: cool1Pin, TempOffsetC: 0.28, MinDwell: 300, Enabled: true},
	}
}

func defaultConfig() Config {
	return Config{
		Tick:                  time.Second,
		SensorReadInterval:    30 * time.Second,
		ScheduleCheckInterval: 60 * time.Second,
		HistoryLogInterval:    5 * time.Minute,
		CleanupInterval:       24 * time.Hour,
		HysteresisC:           0.28,
		AnomalyThresholdC:     1.67,
		DeviationThresholdC:   2.78,
		IgnoreDuration:        time.Hour,
		HoldDuration:          2 * time.Hour,
		HistoryRetentionDays:  1825,
		FanPin:                fanPin,
		ScheduleEnabled:       true,
	}
}

// newFixture builds a controller over fakes with a controllable clock.
func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	f := &fixture{
		sensors:   &fakeSource{},
		actuators: driver.NewMockActuators(),
		settings:  &fakeSettings{},
		schedules: &fakeSchedules{},
		sensorReg: &fakeSensorStore{},
		stages:    &fakeStageStore{list: defaultStages()},
		history:   &fakeHistory{},
		audit:     &fakeAudit{},
		clock:     time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC), // a Monday
	}

	c, err := New(cfg, logger.Get(logger.ErrorLevel), f.sensors, f.actuators, Stores{
		Settings:  f.settings,
		Schedules: f.schedules,
		Sensors:   f.sensorReg,
		Stages:    f.stages,
		History:   f.history,
		Audit:     f.audit,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.now = func() time.Time { return f.clock }
	// cadence baselines follow the fake clock, not the wall clock
	c.lastHistoryLog = f.clock
	c.lastCleanup = f.clock
	f.c = c
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

// readAt installs one batch of readings stamped with the fixture clock and
// runs a read cycle.
func (f *fixture) readAt(t *testing.T, temps map[string]float64) {
	t.Helper()
	readings := make([]models.SensorReading, 0, len(temps))
	for id, v := range temps {
		readings = append(readings, models.SensorReading{
			SensorID:     id,
			TemperatureC: v,
			ObservedAt:   f.clock,
		})
	}
	f.sensors.readings = readings
	f.c.mu.Lock()
	f.c.readCycle(context.Background(), f.clock)
	f.c.mu.Unlock()
}

func floatPtr(v float64) *float64 { return &v }

func modePtr(m models.Mode) *models.Mode { return &m }
