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

func TestNew_DefaultsWhenNothingPersisted(t *testing.T) {
	f := newFixture(t, defaultConfig())

	st := f.c.Status()
	if st.Mode != models.ModeHeat || st.FanMode != models.FanAuto {
		t.Fatalf("got mode=%s fan=%s, want heat/auto", st.Mode, st.FanMode)
	}
	if st.TargetHeatC != defaultTargetHeatC || st.TargetCoolC != defaultTargetCoolC {
		t.Fatalf("got heat=%.1f cool=%.1f, want defaults", st.TargetHeatC, st.TargetCoolC)
	}
	if len(st.ActiveHeatStages) != 0 || len(st.ActiveCoolStages) != 0 || st.FanOn {
		t.Fatal("all equipment must start off")
	}
}

func TestNew_LoadsPersistedSetpoints(t *testing.T) {
	f := &fixture{
		sensors:   &fakeSource{},
		actuators: driver.NewMockActuators(),
		settings: &fakeSettings{loaded: &models.Setpoints{
			TargetHeatC: 18.5, TargetCoolC: 26.0, Mode: models.ModeAuto, FanMode: models.FanOn,
		}},
		schedules: &fakeSchedules{},
		sensorReg: &fakeSensorStore{},
		stages:    &fakeStageStore{list: defaultStages()},
		history:   &fakeHistory{},
		audit:     &fakeAudit{},
	}
	c, err := New(defaultConfig(), logger.Get(logger.ErrorLevel), f.sensors, f.actuators, Stores{
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

	st := c.Status()
	if st.TargetHeatC != 18.5 || st.TargetCoolC != 26.0 || st.Mode != models.ModeAuto || st.FanMode != models.FanOn {
		t.Fatalf("persisted setpoints not restored: %+v", st)
	}
}

func TestSetTemperature_Validation(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()

	if err := f.c.SetTemperature(ctx, models.StageHeat, 9.9); !errors.Is(err, ErrTemperatureRange) {
		t.Fatalf("got %v, want ErrTemperatureRange", err)
	}
	if err := f.c.SetTemperature(ctx, models.StageHeat, 32.1); !errors.Is(err, ErrTemperatureRange) {
		t.Fatalf("got %v, want ErrTemperatureRange", err)
	}
	if err := f.c.SetTemperature(ctx, "steam", 21.0); !errors.Is(err, ErrInvalidTempType) {
		t.Fatalf("got %v, want ErrInvalidTempType", err)
	}
	// boundaries are inclusive
	if err := f.c.SetTemperature(ctx, models.StageHeat, 10.0); err != nil {
		t.Fatalf("10.0 rejected: %v", err)
	}
	if err := f.c.SetTemperature(ctx, models.StageCool, 32.0); err != nil {
		t.Fatalf("32.0 rejected: %v", err)
	}
}

func TestSetMode_Validation(t *testing.T) {
	f := newFixture(t, defaultConfig())
	if err := f.c.SetMode(context.Background(), "defrost"); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("got %v, want ErrInvalidMode", err)
	}
}

func TestCommands_SucceedWhenStoreFails(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.settings.saveErr = errBoom

	if err := f.c.SetTemperature(context.Background(), models.StageHeat, 22.0); err != nil {
		t.Fatalf("command failed on store error: %v", err)
	}
	if got := f.c.Status().TargetHeatC; got != 22.0 {
		t.Fatalf("target heat = %.1f, want 22.0 from in-memory state", got)
	}
}

func TestCommands_AuditRecordsManualChange(t *testing.T) {
	f := newFixture(t, defaultConfig())

	if err := f.c.SetTemperature(context.Background(), models.StageHeat, 22.0); err != nil {
		t.Fatalf("SetTemperature: %v", err)
	}
	if len(f.audit.records) != 1 {
		t.Fatalf("audit records = %d, want 1", len(f.audit.records))
	}
	rec := f.audit.records[0]
	if rec.Field != "target_heat_c" || rec.OldValue != "20.0" || rec.NewValue != "22.0" || rec.Source != "api" {
		t.Fatalf("unexpected audit record: %+v", rec)
	}

	// setting the same value again saves but does not audit
	if err := f.c.SetTemperature(context.Background(), models.StageHeat, 22.0); err != nil {
		t.Fatalf("SetTemperature: %v", err)
	}
	if len(f.audit.records) != 1 {
		t.Fatalf("audit records = %d, want still 1", len(f.audit.records))
	}
}

func TestShutdown_DrivesAllLinesOff(t *testing.T) {
	f := newFixture(t, defaultConfig())

	f.readAt(t, map[string]float64{"a": 18.0, "b": 18.0})
	if got := activeHeat(f); !equalInts(got, []int{1, 2}) {
		t.Fatalf("heat stages = %v, want [1 2]", got)
	}

	// dwell guards do not apply to the safe-state transition
	f.advance(time.Minute)
	f.c.Shutdown()

	for _, pin := range []int{heat1Pin, heat2Pin, cool1Pin, fanPin} {
		if f.actuators.Line(pin) {
			t.Fatalf("pin %d still on after shutdown", pin)
		}
	}
	st := f.c.Status()
	if len(st.ActiveHeatStages) != 0 || len(st.ActiveCoolStages) != 0 || st.FanOn {
		t.Fatalf("state not cleared after shutdown: %+v", st)
	}
}

func TestReloadStages_ForcesDeconfiguredStageOff(t *testing.T) {
	f := newFixture(t, defaultConfig())

	f.readAt(t, map[string]float64{"a": 18.0, "b": 18.0})
	if got := activeHeat(f); !equalInts(got, []int{1, 2}) {
		t.Fatalf("heat stages = %v, want [1 2]", got)
	}

	// stage 2 disappears from the configuration while running
	f.stages.list = []models.StageConfig{
		{ID: 1, Type: models.StageHeat, Number: 1, Pin: heat1Pin, TempOffsetC: 0.28, MinDwell: 300, Enabled: true},
		{ID: 3, Type: models.StageCool, Number: 1, Pin: cool1Pin, TempOffsetC: 0.28, MinDwell: 300, Enabled: true},
	}
	if err := f.c.ReloadStages(context.Background()); err != nil {
		t.Fatalf("ReloadStages: %v", err)
	}

	if got := activeHeat(f); !equalInts(got, []int{1}) {
		t.Fatalf("heat stages = %v, want [1]", got)
	}
	if f.actuators.Line(heat2Pin) {
		t.Fatal("deconfigured stage line still energized")
	}
}

func TestReadCycle_AutoRegistersUnknownSensor(t *testing.T) {
	f := newFixture(t, defaultConfig())

	f.readAt(t, map[string]float64{"28-0000000abcde": 20.0, "28-0000000fghij": 20.5})

	if len(f.sensorReg.registered) != 2 {
		t.Fatalf("registered = %d sensors, want 2", len(f.sensorReg.registered))
	}
	byID := map[string]models.SensorConfig{}
	for _, sc := range f.sensorReg.registered {
		byID[sc.SensorID] = sc
	}
	sc := byID["28-0000000abcde"]
	if sc.Name != "Sensor 0abcde" || !sc.Enabled || sc.Monitored {
		t.Fatalf("unexpected registration: %+v", sc)
	}

	// a second cycle does not re-register
	f.advance(30 * time.Second)
	f.readAt(t, map[string]float64{"28-0000000abcde": 20.0, "28-0000000fghij": 20.5})
	if len(f.sensorReg.registered) != 2 {
		t.Fatalf("registered = %d sensors after second cycle, want 2", len(f.sensorReg.registered))
	}
}

func TestReadCycle_FailedReadKeepsPreviousState(t *testing.T) {
	f := newFixture(t, defaultConfig())

	f.readAt(t, map[string]float64{"a": 19.0, "b": 19.0})
	if got := activeHeat(f); !equalInts(got, []int{1}) {
		t.Fatalf("heat stages = %v, want [1]", got)
	}

	f.advance(10 * time.Minute)
	f.sensors.err = errBoom
	f.c.mu.Lock()
	f.c.readCycle(context.Background(), f.clock)
	f.c.mu.Unlock()

	st := f.c.Status()
	if !equalInts(st.ActiveHeatStages, []int{1}) {
		t.Fatalf("heat stages = %v, want [1] preserved across a failed read", st.ActiveHeatStages)
	}
	if st.SystemTempC == nil || *st.SystemTempC != 19.0 {
		t.Fatalf("system temp = %v, want the last good 19.0", st.SystemTempC)
	}
}

func TestReadCycle_EmptyReadKeepsPreviousState(t *testing.T) {
	f := newFixture(t, defaultConfig())

	f.readAt(t, map[string]float64{"a": 19.0, "b": 19.0})
	f.advance(10 * time.Minute)
	f.readAt(t, map[string]float64{})

	if got := activeHeat(f); !equalInts(got, []int{1}) {
		t.Fatalf("heat stages = %v, want [1] preserved across an empty read", got)
	}
}

func TestReadCycle_HistoryFlushMarksCompromised(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.c.monitored["attic"] = true

	f.advance(6 * time.Minute) // history flush due
	f.readAt(t, map[string]float64{"hall": 20.0, "bed": 20.0, "attic": 30.0})

	if len(f.history.sensorBatches) != 1 {
		t.Fatalf("sensor batches = %d, want 1", len(f.history.sensorBatches))
	}
	var atticSample *models.SensorSample
	for i := range f.history.sensorBatches[0] {
		if f.history.sensorBatches[0][i].SensorID == "attic" {
			atticSample = &f.history.sensorBatches[0][i]
		}
	}
	if atticSample == nil || !atticSample.Compromised {
		t.Fatalf("attic sample = %+v, want compromised", atticSample)
	}

	if len(f.history.hvacSamples) != 1 {
		t.Fatalf("hvac samples = %d, want 1", len(f.history.hvacSamples))
	}
	hv := f.history.hvacSamples[0]
	if hv.SystemTempC == nil || *hv.SystemTempC != 20.0 {
		t.Fatalf("hvac sample temp = %v, want 20.0", hv.SystemTempC)
	}
}

func TestReadCycle_CleanupRunsOnItsOwnCadence(t *testing.T) {
	f := newFixture(t, defaultConfig())

	f.readAt(t, map[string]float64{"a": 20.0, "b": 20.0})
	if len(f.history.cleanups) != 0 {
		t.Fatal("cleanup ran before its interval")
	}

	f.advance(25 * time.Hour)
	f.readAt(t, map[string]float64{"a": 20.0, "b": 20.0})
	if len(f.history.cleanups) != 1 || f.history.cleanups[0] != 1825 {
		t.Fatalf("cleanups = %v, want one run with 1825-day retention", f.history.cleanups)
	}
}
