package control

import (
	"context"
	"testing"
	"time"

	"zone_thermostat/internal/models"
)

// A schedule firing in a tick must be visible to the same tick's stage
// decision.
func TestTick_ScheduleAppliesBeforeStageControl(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.schedules.entries = []models.ScheduleEntry{{
		ID: 1, Name: "warmup", Enabled: true,
		DaysOfWeek:  []int{1}, // fixture clock is a Monday
		TimeOfDay:   "12:00",
		TargetHeatC: floatPtr(23.0),
	}}

	// 21.0 satisfies the default 20.0 target but not the scheduled 23.0
	f.sensors.readings = []models.SensorReading{
		{SensorID: "a", TemperatureC: 21.0, ObservedAt: f.clock},
		{SensorID: "b", TemperatureC: 21.0, ObservedAt: f.clock},
	}

	f.c.Tick(context.Background())

	st := f.c.Status()
	if st.TargetHeatC != 23.0 {
		t.Fatalf("target heat = %.1f, want the scheduled 23.0", st.TargetHeatC)
	}
	if !equalInts(st.ActiveHeatStages, []int{1, 2}) {
		t.Fatalf("heat stages = %v, want [1 2] against the scheduled target", st.ActiveHeatStages)
	}
}

func TestTick_SkipsSubTasksUntilDue(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.sensors.readings = []models.SensorReading{
		{SensorID: "a", TemperatureC: 19.0, ObservedAt: f.clock},
		{SensorID: "b", TemperatureC: 19.0, ObservedAt: f.clock},
	}

	// first tick: both sub-tasks are overdue and run
	f.c.Tick(context.Background())
	if got := activeHeat(f); !equalInts(got, []int{1}) {
		t.Fatalf("heat stages = %v, want [1]", got)
	}
	reads := len(f.schedules.dueCalls)

	// one second later neither cadence has elapsed
	f.advance(time.Second)
	f.sensors.readings = []models.SensorReading{
		{SensorID: "a", TemperatureC: 25.0, ObservedAt: f.clock},
		{SensorID: "b", TemperatureC: 25.0, ObservedAt: f.clock},
	}
	f.c.Tick(context.Background())

	if got := f.c.Status().SystemTempC; got == nil || *got != 19.0 {
		t.Fatalf("system temp = %v, want 19.0 from the previous read", got)
	}
	if len(f.schedules.dueCalls) != reads {
		t.Fatal("schedule lookup ran before its interval")
	}

	// thirty seconds later the sensor read is due again
	f.advance(30 * time.Second)
	f.c.Tick(context.Background())
	if got := f.c.Status().SystemTempC; got == nil || *got != 25.0 {
		t.Fatalf("system temp = %v, want 25.0 after the next read", got)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.c.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
