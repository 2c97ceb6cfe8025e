package driver

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"zone_thermostat/internal/models"
)

// SimSensors emulates a small bus of temperature sensors. Each sensor does a
// bounded random walk around its base temperature, so the control loop sees
// plausible drift without any hardware attached.
type SimSensors struct {
	mu      sync.Mutex
	rng     *rand.Rand
	current map[string]float64
	ids     []string
}

const (
	simBaseTempC = 21.0
	simSpreadC   = 1.5  // per-sensor offset from the base
	simStepC     = 0.15 // max change per read
	simMinTempC  = 5.0
	simMaxTempC  = 40.0
)

func NewSimSensors(ids []string) *SimSensors {
	s := &SimSensors{
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		current: make(map[string]float64, len(ids)),
		ids:     append([]string(nil), ids...),
	}
	for _, id := range s.ids {
		s.current[id] = simBaseTempC + (s.rng.Float64()*2-1)*simSpreadC
	}
	return s
}

func (s *SimSensors) ReadAll(ctx context.Context) ([]models.SensorReading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	readings := make([]models.SensorReading, 0, len(s.ids))
	for _, id := range s.ids {
		t := s.current[id] + (s.rng.Float64()*2-1)*simStepC
		if t < simMinTempC {
			t = simMinTempC
		}
		if t > simMaxTempC {
			t = simMaxTempC
		}
		s.current[id] = t
		readings = append(readings, models.SensorReading{
			SensorID:     id,
			TemperatureC: t,
			ObservedAt:   now,
		})
	}
	return readings, nil
}
