package driver

import (
	"context"
	"sync"
	"time"

	"zone_thermostat/internal/models"
)

// MockSensors serves canned readings for development and tests. The batch
// can be swapped at any time; ReadAll stamps each reading with the current
// time so history windows behave as on real hardware.
type MockSensors struct {
	mu    sync.Mutex
	temps map[string]float64
	names map[string]string
	err   error
}

func NewMockSensors() *MockSensors {
	return &MockSensors{
		temps: make(map[string]float64),
		names: make(map[string]string),
	}
}

// Set installs or updates one sensor's reported temperature.
func (m *MockSensors) Set(sensorID, name string, tempC float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.temps[sensorID] = tempC
	m.names[sensorID] = name
}

// Fail makes subsequent ReadAll calls return err. Pass nil to recover.
func (m *MockSensors) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockSensors) ReadAll(_ context.Context) ([]models.SensorReading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	now := time.Now()
	out := make([]models.SensorReading, 0, len(m.temps))
	for id, t := range m.temps {
		out = append(out, models.SensorReading{
			SensorID:     id,
			Name:         m.names[id],
			TemperatureC: t,
			ObservedAt:   now,
		})
	}
	return out, nil
}

// MockActuators records line states instead of touching hardware.
type MockActuators struct {
	mu      sync.Mutex
	lines   map[int]bool
	writes  int
	failPin int
	err     error
}

func NewMockActuators() *MockActuators {
	return &MockActuators{lines: make(map[int]bool), failPin: -1}
}

// FailPin makes writes to one pin return err; other pins keep working.
func (m *MockActuators) FailPin(pin int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPin = pin
	m.err = err
}

func (m *MockActuators) SetLine(pin int, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pin == m.failPin && m.err != nil {
		return m.err
	}
	m.lines[pin] = on
	m.writes++
	return nil
}

// Line reports the last commanded state of a pin.
func (m *MockActuators) Line(pin int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lines[pin]
}

// Writes reports how many successful line writes were issued.
func (m *MockActuators) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
