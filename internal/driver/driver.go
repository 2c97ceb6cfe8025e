// Package driver defines the hardware capability interfaces the control
// engine consumes. Real implementations live on the device; the mock
// implementations here are selected at start-up when hardware is absent.
package driver

import (
	"context"

	"zone_thermostat/internal/models"
)

// SensorSource yields the current batch of temperature readings. It may
// return an empty or partial batch; it must not block indefinitely.
type SensorSource interface {
	ReadAll(ctx context.Context) ([]models.SensorReading, error)
}

// ActuatorSink drives one GPIO-like output line. Writes are fire-and-forget;
// a failed write is logged by the caller, never retried.
type ActuatorSink interface {
	SetLine(pin int, on bool) error
}
