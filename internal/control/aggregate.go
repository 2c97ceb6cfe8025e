package control

import (
	"sort"

	"zone_thermostat/internal/models"
)

// systemTemperature returns the median temperature of all non-quarantined
// readings. Median rather than mean so one wild reading cannot dominate the
// result before the anomaly detector catches it. The second return is false
// when every reading is quarantined.
func systemTemperature(readings []models.SensorReading, quarantined func(sensorID string) bool) (float64, bool) {
	temps := make([]float64, 0, len(readings))
	for _, r := range readings {
		if !quarantined(r.SensorID) {
			temps = append(temps, r.TemperatureC)
		}
	}
	if len(temps) == 0 {
		return 0, false
	}

	sort.Float64s(temps)
	mid := len(temps) / 2
	if len(temps)%2 == 1 {
		return temps[mid], true
	}
	return (temps[mid-1] + temps[mid]) / 2, true
}
