package models

import "time"

// StageType distinguishes heating from cooling equipment.
type StageType string

const (
	StageHeat StageType = "heat"
	StageCool StageType = "cool"
)

// Mode is the operating mode of the thermostat.
type Mode string

const (
	ModeHeat Mode = "heat"
	ModeCool Mode = "cool"
	ModeAuto Mode = "auto"
	ModeOff  Mode = "off"
)

// FanMode selects between demand-driven and continuous fan operation.
type FanMode string

const (
	FanAuto FanMode = "auto"
	FanOn   FanMode = "on"
)

// SensorReading is a single temperature sample from one sensor.
// Readings are immutable once created.
type SensorReading struct {
	SensorID     string    `json:"sensor_id"`
	Name         string    `json:"name"`
	TemperatureC float64   `json:"temperature_c"`
	ObservedAt   time.Time `json:"observed_at"`
}

// Setpoints holds the durable control targets. Every mutation is persisted
// and paired with a SettingChange audit record.
type Setpoints struct {
	TargetHeatC float64 `json:"target_heat_c"`
	TargetCoolC float64 `json:"target_cool_c"`
	Mode        Mode    `json:"mode"`
	FanMode     FanMode `json:"fan_mode"`
}

// StageConfig describes one discrete unit of heating or cooling capacity.
// Stage numbers are unique within a type; number 1 is the fallback stage.
type StageConfig struct {
	ID          int       `json:"id"`
	Type        StageType `json:"stage_type"`
	Number      int       `json:"stage_number"`
	Pin         int       `json:"pin"`
	TempOffsetC float64   `json:"temp_offset_c"`
	MinDwell    int       `json:"min_dwell_s"` // seconds, gates both run and rest
	Enabled     bool      `json:"enabled"`
	Description string    `json:"description,omitempty"`
}

// ScheduleEntry is a time-of-day program. Nil target/mode fields leave the
// corresponding setpoint untouched when the entry fires.
type ScheduleEntry struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Enabled     bool      `json:"enabled"`
	DaysOfWeek  []int     `json:"days_of_week"` // 0=Sunday .. 6=Saturday
	TimeOfDay   string    `json:"time_of_day"`  // "HH:MM", matched exactly
	TargetHeatC *float64  `json:"target_heat_c,omitempty"`
	TargetCoolC *float64  `json:"target_cool_c,omitempty"`
	Mode        *Mode     `json:"mode,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// SensorConfig is one row of the sensor registry. Only enabled sensors are
// read; only monitored sensors are subject to anomaly checks.
type SensorConfig struct {
	SensorID  string    `json:"sensor_id"`
	Name      string    `json:"name"`
	Enabled   bool      `json:"enabled"`
	Monitored bool      `json:"monitored"`
	AddedAt   time.Time `json:"added_at,omitempty"`
}

// SettingChange is one append-only audit record of a setpoint mutation.
type SettingChange struct {
	ID        string    `json:"id"`
	Field     string    `json:"field"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	Source    string    `json:"source"` // "api" or "schedule:<name>"
	ChangedAt time.Time `json:"changed_at"`
}

// HVACSample is one row of the periodic equipment-state history.
type HVACSample struct {
	ID          string    `json:"id"`
	SystemTempC *float64  `json:"system_temp_c,omitempty"`
	TargetHeatC float64   `json:"target_heat_c"`
	TargetCoolC float64   `json:"target_cool_c"`
	Mode        Mode      `json:"mode"`
	FanMode     FanMode   `json:"fan_mode"`
	HeatStages  []int     `json:"heat_stages"`
	CoolStages  []int     `json:"cool_stages"`
	FanOn       bool      `json:"fan_on"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// SensorSample is one row of the sensor reading history.
type SensorSample struct {
	ID           string    `json:"id"`
	SensorID     string    `json:"sensor_id"`
	Name         string    `json:"name"`
	TemperatureC float64   `json:"temperature_c"`
	Compromised  bool      `json:"compromised"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// Status is the read-only snapshot exposed to the command surface.
type Status struct {
	Mode               Mode            `json:"mode"`
	FanMode            FanMode         `json:"fan_mode"`
	TargetHeatC        float64         `json:"target_heat_c"`
	TargetCoolC        float64         `json:"target_cool_c"`
	ActiveHeatStages   []int           `json:"active_heat_stages"`
	ActiveCoolStages   []int           `json:"active_cool_stages"`
	FanOn              bool            `json:"fan_on"`
	SystemTempC        *float64        `json:"system_temp_c,omitempty"`
	Readings           []SensorReading `json:"sensor_readings"`
	CompromisedSensors []string        `json:"compromised_sensors"`
	ScheduleEnabled    bool            `json:"schedule_enabled"`
	HoldUntil          *time.Time      `json:"hold_until,omitempty"`
	UpdatedAt          time.Time       `json:"updated_at"`
}
