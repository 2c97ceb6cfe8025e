package repository

import (
	"context"
	"database/sql"
	"time"

	"zone_thermostat/internal/models"
)

// Authorization persists user accounts for the command surface.
type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// SettingsRepo persists the single setpoints row.
type SettingsRepo interface {
	Load(ctx context.Context) (*models.Setpoints, error)
	Save(ctx context.Context, sp models.Setpoints) error
}

// ScheduleRepo owns schedule CRUD plus the match query used by the engine.
type ScheduleRepo interface {
	Create(ctx context.Context, e models.ScheduleEntry) (int, error)
	List(ctx context.Context) ([]models.ScheduleEntry, error)
	Update(ctx context.Context, e models.ScheduleEntry) error
	Delete(ctx context.Context, id int) error
	DueAt(ctx context.Context, timeOfDay string) ([]models.ScheduleEntry, error)
	Count(ctx context.Context) (int, error)
}

// StageRepo owns stage configuration CRUD.
type StageRepo interface {
	Create(ctx context.Context, st models.StageConfig) (int, error)
	List(ctx context.Context, enabledOnly bool) ([]models.StageConfig, error)
	ListEnabled(ctx context.Context) ([]models.StageConfig, error)
	Update(ctx context.Context, st models.StageConfig) error
	Delete(ctx context.Context, id int) error
}

// SensorRepo owns the sensor registry.
type SensorRepo interface {
	List(ctx context.Context, enabledOnly bool) ([]models.SensorConfig, error)
	ListEnabled(ctx context.Context) ([]models.SensorConfig, error)
	Register(ctx context.Context, sc models.SensorConfig) error
	Update(ctx context.Context, sc models.SensorConfig) error
}

// HistoryRepo owns the append-only reading/equipment histories.
type HistoryRepo interface {
	AppendSensorSamples(ctx context.Context, samples []models.SensorSample) error
	AppendHVACSample(ctx context.Context, sample models.HVACSample) error
	SensorHistory(ctx context.Context, sensorID string, since time.Time, limit int) ([]models.SensorSample, error)
	HVACHistory(ctx context.Context, since time.Time, limit int) ([]models.HVACSample, error)
	Cleanup(ctx context.Context, retentionDays int) error
}

// AuditRepo owns the append-only setting-change trail.
type AuditRepo interface {
	Append(ctx context.Context, ch models.SettingChange) error
	List(ctx context.Context, limit int) ([]models.SettingChange, error)
}

// Repository aggregates the SQLite implementations.
type Repository struct {
	Settings  SettingsRepo
	Schedules ScheduleRepo
	Stages    StageRepo
	Sensors   SensorRepo
	History   HistoryRepo
	Audit     AuditRepo
	Auth      Authorization
}

func NewRepository(conn *sql.DB) *Repository {
	return &Repository{
		Settings:  NewSettingsSQLite(conn),
		Schedules: NewScheduleSQLite(conn),
		Stages:    NewStageSQLite(conn),
		Sensors:   NewSensorSQLite(conn),
		History:   NewHistorySQLite(conn),
		Audit:     NewAuditSQLite(conn),
		Auth:      NewUserRepository(conn),
	}
}
