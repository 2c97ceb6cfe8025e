package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"zone_thermostat/internal/models"
)

type SensorSQLite struct {
	db *sql.DB
}

func NewSensorSQLite(db *sql.DB) *SensorSQLite {
	return &SensorSQLite{db: db}
}

var _ SensorRepo = (*SensorSQLite)(nil)

func (r *SensorSQLite) List(ctx context.Context, enabledOnly bool) ([]models.SensorConfig, error) {
	q := `SELECT sensor_id, name, enabled, monitored, added_at FROM sensors`
	if enabledOnly {
		q += ` WHERE enabled=1`
	}
	q += ` ORDER BY sensor_id`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.SensorConfig, 0, 8)
	for rows.Next() {
		var sc models.SensorConfig
		if err := rows.Scan(&sc.SensorID, &sc.Name, &sc.Enabled, &sc.Monitored, &sc.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SensorSQLite) ListEnabled(ctx context.Context) ([]models.SensorConfig, error) {
	return r.List(ctx, true)
}

// Register inserts a sensor if it is not already known.
func (r *SensorSQLite) Register(ctx context.Context, sc models.SensorConfig) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sensors (sensor_id, name, enabled, monitored, added_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(sensor_id) DO NOTHING`,
		sc.SensorID, sc.Name, sc.Enabled, sc.Monitored, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("register sensor %q: %w", sc.SensorID, err)
	}
	return nil
}

func (r *SensorSQLite) Update(ctx context.Context, sc models.SensorConfig) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sensors SET name=?, enabled=?, monitored=? WHERE sensor_id=?`,
		sc.Name, sc.Enabled, sc.Monitored, sc.SensorID,
	)
	if err != nil {
		return fmt.Errorf("update sensor %q: %w", sc.SensorID, err)
	}
	return nil
}
