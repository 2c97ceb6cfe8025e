package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"zone_thermostat/internal/models"
)

type HistorySQLite struct {
	db *sql.DB
}

func NewHistorySQLite(db *sql.DB) *HistorySQLite {
	return &HistorySQLite{db: db}
}

var _ HistoryRepo = (*HistorySQLite)(nil)

// AppendSensorSamples inserts a batch of reading rows in one transaction.
func (r *HistorySQLite) AppendSensorSamples(ctx context.Context, samples []models.SensorSample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sensor history batch: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sensor_history (id, sensor_id, name, temperature_c, compromised, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare sensor history insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range samples {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx,
			s.ID, s.SensorID, s.Name, s.TemperatureC, s.Compromised, s.RecordedAt.UTC(),
		); err != nil {
			return fmt.Errorf("insert sensor sample %q: %w", s.SensorID, err)
		}
	}
	return tx.Commit()
}

func (r *HistorySQLite) AppendHVACSample(ctx context.Context, sample models.HVACSample) error {
	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	var temp any
	if sample.SystemTempC != nil {
		temp = *sample.SystemTempC
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO hvac_history (id, system_temp_c, target_heat_c, target_cool_c, mode, fan_mode, heat_stages, cool_stages, fan, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sample.ID, temp, sample.TargetHeatC, sample.TargetCoolC,
		string(sample.Mode), string(sample.FanMode),
		stagesToCSV(sample.HeatStages), stagesToCSV(sample.CoolStages),
		sample.FanOn, sample.RecordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert hvac sample: %w", err)
	}
	return nil
}

func (r *HistorySQLite) SensorHistory(ctx context.Context, sensorID string, since time.Time, limit int) ([]models.SensorSample, error) {
	var (
		conds = []string{"recorded_at >= ?"}
		args  = []any{since.UTC()}
	)
	if sensorID != "" {
		conds = append(conds, "sensor_id = ?")
		args = append(args, sensorID)
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sensor_id, name, temperature_c, compromised, recorded_at
		FROM sensor_history
		WHERE `+strings.Join(conds, " AND ")+`
		ORDER BY recorded_at DESC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.SensorSample, 0, 64)
	for rows.Next() {
		var s models.SensorSample
		if err := rows.Scan(&s.ID, &s.SensorID, &s.Name, &s.TemperatureC, &s.Compromised, &s.RecordedAt); err != nil {
			return nil, err
		}
		s.RecordedAt = s.RecordedAt.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *HistorySQLite) HVACHistory(ctx context.Context, since time.Time, limit int) ([]models.HVACSample, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, system_temp_c, target_heat_c, target_cool_c, mode, fan_mode, heat_stages, cool_stages, fan, recorded_at
		FROM hvac_history
		WHERE recorded_at >= ?
		ORDER BY recorded_at DESC LIMIT ?`, since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.HVACSample, 0, 64)
	for rows.Next() {
		var s models.HVACSample
		var temp sql.NullFloat64
		var mode, fanMode, heatStages, coolStages string
		if err := rows.Scan(&s.ID, &temp, &s.TargetHeatC, &s.TargetCoolC,
			&mode, &fanMode, &heatStages, &coolStages, &s.FanOn, &s.RecordedAt); err != nil {
			return nil, err
		}
		if temp.Valid {
			v := temp.Float64
			s.SystemTempC = &v
		}
		s.Mode = models.Mode(mode)
		s.FanMode = models.FanMode(fanMode)
		s.HeatStages = stagesFromCSV(heatStages)
		s.CoolStages = stagesFromCSV(coolStages)
		s.RecordedAt = s.RecordedAt.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// Cleanup deletes history rows older than the retention window.
func (r *HistorySQLite) Cleanup(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	for _, table := range []string{"sensor_history", "hvac_history"} {
		if _, err := r.db.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE recorded_at < ?`, cutoff); err != nil {
			return fmt.Errorf("cleanup %s: %w", table, err)
		}
	}
	return nil
}

func stagesToCSV(stages []int) string {
	parts := make([]string, 0, len(stages))
	for _, n := range stages {
		parts = append(parts, strconv.Itoa(n))
	}
	return strings.Join(parts, ",")
}

func stagesFromCSV(s string) []int {
	if s == "" {
		return nil
	}
	var stages []int
	for _, part := range strings.Split(s, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			stages = append(stages, n)
		}
	}
	return stages
}
