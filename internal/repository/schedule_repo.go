package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"zone_thermostat/internal/models"
)

type ScheduleSQLite struct {
	db *sql.DB
}

func NewScheduleSQLite(db *sql.DB) *ScheduleSQLite {
	return &ScheduleSQLite{db: db}
}

var _ ScheduleRepo = (*ScheduleSQLite)(nil)

const scheduleColumns = `id, name, enabled, days_of_week, time_of_day, target_heat_c, target_cool_c, mode, created_at, updated_at`

// daysToCSV encodes weekday numbers as "0,1,2".
func daysToCSV(days []int) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strconv.Itoa(d))
	}
	return strings.Join(parts, ",")
}

func daysFromCSV(s string) []int {
	if s == "" {
		return nil
	}
	var days []int
	for _, part := range strings.Split(s, ",") {
		if d, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			days = append(days, d)
		}
	}
	return days
}

func (r *ScheduleSQLite) Create(ctx context.Context, e models.ScheduleEntry) (int, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO schedules (name, enabled, days_of_week, time_of_day, target_heat_c, target_cool_c, mode, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Name, e.Enabled, daysToCSV(e.DaysOfWeek), e.TimeOfDay,
		nullFloat(e.TargetHeatC), nullFloat(e.TargetCoolC), nullMode(e.Mode),
		now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert schedule %q: %w", e.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id for schedule %q: %w", e.Name, err)
	}
	return int(id), nil
}

func (r *ScheduleSQLite) List(ctx context.Context) ([]models.ScheduleEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules ORDER BY time_of_day, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSchedules(rows)
}

func (r *ScheduleSQLite) Update(ctx context.Context, e models.ScheduleEntry) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE schedules
		SET name=?, enabled=?, days_of_week=?, time_of_day=?, target_heat_c=?, target_cool_c=?, mode=?, updated_at=?
		WHERE id=?`,
		e.Name, e.Enabled, daysToCSV(e.DaysOfWeek), e.TimeOfDay,
		nullFloat(e.TargetHeatC), nullFloat(e.TargetCoolC), nullMode(e.Mode),
		time.Now().UTC(), e.ID,
	)
	if err != nil {
		return fmt.Errorf("update schedule %d: %w", e.ID, err)
	}
	return nil
}

func (r *ScheduleSQLite) Delete(ctx context.Context, id int) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id=?`, id); err != nil {
		return fmt.Errorf("delete schedule %d: %w", id, err)
	}
	return nil
}

// DueAt returns enabled entries whose time-of-day matches exactly; the
// weekday filter happens in the engine.
func (r *ScheduleSQLite) DueAt(ctx context.Context, timeOfDay string) ([]models.ScheduleEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE enabled=1 AND time_of_day=? ORDER BY id`,
		timeOfDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSchedules(rows)
}

func (r *ScheduleSQLite) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schedules`).Scan(&n)
	return n, err
}

func scanSchedules(rows *sql.Rows) ([]models.ScheduleEntry, error) {
	out := make([]models.ScheduleEntry, 0, 16)
	for rows.Next() {
		var e models.ScheduleEntry
		var days string
		var heat, cool sql.NullFloat64
		var mode sql.NullString
		if err := rows.Scan(&e.ID, &e.Name, &e.Enabled, &days, &e.TimeOfDay,
			&heat, &cool, &mode, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.DaysOfWeek = daysFromCSV(days)
		if heat.Valid {
			v := heat.Float64
			e.TargetHeatC = &v
		}
		if cool.Valid {
			v := cool.Float64
			e.TargetCoolC = &v
		}
		if mode.Valid && mode.String != "" {
			m := models.Mode(mode.String)
			e.Mode = &m
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullMode(m *models.Mode) any {
	if m == nil {
		return nil
	}
	return string(*m)
}
