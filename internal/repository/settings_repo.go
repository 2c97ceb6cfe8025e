package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"zone_thermostat/internal/models"
)

type SettingsSQLite struct {
	db *sql.DB
}

func NewSettingsSQLite(db *sql.DB) *SettingsSQLite {
	return &SettingsSQLite{db: db}
}

var _ SettingsRepo = (*SettingsSQLite)(nil)

const (
	settingsRowID = 1

	upsertSettingsSQL = `
		INSERT INTO settings (id, target_heat_c, target_cool_c, mode, fan_mode, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			target_heat_c=excluded.target_heat_c,
			target_cool_c=excluded.target_cool_c,
			mode=excluded.mode,
			fan_mode=excluded.fan_mode,
			updated_at=excluded.updated_at
	`

	selectSettingsSQL = `
		SELECT target_heat_c, target_cool_c, mode, fan_mode
		FROM settings WHERE id=?
	`
)

// Save upserts the single settings row (id always 1).
func (r *SettingsSQLite) Save(ctx context.Context, sp models.Setpoints) error {
	_, err := r.db.ExecContext(ctx, upsertSettingsSQL,
		settingsRowID,
		sp.TargetHeatC,
		sp.TargetCoolC,
		string(sp.Mode),
		string(sp.FanMode),
		time.Now().UTC(),
	)
	return err
}

// Load fetches the settings row. Returns (nil, nil) when nothing was
// persisted yet.
func (r *SettingsSQLite) Load(ctx context.Context) (*models.Setpoints, error) {
	row := r.db.QueryRowContext(ctx, selectSettingsSQL, settingsRowID)

	var sp models.Setpoints
	var mode, fanMode string
	if err := row.Scan(&sp.TargetHeatC, &sp.TargetCoolC, &mode, &fanMode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	sp.Mode = models.Mode(mode)
	sp.FanMode = models.FanMode(fanMode)
	return &sp, nil
}
