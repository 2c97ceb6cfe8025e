package repository

import (
	"context"
	"database/sql"
	"fmt"

	"zone_thermostat/internal/models"
)

type StageSQLite struct {
	db *sql.DB
}

func NewStageSQLite(db *sql.DB) *StageSQLite {
	return &StageSQLite{db: db}
}

var _ StageRepo = (*StageSQLite)(nil)

const stageColumns = `id, stage_type, stage_number, pin, temp_offset_c, min_dwell_s, enabled, description`

func (r *StageSQLite) Create(ctx context.Context, st models.StageConfig) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO hvac_stages (stage_type, stage_number, pin, temp_offset_c, min_dwell_s, enabled, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(st.Type), st.Number, st.Pin, st.TempOffsetC, st.MinDwell, st.Enabled, st.Description,
	)
	if err != nil {
		return 0, fmt.Errorf("insert stage %s/%d: %w", st.Type, st.Number, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id for stage %s/%d: %w", st.Type, st.Number, err)
	}
	return int(id), nil
}

func (r *StageSQLite) List(ctx context.Context, enabledOnly bool) ([]models.StageConfig, error) {
	q := `SELECT ` + stageColumns + ` FROM hvac_stages`
	if enabledOnly {
		q += ` WHERE enabled=1`
	}
	q += ` ORDER BY stage_type, stage_number`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.StageConfig, 0, 8)
	for rows.Next() {
		var st models.StageConfig
		var stageType string
		var desc sql.NullString
		if err := rows.Scan(&st.ID, &stageType, &st.Number, &st.Pin,
			&st.TempOffsetC, &st.MinDwell, &st.Enabled, &desc); err != nil {
			return nil, err
		}
		st.Type = models.StageType(stageType)
		st.Description = desc.String
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *StageSQLite) ListEnabled(ctx context.Context) ([]models.StageConfig, error) {
	return r.List(ctx, true)
}

func (r *StageSQLite) Update(ctx context.Context, st models.StageConfig) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE hvac_stages
		SET stage_type=?, stage_number=?, pin=?, temp_offset_c=?, min_dwell_s=?, enabled=?, description=?
		WHERE id=?`,
		string(st.Type), st.Number, st.Pin, st.TempOffsetC, st.MinDwell, st.Enabled, st.Description, st.ID,
	)
	if err != nil {
		return fmt.Errorf("update stage %d: %w", st.ID, err)
	}
	return nil
}

func (r *StageSQLite) Delete(ctx context.Context, id int) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM hvac_stages WHERE id=?`, id); err != nil {
		return fmt.Errorf("delete stage %d: %w", id, err)
	}
	return nil
}
