package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"zone_thermostat/internal/models"
)

type AuditSQLite struct {
	db *sql.DB
}

func NewAuditSQLite(db *sql.DB) *AuditSQLite {
	return &AuditSQLite{db: db}
}

var _ AuditRepo = (*AuditSQLite)(nil)

// Append inserts one setting-change record. ID and timestamp are filled in
// when absent.
func (r *AuditSQLite) Append(ctx context.Context, ch models.SettingChange) error {
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	if ch.ChangedAt.IsZero() {
		ch.ChangedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO setting_history (id, field, old_value, new_value, source, changed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ch.ID, ch.Field, ch.OldValue, ch.NewValue, ch.Source, ch.ChangedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert setting change %q: %w", ch.Field, err)
	}
	return nil
}

func (r *AuditSQLite) List(ctx context.Context, limit int) ([]models.SettingChange, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, field, old_value, new_value, source, changed_at
		FROM setting_history
		ORDER BY changed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.SettingChange, 0, 32)
	for rows.Next() {
		var ch models.SettingChange
		if err := rows.Scan(&ch.ID, &ch.Field, &ch.OldValue, &ch.NewValue, &ch.Source, &ch.ChangedAt); err != nil {
			return nil, err
		}
		ch.ChangedAt = ch.ChangedAt.UTC()
		out = append(out, ch)
	}
	return out, rows.Err()
}
