package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// InitDB opens/creates the SQLite file, applies pragmas, ensures the schema
// and seeds the default stage configuration on first boot.
func InitDB(path string) (*sql.DB, error) {
	conn, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// SQLite tolerates a single writer; keep the pool tight.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := ensureSchema(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := seedDefaultStages(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return conn, nil
}

const schemaSettings = `
CREATE TABLE IF NOT EXISTS settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    target_heat_c REAL NOT NULL,
    target_cool_c REAL NOT NULL,
    mode TEXT NOT NULL,
    fan_mode TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaSchedules = `
CREATE TABLE IF NOT EXISTS schedules (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    enabled BOOLEAN NOT NULL DEFAULT 1,
    days_of_week TEXT NOT NULL,
    time_of_day TEXT NOT NULL,
    target_heat_c REAL,
    target_cool_c REAL,
    mode TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaScheduleIndex = `
CREATE INDEX IF NOT EXISTS idx_schedules_match
    ON schedules(enabled, time_of_day);
`

const schemaStages = `
CREATE TABLE IF NOT EXISTS hvac_stages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    stage_type TEXT NOT NULL,
    stage_number INTEGER NOT NULL,
    pin INTEGER NOT NULL,
    temp_offset_c REAL NOT NULL DEFAULT 0,
    min_dwell_s INTEGER NOT NULL DEFAULT 300,
    enabled BOOLEAN NOT NULL DEFAULT 1,
    description TEXT,
    UNIQUE(stage_type, stage_number)
);
`

const schemaSensors = `
CREATE TABLE IF NOT EXISTS sensors (
    sensor_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    enabled BOOLEAN NOT NULL DEFAULT 1,
    monitored BOOLEAN NOT NULL DEFAULT 0,
    added_at TIMESTAMP NOT NULL
);
`

const schemaSensorHistory = `
CREATE TABLE IF NOT EXISTS sensor_history (
    id TEXT PRIMARY KEY,
    sensor_id TEXT NOT NULL,
    name TEXT NOT NULL,
    temperature_c REAL NOT NULL,
    compromised BOOLEAN NOT NULL DEFAULT 0,
    recorded_at TIMESTAMP NOT NULL
);
`

const schemaHVACHistory = `
CREATE TABLE IF NOT EXISTS hvac_history (
    id TEXT PRIMARY KEY,
    system_temp_c REAL,
    target_heat_c REAL NOT NULL,
    target_cool_c REAL NOT NULL,
    mode TEXT NOT NULL,
    fan_mode TEXT NOT NULL,
    heat_stages TEXT NOT NULL,
    cool_stages TEXT NOT NULL,
    fan BOOLEAN NOT NULL,
    recorded_at TIMESTAMP NOT NULL
);
`

const schemaSettingHistory = `
CREATE TABLE IF NOT EXISTS setting_history (
    id TEXT PRIMARY KEY,
    field TEXT NOT NULL,
    old_value TEXT NOT NULL,
    new_value TEXT NOT NULL,
    source TEXT NOT NULL,
    changed_at TIMESTAMP NOT NULL
);
`

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL
);
`

func ensureSchema(conn *sql.DB) error {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaSettings,
		schemaSchedules,
		schemaScheduleIndex,
		schemaStages,
		schemaSensors,
		schemaSensorHistory,
		schemaHVACHistory,
		schemaSettingHistory,
		schemaUsers,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}

// seedDefaultStages installs the factory configuration (two heat stages,
// one cool stage) when the stage table is empty.
func seedDefaultStages(conn *sql.DB) error {
	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM hvac_stages`).Scan(&n); err != nil {
		return fmt.Errorf("count stages: %w", err)
	}
	if n > 0 {
		return nil
	}

	defaults := []struct {
		stageType string
		number    int
		pin       int
		offsetC   float64
		dwellS    int
		desc      string
	}{
		{"heat", 1, 17, 0.28, 300, "Primary heat"},
		{"heat", 2, 23, 1.67, 300, "Secondary heat"},
		{"cool", 1, 27, 0.28, 300, "Primary cool"},
	}
	for _, d := range defaults {
		if _, err := conn.Exec(`
			INSERT INTO hvac_stages (stage_type, stage_number, pin, temp_offset_c, min_dwell_s, enabled, description)
			VALUES (?, ?, ?, ?, ?, 1, ?)`,
			d.stageType, d.number, d.pin, d.offsetC, d.dwellS, d.desc,
		); err != nil {
			return fmt.Errorf("seed stage %s/%d: %w", d.stageType, d.number, err)
		}
	}
	return nil
}
