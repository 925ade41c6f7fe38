package database

import (
	"database/sql"
	"fmt"
	"log"
	"sort"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations are compiled in so the worker binary is self-contained
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_readings",
		SQL: `
			CREATE TABLE IF NOT EXISTS readings (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				device_id TEXT NOT NULL,
				timestamp INTEGER NOT NULL,
				latitude REAL,
				longitude REAL,
				speed_kmh REAL NOT NULL DEFAULT 0,
				ignition INTEGER,
				ignition_confidence REAL NOT NULL DEFAULT 0,
				ignition_method TEXT NOT NULL DEFAULT 'unknown',
				battery_pct INTEGER,
				online INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				UNIQUE(device_id, timestamp)
			);
			CREATE INDEX IF NOT EXISTS idx_readings_device_time ON readings(device_id, timestamp);
		`,
	},
	{
		Version: 2,
		Name:    "create_trips",
		SQL: `
			CREATE TABLE IF NOT EXISTS trips (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				device_id TEXT NOT NULL,
				start_time INTEGER NOT NULL,
				end_time INTEGER NOT NULL,
				duration_seconds INTEGER NOT NULL,
				start_lat REAL,
				start_lon REAL,
				end_lat REAL,
				end_lon REAL,
				distance_meters REAL NOT NULL DEFAULT 0,
				max_speed_kmh REAL NOT NULL DEFAULT 0,
				avg_speed_kmh REAL NOT NULL DEFAULT 0,
				source TEXT NOT NULL DEFAULT 'vendor',
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				UNIQUE(device_id, start_time, end_time)
			);
			CREATE INDEX IF NOT EXISTS idx_trips_device_start ON trips(device_id, start_time);
		`,
	},
	{
		Version: 3,
		Name:    "create_sync_checkpoints",
		SQL: `
			CREATE TABLE IF NOT EXISTS sync_checkpoints (
				device_id TEXT PRIMARY KEY,
				last_synced_at INTEGER NOT NULL DEFAULT 0,
				status TEXT NOT NULL DEFAULT 'idle',
				last_error TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
		`,
	},
	{
		Version: 4,
		Name:    "create_events",
		SQL: `
			CREATE TABLE IF NOT EXISTS events (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				device_id TEXT NOT NULL,
				type TEXT NOT NULL,
				severity TEXT NOT NULL DEFAULT 'info',
				timestamp INTEGER NOT NULL,
				latitude REAL,
				longitude REAL,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_events_device_type_time ON events(device_id, type, timestamp);
		`,
	},
	{
		Version: 5,
		Name:    "create_reconcile_reports",
		SQL: `
			CREATE TABLE IF NOT EXISTS reconcile_reports (
				run_id TEXT PRIMARY KEY,
				device_id TEXT NOT NULL DEFAULT '',
				range_from INTEGER NOT NULL,
				range_to INTEGER NOT NULL,
				trips_checked INTEGER NOT NULL DEFAULT 0,
				trips_fixed INTEGER NOT NULL DEFAULT 0,
				coordinates_backfilled INTEGER NOT NULL DEFAULT 0,
				errors_json TEXT NOT NULL DEFAULT '[]',
				started_at TIMESTAMP NOT NULL,
				finished_at TIMESTAMP NOT NULL
			);
		`,
	},
}

// Migrate applies all pending migrations
func Migrate(db *sql.DB) error {
	if err := initMigrationsTable(db); err != nil {
		return err
	}

	applied, err := appliedMigrations(db)
	if err != nil {
		return err
	}

	pending := make([]Migration, 0, len(migrations))
	for _, m := range migrations {
		if !applied[m.Version] {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })

	for _, m := range pending {
		if err := applyMigration(db, m); err != nil {
			return fmt.Errorf("migration %03d_%s failed: %w", m.Version, m.Name, err)
		}
		log.Printf("Applied migration %03d_%s", m.Version, m.Name)
	}

	return nil
}

// initMigrationsTable creates the migrations tracking table
func initMigrationsTable(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// appliedMigrations returns the set of applied migration versions
func appliedMigrations(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query("SELECT version FROM migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}

	return applied, nil
}

// applyMigration applies a single migration inside a transaction
func applyMigration(db *sql.DB, migration Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if _, err := tx.Exec(migration.SQL); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)",
		migration.Version, migration.Name); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	return nil
}
