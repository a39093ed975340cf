package database

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database migration
type Migration struct {
	Version    int
	Name       string
	Statements []string
}

// migrations is the ordered schema history. Migrations are additive only:
// a version bump creates missing tables and never touches existing data,
// so rides survive every upgrade.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_rides",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS rides (
				start_time_ms INTEGER PRIMARY KEY,
				ride_id       TEXT NOT NULL DEFAULT '',
				end_time_ms   INTEGER NOT NULL,
				start_name    TEXT NOT NULL,
				end_name      TEXT NOT NULL,
				start_lat     REAL NOT NULL,
				start_lon     REAL NOT NULL,
				end_lat       REAL NOT NULL,
				end_lon       REAL NOT NULL
			)`,
		},
	},
	{
		Version: 2,
		Name:    "create_stats",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS stats (
				time_ms INTEGER PRIMARY KEY,
				year    INTEGER NOT NULL,
				detail  TEXT NOT NULL
			)`,
		},
	},
}

// Migrate applies all pending migrations, each within its own transaction.
func Migrate(db *sql.DB) error {
	if err := initMigrationsTable(db); err != nil {
		return err
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return err
		}
	}

	return nil
}

func initMigrationsTable(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func appliedVersions(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query("SELECT version FROM schema_migrations ORDER BY version")
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

	return applied, rows.Err()
}

func applyMigration(db *sql.DB, m Migration) error {
	err := Transaction(db, func(tx *sql.Tx) error {
		for _, stmt := range m.Statements {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", m.Version, err)
			}
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("Applied migration %d: %s", m.Version, m.Name)
	return nil
}
