package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

// migrations build the SQLite development schema. The production Postgres
// schema is owned elsewhere and never migrated from here.
var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS park (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS attraction_type (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    type_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS attraction (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    park_id INTEGER NOT NULL REFERENCES park(id),
    attraction_type_id INTEGER REFERENCES attraction_type(id)
);

CREATE TABLE IF NOT EXISTS attraction_status (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    status TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS wait (
    attraction_id INTEGER NOT NULL REFERENCES attraction(id),
    timestamp DATETIME NOT NULL,
    stand_by INTEGER,
    attraction_status_id INTEGER NOT NULL REFERENCES attraction_status(id)
);

CREATE INDEX IF NOT EXISTS idx_attraction_park ON attraction(park_id);
CREATE INDEX IF NOT EXISTS idx_wait_attraction_time ON wait(attraction_id, timestamp);
`,
	},
	{
		Version:     2,
		Description: "Seed attraction status codes",
		SQL: `
INSERT OR IGNORE INTO attraction_status (status) VALUES ('Operating');
INSERT OR IGNORE INTO attraction_status (status) VALUES ('Down');
INSERT OR IGNORE INTO attraction_status (status) VALUES ('Refurbishment');
INSERT OR IGNORE INTO attraction_status (status) VALUES ('Closed');
`,
	},
	{
		Version:     3,
		Description: "Seed attraction types",
		SQL: `
INSERT OR IGNORE INTO attraction_type (type_name) VALUES ('Ride');
INSERT OR IGNORE INTO attraction_type (type_name) VALUES ('Restaurant');
INSERT OR IGNORE INTO attraction_type (type_name) VALUES ('Show');
`,
	},
}

func (s *Store) Migrate() error {
	if s.dialect != SQLite {
		return fmt.Errorf("migrate: %s schema is managed externally", s.dialect)
	}

	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		log.Printf("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		log.Printf("migrations: completed %d", m.Version)
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
