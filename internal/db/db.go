// Package db provides the SQLite connection and schema for lightslider.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection
type DB struct {
	*sql.DB
}

// Open opens the database and initializes the schema
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db}, nil
}

// initSchema creates all required tables
func initSchema(db *sql.DB) error {
	// Command ledger - append-only history of commands sent to lights
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS command_ledger (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			target TEXT NOT NULL,
			service TEXT NOT NULL,
			payload TEXT,
			committed INTEGER NOT NULL DEFAULT 0,
			source TEXT,
			error TEXT,
			idempotency_key TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_command_ledger_type_ts ON command_ledger(event_type, timestamp);
		CREATE INDEX IF NOT EXISTS idx_command_ledger_target_ts ON command_ledger(target, timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to create command_ledger table: %w", err)
	}

	// A committed command is recorded as applied at most once
	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_command_ledger_applied
		ON command_ledger(idempotency_key)
		WHERE idempotency_key IS NOT NULL AND idempotency_key != '' AND event_type = 'command_applied';
	`)
	if err != nil {
		return fmt.Errorf("failed to create idx_command_ledger_applied index: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
