package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB is the local audit store. Every hold mutation the wizard performs
// against the lock backend is recorded here, so an operator can trace
// a charge-risk hold even when a release call failed and the backend
// and the client disagree for a while.
type DB struct {
	db     *sql.DB
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}

	logger.Info().Str("path", path).Msg("audit database initialized")
	return &DB{db: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS hold_audit (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            session_id TEXT NOT NULL,
            lock_id TEXT,
            room_id INTEGER,
            room_no TEXT,
            action TEXT NOT NULL,
            reason TEXT,
            check_in DATETIME,
            check_out DATETIME,
            expires_at DATETIME,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS receipts (
            booking_id TEXT PRIMARY KEY,
            session_id TEXT NOT NULL,
            grand_total INTEGER NOT NULL,
            confirmed_at DATETIME NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE INDEX IF NOT EXISTS idx_hold_audit_session_id ON hold_audit(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_hold_audit_lock_id ON hold_audit(lock_id)`,
		`CREATE INDEX IF NOT EXISTS idx_hold_audit_action ON hold_audit(action)`,
		`CREATE INDEX IF NOT EXISTS idx_receipts_session_id ON receipts(session_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %v", query, err)
		}
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
