package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB with lockguard-specific helpers.
type DB struct {
	*sql.DB
	path string
}

// Open creates or opens the lockguard SQLite database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{DB: sqlDB, path: path}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// OpenMemory creates an in-memory SQLite database (useful for testing).
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	// Each connection to :memory: gets its own database; keep the pool
	// at a single connection so every caller sees the same schema.
	sqlDB.SetMaxOpenConns(1)

	d := &DB{DB: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// migrate runs all schema migrations.
func (d *DB) migrate() error {
	_, err := d.Exec(schema)
	return err
}

// Querier is the subset of database operations shared by *sql.DB and
// *sql.Tx. Stores accept it so a state change and its audit event can
// commit inside one transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// schema contains the full database schema. New tables are added here.
//
// lock_state holds exactly one row keyed by the constant 'global'; it is
// created on first use and only ever overwritten. challenges holds at
// most one row per principal. audit_events is append-only; rows are
// immutable except the resolved flag.
const schema = `
CREATE TABLE IF NOT EXISTS lock_state (
    key TEXT PRIMARY KEY CHECK(key = 'global'),
    locked INTEGER NOT NULL DEFAULT 0,
    locked_by TEXT NOT NULL DEFAULT '',
    locked_at DATETIME,
    reason TEXT NOT NULL DEFAULT '',
    expires_at DATETIME
);

CREATE TABLE IF NOT EXISTS challenges (
    principal TEXT PRIMARY KEY,
    ref TEXT NOT NULL,
    code TEXT NOT NULL,
    purpose TEXT NOT NULL CHECK(purpose IN ('engage','release')),
    reason TEXT NOT NULL DEFAULT '',
    issued_at DATETIME NOT NULL,
    expires_at DATETIME NOT NULL,
    attempts INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS audit_events (
    id TEXT PRIMARY KEY,
    timestamp DATETIME NOT NULL,
    event_type TEXT NOT NULL CHECK(event_type IN ('LOCK','UNLOCK','FAILED_ATTEMPT','UNAUTHORIZED_ACCESS')),
    principal TEXT NOT NULL,
    source_address TEXT NOT NULL DEFAULT '',
    client_descriptor TEXT NOT NULL DEFAULT '',
    severity TEXT NOT NULL CHECK(severity IN ('LOW','MEDIUM','HIGH','CRITICAL')),
    resolved INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_audit_timestamp_severity ON audit_events(timestamp, severity);
CREATE INDEX IF NOT EXISTS idx_audit_principal ON audit_events(principal);
CREATE INDEX IF NOT EXISTS idx_audit_type ON audit_events(event_type);
`
