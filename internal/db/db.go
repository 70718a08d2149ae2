// Package db provides SQLite storage for phi tasks, projects and tags.
//
// The database is stored at ~/.local/share/phi/phi.db by default.
// Use Open() to connect and Init() to create the schema.
//
// All deletes are soft: rows get deleted = 1 and are excluded from reads but
// never physically removed. Timestamps are stored as RFC3339 strings, calendar
// dates as ISO dates, and the task metadata map as a JSON text column.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	color TEXT,
	icon TEXT,
	order_index INTEGER NOT NULL DEFAULT 0,
	is_inbox INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	deleted INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tags (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	color TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	deleted INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	notes TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	due_date TEXT,
	start_date TEXT,
	completed_at TEXT,
	project_id TEXT REFERENCES projects(id),
	priority TEXT NOT NULL DEFAULT 'none',
	status TEXT NOT NULL DEFAULT 'inbox',
	order_index INTEGER NOT NULL DEFAULT 0,
	deleted INTEGER NOT NULL DEFAULT 0,
	kind TEXT,
	size TEXT,
	assignee TEXT,
	context_url TEXT,
	metadata TEXT
);

CREATE TABLE IF NOT EXISTS task_tags (
	task_id TEXT NOT NULL REFERENCES tasks(id),
	tag_id TEXT NOT NULL REFERENCES tags(id),
	PRIMARY KEY (task_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status) WHERE deleted = 0;
CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date) WHERE deleted = 0;
CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id) WHERE deleted = 0;
CREATE INDEX IF NOT EXISTS idx_tasks_context_url ON tasks(context_url) WHERE deleted = 0;
CREATE INDEX IF NOT EXISTS idx_task_tags_task ON task_tags(task_id);
`

// Layouts for the TEXT date columns.
const (
	timeLayout = "2006-01-02T15:04:05.999999999Z07:00"
	dateLayout = "2006-01-02"
)

// DB wraps a SQL database connection with phi-specific operations.
type DB struct {
	*sql.DB
}

// DefaultPath returns the default database path (~/.local/share/phi/phi.db)
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "phi", "phi.db"), nil
}

// Open opens or creates the database at the given path
func Open(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// Init creates the schema if the stored version is behind.
func (db *DB) Init() error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("failed to create version table: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if current < schemaVersion {
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		if _, err := db.Exec(`INSERT OR REPLACE INTO schema_version (version) VALUES (?)`, schemaVersion); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	}

	return nil
}

// NextOrderIndex returns one greater than the highest order index among
// non-deleted rows of the given table ("tasks" or "projects").
func (db *DB) NextOrderIndex(table string) (int64, error) {
	if table != "tasks" && table != "projects" {
		return 0, fmt.Errorf("invalid order index table: %s", table)
	}
	var idx int64
	err := db.QueryRow(
		`SELECT COALESCE(MAX(order_index), 0) + 1 FROM ` + table + ` WHERE deleted = 0`,
	).Scan(&idx)
	if err != nil {
		return 0, fmt.Errorf("failed to get next order index: %w", err)
	}
	return idx, nil
}
