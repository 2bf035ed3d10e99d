package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// New opens a SQLite database connection at the given path.
// It enables foreign keys and sets connection pool settings.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys (disabled by default in SQLite)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate runs database migrations to create the required tables.
// It is idempotent and can be run multiple times safely.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS folders (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			name TEXT NOT NULL,
			parent_id TEXT REFERENCES folders(id),
			path TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_folders_owner_parent ON folders(owner, parent_id);`,
		`CREATE TABLE IF NOT EXISTS files (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			filename TEXT NOT NULL,
			original_name TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			storage_kind TEXT NOT NULL CHECK (storage_kind IN ('inline', 'external')),
			storage_ref TEXT,
			content BLOB,
			folder_id TEXT REFERENCES folders(id),
			uploaded_at TEXT NOT NULL,
			processed_at TEXT,
			status TEXT NOT NULL CHECK (status IN ('pending', 'processing', 'completed', 'error')),
			process_error TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_files_owner_uploaded ON files(owner, uploaded_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_files_folder ON files(folder_id);`,
		`CREATE TABLE IF NOT EXISTS file_metadata (
			file_id TEXT PRIMARY KEY REFERENCES files(id) ON DELETE CASCADE,
			summary TEXT,
			keywords TEXT,
			topics TEXT,
			categories TEXT,
			excerpt TEXT,
			embedding TEXT,
			confidence REAL
		);`,
		`CREATE TABLE IF NOT EXISTS search_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner TEXT NOT NULL,
			query TEXT NOT NULL,
			result_ids TEXT NOT NULL,
			searched_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_search_history_owner ON search_history(owner, searched_at DESC);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
