package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrCheckpointNotFound is returned when no checkpoint has been saved yet.
var ErrCheckpointNotFound = errors.New("breakpoint data not found")

// DB wraps a SQLite database connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// dsn applies the pragmas to every pooled connection, not only the first.
func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Exists reports whether a database file is present at path.
func Exists(dbPath string) bool {
	_, err := os.Stat(dbPath)
	return err == nil
}

// LoadCheckpointFile reads the checkpoint from the database at dbPath
// without creating it. A missing file yields ErrCheckpointNotFound.
func LoadCheckpointFile(dbPath string) (*Checkpoint, error) {
	if !Exists(dbPath) {
		return nil, ErrCheckpointNotFound
	}
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.LoadCheckpoint()
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}
