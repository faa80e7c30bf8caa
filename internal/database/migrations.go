package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "checkpoint record",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS checkpoint (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    text TEXT NOT NULL,
    intermediate_text TEXT NOT NULL,
    final_text TEXT NOT NULL,
    classification TEXT
);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "run metadata and history",
		Up: func(tx *sql.Tx) error {
			columns := []struct{ name, ddl string }{
				{"run_id", "ALTER TABLE checkpoint ADD COLUMN run_id TEXT NOT NULL DEFAULT ''"},
				{"source", "ALTER TABLE checkpoint ADD COLUMN source TEXT NOT NULL DEFAULT ''"},
				{"feature_order", "ALTER TABLE checkpoint ADD COLUMN feature_order TEXT NOT NULL DEFAULT 'lexical'"},
				{"sentiment_score", "ALTER TABLE checkpoint ADD COLUMN sentiment_score REAL NOT NULL DEFAULT 0"},
				{"sentiment_label", "ALTER TABLE checkpoint ADD COLUMN sentiment_label TEXT NOT NULL DEFAULT ''"},
				{"created_at", "ALTER TABLE checkpoint ADD COLUMN created_at TEXT NOT NULL DEFAULT ''"},
			}
			for _, c := range columns {
				exists, err := hasColumn(tx, "checkpoint", c.name)
				if err != nil {
					return err
				}
				if exists {
					continue
				}
				if _, err := tx.Exec(c.ddl); err != nil {
					return err
				}
			}

			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT UNIQUE NOT NULL,
    source TEXT NOT NULL DEFAULT '',
    text TEXT NOT NULL,
    final_text TEXT NOT NULL,
    classification TEXT,
    sentiment_score REAL NOT NULL DEFAULT 0,
    sentiment_label TEXT NOT NULL DEFAULT '',
    created_at TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
