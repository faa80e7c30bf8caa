package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultHistoryLimit is the number of runs GetRecentRuns returns when
// called with a non-positive limit.
const DefaultHistoryLimit = 10

// SaveCheckpoint replaces the stored checkpoint and appends the run to the
// history in one transaction. RunID and CreatedAt are filled in when empty.
func (db *DB) SaveCheckpoint(cp *Checkpoint) error {
	if cp.RunID == "" {
		cp.RunID = uuid.NewString()
	}
	if cp.CreatedAt == "" {
		cp.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin checkpoint write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO checkpoint
		(id, text, intermediate_text, final_text, classification,
		 run_id, source, feature_order, sentiment_score, sentiment_label, created_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cp.Text, cp.IntermediateText, cp.FinalText, cp.Classification,
		cp.RunID, cp.Source, cp.FeatureOrder, cp.SentimentScore, cp.SentimentLabel, cp.CreatedAt,
	); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO runs
		(run_id, source, text, final_text, classification, sentiment_score, sentiment_label, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cp.RunID, cp.Source, cp.Text, cp.FinalText, cp.Classification,
		cp.SentimentScore, cp.SentimentLabel, cp.CreatedAt,
	); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint returns the stored checkpoint, or ErrCheckpointNotFound.
func (db *DB) LoadCheckpoint() (*Checkpoint, error) {
	row := db.conn.QueryRow(
		`SELECT text, intermediate_text, final_text, classification,
		run_id, source, feature_order, sentiment_score, sentiment_label, created_at
		FROM checkpoint WHERE id = 1`,
	)

	var cp Checkpoint
	var classification sql.NullString
	if err := row.Scan(&cp.Text, &cp.IntermediateText, &cp.FinalText, &classification,
		&cp.RunID, &cp.Source, &cp.FeatureOrder, &cp.SentimentScore, &cp.SentimentLabel, &cp.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}
	if classification.Valid {
		cp.Classification = &classification.String
	}
	return &cp, nil
}

// GetRecentRuns returns up to limit runs, newest first.
func (db *DB) GetRecentRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := db.conn.Query(
		`SELECT id, run_id, source, text, final_text, classification,
		sentiment_score, sentiment_label, created_at
		FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var classification sql.NullString
		if err := rows.Scan(&r.ID, &r.RunID, &r.Source, &r.Text, &r.FinalText, &classification,
			&r.SentimentScore, &r.SentimentLabel, &r.CreatedAt); err != nil {
			return nil, err
		}
		if classification.Valid {
			r.Classification = &classification.String
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	var checkpoints int
	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM checkpoint", &checkpoints},
		{"SELECT COUNT(*) FROM runs", &s.TotalRuns},
		{"SELECT COUNT(*) FROM runs WHERE classification IS NOT NULL", &s.ClassifiedRuns},
		{"SELECT COUNT(*) FROM runs WHERE sentiment_label = 'positive'", &s.PositiveRuns},
		{"SELECT COUNT(*) FROM runs WHERE sentiment_label = 'negative'", &s.NegativeRuns},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	s.HasCheckpoint = checkpoints > 0

	var last sql.NullString
	if err := db.conn.QueryRow("SELECT MAX(created_at) FROM runs").Scan(&last); err != nil {
		return nil, err
	}
	s.LastRunAt = last.String

	return s, nil
}
