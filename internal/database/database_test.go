package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func TestLoadEmptyStore(t *testing.T) {
	db := openTestDB(t)
	cp, err := db.LoadCheckpoint()
	if !errors.Is(err, ErrCheckpointNotFound) {
		t.Fatalf("expected ErrCheckpointNotFound, got %v", err)
	}
	if cp != nil {
		t.Error("expected nil checkpoint")
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "breakpoint.db")
	if _, err := LoadCheckpointFile(path); !errors.Is(err, ErrCheckpointNotFound) {
		t.Fatalf("expected ErrCheckpointNotFound, got %v", err)
	}
	if Exists(path) {
		t.Error("loading must not create the database file")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := openTestDB(t)
	in := &Checkpoint{
		RunID:            "run-1",
		Source:           "text",
		Text:             "I love this! It is AMAZING and wonderful.",
		IntermediateText: "wonderful love amazing ",
		FinalText:        "wonderful love amazing \nWhat is the sentiment of the above text, give a list of emotions that the writer is expressing",
		Classification:   ptr("Joy, Love"),
		FeatureOrder:     "lexical",
		SentimentScore:   0.8,
		SentimentLabel:   "positive",
	}
	if err := db.SaveCheckpoint(in); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}

	out, err := db.LoadCheckpoint()
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}
	if out.Text != in.Text || out.IntermediateText != in.IntermediateText || out.FinalText != in.FinalText {
		t.Errorf("text fields differ: %+v", out)
	}
	if out.Classification == nil || *out.Classification != "Joy, Love" {
		t.Errorf("expected classification 'Joy, Love', got %v", out.Classification)
	}
	if out.RunID != "run-1" || out.SentimentLabel != "positive" || out.SentimentScore != 0.8 {
		t.Errorf("metadata differs: %+v", out)
	}
	if out.CreatedAt == "" {
		t.Error("expected created_at to be set")
	}
}

func TestRoundTripAbsentClassification(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveCheckpoint(&Checkpoint{Text: "a", IntermediateText: "b", FinalText: "c"}); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	out, err := db.LoadCheckpoint()
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}
	if out.Classification != nil {
		t.Errorf("expected nil classification, got %q", *out.Classification)
	}
	if out.Text != "a" || out.IntermediateText != "b" || out.FinalText != "c" {
		t.Errorf("unexpected checkpoint %+v", out)
	}
	if out.RunID == "" {
		t.Error("expected generated run id")
	}
}

func TestSaveOverwrites(t *testing.T) {
	db := openTestDB(t)
	db.SaveCheckpoint(&Checkpoint{RunID: "first", Text: "first", IntermediateText: "x", FinalText: "y", Classification: ptr("Sad")})
	db.SaveCheckpoint(&Checkpoint{RunID: "second", Text: "second", IntermediateText: "x", FinalText: "y"})

	out, err := db.LoadCheckpoint()
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}
	if out.Text != "second" || out.Classification != nil {
		t.Errorf("expected second checkpoint to replace first, got %+v", out)
	}

	var n int
	db.conn.QueryRow("SELECT COUNT(*) FROM checkpoint").Scan(&n)
	if n != 1 {
		t.Errorf("expected exactly one checkpoint row, got %d", n)
	}
}

func TestLoadCheckpointFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "breakpoint.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	db.SaveCheckpoint(&Checkpoint{Text: "t", IntermediateText: "i", FinalText: "f", Classification: ptr("Calm")})
	db.Close()

	cp, err := LoadCheckpointFile(path)
	if err != nil {
		t.Fatalf("LoadCheckpointFile: %v", err)
	}
	if *cp.Classification != "Calm" {
		t.Errorf("expected 'Calm', got %q", *cp.Classification)
	}
}

func TestRecentRuns(t *testing.T) {
	db := openTestDB(t)
	for i, text := range []string{"one", "two", "three"} {
		cp := &Checkpoint{
			RunID:            text,
			Text:             text,
			IntermediateText: text,
			FinalText:        text,
			CreatedAt:        "2026-10-0" + string(rune('1'+i)) + "T10:00:00Z",
		}
		if err := db.SaveCheckpoint(cp); err != nil {
			t.Fatalf("SaveCheckpoint: %v", err)
		}
	}

	runs, err := db.GetRecentRuns(2)
	if err != nil {
		t.Fatalf("GetRecentRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Text != "three" || runs[1].Text != "two" {
		t.Errorf("expected newest first, got %q then %q", runs[0].Text, runs[1].Text)
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)

	s, err := db.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if s.HasCheckpoint || s.TotalRuns != 0 {
		t.Errorf("expected empty stats, got %+v", s)
	}

	db.SaveCheckpoint(&Checkpoint{Text: "a", IntermediateText: "a", FinalText: "a", Classification: ptr("Joy"), SentimentLabel: "positive"})
	db.SaveCheckpoint(&Checkpoint{Text: "b", IntermediateText: "b", FinalText: "b", SentimentLabel: "negative"})

	s, err = db.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if !s.HasCheckpoint {
		t.Error("expected checkpoint to exist")
	}
	if s.TotalRuns != 2 || s.ClassifiedRuns != 1 || s.PositiveRuns != 1 || s.NegativeRuns != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
	if s.LastRunAt == "" {
		t.Error("expected last run timestamp")
	}
}

func TestBusyTimeoutOnEveryConnection(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// Hold several connections at once so the pool has to open new ones.
	var conns []*sql.Conn
	for i := 0; i < 3; i++ {
		c, err := db.conn.Conn(ctx)
		if err != nil {
			t.Fatalf("Conn: %v", err)
		}
		conns = append(conns, c)
	}
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()

	for i, c := range conns {
		var timeout int
		if err := c.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
			t.Fatalf("conn %d: %v", i, err)
		}
		if timeout != 5000 {
			t.Errorf("conn %d: expected busy_timeout 5000, got %d", i, timeout)
		}
	}
}

func TestConcurrentSavesFromTwoHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	var handles []*DB
	for i := 0; i < 2; i++ {
		db, err := Open(path)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		handles = append(handles, db)
	}

	const perHandle = 10
	var wg sync.WaitGroup
	errs := make(chan error, 2*perHandle)
	for h, db := range handles {
		for i := 0; i < perHandle; i++ {
			wg.Add(1)
			go func(db *DB, text string) {
				defer wg.Done()
				if err := db.SaveCheckpoint(&Checkpoint{Text: text, IntermediateText: text, FinalText: text}); err != nil {
					errs <- err
				}
			}(db, fmt.Sprintf("h%d-%d", h, i))
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("save failed: %v", err)
	}

	runs, err := handles[0].GetRecentRuns(100)
	if err != nil {
		t.Fatalf("GetRecentRuns: %v", err)
	}
	if len(runs) != 2*perHandle {
		t.Errorf("expected %d runs, got %d", 2*perHandle, len(runs))
	}
}

func TestGetRecentRunsNonPositiveLimit(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 3; i++ {
		text := fmt.Sprintf("run %d", i)
		if err := db.SaveCheckpoint(&Checkpoint{Text: text, IntermediateText: text, FinalText: text}); err != nil {
			t.Fatalf("SaveCheckpoint: %v", err)
		}
	}

	for _, limit := range []int{0, -1} {
		runs, err := db.GetRecentRuns(limit)
		if err != nil {
			t.Fatalf("GetRecentRuns(%d): %v", limit, err)
		}
		if len(runs) != 3 {
			t.Errorf("GetRecentRuns(%d): expected 3 runs, got %d", limit, len(runs))
		}
	}
}
