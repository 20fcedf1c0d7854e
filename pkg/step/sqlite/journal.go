// Package sqlite provides a step journal stored in an embedded SQLite database.
//
// The caller opens the *sql.DB with the "sqlite" driver registered by
// modernc.org/sqlite; Open does both.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and prepares the schema.
func Open(ctx context.Context, path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// ":memory:" databases exist per connection.
	db.SetMaxOpenConns(1)

	journal, err := NewJournal(ctx, db)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return journal, nil
}

// NewJournal initializes the schema in db and returns a journal.
func NewJournal(ctx context.Context, db *sql.DB) (*Journal, error) {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS step_journal (
			run_id TEXT NOT NULL,
			name TEXT NOT NULL,
			payload BLOB NOT NULL,
			recorded_at TIMESTAMP NOT NULL,
			PRIMARY KEY (run_id, name)
		);`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create step journal table: %w", err)
	}

	return &Journal{db: db}, nil
}

func (j *Journal) Load(ctx context.Context, runID, name string) ([]byte, bool, error) {
	var payload []byte

	err := j.db.QueryRowContext(ctx,
		`SELECT payload FROM step_journal WHERE run_id = ? AND name = ?`, runID, name,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, err
	}

	return payload, true, nil
}

func (j *Journal) Save(ctx context.Context, runID, name string, payload []byte) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO step_journal (run_id, name, payload, recorded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (run_id, name) DO UPDATE SET payload = excluded.payload, recorded_at = excluded.recorded_at`,
		runID, name, payload, time.Now().UTC(),
	)

	return err
}

func (j *Journal) Close() error {
	return j.db.Close()
}
