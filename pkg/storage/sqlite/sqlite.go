// Package sqlite provides a SQLite-backed storage.Driver using
// github.com/mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/chatrelay/pkg/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	id           TEXT PRIMARY KEY,
	request_id   TEXT NOT NULL,
	route        TEXT NOT NULL,
	messages     TEXT NOT NULL,
	reply        TEXT NOT NULL,
	status       TEXT NOT NULL,
	http_status  INTEGER NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	streaming    INTEGER NOT NULL,
	records      INTEGER NOT NULL,
	tokens       INTEGER NOT NULL,
	skipped      INTEGER NOT NULL,
	started_at   INTEGER NOT NULL,
	completed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcripts_started_at ON transcripts (started_at DESC);
`

const selectColumns = `id, request_id, route, messages, reply, status, http_status, error,
	streaming, records, tokens, skipped, started_at, completed_at`

// Driver implements storage.Driver on a SQLite database.
type Driver struct {
	db *sql.DB
}

var _ storage.Driver = (*Driver)(nil)

// NewDriver opens (creating if needed) the database at dbPath and applies the
// schema. dbPath may be ":memory:".
func NewDriver(ctx context.Context, dbPath string) (*Driver, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each :memory: connection is its own database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Driver{db: db}, nil
}

// Put inserts t.
func (d *Driver) Put(ctx context.Context, t *storage.Transcript) error {
	if err := t.Validate(); err != nil {
		return err
	}

	messages, err := json.Marshal(t.Messages)
	if err != nil {
		return fmt.Errorf("marshaling messages: %w", err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO transcripts (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.RequestID, t.Route, string(messages), t.Reply, string(t.Status), t.HTTPStatus, t.Error,
		t.Streaming, t.Records, t.Tokens, t.Skipped, t.StartedAt.UnixNano(), t.CompletedAt.UnixNano(),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting transcript: %w", err)
	}

	return nil
}

// Get retrieves a transcript by ID.
func (d *Driver) Get(ctx context.Context, id string) (*storage.Transcript, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM transcripts WHERE id = ?`, id)

	t, err := scanTranscript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying transcript: %w", err)
	}

	return t, nil
}

// List returns up to limit transcripts, most recently started first.
func (d *Driver) List(ctx context.Context, limit int) ([]*storage.Transcript, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM transcripts ORDER BY started_at DESC, id DESC LIMIT ?`,
		storage.NormalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("listing transcripts: %w", err)
	}
	defer rows.Close()

	var result []*storage.Transcript
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transcript: %w", err)
		}
		result = append(result, t)
	}

	return result, rows.Err()
}

// Close closes the database.
func (d *Driver) Close() error {
	return d.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTranscript(s scanner) (*storage.Transcript, error) {
	var (
		t                    storage.Transcript
		messages, status     string
		startedAt, completed int64
	)

	err := s.Scan(
		&t.ID, &t.RequestID, &t.Route, &messages, &t.Reply, &status, &t.HTTPStatus, &t.Error,
		&t.Streaming, &t.Records, &t.Tokens, &t.Skipped, &startedAt, &completed,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(messages), &t.Messages); err != nil {
		return nil, fmt.Errorf("unmarshaling messages: %w", err)
	}

	t.Status = storage.Status(status)
	t.StartedAt = time.Unix(0, startedAt).UTC()
	t.CompletedAt = time.Unix(0, completed).UTC()

	return &t, nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
