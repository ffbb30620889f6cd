// Package postgres provides a PostgreSQL-backed storage.Driver using pgx/v5
// connection pooling. Messages are stored as JSONB.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/logger"
	"github.com/papercomputeco/chatrelay/pkg/storage"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

const selectColumns = `id, request_id, route, messages, reply, status, http_status, error,
	streaming, records, tokens, skipped, started_at, completed_at`

// Driver implements storage.Driver on PostgreSQL.
type Driver struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ storage.Driver = (*Driver)(nil)

// NewDriver connects to PostgreSQL and, unless cfg.SkipMigrations is set,
// applies pending schema migrations.
func NewDriver(ctx context.Context, cfg Config, log *slog.Logger) (*Driver, error) {
	cfg.defaults()
	if log == nil {
		log = logger.Nop()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	d := &Driver{pool: pool, logger: log}

	if !cfg.SkipMigrations {
		if err := d.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return d, nil
}

// Put inserts t.
func (d *Driver) Put(ctx context.Context, t *storage.Transcript) error {
	if err := t.Validate(); err != nil {
		return err
	}

	messages := t.Messages
	if messages == nil {
		messages = []llm.Message{}
	}
	messagesJSON, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshaling messages: %w", err)
	}

	_, err = d.pool.Exec(ctx, `
		INSERT INTO transcripts (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		t.ID, t.RequestID, t.Route, messagesJSON, t.Reply, string(t.Status), t.HTTPStatus, t.Error,
		t.Streaming, t.Records, t.Tokens, t.Skipped, t.StartedAt, t.CompletedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting transcript: %w", err)
	}

	return nil
}

// Get retrieves a transcript by ID.
func (d *Driver) Get(ctx context.Context, id string) (*storage.Transcript, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM transcripts WHERE id = $1`, id)

	t, err := scanTranscript(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying transcript: %w", err)
	}

	return t, nil
}

// List returns up to limit transcripts, most recently started first.
func (d *Driver) List(ctx context.Context, limit int) ([]*storage.Transcript, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM transcripts ORDER BY started_at DESC, id DESC LIMIT $1`,
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

// HealthCheck verifies the database connection.
func (d *Driver) HealthCheck(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Close releases the connection pool.
func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}

func scanTranscript(row pgx.Row) (*storage.Transcript, error) {
	var (
		t            storage.Transcript
		messagesJSON []byte
		status       string
	)

	err := row.Scan(
		&t.ID, &t.RequestID, &t.Route, &messagesJSON, &t.Reply, &status, &t.HTTPStatus, &t.Error,
		&t.Streaming, &t.Records, &t.Tokens, &t.Skipped, &t.StartedAt, &t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(messagesJSON, &t.Messages); err != nil {
		return nil, fmt.Errorf("unmarshaling messages: %w", err)
	}

	t.Status = storage.Status(status)
	t.StartedAt = t.StartedAt.UTC()
	t.CompletedAt = t.CompletedAt.UTC()

	return &t, nil
}

// Truncate deletes every transcript. It exists for test isolation.
func (d *Driver) Truncate(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, "TRUNCATE transcripts")
	return err
}
