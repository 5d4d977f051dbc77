// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Postgres is a Store backed by a PostgreSQL database through a pgx
// connection pool. Bodies are stored as JSONB; index keys use the "C"
// collation so range scans order bytewise like the other backends.
type Postgres struct {
	pool    *pgxpool.Pool
	indexes []Index
	known   map[string]Index
}

// PostgresOptions tunes the connection pool.
type PostgresOptions struct {
	MaxConns       int32
	ConnectTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	Logger         zerolog.Logger

	// Password overrides the password in the DSN when set.
	Password string
}

func (o *PostgresOptions) defaults() {
	if o.MaxConns <= 0 {
		o.MaxConns = 10
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 5 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
}

// OpenPostgres connects to dsn, retrying with exponential backoff, and
// creates the schema if it does not exist.
func OpenPostgres(ctx context.Context, dsn string, opts PostgresOptions, indexes ...Index) (*Postgres, error) {
	opts.defaults()
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	cfg.MaxConns = opts.MaxConns
	cfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	if opts.Password != "" {
		cfg.ConnConfig.Password = opts.Password
	}

	pool, err := connectWithRetry(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}

	p := &Postgres{pool: pool, indexes: indexes, known: indexMap(indexes)}
	if err := p.createSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if err := p.syncIndexes(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("building indexes: %w", err)
	}
	return p, nil
}

func connectWithRetry(ctx context.Context, cfg *pgxpool.Config, opts PostgresOptions) (*pgxpool.Pool, error) {
	var lastErr error
	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		connectCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
		pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
		if err == nil {
			err = pool.Ping(connectCtx)
			if err != nil {
				pool.Close()
			}
		}
		cancel()
		if err == nil {
			return pool, nil
		}
		lastErr = err
		opts.Logger.Warn().Err(err).Int("attempt", attempt).Msg("postgres connection failed")

		if attempt < opts.MaxRetries {
			delay := opts.RetryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("connection cancelled: %w", ctx.Err())
			}
		}
	}
	return nil, fmt.Errorf("connecting after %d attempts: %w", opts.MaxRetries, lastErr)
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) createSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			rev TEXT NOT NULL,
			kind TEXT NOT NULL,
			body JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_kind ON documents(kind)`,
		`CREATE TABLE IF NOT EXISTS index_entries (
			index_name TEXT NOT NULL,
			key TEXT COLLATE "C" NOT NULL,
			doc_id TEXT NOT NULL,
			uniq BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (index_name, key, doc_id)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_unique ON index_entries(index_name, key) WHERE uniq`,
		`CREATE INDEX IF NOT EXISTS idx_entries_doc ON index_entries(doc_id)`,
		`CREATE TABLE IF NOT EXISTS store_meta (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func (p *Postgres) syncIndexes(ctx context.Context) error {
	want := indexSignature(p.indexes)
	var have string
	err := p.pool.QueryRow(ctx, `SELECT value FROM store_meta WHERE name = 'indexes'`).Scan(&have)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if have == want {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM index_entries`); err != nil {
		return err
	}
	docs, err := scanDocuments(ctx, tx, `SELECT id, rev, kind, body FROM documents`)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := p.insertEntries(ctx, tx, doc); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO store_meta (name, value) VALUES ('indexes', $1)
		 ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`, want); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *Postgres) insertEntries(ctx context.Context, tx pgx.Tx, doc Document) error {
	for _, e := range emit(p.indexes, doc) {
		for _, k := range e.keys {
			_, err := tx.Exec(ctx,
				`INSERT INTO index_entries (index_name, key, doc_id, uniq) VALUES ($1, $2, $3, $4)`,
				e.index.Name, k, doc.ID, e.unique)
			if isUniqueViolation(err) {
				return &DuplicateError{Index: e.index.Name, Key: k}
			}
			if err != nil {
				return fmt.Errorf("inserting index entry: %w", err)
			}
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanDocuments(ctx context.Context, q querier, stmt string, args ...any) ([]Document, error) {
	rows, err := q.Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		var doc Document
		var body []byte
		if err := rows.Scan(&doc.ID, &doc.Rev, &doc.Kind, &body); err != nil {
			return nil, err
		}
		doc.Body = body
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Get returns the document with id.
func (p *Postgres) Get(ctx context.Context, id string) (Document, error) {
	docs, err := scanDocuments(ctx, p.pool, `SELECT id, rev, kind, body FROM documents WHERE id = $1`, id)
	if err != nil {
		return Document{}, fmt.Errorf("reading document %s: %w", id, err)
	}
	if len(docs) == 0 {
		return Document{}, ErrNotFound
	}
	return docs[0], nil
}

// Put writes doc at its revision and replaces its index entries in the
// same transaction. Racing writers are resolved by the primary key and
// the partial unique index.
func (p *Postgres) Put(ctx context.Context, doc Document) (string, error) {
	if err := validate(doc); err != nil {
		return "", err
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rev := nextRev(doc.Rev)
	if doc.Rev == "" {
		_, err := tx.Exec(ctx,
			`INSERT INTO documents (id, rev, kind, body) VALUES ($1, $2, $3, $4)`,
			doc.ID, rev, doc.Kind, string(doc.Body))
		if isUniqueViolation(err) {
			return "", ErrConflict
		}
		if err != nil {
			return "", fmt.Errorf("inserting document: %w", err)
		}
	} else {
		tag, err := tx.Exec(ctx,
			`UPDATE documents SET rev = $1, kind = $2, body = $3 WHERE id = $4 AND rev = $5`,
			rev, doc.Kind, string(doc.Body), doc.ID, doc.Rev)
		if err != nil {
			return "", fmt.Errorf("updating document: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return "", ErrConflict
		}
		if _, err := tx.Exec(ctx, `DELETE FROM index_entries WHERE doc_id = $1`, doc.ID); err != nil {
			return "", fmt.Errorf("clearing index entries: %w", err)
		}
	}

	if err := p.insertEntries(ctx, tx, doc); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicate
		}
		return "", fmt.Errorf("committing: %w", err)
	}
	return rev, nil
}

// Delete removes the document at rev and its index entries.
func (p *Postgres) Delete(ctx context.Context, id, rev string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM documents WHERE id = $1 AND rev = $2`, id, rev)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}
	if _, err := tx.Exec(ctx, `DELETE FROM index_entries WHERE doc_id = $1`, id); err != nil {
		return fmt.Errorf("clearing index entries: %w", err)
	}
	return tx.Commit(ctx)
}

// Query scans an index.
func (p *Postgres) Query(ctx context.Context, q Query) ([]Row, error) {
	if err := checkIndex(p.known, q.Index); err != nil {
		return nil, err
	}
	stmt := `SELECT key, doc_id FROM index_entries WHERE index_name = $1 AND key >= $2`
	args := []any{q.Index, q.Start}
	if q.End != "" {
		args = append(args, q.End)
		stmt += fmt.Sprintf(` AND key <= $%d`, len(args))
	}
	if q.Descending {
		stmt += ` ORDER BY key DESC, doc_id DESC`
	} else {
		stmt += ` ORDER BY key ASC, doc_id ASC`
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		stmt += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := p.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", q.Index, err)
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Key, &r.ID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Scan returns every document of kind ordered by id.
func (p *Postgres) Scan(ctx context.Context, kind string) ([]Document, error) {
	if kind == "" {
		return scanDocuments(ctx, p.pool, `SELECT id, rev, kind, body FROM documents ORDER BY id`)
	}
	return scanDocuments(ctx, p.pool, `SELECT id, rev, kind, body FROM documents WHERE kind = $1 ORDER BY id`, kind)
}
