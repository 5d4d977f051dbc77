// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// SQLite is a Store backed by one SQLite database file. Index entries are
// materialized in a table and rebuilt when the set of index names changes.
type SQLite struct {
	db      *sql.DB
	indexes []Index
	known   map[string]Index
}

// OpenSQLite opens or creates the database at path and creates the schema
// if it does not exist. Writers take the lock at BEGIN so concurrent
// Puts serialize instead of failing on upgrade.
func OpenSQLite(ctx context.Context, path string, indexes ...Index) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLite{db: db, indexes: indexes, known: indexMap(indexes)}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if err := s.syncIndexes(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("building indexes: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) createSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			rev TEXT NOT NULL,
			kind TEXT NOT NULL,
			body TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_kind ON documents(kind)`,
		`CREATE TABLE IF NOT EXISTS index_entries (
			index_name TEXT NOT NULL,
			key TEXT NOT NULL,
			doc_id TEXT NOT NULL,
			uniq INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (index_name, key, doc_id)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_unique ON index_entries(index_name, key) WHERE uniq = 1`,
		`CREATE INDEX IF NOT EXISTS idx_entries_doc ON index_entries(doc_id)`,
		`CREATE TABLE IF NOT EXISTS store_meta (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func indexSignature(indexes []Index) string {
	names := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		u := ""
		if idx.Unique {
			u = "!"
		}
		names = append(names, idx.Name+u)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// syncIndexes rebuilds every index entry when the configured indexes
// differ from those the database was last built with.
func (s *SQLite) syncIndexes(ctx context.Context) error {
	want := indexSignature(s.indexes)
	var have string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE name = 'indexes'`).Scan(&have)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if have == want {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM index_entries`); err != nil {
		return err
	}
	rows, err := tx.QueryContext(ctx, `SELECT id, rev, kind, body FROM documents`)
	if err != nil {
		return err
	}
	var docs []Document
	for rows.Next() {
		var doc Document
		var body string
		if err := rows.Scan(&doc.ID, &doc.Rev, &doc.Kind, &body); err != nil {
			rows.Close()
			return err
		}
		doc.Body = []byte(body)
		docs = append(docs, doc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, doc := range docs {
		if err := s.insertEntries(ctx, tx, doc); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO store_meta (name, value) VALUES ('indexes', ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`, want); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) insertEntries(ctx context.Context, tx *sql.Tx, doc Document) error {
	for _, e := range emit(s.indexes, doc) {
		uniq := 0
		if e.unique {
			uniq = 1
		}
		for _, k := range e.keys {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO index_entries (index_name, key, doc_id, uniq) VALUES (?, ?, ?, ?)`,
				e.index.Name, k, doc.ID, uniq)
			if isSQLiteConstraint(err, sqlite3.ErrConstraintUnique) {
				return &DuplicateError{Index: e.index.Name, Key: k}
			}
			if err != nil {
				return fmt.Errorf("inserting index entry: %w", err)
			}
		}
	}
	return nil
}

func isSQLiteConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == code
}

// Get returns the document with id.
func (s *SQLite) Get(ctx context.Context, id string) (Document, error) {
	var doc Document
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, rev, kind, body FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Rev, &doc.Kind, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("reading document %s: %w", id, err)
	}
	doc.Body = []byte(body)
	return doc, nil
}

// Put writes doc at its revision and replaces its index entries in the
// same transaction.
func (s *SQLite) Put(ctx context.Context, doc Document) (string, error) {
	if err := validate(doc); err != nil {
		return "", err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rev := nextRev(doc.Rev)
	if doc.Rev == "" {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO documents (id, rev, kind, body) VALUES (?, ?, ?, ?)`,
			doc.ID, rev, doc.Kind, string(doc.Body))
		if isSQLiteConstraint(err, sqlite3.ErrConstraintPrimaryKey) {
			return "", ErrConflict
		}
		if err != nil {
			return "", fmt.Errorf("inserting document: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx,
			`UPDATE documents SET rev = ?, kind = ?, body = ? WHERE id = ? AND rev = ?`,
			rev, doc.Kind, string(doc.Body), doc.ID, doc.Rev)
		if err != nil {
			return "", fmt.Errorf("updating document: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return "", ErrConflict
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM index_entries WHERE doc_id = ?`, doc.ID); err != nil {
			return "", fmt.Errorf("clearing index entries: %w", err)
		}
	}

	if err := s.insertEntries(ctx, tx, doc); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}
	return rev, nil
}

// Delete removes the document at rev and its index entries.
func (s *SQLite) Delete(ctx context.Context, id, rev string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ? AND rev = ?`, id, rev)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM documents WHERE id = ?`, id).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM index_entries WHERE doc_id = ?`, id); err != nil {
		return fmt.Errorf("clearing index entries: %w", err)
	}
	return tx.Commit()
}

// Query scans an index.
func (s *SQLite) Query(ctx context.Context, q Query) ([]Row, error) {
	if err := checkIndex(s.known, q.Index); err != nil {
		return nil, err
	}
	stmt := `SELECT key, doc_id FROM index_entries WHERE index_name = ? AND key >= ?`
	args := []any{q.Index, q.Start}
	if q.End != "" {
		stmt += ` AND key <= ?`
		args = append(args, q.End)
	}
	if q.Descending {
		stmt += ` ORDER BY key DESC, doc_id DESC`
	} else {
		stmt += ` ORDER BY key ASC, doc_id ASC`
	}
	if q.Limit > 0 {
		stmt += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
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
func (s *SQLite) Scan(ctx context.Context, kind string) ([]Document, error) {
	stmt := `SELECT id, rev, kind, body FROM documents`
	var args []any
	if kind != "" {
		stmt += ` WHERE kind = ?`
		args = append(args, kind)
	}
	stmt += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("scanning documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var body string
		if err := rows.Scan(&doc.ID, &doc.Rev, &doc.Kind, &body); err != nil {
			return nil, err
		}
		doc.Body = []byte(body)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
