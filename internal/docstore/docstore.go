// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docstore is a keyed JSON document store with optimistic
// concurrency and named secondary indexes.
//
// A document is written with the revision it was read at; a stale or
// unknown revision fails with ErrConflict. Each Index emits zero or more
// string keys per document of its kind; unique indexes refuse a write
// that would give a key to a second document.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Errors returned by every backend.
var (
	ErrNotFound  = errors.New("document not found")
	ErrConflict  = errors.New("document revision conflict")
	ErrDuplicate = errors.New("duplicate key in unique index")
	ErrInvalid   = errors.New("invalid document")
)

// DuplicateError names the unique index and key a write collided on.
type DuplicateError struct {
	Index string
	Key   string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s: key %q already taken", e.Index, e.Key)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

// Document is one stored entity.
type Document struct {
	ID   string
	Rev  string
	Kind string
	Body json.RawMessage
}

// Index defines a named secondary index over documents of one kind.
// Emit returns the keys for a document body; empty keys are ignored.
type Index struct {
	Name   string
	Kind   string
	Unique bool
	Emit   func(body []byte) []string
}

// Row is one index entry.
type Row struct {
	Key string
	ID  string
}

// Query selects rows of an index with Start <= key <= End. An empty End
// is unbounded. Rows are ordered by key then document id.
type Query struct {
	Index      string
	Start      string
	End        string
	Descending bool
	Limit      int
}

// highKey sorts after every key the indexes emit.
const highKey = "\uffff"

// Exact returns a query for rows whose key equals key.
func Exact(index, key string) Query {
	return Query{Index: index, Start: key, End: key}
}

// Prefix returns a query for rows whose key starts with prefix.
func Prefix(index, prefix string) Query {
	return Query{Index: index, Start: prefix, End: prefix + highKey}
}

// Range returns a query for start <= key <= end.
func Range(index, start, end string) Query {
	return Query{Index: index, Start: start, End: end}
}

// All returns a query for every row of an index.
func All(index string) Query {
	return Query{Index: index}
}

// Store is implemented by the memory, SQLite and Postgres backends.
type Store interface {
	// Get returns the document with id or ErrNotFound.
	Get(ctx context.Context, id string) (Document, error)

	// Put writes doc. doc.Rev must be empty for a new document and equal
	// to the stored revision otherwise. It returns the new revision.
	Put(ctx context.Context, doc Document) (string, error)

	// Delete removes the document at rev.
	Delete(ctx context.Context, id, rev string) error

	// Query scans a named index.
	Query(ctx context.Context, q Query) ([]Row, error)

	// Scan returns every document of kind, or of all kinds when kind is
	// empty, ordered by id.
	Scan(ctx context.Context, kind string) ([]Document, error)

	Close() error
}

// emitted holds the keys one document produces, per index.
type emitted struct {
	index  Index
	keys   []string
	unique bool
}

// emit runs every index of doc's kind over its body.
func emit(indexes []Index, doc Document) []emitted {
	var out []emitted
	for _, idx := range indexes {
		if idx.Kind != "" && idx.Kind != doc.Kind {
			continue
		}
		seen := make(map[string]bool)
		var keys []string
		for _, k := range idx.Emit(doc.Body) {
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			keys = append(keys, k)
		}
		if len(keys) > 0 {
			out = append(out, emitted{index: idx, keys: keys, unique: idx.Unique})
		}
	}
	return out
}

func validate(doc Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalid)
	}
	if doc.Kind == "" {
		return fmt.Errorf("%w: empty kind", ErrInvalid)
	}
	if !json.Valid(doc.Body) {
		return fmt.Errorf("%w: body of %s is not JSON", ErrInvalid, doc.ID)
	}
	return nil
}

func checkIndex(known map[string]Index, name string) error {
	if _, ok := known[name]; !ok {
		return fmt.Errorf("%w: unknown index %q", ErrInvalid, name)
	}
	return nil
}

func indexMap(indexes []Index) map[string]Index {
	m := make(map[string]Index, len(indexes))
	for _, idx := range indexes {
		m[idx.Name] = idx
	}
	return m
}

// nextRev returns the successor of rev: "<generation>-<32 hex>".
func nextRev(rev string) string {
	gen := 0
	if i := strings.IndexByte(rev, '-'); i > 0 {
		gen, _ = strconv.Atoi(rev[:i])
	}
	return strconv.Itoa(gen+1) + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// inRange reports whether key satisfies q's bounds.
func (q Query) inRange(key string) bool {
	if key < q.Start {
		return false
	}
	return q.End == "" || key <= q.End
}

// finish orders rows and applies Descending and Limit.
func (q Query) finish(rows []Row) []Row {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Key != rows[j].Key {
			return rows[i].Key < rows[j].Key
		}
		return rows[i].ID < rows[j].ID
	})
	if q.Descending {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows
}

// IDs returns the distinct document ids of rows in order.
func IDs(rows []Row) []string {
	seen := make(map[string]bool, len(rows))
	var ids []string
	for _, r := range rows {
		if !seen[r.ID] {
			seen[r.ID] = true
			ids = append(ids, r.ID)
		}
	}
	return ids
}
