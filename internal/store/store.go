// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store owns the publications database entities and their
// invariants on top of a docstore.Store: uniqueness of identifiers,
// emails, API keys, label values and journal titles; optimistic
// concurrency; and the audit log written on every save and delete.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/publications/internal/docstore"
	"github.com/pdiddy/publications/internal/identifier"
	"github.com/pdiddy/publications/pkg/types"
)

// Errors returned by the store.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("version conflict")
	ErrDuplicate   = errors.New("duplicate")
	ErrInUse       = errors.New("in use")
	ErrBlacklisted = errors.New("blacklisted")
	ErrInvalid     = errors.New("invalid")
)

// Store is the typed repository over a document store.
type Store struct {
	docs   docstore.Store
	ids    *identifier.Normalizer
	now    func() time.Time
	newID  func() string
	logger zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source for created, modified and log timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGen sets the generator of new document ids.
func WithIDGen(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithNormalizer sets the normalizer used to resolve PMID and DOI input
// forms. The default recognizes identifier.DefaultPrefixes.
func WithNormalizer(n *identifier.Normalizer) Option {
	return func(s *Store) {
		if n != nil {
			s.ids = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewID returns a random 32-character lowercase hex id.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// New wraps docs. docs must have been opened with Indexes().
func New(docs docstore.Store, opts ...Option) *Store {
	s := &Store{
		docs:   docs,
		ids:    identifier.New(nil),
		now:    time.Now,
		newID:  NewID,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Docs returns the underlying document store.
func (s *Store) Docs() docstore.Store { return s.docs }

// Normalizer returns the identifier normalizer the store resolves input with.
func (s *Store) Normalizer() *identifier.Normalizer { return s.ids }

// Now returns the store clock's current time.
func (s *Store) Now() time.Time { return s.now() }

// Timestamp returns the current time in the stored format.
func (s *Store) Timestamp() string { return types.Timestamp(s.now()) }

// Close closes the underlying document store.
func (s *Store) Close() error { return s.docs.Close() }

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, docstore.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, docstore.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case errors.Is(err, docstore.ErrInvalid):
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	default:
		return err
	}
}

type entityPtr[T any] interface {
	*T
	types.Entity
}

// load reads the document id and decodes it when it has the given kind.
func load[T any, P entityPtr[T]](ctx context.Context, s *Store, kind, id string) (P, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	if doc.Kind != kind {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	return decode[T, P](doc)
}

func decode[T any, P entityPtr[T]](doc docstore.Document) (P, error) {
	var v T
	p := P(&v)
	if err := json.Unmarshal(doc.Body, p); err != nil {
		return nil, fmt.Errorf("decoding %s %s: %w", doc.Kind, doc.ID, err)
	}
	m := p.Base()
	m.ID = doc.ID
	m.Rev = doc.Rev
	m.Kind = doc.Kind
	return p, nil
}

// loadOne resolves a unique index key to its entity.
func loadOne[T any, P entityPtr[T]](ctx context.Context, s *Store, kind, index, key string) (P, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty %s key", ErrNotFound, index)
	}
	rows, err := s.docs.Query(ctx, docstore.Exact(index, key))
	if err != nil {
		return nil, mapErr(err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s %q", ErrNotFound, index, key)
	}
	return load[T, P](ctx, s, kind, rows[0].ID)
}

// loadMany resolves the rows of q to entities in row order. Documents
// deleted between query and read are skipped.
func loadMany[T any, P entityPtr[T]](ctx context.Context, s *Store, kind string, q docstore.Query) ([]P, error) {
	rows, err := s.docs.Query(ctx, q)
	if err != nil {
		return nil, mapErr(err)
	}
	var out []P
	for _, id := range docstore.IDs(rows) {
		e, err := load[T, P](ctx, s, kind, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// loadAll decodes every document of kind.
func loadAll[T any, P entityPtr[T]](ctx context.Context, s *Store, kind string) ([]P, error) {
	docs, err := s.docs.Scan(ctx, kind)
	if err != nil {
		return nil, mapErr(err)
	}
	out := make([]P, 0, len(docs))
	for _, doc := range docs {
		e, err := decode[T, P](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// save writes e with optimistic concurrency and appends a log entry. A
// new entity gets an id, owner and created timestamp. An update whose
// shallow diff is empty writes nothing and reports false.
func (s *Store) save(ctx context.Context, e types.Entity, kind, actor string) (bool, error) {
	m := e.Base()
	m.Kind = kind
	now := s.Timestamp()

	var before map[string]json.RawMessage
	isNew := m.Rev == ""
	if isNew {
		if m.ID == "" {
			m.ID = s.newID()
		}
		if m.Created == "" {
			m.Created = now
		}
		if m.Owner == "" {
			m.Owner = actor
		}
	} else {
		current, err := s.docs.Get(ctx, m.ID)
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				return false, fmt.Errorf("%w: %s %s was deleted", ErrConflict, kind, m.ID)
			}
			return false, mapErr(err)
		}
		if current.Rev != m.Rev {
			return false, fmt.Errorf("%w: %s %s at %s, have %s", ErrConflict, kind, m.ID, current.Rev, m.Rev)
		}
		before = fields(current.Body)
	}

	previous := m.Modified
	m.Modified = now
	rev := m.Rev
	m.Rev = ""
	body, err := json.Marshal(e)
	m.Rev = rev
	if err != nil {
		m.Modified = previous
		return false, fmt.Errorf("encoding %s: %w", kind, err)
	}

	changed := diff(before, fields(body))
	if !isNew && len(changed) == 0 {
		m.Modified = previous
		return false, nil
	}

	newRev, err := s.docs.Put(ctx, docstore.Document{ID: m.ID, Rev: rev, Kind: kind, Body: body})
	if err != nil {
		m.Modified = previous
		return false, mapErr(err)
	}
	m.Rev = newRev

	s.appendLog(ctx, m.ID, kind, actor, changed)
	return true, nil
}

// remove deletes e and every log entry that references it, then records
// the deletion.
func (s *Store) remove(ctx context.Context, e types.Entity, actor string) error {
	m := e.Base()
	if err := s.docs.Delete(ctx, m.ID, m.Rev); err != nil {
		return mapErr(err)
	}
	if err := s.deleteLogs(ctx, m.ID); err != nil {
		s.logger.Warn().Err(err).Str("doc", m.ID).Msg("deleting log entries")
	}
	s.appendLog(ctx, m.ID, m.Kind, actor, map[string]any{"_deleted": true})
	return nil
}
