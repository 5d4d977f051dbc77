// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docstore

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Store. It is safe for concurrent use and
// copies bodies on read and write.
type Memory struct {
	mu      sync.RWMutex
	indexes []Index
	known   map[string]Index
	docs    map[string]Document
	// entries[index][key] is the set of ids holding key.
	entries map[string]map[string]map[string]struct{}
	// keys[id] remembers what a document emitted so it can be unindexed.
	keys map[string][]emitted
}

// NewMemory returns an empty in-memory store with the given indexes.
func NewMemory(indexes ...Index) *Memory {
	m := &Memory{
		indexes: indexes,
		known:   indexMap(indexes),
		docs:    make(map[string]Document),
		entries: make(map[string]map[string]map[string]struct{}),
		keys:    make(map[string][]emitted),
	}
	for _, idx := range indexes {
		m.entries[idx.Name] = make(map[string]map[string]struct{})
	}
	return m
}

func clone(doc Document) Document {
	doc.Body = append([]byte(nil), doc.Body...)
	return doc
}

// Get returns a copy of the document with id.
func (m *Memory) Get(_ context.Context, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return clone(doc), nil
}

// Put writes doc if its revision is current and no unique key collides.
func (m *Memory) Put(_ context.Context, doc Document) (string, error) {
	if err := validate(doc); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.docs[doc.ID]
	switch {
	case !exists && doc.Rev != "":
		return "", ErrConflict
	case exists && doc.Rev != current.Rev:
		return "", ErrConflict
	}

	em := emit(m.indexes, doc)
	for _, e := range em {
		if !e.unique {
			continue
		}
		for _, k := range e.keys {
			for holder := range m.entries[e.index.Name][k] {
				if holder != doc.ID {
					return "", &DuplicateError{Index: e.index.Name, Key: k}
				}
			}
		}
	}

	m.unindex(doc.ID)
	doc = clone(doc)
	doc.Rev = nextRev(current.Rev)
	m.docs[doc.ID] = doc
	for _, e := range em {
		for _, k := range e.keys {
			ids := m.entries[e.index.Name][k]
			if ids == nil {
				ids = make(map[string]struct{})
				m.entries[e.index.Name][k] = ids
			}
			ids[doc.ID] = struct{}{}
		}
	}
	m.keys[doc.ID] = em
	return doc.Rev, nil
}

func (m *Memory) unindex(id string) {
	for _, e := range m.keys[id] {
		for _, k := range e.keys {
			ids := m.entries[e.index.Name][k]
			delete(ids, id)
			if len(ids) == 0 {
				delete(m.entries[e.index.Name], k)
			}
		}
	}
	delete(m.keys, id)
}

// Delete removes the document at rev.
func (m *Memory) Delete(_ context.Context, id, rev string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}
	if current.Rev != rev {
		return ErrConflict
	}
	m.unindex(id)
	delete(m.docs, id)
	return nil
}

// Query scans an index.
func (m *Memory) Query(_ context.Context, q Query) ([]Row, error) {
	if err := checkIndex(m.known, q.Index); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var rows []Row
	for key, ids := range m.entries[q.Index] {
		if !q.inRange(key) {
			continue
		}
		for id := range ids {
			rows = append(rows, Row{Key: key, ID: id})
		}
	}
	return q.finish(rows), nil
}

// Scan returns copies of every document of kind.
func (m *Memory) Scan(_ context.Context, kind string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var docs []Document
	for _, doc := range m.docs {
		if kind == "" || doc.Kind == kind {
			docs = append(docs, clone(doc))
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
