// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dump writes every document of a store to a gzip-compressed
// JSON-lines stream and loads such a stream back.
package dump

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pdiddy/publications/internal/docstore"
)

// record is one line of a dump.
type record struct {
	ID   string          `json:"id"`
	Kind string          `json:"kind"`
	Body json.RawMessage `json:"body"`
}

// Stats counts the documents written or read, per kind.
type Stats map[string]int

// Total returns the number of documents.
func (s Stats) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}

// Dump writes all documents of docs to w.
func Dump(ctx context.Context, docs docstore.Store, w io.Writer) (Stats, error) {
	all, err := docs.Scan(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("reading documents: %w", err)
	}
	zw := gzip.NewWriter(w)
	enc := json.NewEncoder(zw)
	stats := make(Stats)
	for _, d := range all {
		if err := enc.Encode(record{ID: d.ID, Kind: d.Kind, Body: d.Body}); err != nil {
			zw.Close()
			return nil, fmt.Errorf("writing %s: %w", d.ID, err)
		}
		stats[d.Kind]++
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finishing dump: %w", err)
	}
	return stats, nil
}

// Undump loads a dump into docs. A document that already exists is
// overwritten with the dumped body.
func Undump(ctx context.Context, docs docstore.Store, r io.Reader) (Stats, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening dump: %w", err)
	}
	defer zr.Close()

	stats := make(Stats)
	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
		if err := put(ctx, docs, rec); err != nil {
			return stats, fmt.Errorf("line %d: %s: %w", line, rec.ID, err)
		}
		stats[rec.Kind]++
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("reading dump: %w", err)
	}
	return stats, nil
}

func put(ctx context.Context, docs docstore.Store, rec record) error {
	doc := docstore.Document{ID: rec.ID, Kind: rec.Kind, Body: rec.Body}
	current, err := docs.Get(ctx, rec.ID)
	switch {
	case err == nil:
		doc.Rev = current.Rev
	case !errors.Is(err, docstore.ErrNotFound):
		return err
	}
	_, err = docs.Put(ctx, doc)
	return err
}
