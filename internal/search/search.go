// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search finds publications by terms matched against the
// publication indexes, selects subsets of them by field for set algebra,
// and reports likely duplicates.
package search

import (
	"context"
	"errors"
	"strings"

	"github.com/pdiddy/publications/internal/docstore"
	"github.com/pdiddy/publications/internal/identifier"
	"github.com/pdiddy/publications/internal/normalize"
	"github.com/pdiddy/publications/internal/store"
	"github.com/pdiddy/publications/pkg/types"
)

// rawIndexes are prefix-scanned with the lowercased term as given.
var rawIndexes = []string{
	store.IndexPublicationDOI,
	store.IndexPublicationPublished,
	store.IndexPublicationEpublished,
	store.IndexPublicationISSN,
	store.IndexPublicationJournal,
}

// wordIndexes are prefix-scanned with the term stripped of punctuation.
var wordIndexes = []string{
	store.IndexPublicationAuthor,
	store.IndexPublicationTitle,
	store.IndexPublicationNotes,
	store.IndexPublicationPMID,
	store.IndexPublicationXref,
}

// Terms splits a search string. A string enclosed in double quotes is a
// single phrase; otherwise each whitespace-separated word is a term with
// any of identifier.DefaultPrefixes removed.
func Terms(s string) []string {
	return splitTerms(identifier.New(nil), s)
}

func splitTerms(n *identifier.Normalizer, s string) []string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		if phrase := strings.ToLower(strings.TrimSpace(s[1 : len(s)-1])); phrase != "" {
			return []string{phrase}
		}
		return nil
	}
	var terms []string
	for _, f := range strings.Fields(s) {
		if t := strings.ToLower(n.StripPrefix(f)); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// Search returns the publications matching any term in any searched
// field, newest first.
func Search(ctx context.Context, s *store.Store, query string) ([]*types.Publication, error) {
	terms := splitTerms(s.Normalizer(), query)
	ids := make(map[string]bool)

	for _, term := range terms {
		if _, err := s.GetPublication(ctx, term); err == nil {
			ids[term] = true
		}
		if err := scan(ctx, s, rawIndexes, term, ids); err != nil {
			return nil, err
		}
	}

	for _, term := range terms {
		word := normalize.Value(normalize.StripPunctuation(term))
		word = strings.Join(strings.Fields(word), " ")
		if word == "" || normalize.IsStopWord(word) {
			continue
		}
		if err := scan(ctx, s, wordIndexes, word, ids); err != nil {
			return nil, err
		}
		if err := byLabelWord(ctx, s, word, ids); err != nil {
			return nil, err
		}
	}

	var pubs []*types.Publication
	for id := range ids {
		p, err := s.GetPublication(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, p)
	}
	newestFirst(pubs)
	return pubs, nil
}

func scan(ctx context.Context, s *store.Store, indexes []string, term string, ids map[string]bool) error {
	for _, name := range indexes {
		rows, err := s.Docs().Query(ctx, docstore.Prefix(name, term))
		if err != nil {
			return err
		}
		for _, id := range docstore.IDs(rows) {
			ids[id] = true
		}
	}
	return nil
}

// byLabelWord adds the publications carrying a label that has a word
// starting with word.
func byLabelWord(ctx context.Context, s *store.Store, word string, ids map[string]bool) error {
	labels, err := s.SearchLabels(ctx, word)
	if err != nil {
		return err
	}
	for _, l := range labels {
		rows, err := s.Docs().Query(ctx, docstore.Exact(store.IndexPublicationLabel, l.NormalizedValue))
		if err != nil {
			return err
		}
		for _, id := range docstore.IDs(rows) {
			ids[id] = true
		}
	}
	return nil
}
