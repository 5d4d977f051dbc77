// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"

	"github.com/pdiddy/publications/internal/docstore"
	"github.com/pdiddy/publications/internal/normalize"
	"github.com/pdiddy/publications/pkg/types"
)

// GetJournal returns the journal with the given title.
func (s *Store) GetJournal(ctx context.Context, title string) (*types.Journal, error) {
	return loadOne[types.Journal](ctx, s, types.KindJournal, IndexJournalTitle, title)
}

// JournalsByISSN returns the journals with issn as ISSN or ISSN-L.
func (s *Store) JournalsByISSN(ctx context.Context, issn string) ([]*types.Journal, error) {
	return loadMany[types.Journal](ctx, s, types.KindJournal, docstore.Exact(IndexJournalISSN, issn))
}

// SaveJournal writes j.
func (s *Store) SaveJournal(ctx context.Context, j *types.Journal, actor string) (bool, error) {
	j.Title = normalize.Whitespace(j.Title)
	if j.Title == "" {
		return false, fmt.Errorf("%w: journal has no title", ErrInvalid)
	}
	return s.save(ctx, j, types.KindJournal, actor)
}

// DeleteJournal deletes j. It fails with ErrInUse while a publication
// refers to the journal's title.
func (s *Store) DeleteJournal(ctx context.Context, j *types.Journal, actor string) error {
	q := docstore.Exact(IndexPublicationJournal, normalize.Value(j.Title))
	q.Limit = 1
	rows, err := s.docs.Query(ctx, q)
	if err != nil {
		return mapErr(err)
	}
	if len(rows) > 0 {
		return fmt.Errorf("%w: journal %q is referenced by publication %s", ErrInUse, j.Title, rows[0].ID)
	}
	return s.remove(ctx, j, actor)
}

// AllJournals returns every journal ordered by title.
func (s *Store) AllJournals(ctx context.Context) ([]*types.Journal, error) {
	return loadMany[types.Journal](ctx, s, types.KindJournal, docstore.All(IndexJournalTitle))
}
