// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/publications/internal/docstore"
	"github.com/pdiddy/publications/internal/identifier"
	"github.com/pdiddy/publications/pkg/types"
)

// GetPublication returns the publication with the given IUID.
func (s *Store) GetPublication(ctx context.Context, id string) (*types.Publication, error) {
	return load[types.Publication](ctx, s, types.KindPublication, id)
}

// GetByPMID returns the publication holding pmid.
func (s *Store) GetByPMID(ctx context.Context, pmid string) (*types.Publication, error) {
	return loadOne[types.Publication](ctx, s, types.KindPublication, IndexPublicationPMID, pmid)
}

// GetByDOI returns the publication holding doi. doi must be lowercase.
func (s *Store) GetByDOI(ctx context.Context, doi string) (*types.Publication, error) {
	return loadOne[types.Publication](ctx, s, types.KindPublication, IndexPublicationDOI, doi)
}

// Lookup resolves an IUID, PMID or DOI in any accepted input form.
func (s *Store) Lookup(ctx context.Context, input string) (*types.Publication, error) {
	kind, canon := s.ids.Normalize(input)
	switch kind {
	case identifier.KindInternal:
		return s.GetPublication(ctx, canon)
	case identifier.KindPMID:
		return s.GetByPMID(ctx, canon)
	case identifier.KindDOI:
		return s.GetByDOI(ctx, canon)
	default:
		return nil, fmt.Errorf("%w: identifier %q", ErrNotFound, input)
	}
}

// SavePublication writes p on behalf of actor. It refuses a write that
// would give p an identifier held by a different publication or one that
// is blacklisted. It reports whether anything was written.
func (s *Store) SavePublication(ctx context.Context, p *types.Publication, actor string) (bool, error) {
	if p.Title == "" {
		return false, fmt.Errorf("%w: publication has no title", ErrInvalid)
	}
	for _, id := range []string{p.PMID, p.DOI} {
		if id == "" {
			continue
		}
		entry, err := s.GetBlacklist(ctx, id)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return false, err
		}
		if entry != nil {
			return false, fmt.Errorf("%w: %s", ErrBlacklisted, id)
		}
	}
	written, err := s.save(ctx, p, types.KindPublication, actor)
	if err != nil || !written {
		return written, err
	}
	s.ensureJournal(ctx, p.Journal, actor)
	return true, nil
}

// ensureJournal creates the Journal entity for ref when it has both a
// title and an ISSN and no journal with that title exists yet.
func (s *Store) ensureJournal(ctx context.Context, ref types.JournalRef, actor string) {
	if ref.Title == "" || ref.ISSN == "" {
		return
	}
	if _, err := s.GetJournal(ctx, ref.Title); err == nil {
		return
	}
	j := &types.Journal{Title: ref.Title, ISSN: ref.ISSN, ISSNL: ref.ISSNL}
	if _, err := s.SaveJournal(ctx, j, actor); err != nil && !errors.Is(err, ErrDuplicate) {
		s.logger.Warn().Err(err).Str("journal", ref.Title).Msg("creating journal")
	}
}

// DeletePublication deletes p and its log entries.
func (s *Store) DeletePublication(ctx context.Context, p *types.Publication, actor string) error {
	return s.remove(ctx, p, actor)
}

// QueryPublications runs q over a publication index.
func (s *Store) QueryPublications(ctx context.Context, q docstore.Query) ([]*types.Publication, error) {
	return loadMany[types.Publication](ctx, s, types.KindPublication, q)
}

// PublicationsByYear returns the publications published in year,
// newest first.
func (s *Store) PublicationsByYear(ctx context.Context, year string) ([]*types.Publication, error) {
	q := docstore.Prefix(IndexPublicationPublished, year+"-")
	q.Descending = true
	return s.QueryPublications(ctx, q)
}

// PublicationsByLabel returns the publications carrying label in any case.
func (s *Store) PublicationsByLabel(ctx context.Context, label string) ([]*types.Publication, error) {
	return s.QueryPublications(ctx, docstore.Exact(IndexPublicationLabel, normalizeLabel(label)))
}

// PublicationsWithoutPMID returns the publications lacking a PMID.
func (s *Store) PublicationsWithoutPMID(ctx context.Context) ([]*types.Publication, error) {
	return s.QueryPublications(ctx, docstore.All(IndexPublicationNoPMID))
}

// PublicationsWithoutDOI returns the publications lacking a DOI.
func (s *Store) PublicationsWithoutDOI(ctx context.Context) ([]*types.Publication, error) {
	return s.QueryPublications(ctx, docstore.All(IndexPublicationNoDOI))
}

// UnverifiedPublications returns the publications not yet verified.
func (s *Store) UnverifiedPublications(ctx context.Context) ([]*types.Publication, error) {
	return s.QueryPublications(ctx, docstore.All(IndexPublicationUnverified))
}

// RecentPublications returns up to limit publications, most recently
// modified first.
func (s *Store) RecentPublications(ctx context.Context, limit int) ([]*types.Publication, error) {
	q := docstore.All(IndexPublicationModified)
	q.Descending = true
	q.Limit = limit
	return s.QueryPublications(ctx, q)
}

// FirstPublishedIn returns the verified publications first published in year.
func (s *Store) FirstPublishedIn(ctx context.Context, year string) ([]*types.Publication, error) {
	return s.QueryPublications(ctx, docstore.Prefix(IndexPublicationFirstPublished, year+"-"))
}

// AcquiredPublications returns the publications currently checked out.
func (s *Store) AcquiredPublications(ctx context.Context) ([]*types.Publication, error) {
	return s.QueryPublications(ctx, docstore.All(IndexPublicationAcquired))
}

// AllPublications returns every publication.
func (s *Store) AllPublications(ctx context.Context) ([]*types.Publication, error) {
	return loadAll[types.Publication](ctx, s, types.KindPublication)
}

// Counts returns the number of documents of each kind.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, kind := range []string{
		types.KindPublication, types.KindLabel, types.KindAccount,
		types.KindJournal, types.KindResearcher, types.KindBlacklist, types.KindLog,
	} {
		docs, err := s.docs.Scan(ctx, kind)
		if err != nil {
			return nil, mapErr(err)
		}
		counts[kind] = len(docs)
	}
	return counts, nil
}
