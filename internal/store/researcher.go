// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/publications/internal/docstore"
	"github.com/pdiddy/publications/internal/normalize"
	"github.com/pdiddy/publications/pkg/types"
)

// GetResearcher returns the researcher with the given IUID.
func (s *Store) GetResearcher(ctx context.Context, id string) (*types.Researcher, error) {
	return load[types.Researcher](ctx, s, types.KindResearcher, id)
}

// GetResearcherByORCID returns the researcher holding orcid.
func (s *Store) GetResearcherByORCID(ctx context.Context, orcid string) (*types.Researcher, error) {
	return loadOne[types.Researcher](ctx, s, types.KindResearcher, IndexResearcherORCID, strings.TrimSpace(orcid))
}

// LookupResearcher resolves an IUID or an ORCID.
func (s *Store) LookupResearcher(ctx context.Context, input string) (*types.Researcher, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("%w: empty researcher identifier", ErrNotFound)
	}
	r, err := s.GetResearcher(ctx, strings.ToLower(input))
	if errors.Is(err, ErrNotFound) {
		return s.GetResearcherByORCID(ctx, input)
	}
	return r, err
}

// SaveResearcher writes r after squashing whitespace in its names,
// deriving initials from the given names when unset, and filling the
// normalized shadows. A family name is required; ORCID must be unique.
func (s *Store) SaveResearcher(ctx context.Context, r *types.Researcher, actor string) (bool, error) {
	r.Family = normalize.Whitespace(r.Family)
	if r.Family == "" {
		return false, fmt.Errorf("%w: researcher has no family name", ErrInvalid)
	}
	r.Given = normalize.Whitespace(r.Given)
	r.Initials = strings.Join(strings.Fields(r.Initials), "")
	if r.Initials == "" {
		for _, name := range strings.Fields(r.Given) {
			r.Initials += string([]rune(name)[:1])
		}
	}
	r.FamilyNormalized = strings.ToLower(normalize.ASCII(r.Family))
	r.GivenNormalized = strings.ToLower(normalize.ASCII(r.Given))
	r.InitialsNormalized = strings.ToLower(normalize.ASCII(r.Initials))
	r.ORCID = strings.TrimSpace(r.ORCID)

	var affiliations []string
	for _, a := range r.Affiliations {
		if a = strings.TrimSpace(a); a != "" {
			affiliations = append(affiliations, a)
		}
	}
	r.Affiliations = affiliations
	if r.Affiliations == nil {
		r.Affiliations = []string{}
	}
	return s.save(ctx, r, types.KindResearcher, actor)
}

// DeleteResearcher deletes r and its log entries. It fails with ErrInUse
// while an author of any publication is linked to r.
func (s *Store) DeleteResearcher(ctx context.Context, r *types.Researcher, actor string) error {
	q := docstore.Exact(IndexPublicationResearcher, r.ID)
	q.Limit = 1
	rows, err := s.docs.Query(ctx, q)
	if err != nil {
		return mapErr(err)
	}
	if len(rows) > 0 {
		return fmt.Errorf("%w: researcher %s is linked from publication %s", ErrInUse, r.Name(), rows[0].ID)
	}
	return s.remove(ctx, r, actor)
}

// AllResearchers returns every researcher ordered by normalized name.
func (s *Store) AllResearchers(ctx context.Context) ([]*types.Researcher, error) {
	return loadMany[types.Researcher](ctx, s, types.KindResearcher, docstore.All(IndexResearcherName))
}

// ResearchersByFamily returns the researchers with the given family
// name, in any case or accenting.
func (s *Store) ResearchersByFamily(ctx context.Context, family string) ([]*types.Researcher, error) {
	key := strings.ToLower(normalize.ASCII(normalize.Whitespace(family)))
	return loadMany[types.Researcher](ctx, s, types.KindResearcher, docstore.Exact(IndexResearcherFamily, key))
}

// ResearcherPublications returns the publications with an author linked
// to the researcher id, newest first.
func (s *Store) ResearcherPublications(ctx context.Context, id string) ([]*types.Publication, error) {
	pubs, err := s.QueryPublications(ctx, docstore.Exact(IndexPublicationResearcher, id))
	if err != nil {
		return nil, err
	}
	sortNewestFirst(pubs)
	return pubs, nil
}

// ResearcherCandidates returns the publications linked to r together with
// those having an author whose name key starts with r's family name and
// first initial, newest first.
func (s *Store) ResearcherCandidates(ctx context.Context, r *types.Researcher) ([]*types.Publication, error) {
	linked, err := s.QueryPublications(ctx, docstore.Exact(IndexPublicationResearcher, r.ID))
	if err != nil {
		return nil, err
	}
	name := r.FamilyNormalized
	if r.InitialsNormalized != "" {
		name += " " + r.InitialsNormalized[:1]
	}
	named, err := s.QueryPublications(ctx, docstore.Prefix(IndexPublicationAuthor, name))
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var pubs []*types.Publication
	for _, p := range append(linked, named...) {
		if !seen[p.ID] {
			seen[p.ID] = true
			pubs = append(pubs, p)
		}
	}
	sortNewestFirst(pubs)
	return pubs, nil
}

func sortNewestFirst(pubs []*types.Publication) {
	sort.SliceStable(pubs, func(i, j int) bool {
		if pubs[i].Published != pubs[j].Published {
			return pubs[i].Published > pubs[j].Published
		}
		return pubs[i].ID < pubs[j].ID
	})
}
