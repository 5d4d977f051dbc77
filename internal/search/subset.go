// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/pdiddy/publications/internal/docstore"
	"github.com/pdiddy/publications/internal/normalize"
	"github.com/pdiddy/publications/internal/store"
	"github.com/pdiddy/publications/pkg/types"
)

// Subset is a set of publication ids. Union, Intersection and Difference
// return new subsets and leave their operands unchanged.
type Subset struct {
	ids map[string]struct{}
}

// NewSubset returns the subset holding ids.
func NewSubset(ids ...string) *Subset {
	s := &Subset{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Len returns the number of publications in s.
func (s *Subset) Len() int { return len(s.ids) }

// Contains reports whether id is in s.
func (s *Subset) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// IDs returns the ids of s in ascending order.
func (s *Subset) IDs() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Union returns the publications in s or o.
func (s *Subset) Union(o *Subset) *Subset {
	out := NewSubset(s.IDs()...)
	for id := range o.ids {
		out.ids[id] = struct{}{}
	}
	return out
}

// Intersection returns the publications in both s and o.
func (s *Subset) Intersection(o *Subset) *Subset {
	out := NewSubset()
	for id := range s.ids {
		if o.Contains(id) {
			out.ids[id] = struct{}{}
		}
	}
	return out
}

// Difference returns the publications in s but not in o.
func (s *Subset) Difference(o *Subset) *Subset {
	out := NewSubset()
	for id := range s.ids {
		if !o.Contains(id) {
			out.ids[id] = struct{}{}
		}
	}
	return out
}

// Publications loads the publications of s, newest first. Ids whose
// publication has since been deleted are skipped.
func (s *Subset) Publications(ctx context.Context, st *store.Store) ([]*types.Publication, error) {
	var pubs []*types.Publication
	for _, id := range s.IDs() {
		p, err := st.GetPublication(ctx, id)
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

func selectRows(ctx context.Context, st *store.Store, q docstore.Query) (*Subset, error) {
	rows, err := st.Docs().Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return NewSubset(docstore.IDs(rows)...), nil
}

// SelectAll returns every publication.
func SelectAll(ctx context.Context, st *store.Store) (*Subset, error) {
	docs, err := st.Docs().Scan(ctx, types.KindPublication)
	if err != nil {
		return nil, err
	}
	out := NewSubset()
	for _, d := range docs {
		out.ids[d.ID] = struct{}{}
	}
	return out, nil
}

// SelectYear returns the publications published in year.
func SelectYear(ctx context.Context, st *store.Store, year string) (*Subset, error) {
	return selectRows(ctx, st, docstore.Exact(store.IndexPublicationYear, strings.TrimSpace(year)))
}

// SelectLabel returns the publications carrying label, in any case.
func SelectLabel(ctx context.Context, st *store.Store, label string) (*Subset, error) {
	return selectRows(ctx, st, docstore.Exact(store.IndexPublicationLabel, normalize.Value(label)))
}

// SelectISSN returns the publications in the journal with issn as ISSN
// or ISSN-L.
func SelectISSN(ctx context.Context, st *store.Store, issn string) (*Subset, error) {
	return selectRows(ctx, st, docstore.Exact(store.IndexPublicationISSN, strings.TrimSpace(issn)))
}

// SelectAuthor returns the publications with an author named name, given
// as "Family Initials" and matched exactly after ASCII folding. A
// trailing '*' matches any continuation.
func SelectAuthor(ctx context.Context, st *store.Store, name string) (*Subset, error) {
	key := normalize.Value(name)
	if prefix, ok := strings.CutSuffix(key, "*"); ok {
		return selectRows(ctx, st, docstore.Prefix(store.IndexPublicationAuthor, prefix))
	}
	return selectRows(ctx, st, docstore.Exact(store.IndexPublicationAuthor, key))
}

// SelectORCID returns the publications linked to the researcher holding
// orcid. An unknown ORCID selects nothing.
func SelectORCID(ctx context.Context, st *store.Store, orcid string) (*Subset, error) {
	r, err := st.GetResearcherByORCID(ctx, orcid)
	if errors.Is(err, store.ErrNotFound) {
		return NewSubset(), nil
	}
	if err != nil {
		return nil, err
	}
	return selectRows(ctx, st, docstore.Exact(store.IndexPublicationResearcher, r.ID))
}

// SelectNoPMID returns the publications lacking a PMID.
func SelectNoPMID(ctx context.Context, st *store.Store) (*Subset, error) {
	return selectRows(ctx, st, docstore.All(store.IndexPublicationNoPMID))
}

// SelectNoDOI returns the publications lacking a DOI.
func SelectNoDOI(ctx context.Context, st *store.Store) (*Subset, error) {
	return selectRows(ctx, st, docstore.All(store.IndexPublicationNoDOI))
}

// SelectPublishedSince returns the publications published on or after
// date, which may be a year, a year-month or a full date.
func SelectPublishedSince(ctx context.Context, st *store.Store, date string) (*Subset, error) {
	return selectRows(ctx, st, docstore.Range(store.IndexPublicationPublished, strings.TrimSpace(date), ""))
}

// Criteria describes a selection. The values given for one field are
// unioned, and the fields given are intersected. Empty Criteria select
// nothing.
type Criteria struct {
	Years   []string `json:"years,omitempty" yaml:"years,omitempty"`
	Labels  []string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	ORCIDs  []string `json:"orcids,omitempty" yaml:"orcids,omitempty"`
	ISSNs   []string `json:"issns,omitempty" yaml:"issns,omitempty"`
}

// Empty reports whether c names no values.
func (c Criteria) Empty() bool {
	return len(c.Years)+len(c.Labels)+len(c.Authors)+len(c.ORCIDs)+len(c.ISSNs) == 0
}

type selector func(context.Context, *store.Store, string) (*Subset, error)

// Select evaluates c.
func Select(ctx context.Context, st *store.Store, c Criteria) (*Subset, error) {
	var result *Subset
	for _, field := range []struct {
		values []string
		sel    selector
	}{
		{c.Years, SelectYear},
		{c.Labels, SelectLabel},
		{c.Authors, SelectAuthor},
		{c.ORCIDs, SelectORCID},
		{c.ISSNs, SelectISSN},
	} {
		if len(field.values) == 0 {
			continue
		}
		union := NewSubset()
		for _, v := range field.values {
			s, err := field.sel(ctx, st, v)
			if err != nil {
				return nil, err
			}
			union = union.Union(s)
		}
		if result == nil {
			result = union
		} else {
			result = result.Intersection(union)
		}
	}
	if result == nil {
		return NewSubset(), nil
	}
	return result, nil
}

func newestFirst(pubs []*types.Publication) {
	sort.SliceStable(pubs, func(i, j int) bool {
		if pubs[i].Published != pubs[j].Published {
			return pubs[i].Published > pubs[j].Published
		}
		return pubs[i].ID < pubs[j].ID
	})
}
